// Package board 是播放面板的控制核心：触发队列、条目播放规则以及
// 面向界面或远程端的控制操作（锁定、取消、暂停、淡化设置、模式切换、DJ）。
package board

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/liuscraft/synthea/internal/audio"
	"github.com/liuscraft/synthea/internal/clock"
	"github.com/liuscraft/synthea/internal/cue"
	"github.com/liuscraft/synthea/internal/deferral"
	"github.com/liuscraft/synthea/internal/logging"
	"github.com/liuscraft/synthea/internal/mixer"
	"github.com/liuscraft/synthea/internal/observe"
)

var (
	// ErrUnknownCue 条目名不存在
	ErrUnknownCue = errors.New("board: unknown cue")
	ErrClosed     = errors.New("board: controller closed")
)

// Config 控制器配置
type Config struct {
	Mixer        *mixer.Config
	DeferralMode deferral.Mode
	// DJHistory DJ 模式下不重复的最近条目数
	DJHistory int
}

func DefaultConfig() *Config {
	return &Config{
		Mixer:        mixer.DefaultConfig(),
		DeferralMode: deferral.MultiSlot,
		DJHistory:    20,
	}
}

type Option func(*Controller)

// WithClock 替换定时所用的时钟
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		c.clock = clk
	}
}

// WithRand 替换变体选择与 DJ 所用的随机源
func WithRand(r cue.Rand) Option {
	return func(c *Controller) {
		c.rand = r
	}
}

func WithMetrics(met *observe.Metrics) Option {
	return func(c *Controller) {
		c.metrics = met
	}
}

// Controller 面板的组合根。一把锁串行化所有状态修改；
// 定时器与声部事件经由 update 进入。
type Controller struct {
	mu sync.Mutex

	cfg       Config
	clock     clock.Clock
	rand      cue.Rand
	metrics   *observe.Metrics
	backend   audio.Backend
	mixer     *mixer.Mixer
	deferrals *deferral.Scheduler
	queue     *TriggerQueue
	bus       *statusBus

	project  *Project
	settings Settings
	cues     []*cueState
	byName   map[string]*cueState
	bindings map[string]Action
	crash    audio.Media

	nowPlaying string
	looping    bool
	remaining  time.Duration
	ticker     clock.Timer
	tickGen    uint64

	djHistory []*cueState
	djTimer   clock.Timer
	djGen     uint64
	djActive  bool

	closed bool
}

// New 创建控制器并按第一个模式加载项目中的全部条目
func New(backend audio.Backend, project *Project, cfg *Config, opts ...Option) (*Controller, error) {
	if backend == nil {
		return nil, errors.New("board: backend is required")
	}
	if project == nil {
		return nil, errors.New("board: project is required")
	}
	if err := project.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project: %w", err)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	c := &Controller{
		cfg:     *cfg,
		clock:   clock.Real(),
		rand:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		backend: backend,
		bus:     newStatusBus(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.DJHistory <= 0 {
		c.cfg.DJHistory = 20
	}

	c.mixer = mixer.New(backend, cfg.Mixer, mixer.WithPost(c.update), mixer.WithMetrics(c.metrics))
	c.deferrals = deferral.New(c.clock, backend.Silence(),
		deferral.WithMode(cfg.DeferralMode),
		deferral.WithPost(c.update),
		deferral.WithMetrics(c.metrics),
		deferral.WithFadeSettings(func() (bool, time.Duration) {
			return c.settings.FadeStyle, c.settings.FadeIn
		}),
	)
	c.queue = newTriggerQueue(c)
	c.loadProject(project)
	return c, nil
}

func (c *Controller) loadProject(p *Project) {
	c.project = p
	c.settings = p.Settings
	if c.settings.ModeIndex >= len(c.settings.Modes) {
		c.settings.ModeIndex = 0
	}
	c.cues = nil
	c.byName = make(map[string]*cueState)
	c.bindings = make(map[string]Action)
	for _, cu := range p.Layout.Cues() {
		cs := c.newCueState(cu)
		c.cues = append(c.cues, cs)
		c.byName[cu.Name] = cs
		if cu.Hotkey != "" {
			c.bindings[cu.Hotkey] = Play{Cue: cu.Name}
		}
	}
	for _, b := range p.Bindings {
		c.bindings[b.Key] = b.Action
	}
	c.loadAll()
	logging.Infof("Board: loaded project %s with %d cues, mode %q", p.Name, len(c.cues), c.settings.Mode())
}

func (c *Controller) loadAll() {
	for _, cs := range c.cues {
		c.loadMode(cs)
	}
	c.crash = nil
	if noise := c.project.CrashNoise; noise != "" && noise != "none" {
		c.crash = c.loadMedia(c.resolve(noise), cue.Cached)
	}
}

// update 在控制锁下执行 f，随后处理挂起的对白播放并推送状态
func (c *Controller) update(f func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	f()
	if c.queue.Held() && !c.locked() && !c.mixer.Busy() {
		c.queue.Advance()
	}
	st := c.statusLocked()
	c.mu.Unlock()
	c.bus.publish(st)
}

// Trigger 触发条目（按钮或热键按下）
func (c *Controller) Trigger(name string) error {
	var err error
	c.update(func() {
		cs, ok := c.byName[name]
		if !ok {
			err = fmt.Errorf("%w: %s", ErrUnknownCue, name)
			return
		}
		c.queueForPlayback(cs)
	})
	return err
}

// ToggleLock 锁定时触发只进入队列；解锁时立即推进一次
func (c *Controller) ToggleLock() {
	c.update(c.toggleLock)
}

func (c *Controller) toggleLock() {
	c.settings.Locked = !c.settings.Locked
	logging.Infof("Board: locked=%v", c.settings.Locked)
	if !c.settings.Locked {
		c.queue.Advance()
	}
}

func isMusic(g cue.Group) bool   { return g == cue.GroupMusic }
func isEffects(g cue.Group) bool { return g != cue.GroupMusic }

// Cancel 停止效果声和/或音乐。fadeOut 为 false 或处于暂停时硬切；interrupt 时播放撞击噪声。
// 没有任何播放时调用也是安全的。
func (c *Controller) Cancel(effects, music, fadeOut, interrupt bool) {
	c.update(func() { c.cancel(effects, music, fadeOut, interrupt) })
}

func (c *Controller) cancel(effects, music, fadeOut, interrupt bool) {
	s := &c.settings
	if effects {
		switch {
		case s.Type == TypeDialog:
			c.mixer.StopWhere(isEffects)
		case fadeOut && !s.EffectsPaused:
			c.mixer.FadeoutWhere(s.FadeOut, isEffects)
		default:
			c.mixer.StopWhere(isEffects)
		}
		c.queue.CancelAll()
		if s.Locked {
			c.toggleLock()
		}
		s.EffectsPaused = false
	}
	if music {
		if fadeOut && !s.MusicPaused {
			c.mixer.FadeoutWhere(s.FadeOut, isMusic)
		} else {
			c.mixer.StopWhere(isMusic)
		}
		c.deferrals.Cancel()
		s.MusicPaused = false
	}
	if interrupt && c.crash != nil && !c.crash.Silent() {
		ch := c.mixer.FindChannel(cue.GroupAny)
		ch.PlayMedia(c.crash, false, 0)
	}
	c.clearPlaying()
	c.stopDJ()
	c.dropCache()
	logging.Infof("Board: cancelled effects=%v music=%v fade=%v interrupt=%v", effects, music, fadeOut, interrupt)
}

// Pause 按轴切换暂停；该轴没有任何声道在发声或暂停时只清除暂停标记
func (c *Controller) Pause(effects, music bool) {
	c.update(func() { c.pause(effects, music) })
}

func (c *Controller) pause(effects, music bool) {
	s := &c.settings
	if music {
		s.MusicPaused = c.togglePause(isMusic, s.MusicPaused)
	}
	if effects {
		s.EffectsPaused = c.togglePause(isEffects, s.EffectsPaused)
	}
}

func (c *Controller) togglePause(match func(cue.Group) bool, paused bool) bool {
	if !c.mixer.BusyWhere(match) && !c.mixer.PausedWhere(match) {
		return false
	}
	if paused {
		c.mixer.ResumeWhere(match)
		return false
	}
	c.mixer.PauseWhere(match)
	return true
}

// SetFadeTime 设置淡入、淡出或两者的时长（秒，精确到毫秒）
func (c *Controller) SetFadeTime(seconds float64, target FadeTarget) {
	c.update(func() {
		d := time.Duration(math.Round(math.Max(seconds, 0)*1000)) * time.Millisecond
		switch target {
		case FadeIn:
			c.settings.FadeIn = d
		case FadeOut:
			c.settings.FadeOut = d
		default:
			c.settings.FadeIn, c.settings.FadeOut = d, d
		}
		logging.Debugf("Board: %s", c.settings.FadeLabel())
	})
}

// SetCrossfadeEnabled 同时设置两个交叉淡化开关
func (c *Controller) SetCrossfadeEnabled(enabled bool) {
	c.update(func() {
		c.settings.Overlap, c.settings.FadeStyle = enabled, enabled
		logging.Debugf("Board: crossfade %s", c.settings.CrossfadeLabel())
	})
}

func (c *Controller) ToggleCrossfade(axis Axis) {
	c.update(func() {
		if axis == AxisFadeStyle {
			c.settings.FadeStyle = !c.settings.FadeStyle
		} else {
			c.settings.Overlap = !c.settings.Overlap
		}
		logging.Debugf("Board: crossfade %s", c.settings.CrossfadeLabel())
	})
}

// ChangeMode 切换到下一个模式目录并重新加载所有条目；只有一个模式时不做任何事
func (c *Controller) ChangeMode() {
	c.update(func() {
		if len(c.settings.Modes) < 2 {
			return
		}
		c.settings.ModeIndex = (c.settings.ModeIndex + 1) % len(c.settings.Modes)
		c.loadAll()
		logging.Infof("Board: mode %s", c.modeLabel())
	})
}

// Reload 停止所有播放，用新项目重建条目目录
func (c *Controller) Reload(p *Project) error {
	if p == nil {
		return errors.New("board: project is required")
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}
	c.update(func() {
		c.queue.CancelAll()
		c.mixer.StopAll()
		c.clearPlaying()
		c.stopDJ()
		locked := c.settings.Locked
		c.loadProject(p)
		c.settings.Locked = locked
	})
	return nil
}

// HandleKey 执行热键绑定的动作；未绑定的键返回 false
func (c *Controller) HandleKey(key string) (bool, error) {
	c.mu.Lock()
	action, ok := c.bindings[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, c.Dispatch(action)
}

// Status 当前状态快照
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Subscribe 注册状态观察者，返回取消订阅函数
func (c *Controller) Subscribe(h func(Status)) func() {
	return c.bus.subscribe(h)
}

func (c *Controller) statusLocked() Status {
	busy := 0
	for _, ch := range c.mixer.Channels() {
		if !ch.Idle() {
			busy++
		}
	}
	return Status{
		Queued:     c.queue.Names(),
		NowPlaying: c.nowPlaying,
		Looping:    c.looping,
		Remaining:  c.remaining,
		Mode:       c.modeLabel(),
		Crossfade:  c.settings.CrossfadeLabel(),
		Fade:       c.settings.FadeLabel(),
		Locked:     c.settings.Locked,
		Pause:      c.settings.PauseNote(),
		DJ:         c.djActive,
		Channels:   busy,
	}
}

func (c *Controller) modeLabel() string {
	switch {
	case c.djActive:
		return "*DJ MODE*"
	case len(c.settings.Modes) > 1:
		return "Mode: " + strings.ToUpper(c.settings.Mode())
	case c.settings.DJ:
		return "Mode: Normal"
	default:
		return ""
	}
}

// Close 停止所有定时器和声道。之后的操作都被忽略。
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.deferrals.Cancel()
	c.stopStatusTick()
	c.stopDJ()
	c.mixer.Close()
	c.closed = true
	logging.Infof("Board: closed")
	return nil
}
