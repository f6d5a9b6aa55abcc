// Package deferral 延迟播放调度：等待前一条淡出完成后再开始（等待模式），
// 以及在循环引子之后接续循环主体。
//
// Scheduler 的方法要求调用方持有控制锁；定时器到期后经由 Post 回到控制线程。
package deferral

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liuscraft/synthea/internal/audio"
	"github.com/liuscraft/synthea/internal/clock"
	"github.com/liuscraft/synthea/internal/logging"
	"github.com/liuscraft/synthea/internal/observe"
)

// DefaultDelay 循环主体相对引子开始的默认延迟
const DefaultDelay = 500 * time.Millisecond

// ErrOverwritten 单槽模式下未触发的延迟被新的延迟覆盖
var ErrOverwritten = errors.New("deferral: pending deferral overwritten")

// Mode 延迟槽模式
type Mode int

const (
	// MultiSlot 每个延迟独立计时，按布置顺序保存
	MultiSlot Mode = iota
	// SingleSlot 只有一个槽位，重新布置会丢弃尚未触发的延迟
	SingleSlot
)

func (m Mode) String() string {
	switch m {
	case MultiSlot:
		return "multi"
	case SingleSlot:
		return "single"
	default:
		return "unknown"
	}
}

// ParseMode 解析模式名，空串为 MultiSlot
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "multi", "multi_slot":
		return MultiSlot, nil
	case "single", "single_slot":
		return SingleSlot, nil
	default:
		return MultiSlot, fmt.Errorf("invalid deferral mode: %q", s)
	}
}

// Target 延迟到期时操作的声道，*mixer.Channel 满足该接口
type Target interface {
	Idle() bool
	// Stopped 声道上一次播放是否被停止或淡出，此时延迟不再生效
	Stopped() bool
	HasQueued() bool
	PlayMedia(m audio.Media, loop bool, fadeIn time.Duration)
	Enqueue(m audio.Media, loop bool)
}

// Deferral 一次延迟播放。
// OneShot 为 false 时，到期遇到声道已有排队媒体会按同样的延迟重试，直到媒体排入为止。
type Deferral struct {
	Target  Target
	Media   audio.Media
	OneShot bool
	Loop    bool
	Delay   time.Duration
}

// FadeSettings 返回当前是否启用渐变以及淡入时长
type FadeSettings func() (fadeStyle bool, fadeIn time.Duration)

type Option func(*Scheduler)

// WithMode 设置槽位模式
func WithMode(mode Mode) Option {
	return func(s *Scheduler) {
		s.mode = mode
	}
}

// WithPost 定时器回调回到控制线程的入口，默认直接执行
func WithPost(post func(func())) Option {
	return func(s *Scheduler) {
		s.post = post
	}
}

func WithFadeSettings(f FadeSettings) Option {
	return func(s *Scheduler) {
		s.fade = f
	}
}

func WithMetrics(met *observe.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = met
	}
}

type entry struct {
	d     Deferral
	timer clock.Timer
	done  bool
}

// Scheduler 延迟播放调度器
type Scheduler struct {
	clock   clock.Clock
	silence audio.Media
	mode    Mode
	post    func(func())
	fade    FadeSettings
	metrics *observe.Metrics

	pending []*entry
}

// New 创建调度器；silence 为取消时推入目标声道的静音占位
func New(clk clock.Clock, silence audio.Media, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:   clk,
		silence: silence,
		post:    func(f func()) { f() },
		fade:    func() (bool, time.Duration) { return false, 0 },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Mode() Mode {
	return s.mode
}

// Pending 尚未触发的延迟数量
func (s *Scheduler) Pending() int {
	return len(s.pending)
}

// Defer 布置一次延迟播放
func (s *Scheduler) Defer(d Deferral) {
	if d.Target == nil || d.Media == nil {
		return
	}
	if s.mode == SingleSlot && len(s.pending) > 0 {
		for _, prev := range s.pending {
			prev.done = true
			prev.timer.Stop()
			logging.Debugf("Deferral: %v, dropping %s", ErrOverwritten, prev.d.Media.Path())
			s.metrics.RecordDeferral(observe.DeferralOverwritten)
		}
		s.pending = nil
	}

	kind := "continuous"
	if d.OneShot {
		kind = "one-shot"
	}
	logging.Debugf("Deferral: arming %s deferral of %s delayed %s loop=%v", kind, d.Media.Path(), d.Delay, d.Loop)

	e := &entry{d: d}
	s.arm(e)
	s.pending = append(s.pending, e)
	s.metrics.RecordDeferral(observe.DeferralArmed)
}

// Cancel 取消全部未触发的延迟，并向其目标声道推入静音占位。可重复调用。
func (s *Scheduler) Cancel() {
	if len(s.pending) == 0 {
		return
	}
	pending := s.pending
	s.pending = nil
	for _, e := range pending {
		e.done = true
		e.timer.Stop()
		e.d.Target.Enqueue(s.silence, false)
		s.metrics.RecordDeferral(observe.DeferralCancelled)
	}
	logging.Debugf("Deferral: cancelled %d pending deferral(s)", len(pending))
}

func (s *Scheduler) arm(e *entry) {
	e.timer = s.clock.AfterFunc(e.d.Delay, func() {
		s.post(func() { s.fire(e) })
	})
}

func (s *Scheduler) fire(e *entry) {
	if e.done {
		return
	}
	t := e.d.Target
	if t.Stopped() {
		s.finish(e)
		logging.Debugf("Deferral: target was stopped, dropping %s", e.d.Media.Path())
		s.metrics.RecordDeferral(observe.DeferralSkipped)
		return
	}
	if t.HasQueued() {
		if !e.d.OneShot {
			s.arm(e)
			return
		}
		s.finish(e)
		logging.Debugf("Deferral: target already has a queued segment, skipping %s", e.d.Media.Path())
		s.metrics.RecordDeferral(observe.DeferralSkipped)
		return
	}
	s.finish(e)

	if fadeStyle, fadeIn := s.fade(); t.Idle() && fadeStyle {
		logging.Debugf("Deferral: now playing %s", e.d.Media.Path())
		t.PlayMedia(e.d.Media, e.d.Loop, fadeIn)
		s.metrics.RecordDeferral(observe.DeferralPlayed)
		return
	}
	logging.Debugf("Deferral: now queuing %s", e.d.Media.Path())
	t.Enqueue(e.d.Media, e.d.Loop)
	s.metrics.RecordDeferral(observe.DeferralSpliced)
}

func (s *Scheduler) finish(e *entry) {
	e.done = true
	for i, p := range s.pending {
		if p == e {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}
