// Package mixer 管理按互斥组划分的播放声道。
package mixer

import (
	"errors"
	"slices"
	"time"

	"github.com/liuscraft/synthea/internal/audio"
	"github.com/liuscraft/synthea/internal/cue"
	"github.com/liuscraft/synthea/internal/logging"
	"github.com/liuscraft/synthea/internal/observe"
)

// ErrNoAvailableChannel 声道池已满
var ErrNoAvailableChannel = errors.New("mixer: no available channel")

// Config Mixer 配置
type Config struct {
	MaxChannels   int     // 声道上限，0 为不限制；满时回收最早创建的声道
	EffectsVolume float64 // 效果声音量
	MusicVolume   float64 // MUSIC 组音量
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxChannels:   32,
		EffectsVolume: 1.0,
		MusicVolume:   1.0,
	}
}

// Option 可选项
type Option func(*Mixer)

// WithPost 设置声部事件回到控制线程的入口，默认直接执行
func WithPost(post func(func())) Option {
	return func(m *Mixer) {
		m.post = post
	}
}

func WithMetrics(met *observe.Metrics) Option {
	return func(m *Mixer) {
		m.metrics = met
	}
}

// Mixer 互斥组 -> 按创建顺序排列的声道。
// 每个声道恰好出现在一个组中；除 New 外所有方法都要求调用方持有控制锁。
type Mixer struct {
	cfg     Config
	backend audio.Backend
	post    func(func())
	metrics *observe.Metrics

	groups map[cue.Group][]*Channel
	order  []cue.Group
	nextID uint64
}

func New(backend audio.Backend, cfg *Config, opts ...Option) *Mixer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &Mixer{
		cfg:     *cfg,
		backend: backend,
		post:    func(f func()) { f() },
		groups:  make(map[cue.Group][]*Channel),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Backend 返回底层引擎
func (m *Mixer) Backend() audio.Backend {
	return m.backend
}

// FindChannel 为 group 新建一个声道并追加到组末尾，空闲声道不复用
func (m *Mixer) FindChannel(group cue.Group) *Channel {
	if group == "" {
		group = cue.GroupAny
	}
	m.makeRoom()

	m.nextID++
	ch := &Channel{
		id:    m.nextID,
		group: group,
		mixer: m,
		sm:    NewStateMachine(),
	}
	ch.voice = m.openVoice(ch)
	m.attach(ch)
	return ch
}

// Play 播放 ch 上已载入的媒体；互斥组中其他在发声的声道先淡出 fadeOut
func (m *Mixer) Play(ch *Channel, loop bool, fadeIn, fadeOut time.Duration) {
	m.FadeOthers(ch, fadeOut)
	ch.Play(loop, fadeIn)
	m.metrics.RecordPlay(ch.group.String())
}

// FadeOthers 淡出与 ch 同一互斥组中其他在发声且未淡出的声道；通配组不做任何事
func (m *Mixer) FadeOthers(ch *Channel, d time.Duration) {
	if !ch.group.Exclusive() {
		return
	}
	for _, other := range m.snapshot(ch.group) {
		if other != ch && other.Active() {
			other.Fadeout(d)
		}
	}
}

// Fadeout 淡出所有在发声的声道
func (m *Mixer) Fadeout(d time.Duration) {
	m.FadeoutWhere(d, func(cue.Group) bool { return true })
}

// FadeoutGroup 只淡出 group 中的声道
func (m *Mixer) FadeoutGroup(d time.Duration, group cue.Group) {
	m.FadeoutWhere(d, func(g cue.Group) bool { return g == group })
}

func (m *Mixer) FadeoutWhere(d time.Duration, match func(cue.Group) bool) {
	for _, ch := range m.Channels() {
		if match(ch.group) && ch.Active() {
			ch.Fadeout(d)
		}
	}
}

// StopAll 立即停止所有声道
func (m *Mixer) StopAll() {
	m.StopWhere(func(cue.Group) bool { return true })
}

func (m *Mixer) StopWhere(match func(cue.Group) bool) {
	for _, ch := range m.Channels() {
		if match(ch.group) {
			ch.Stop()
		}
	}
}

func (m *Mixer) PauseWhere(match func(cue.Group) bool) {
	for _, ch := range m.Channels() {
		if match(ch.group) {
			ch.Pause()
		}
	}
}

func (m *Mixer) ResumeWhere(match func(cue.Group) bool) {
	for _, ch := range m.Channels() {
		if match(ch.group) {
			ch.Resume()
		}
	}
}

// Busy 是否有声道在发声（含淡出中，不含暂停）
func (m *Mixer) Busy() bool {
	return m.BusyWhere(func(cue.Group) bool { return true })
}

func (m *Mixer) BusyWhere(match func(cue.Group) bool) bool {
	for _, chans := range m.groups {
		for _, ch := range chans {
			if !match(ch.group) {
				continue
			}
			if s := ch.State(); s == StatePlaying || s == StateFadingOut {
				return true
			}
		}
	}
	return false
}

// PausedWhere 是否有匹配的声道处于暂停
func (m *Mixer) PausedWhere(match func(cue.Group) bool) bool {
	for _, chans := range m.groups {
		for _, ch := range chans {
			if match(ch.group) && ch.State() == StatePaused {
				return true
			}
		}
	}
	return false
}

// ActiveInGroup 返回组内在发声且未淡出的声道
func (m *Mixer) ActiveInGroup(group cue.Group) []*Channel {
	var out []*Channel
	for _, ch := range m.groups[group] {
		if ch.Active() {
			out = append(out, ch)
		}
	}
	return out
}

// Channels 按创建顺序返回所有声道
func (m *Mixer) Channels() []*Channel {
	var out []*Channel
	for _, g := range m.order {
		out = append(out, m.groups[g]...)
	}
	slices.SortFunc(out, func(a, b *Channel) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Group 返回组内声道
func (m *Mixer) Group(group cue.Group) []*Channel {
	return m.snapshot(group)
}

// Groups 按首次出现顺序返回所有组
func (m *Mixer) Groups() []cue.Group {
	return append([]cue.Group(nil), m.order...)
}

// Len 声道总数
func (m *Mixer) Len() int {
	n := 0
	for _, chans := range m.groups {
		n += len(chans)
	}
	return n
}

// Release 移除空闲声道（例如排队后又被取消的条目）
func (m *Mixer) Release(ch *Channel) {
	if ch == nil || ch.released || !ch.Idle() {
		return
	}
	m.release(ch)
}

// Close 停止并释放所有声道
func (m *Mixer) Close() {
	for _, ch := range m.Channels() {
		ch.Stop()
		if !ch.released {
			m.release(ch)
		}
	}
}

func (m *Mixer) openVoice(ch *Channel) audio.Voice {
	var v audio.Voice
	v = m.backend.Open(func(ev audio.Event) {
		m.post(func() {
			if ch.voice == v {
				ch.handleEvent(ev)
			}
		})
	})
	if ch.group == cue.GroupMusic {
		v.SetVolume(m.cfg.MusicVolume)
	} else {
		v.SetVolume(m.cfg.EffectsVolume)
	}
	return v
}

func (m *Mixer) attach(ch *Channel) {
	if _, ok := m.groups[ch.group]; !ok {
		m.order = append(m.order, ch.group)
	}
	m.groups[ch.group] = append(m.groups[ch.group], ch)
}

func (m *Mixer) release(ch *Channel) {
	chans := m.groups[ch.group]
	if i := slices.Index(chans, ch); i >= 0 {
		m.groups[ch.group] = slices.Delete(chans, i, i+1)
	}
	ch.released = true
	ch.voice.Close()
}

// readmit 已释放的声道重新加入所在组（延迟播放命中已结束的声道时）
func (m *Mixer) readmit(ch *Channel) {
	m.makeRoom()
	ch.released = false
	ch.voice = m.openVoice(ch)
	m.attach(ch)
}

func (m *Mixer) makeRoom() {
	if m.cfg.MaxChannels <= 0 {
		return
	}
	for m.Len() >= m.cfg.MaxChannels {
		chans := m.Channels()
		if len(chans) == 0 {
			return
		}
		oldest := chans[0]
		logging.Warnf("Mixer: %v, evicting %s", ErrNoAvailableChannel, oldest)
		m.metrics.RecordEviction()
		if oldest.Idle() {
			m.release(oldest)
		} else {
			oldest.Stop()
		}
	}
}

func (m *Mixer) snapshot(group cue.Group) []*Channel {
	return append([]*Channel(nil), m.groups[group]...)
}
