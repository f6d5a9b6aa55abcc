// Package mock 提供记录调用的 audio.Backend，用于测试调度逻辑。
//
// 与真实引擎不同，声部不会自行结束：测试通过 Finish / CompleteFade 显式驱动
// 媒体结束，事件在调用方 goroutine 上同步投递。Play 不投递 EventStarted。
package mock

import (
	"fmt"
	"sync"
	"time"

	"github.com/liuscraft/synthea/internal/audio"
)

// Media 测试用媒体
type Media struct {
	path     string
	duration time.Duration
	silent   bool
}

func NewMedia(path string, d time.Duration) *Media {
	return &Media{path: path, duration: d}
}

func (m *Media) Path() string            { return m.path }
func (m *Media) Duration() time.Duration { return m.duration }
func (m *Media) Silent() bool            { return m.silent }

func (m *Media) String() string {
	if m.silent {
		return "<silence>"
	}
	return m.path
}

// Backend 记录调用的引擎
type Backend struct {
	mu        sync.Mutex
	durations map[string]time.Duration
	missing   map[string]bool
	voices    []*Voice
	loads     []string
	closed    bool
}

func New() *Backend {
	return &Backend{
		durations: make(map[string]time.Duration),
		missing:   make(map[string]bool),
	}
}

// SetDuration 设置某路径媒体的时长，默认 1s
func (b *Backend) SetDuration(path string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.durations[path] = d
}

// SetMissing 让该路径按缺失文件处理
func (b *Backend) SetMissing(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.missing[path] = true
}

func (b *Backend) Name() string { return "mock" }

func (b *Backend) Cache(path string) (audio.Media, error) {
	return b.load(path)
}

func (b *Backend) Stream(path string) (audio.Media, error) {
	return b.load(path)
}

func (b *Backend) load(path string) (audio.Media, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads = append(b.loads, path)
	if b.missing[path] {
		return nil, fmt.Errorf("%w: %s", audio.ErrMissingSource, path)
	}
	d, ok := b.durations[path]
	if !ok {
		d = time.Second
	}
	return NewMedia(path, d), nil
}

// Loads 返回按顺序加载过的路径
func (b *Backend) Loads() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.loads...)
}

func (b *Backend) Silence() audio.Media {
	return &Media{silent: true}
}

func (b *Backend) Open(onEvent func(audio.Event)) audio.Voice {
	v := &Voice{onEvent: onEvent, Volume: 1}
	b.mu.Lock()
	b.voices = append(b.voices, v)
	b.mu.Unlock()
	return v
}

// Voices 返回所有打开过的声部
func (b *Backend) Voices() []*Voice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Voice(nil), b.voices...)
}

func (b *Backend) Busy() bool {
	for _, v := range b.Voices() {
		if v.Playing() {
			return true
		}
	}
	return false
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Voice 记录状态的声部
type Voice struct {
	mu      sync.Mutex
	onEvent func(audio.Event)
	gen     uint64

	Current  audio.Media
	Loop     bool
	FadeIn   time.Duration
	Next     audio.Media
	NextLoop bool
	Fading   bool
	FadeTime time.Duration
	Paused   bool
	Closed   bool
	Volume   float64
	Calls    []string
	position time.Duration
}

func (v *Voice) Play(m audio.Media, loop bool, fadeIn time.Duration) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.Current, v.Loop, v.FadeIn = m, loop, fadeIn
	v.Next, v.NextLoop = nil, false
	v.Fading, v.Paused = false, false
	v.position = 0
	v.Calls = append(v.Calls, fmt.Sprintf("play %v loop=%v fade=%s", m, loop, fadeIn))
	return v.gen
}

func (v *Voice) Queue(m audio.Media, loop bool) (uint64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, fmt.Sprintf("queue %v loop=%v", m, loop))
	if v.Current == nil {
		v.gen++
		v.Current, v.Loop, v.FadeIn = m, loop, 0
		v.position = 0
		return v.gen, true
	}
	v.Next, v.NextLoop = m, loop
	return v.gen, false
}

func (v *Voice) Fadeout(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, fmt.Sprintf("fadeout %s", d))
	if v.Current == nil {
		return
	}
	v.Fading, v.FadeTime = true, d
}

func (v *Voice) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, "stop")
	v.gen++
	v.Current, v.Next = nil, nil
	v.Fading, v.Paused = false, false
}

func (v *Voice) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, "pause")
	v.Paused = true
}

func (v *Voice) Resume() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, "resume")
	v.Paused = false
}

func (v *Voice) SetVolume(volume float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Volume = volume
}

func (v *Voice) Position() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position
}

// SetPosition 设置当前播放位置
func (v *Voice) SetPosition(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.position = d
}

func (v *Voice) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Closed = true
	v.Current, v.Next = nil, nil
}

// Playing 是否在发声
func (v *Voice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.Current != nil && !v.Paused
}

// Finish 模拟当前媒体自然结束：有排队媒体则接续，否则投递 EventFinished。
// 循环播放的媒体不会结束。
func (v *Voice) Finish() {
	v.mu.Lock()
	if v.Current == nil || v.Loop {
		v.mu.Unlock()
		return
	}
	var ev audio.Event
	if v.Next != nil {
		v.Current, v.Loop = v.Next, v.NextLoop
		v.Next, v.NextLoop = nil, false
		v.position = 0
		ev = audio.Event{Kind: audio.EventSpliced, Media: v.Current, Gen: v.gen}
	} else {
		ev = audio.Event{Kind: audio.EventFinished, Media: v.Current, Gen: v.gen}
		v.Current = nil
		v.Fading = false
	}
	handler := v.onEvent
	v.mu.Unlock()

	if handler != nil {
		handler(ev)
	}
}

// CompleteFade 模拟淡出完成
func (v *Voice) CompleteFade() {
	v.mu.Lock()
	if v.Current == nil || !v.Fading {
		v.mu.Unlock()
		return
	}
	ev := audio.Event{Kind: audio.EventFinished, Media: v.Current, Gen: v.gen}
	v.Current, v.Next = nil, nil
	v.Fading = false
	handler := v.onEvent
	v.mu.Unlock()

	if handler != nil {
		handler(ev)
	}
}

// LastCall 返回最近一次调用记录
func (v *Voice) LastCall() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.Calls) == 0 {
		return ""
	}
	return v.Calls[len(v.Calls)-1]
}
