package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/liuscraft/synthea/internal/logging"
)

// output 引擎的音频出口。Lock 保护所有声部状态，出口拉取数据时同样持有该锁。
// Add 必须在未持有 Lock 时调用。
type output interface {
	Lock()
	Unlock()
	Add(s beep.Streamer)
	Close() error
}

// engine 基于 beep 的 Backend 实现，出口可替换
type engine struct {
	name   string
	format beep.Format
	out    output
	events *dispatcher

	mu     sync.Mutex
	voices map[*voice]struct{}
	closed bool
}

func newEngine(name string, sampleRate int, out output) *engine {
	return &engine{
		name: name,
		format: beep.Format{
			SampleRate:  beep.SampleRate(sampleRate),
			NumChannels: 2,
			Precision:   2,
		},
		out:    out,
		events: newDispatcher(),
		voices: make(map[*voice]struct{}),
	}
}

func (e *engine) Name() string {
	return e.name
}

func (e *engine) Cache(path string) (Media, error) {
	return cacheFile(path, e.format)
}

func (e *engine) Stream(path string) (Media, error) {
	return probeFile(path)
}

func (e *engine) Silence() Media {
	return Silence()
}

func (e *engine) Open(onEvent func(Event)) Voice {
	v := &voice{engine: e, onEvent: onEvent, volume: 1}
	e.mu.Lock()
	e.voices[v] = struct{}{}
	e.mu.Unlock()
	return v
}

// Busy 是否有未暂停的声部在发声
func (e *engine) Busy() bool {
	e.mu.Lock()
	voices := make([]*voice, 0, len(e.voices))
	for v := range e.voices {
		voices = append(voices, v)
	}
	e.mu.Unlock()

	e.out.Lock()
	defer e.out.Unlock()
	for _, v := range voices {
		if v.cur != nil && !v.paused {
			return true
		}
	}
	return false
}

func (e *engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	voices := make([]*voice, 0, len(e.voices))
	for v := range e.voices {
		voices = append(voices, v)
	}
	e.mu.Unlock()

	for _, v := range voices {
		v.Close()
	}
	e.events.close()
	logging.Infof("Audio: %s backend closed", e.name)
	return e.out.Close()
}

func (e *engine) forget(v *voice) {
	e.mu.Lock()
	delete(e.voices, v)
	e.mu.Unlock()
}

// voice 单个声部。除 engine/onEvent 外，所有字段都在 out.Lock 下访问。
type voice struct {
	engine  *engine
	onEvent func(Event)

	gen      uint64
	cur      *segment
	next     *segment
	attached bool
	detach   bool
	paused   bool
	closed   bool

	volume   float64
	gain     float64
	gainStep float64
	fading   bool
}

func (v *voice) Play(m Media, loop bool, fadeIn time.Duration) uint64 {
	sg := openSegment(m, v.engine.format)
	sg.loop = loop

	out := v.engine.out
	out.Lock()
	if v.closed {
		out.Unlock()
		sg.release()
		return 0
	}
	v.gen++
	gen := v.gen
	v.cur.release()
	v.next.release()
	v.cur, v.next = sg, nil
	v.paused = false
	v.fading = false
	v.detach = false
	if n := v.engine.format.SampleRate.N(fadeIn); n > 0 {
		v.gain = 0
		v.gainStep = 1 / float64(n)
	} else {
		v.gain = 1
		v.gainStep = 0
	}
	needAdd := !v.attached
	v.attached = true
	out.Unlock()

	if needAdd {
		out.Add(&voiceStreamer{v: v})
	}
	v.emit(Event{Kind: EventStarted, Media: m, Gen: gen})
	return gen
}

func (v *voice) Queue(m Media, loop bool) (uint64, bool) {
	sg := openSegment(m, v.engine.format)
	sg.loop = loop

	out := v.engine.out
	out.Lock()
	if v.closed {
		out.Unlock()
		sg.release()
		return 0, false
	}
	if v.cur == nil {
		out.Unlock()
		sg.release()
		return v.Play(m, loop, 0), true
	}
	v.next.release()
	v.next = sg
	gen := v.gen
	out.Unlock()
	return gen, false
}

func (v *voice) Fadeout(d time.Duration) {
	out := v.engine.out
	out.Lock()
	defer out.Unlock()
	if v.cur == nil {
		return
	}
	n := v.engine.format.SampleRate.N(d)
	if n <= 0 {
		v.gain = 0
		v.gainStep = 0
	} else {
		v.gainStep = -v.gain / float64(n)
	}
	v.fading = true
}

func (v *voice) Stop() {
	out := v.engine.out
	out.Lock()
	defer out.Unlock()
	v.stopLocked()
}

func (v *voice) stopLocked() {
	v.gen++
	v.cur.release()
	v.next.release()
	v.cur, v.next = nil, nil
	v.fading = false
	v.paused = false
	v.detach = true
}

func (v *voice) Pause() {
	v.setPaused(true)
}

func (v *voice) Resume() {
	v.setPaused(false)
}

func (v *voice) setPaused(paused bool) {
	out := v.engine.out
	out.Lock()
	defer out.Unlock()
	v.paused = paused
}

func (v *voice) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	out := v.engine.out
	out.Lock()
	defer out.Unlock()
	v.volume = volume
}

func (v *voice) Position() time.Duration {
	out := v.engine.out
	out.Lock()
	defer out.Unlock()
	if v.cur == nil {
		return 0
	}
	return v.engine.format.SampleRate.D(v.cur.pos)
}

func (v *voice) Close() {
	out := v.engine.out
	out.Lock()
	if v.closed {
		out.Unlock()
		return
	}
	v.stopLocked()
	v.closed = true
	out.Unlock()
	v.engine.forget(v)
}

func (v *voice) emit(ev Event) {
	if v.onEvent == nil {
		return
	}
	handler := v.onEvent
	v.engine.events.post(func() { handler(ev) })
}

// finishLocked 当前媒体播放完毕或淡出完成
func (v *voice) finishLocked() {
	media := v.cur.media
	gen := v.gen
	v.cur.release()
	v.next.release()
	v.cur, v.next = nil, nil
	v.fading = false
	v.detach = true
	v.emit(Event{Kind: EventFinished, Media: media, Gen: gen})
}

// advanceLocked 当前段结束：循环则重头开始，否则接续排队的段；返回 false 表示声部已结束
func (v *voice) advanceLocked() bool {
	cur := v.cur
	if cur.loop && cur.rewind != nil {
		s, err := cur.rewind()
		if err == nil {
			cur.s = s
			cur.pos = 0
			return true
		}
		logging.Warnf("Audio: failed to loop %s: %v", cur.media.Path(), err)
	}
	if v.next != nil {
		cur.release()
		v.cur, v.next = v.next, nil
		v.emit(Event{Kind: EventSpliced, Media: v.cur.media, Gen: v.gen})
		return true
	}
	v.finishLocked()
	return false
}

// voiceStreamer 把声部接入 beep 混音器
type voiceStreamer struct {
	v *voice
}

func (s *voiceStreamer) Stream(samples [][2]float64) (int, bool) {
	v := s.v
	if v.detach {
		v.detach = false
		v.attached = false
		return 0, false
	}
	if v.paused || v.cur == nil {
		clear(samples)
		return len(samples), true
	}

	filled := 0
	stalls := 0
	for filled < len(samples) && v.cur != nil {
		n, ok := v.cur.s.Stream(samples[filled:])
		v.applyGain(samples[filled : filled+n])
		v.cur.pos += n
		filled += n
		if v.fading && v.gain <= 0 {
			v.finishLocked()
			break
		}
		if n > 0 {
			stalls = 0
		}
		if !ok || n == 0 {
			// 连续的零长度读取说明循环段为空，不能无限重绕
			if n == 0 {
				stalls++
				if stalls > 2 {
					v.finishLocked()
					break
				}
			}
			if !v.advanceLocked() {
				break
			}
		}
	}
	clear(samples[filled:])
	return len(samples), true
}

func (s *voiceStreamer) Err() error {
	return nil
}

func (v *voice) applyGain(samples [][2]float64) {
	for i := range samples {
		g := v.gain * v.volume
		samples[i][0] *= g
		samples[i][1] *= g
		if v.gainStep != 0 {
			v.gain += v.gainStep
			if v.gain >= 1 {
				v.gain, v.gainStep = 1, 0
			} else if v.gain <= 0 {
				v.gain, v.gainStep = 0, 0
			}
		}
	}
}

// dispatcher 在独立 goroutine 上按顺序投递声部事件，避免在音频回调中调用上层代码
type dispatcher struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) post(f func()) {
	d.mu.Lock()
	d.queue = append(d.queue, f)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}
		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			f := d.queue[0]
			d.queue = d.queue[1:]
			d.mu.Unlock()
			f()
		}
	}
}

func (d *dispatcher) close() {
	d.once.Do(func() { close(d.done) })
}
