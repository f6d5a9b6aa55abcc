package mixer

import (
	"fmt"
	"time"

	"github.com/liuscraft/synthea/internal/audio"
	"github.com/liuscraft/synthea/internal/cue"
	"github.com/liuscraft/synthea/internal/logging"
)

// Channel 一个并发播放槽位，由 Mixer 独占。
// 不变式：Media() 非空当且仅当 State() != StateIdle。
// 所有方法都要求调用方持有控制锁。
type Channel struct {
	id    uint64
	group cue.Group
	mixer *Mixer
	voice audio.Voice
	sm    *StateMachine

	staged     audio.Media
	media      audio.Media
	loop       bool
	queued     audio.Media
	queuedLoop bool
	gen        uint64
	released   bool
	stopped    bool
}

func (ch *Channel) ID() uint64 { return ch.id }

func (ch *Channel) Group() cue.Group { return ch.group }

func (ch *Channel) State() State { return ch.sm.GetCurrentState() }

// Media 当前绑定（正在发声）的媒体
func (ch *Channel) Media() audio.Media { return ch.media }

// Loop 当前媒体是否循环
func (ch *Channel) Loop() bool { return ch.loop }

// Idle 是否空闲
func (ch *Channel) Idle() bool { return ch.State() == StateIdle }

// Active 是否在发声且未淡出
func (ch *Channel) Active() bool { return ch.State() == StatePlaying }

// Released 是否已从所在组移除
func (ch *Channel) Released() bool { return ch.released }

// Stopped 上次播放是否被停止或淡出结束（而非自然播完）
func (ch *Channel) Stopped() bool { return ch.stopped }

// HasQueued 是否已有排队接续的媒体
func (ch *Channel) HasQueued() bool { return ch.queued != nil }

// Staged 已载入但尚未播放的媒体
func (ch *Channel) Staged() audio.Media { return ch.staged }

func (ch *Channel) String() string {
	return fmt.Sprintf("channel#%d[%s %s]", ch.id, ch.group, ch.State())
}

// Load 载入媒体，等待 Play
func (ch *Channel) Load(m audio.Media) {
	ch.staged = m
}

// Play 播放已载入的媒体
func (ch *Channel) Play(loop bool, fadeIn time.Duration) {
	m := ch.staged
	if m == nil {
		m = audio.Silence()
	}
	ch.PlayMedia(m, loop, fadeIn)
}

// PlayMedia 立即播放 m
func (ch *Channel) PlayMedia(m audio.Media, loop bool, fadeIn time.Duration) {
	if ch.released {
		ch.mixer.readmit(ch)
	}
	wasIdle := ch.Idle()
	ch.stopped = false
	ch.gen = ch.voice.Play(m, loop, fadeIn)
	ch.media, ch.loop = m, loop
	ch.queued, ch.queuedLoop = nil, false
	ch.sm.Transition(StatePlaying)
	if wasIdle {
		ch.mixer.metrics.ChannelActive(1)
	}
	logging.Debugf("Mixer: %s playing %s loop=%v fade_in=%s", ch, m.Path(), loop, fadeIn)
}

// Enqueue 在当前媒体结束后无缝接续 m；声道空闲时立即开始。
// 空闲时排入静音不做任何事。
func (ch *Channel) Enqueue(m audio.Media, loop bool) {
	if ch.Idle() {
		if m.Silent() {
			return
		}
		ch.PlayMedia(m, loop, 0)
		return
	}
	gen, started := ch.voice.Queue(m, loop)
	if started {
		// 声部刚结束、结束事件尚未送达
		ch.gen = gen
		ch.media, ch.loop = m, loop
		ch.queued, ch.queuedLoop = nil, false
		ch.sm.Transition(StatePlaying)
		return
	}
	ch.queued, ch.queuedLoop = m, loop
	logging.Debugf("Mixer: %s queued %s loop=%v", ch, m.Path(), loop)
}

// Fadeout 在 d 内淡出；d <= 0 或暂停中直接停止
func (ch *Channel) Fadeout(d time.Duration) {
	switch ch.State() {
	case StatePlaying:
		if d <= 0 {
			ch.Stop()
			return
		}
		ch.voice.Fadeout(d)
		ch.sm.Transition(StateFadingOut)
		ch.mixer.metrics.RecordFadeout(ch.group.String())
		logging.Debugf("Mixer: %s fading out over %s", ch, d)
	case StatePaused:
		ch.Stop()
	case StateFadingOut:
		if d <= 0 {
			ch.Stop()
		}
	}
}

// Stop 立即停止并释放声道
func (ch *Channel) Stop() {
	if ch.Idle() {
		return
	}
	ch.voice.Stop()
	ch.mixer.metrics.RecordStop(ch.group.String())
	ch.stopped = true
	ch.toIdle()
}

func (ch *Channel) Pause() {
	switch ch.State() {
	case StatePlaying, StateFadingOut:
		ch.voice.Pause()
		ch.sm.Transition(StatePaused)
	}
}

func (ch *Channel) Resume() {
	if ch.State() != StatePaused {
		return
	}
	ch.voice.Resume()
	ch.sm.Resume()
}

// Position 当前媒体的播放位置
func (ch *Channel) Position() time.Duration {
	if ch.Idle() {
		return 0
	}
	return ch.voice.Position()
}

// Remaining 当前媒体的剩余时长；循环播放时为 0
func (ch *Channel) Remaining() time.Duration {
	if ch.Idle() || ch.loop {
		return 0
	}
	left := ch.media.Duration() - ch.voice.Position()
	if left < 0 {
		return 0
	}
	return left
}

func (ch *Channel) handleEvent(ev audio.Event) {
	if ev.Gen != ch.gen || ch.Idle() {
		return
	}
	switch ev.Kind {
	case audio.EventSpliced:
		ch.media, ch.loop = ev.Media, ch.queuedLoop
		ch.queued, ch.queuedLoop = nil, false
		logging.Debugf("Mixer: %s spliced to %s loop=%v", ch, ev.Media.Path(), ch.loop)
	case audio.EventFinished:
		logging.Debugf("Mixer: %s finished %s", ch, ev.Media.Path())
		if ch.State() == StateFadingOut {
			ch.stopped = true
		}
		ch.toIdle()
	}
}

func (ch *Channel) toIdle() {
	ch.gen = 0
	ch.media, ch.loop = nil, false
	ch.queued, ch.queuedLoop = nil, false
	ch.sm.Transition(StateIdle)
	ch.mixer.metrics.ChannelActive(-1)
	ch.mixer.release(ch)
}
