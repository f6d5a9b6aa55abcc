package board

import (
	"fmt"
	"sync"
	"time"
)

// Status 面板状态快照，每次状态变化后推送给订阅者
type Status struct {
	Queued     []string      `json:"queued"`
	NowPlaying string        `json:"now_playing"`
	Looping    bool          `json:"looping"`
	Remaining  time.Duration `json:"remaining"`
	Mode       string        `json:"mode"`
	Crossfade  string        `json:"crossfade"`
	Fade       string        `json:"fade"`
	Locked     bool          `json:"locked"`
	Pause      string        `json:"pause"`
	DJ         bool          `json:"dj"`
	Channels   int           `json:"channels"`
}

// QueueLabel 如 "Queued: Door Thunder"
func (s Status) QueueLabel() string {
	if len(s.Queued) == 0 {
		return " -- no queue  --"
	}
	label := "Queued:"
	for _, name := range s.Queued {
		label += " " + name
	}
	return label
}

func (s Status) PlayingLabel() string {
	switch {
	case s.NowPlaying == "":
		return ""
	case s.Looping:
		return "Now Looping: " + s.NowPlaying
	default:
		return "Now Playing: " + s.NowPlaying
	}
}

func (s Status) RemainingLabel() string {
	switch {
	case s.NowPlaying == "":
		return ""
	case s.Looping:
		return "Looping: ∞"
	default:
		secs := int(s.Remaining / time.Second)
		return fmt.Sprintf("Remaining: %d:%02d", secs/60, secs%60)
	}
}

// statusBus 状态订阅。发布在调用方 goroutine 上同步进行，且不持有控制锁。
type statusBus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]func(Status)
}

func newStatusBus() *statusBus {
	return &statusBus{handlers: make(map[uint64]func(Status))}
}

func (b *statusBus) subscribe(h func(Status)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

func (b *statusBus) publish(st Status) {
	b.mu.RLock()
	handlers := make([]func(Status), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(st)
	}
}
