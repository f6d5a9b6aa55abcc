// Package audio 定义播放引擎的能力接口，并提供基于 beep 的实现。
package audio

import (
	"errors"
	"fmt"
	"time"

	"github.com/liuscraft/synthea/internal/cue"
	"github.com/liuscraft/synthea/internal/logging"
)

// ErrMissingSource 源文件不存在
var ErrMissingSource = errors.New("audio: source file not found")

// Media 已加载（或可按需解码）的媒体句柄
type Media interface {
	Path() string
	Duration() time.Duration
	Silent() bool
}

// EventKind 声部事件类型
type EventKind int

const (
	EventStarted EventKind = iota
	// EventSpliced 排队的媒体已无缝接续到声部上
	EventSpliced
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "Started"
	case EventSpliced:
		return "Spliced"
	case EventFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Event 声部事件。Gen 为 Play 返回的代数，用于丢弃过期事件。
// 事件总是在独立 goroutine 上投递，不会出现在调用方的栈上。
type Event struct {
	Kind  EventKind
	Media Media
	Gen   uint64
}

// Voice 一个播放声部
type Voice interface {
	// Play 立即播放 m，返回本次播放的代数
	Play(m Media, loop bool, fadeIn time.Duration) uint64
	// Queue 在当前媒体结束后无缝接续 m，替换之前排队的媒体。
	// 声部空闲时立即开始播放，此时 started 为 true，gen 为新的代数
	Queue(m Media, loop bool) (gen uint64, started bool)
	// Fadeout 在 d 内线性淡出，结束后投递 EventFinished
	Fadeout(d time.Duration)
	// Stop 立即停止，不投递事件
	Stop()
	Pause()
	Resume()
	SetVolume(volume float64)
	Position() time.Duration
	Close()
}

// Backend 播放引擎
type Backend interface {
	Name() string
	// Cache 整体解码到内存
	Cache(path string) (Media, error)
	// Stream 仅校验文件，播放时再解码
	Stream(path string) (Media, error)
	// Silence 零长度静音
	Silence() Media
	Open(onEvent func(Event)) Voice
	Busy() bool
	Close() error
}

// Load 按加载策略加载媒体；文件缺失或无法解码时返回静音，不会失败
func Load(b Backend, path string, policy cue.Buffering) Media {
	var (
		m   Media
		err error
	)
	switch policy {
	case cue.Streamed:
		m, err = b.Stream(path)
	default:
		m, err = b.Cache(path)
	}
	if err != nil {
		if errors.Is(err, ErrMissingSource) {
			logging.Warnf("Audio: sound file not found: %s", path)
		} else {
			logging.Warnf("Audio: failed to load %s: %v", path, err)
		}
		return b.Silence()
	}
	return m
}

// New 根据配置中的名称创建引擎
func New(cfg *BackendConfig) (Backend, error) {
	if cfg == nil {
		cfg = DefaultBackendConfig()
	}
	switch cfg.Name {
	case "", BackendSpeaker:
		return NewSpeakerBackend(cfg)
	case BackendPortAudio:
		return NewPortAudioBackend(cfg)
	case BackendNull:
		return NewNullBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unknown audio backend: %s", cfg.Name)
	}
}
