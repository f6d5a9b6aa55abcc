package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/liuscraft/synthea/internal/logging"
)

// nullOutput 按实时速度拉取并丢弃样本，用于无声卡环境
type nullOutput struct {
	mu     sync.Mutex
	mixer  beep.Mixer
	buf    [][2]float64
	stop   chan struct{}
	done   chan struct{}
	closed sync.Once
}

func newNullOutput(sampleRate int, period time.Duration) *nullOutput {
	o := &nullOutput{
		buf:  make([][2]float64, beep.SampleRate(sampleRate).N(period)),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go o.run(period)
	return o
}

func (o *nullOutput) run(period time.Duration) {
	defer close(o.done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-o.stop:
			return
		case <-ticker.C:
			o.mu.Lock()
			o.mixer.Stream(o.buf)
			o.mu.Unlock()
		}
	}
}

func (o *nullOutput) Lock() { o.mu.Lock() }

func (o *nullOutput) Unlock() { o.mu.Unlock() }

func (o *nullOutput) Add(s beep.Streamer) {
	o.mu.Lock()
	o.mixer.Add(s)
	o.mu.Unlock()
}

func (o *nullOutput) Close() error {
	o.closed.Do(func() {
		close(o.stop)
		<-o.done
	})
	return nil
}

// NewNullBackend 创建不发声的引擎，媒体按真实时长播放
func NewNullBackend(cfg *BackendConfig) Backend {
	if cfg == nil {
		cfg = DefaultBackendConfig()
	}
	cfg.normalize()
	logging.Infof("Audio: null backend ready, sample_rate=%d", cfg.SampleRate)
	return newEngine(BackendNull, cfg.SampleRate, newNullOutput(cfg.SampleRate, 10*time.Millisecond))
}
