package audio

import (
	"fmt"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/liuscraft/synthea/internal/logging"
)

// speakerOutput 通过 beep/speaker 输出
type speakerOutput struct{}

func (speakerOutput) Lock() { speaker.Lock() }

func (speakerOutput) Unlock() { speaker.Unlock() }

func (speakerOutput) Add(s beep.Streamer) { speaker.Play(s) }

func (speakerOutput) Close() error {
	speaker.Close()
	return nil
}

// NewSpeakerBackend 创建默认的 speaker 引擎
func NewSpeakerBackend(cfg *BackendConfig) (Backend, error) {
	if cfg == nil {
		cfg = DefaultBackendConfig()
	}
	cfg.normalize()

	sr := beep.SampleRate(cfg.SampleRate)
	if err := speaker.Init(sr, sr.N(cfg.Buffer)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	logging.Infof("Audio: speaker backend ready, sample_rate=%d buffer=%s", cfg.SampleRate, cfg.Buffer)
	return newEngine(BackendSpeaker, cfg.SampleRate, speakerOutput{}), nil
}
