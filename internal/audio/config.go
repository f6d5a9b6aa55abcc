package audio

import "time"

const (
	BackendSpeaker   = "speaker"
	BackendPortAudio = "portaudio"
	BackendNull      = "null"
)

// BackendConfig 引擎配置
type BackendConfig struct {
	Name       string
	SampleRate int           // 输出采样率
	Buffer     time.Duration // 输出缓冲时长
	Device     string        // portaudio 输出设备名，空为默认设备
}

// DefaultBackendConfig 默认配置
// - 44.1kHz 立体声输出
// - 缓冲 100ms，与 speaker 的常见用法一致
func DefaultBackendConfig() *BackendConfig {
	return &BackendConfig{
		Name:       BackendSpeaker,
		SampleRate: 44100,
		Buffer:     100 * time.Millisecond,
	}
}

func (c *BackendConfig) normalize() {
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.Buffer <= 0 {
		c.Buffer = 100 * time.Millisecond
	}
}
