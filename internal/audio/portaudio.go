package audio

import (
	"fmt"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gordonklaus/portaudio"
	"github.com/liuscraft/synthea/internal/logging"
)

// portaudioOutput 由 portaudio 回调拉取 beep 混音器
type portaudioOutput struct {
	mu      sync.Mutex
	mixer   beep.Mixer
	buf     [][2]float64
	stream  *portaudio.Stream
	started bool
}

// NewPortAudioBackend 创建 portaudio 引擎，可通过 Device 指定输出设备
func NewPortAudioBackend(cfg *BackendConfig) (Backend, error) {
	if cfg == nil {
		cfg = DefaultBackendConfig()
	}
	cfg.normalize()

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}

	o := &portaudioOutput{}
	framesPerBuffer := beep.SampleRate(cfg.SampleRate).N(cfg.Buffer)
	o.buf = make([][2]float64, framesPerBuffer)

	var (
		stream *portaudio.Stream
		err    error
	)
	if cfg.Device == "" {
		stream, err = portaudio.OpenDefaultStream(0, 2, float64(cfg.SampleRate), framesPerBuffer, o.audioCallback)
	} else {
		var dev *portaudio.DeviceInfo
		dev, err = findOutputDevice(cfg.Device)
		if err == nil {
			params := portaudio.LowLatencyParameters(nil, dev)
			params.Output.Channels = 2
			params.SampleRate = float64(cfg.SampleRate)
			params.FramesPerBuffer = framesPerBuffer
			stream, err = portaudio.OpenStream(params, o.audioCallback)
		}
	}
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	o.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start output stream: %w", err)
	}
	o.started = true

	logging.Infof("Audio: portaudio backend ready, device=%q sample_rate=%d frames=%d", cfg.Device, cfg.SampleRate, framesPerBuffer)
	return newEngine(BackendPortAudio, cfg.SampleRate, o), nil
}

func (o *portaudioOutput) Lock() { o.mu.Lock() }

func (o *portaudioOutput) Unlock() { o.mu.Unlock() }

func (o *portaudioOutput) Add(s beep.Streamer) {
	o.mu.Lock()
	o.mixer.Add(s)
	o.mu.Unlock()
}

func (o *portaudioOutput) Close() error {
	o.mu.Lock()
	stream := o.stream
	o.stream = nil
	started := o.started
	o.started = false
	o.mu.Unlock()

	if stream != nil {
		if started {
			if err := stream.Stop(); err != nil {
				logging.Errorf("Audio: failed to stop stream: %v", err)
			}
		}
		if err := stream.Close(); err != nil {
			logging.Errorf("Audio: failed to close stream: %v", err)
		}
	}
	return portaudio.Terminate()
}

func (o *portaudioOutput) audioCallback(out [][]float32) {
	n := len(out[0])
	o.mu.Lock()
	if cap(o.buf) < n {
		o.buf = make([][2]float64, n)
	}
	buf := o.buf[:n]
	clear(buf)
	o.mixer.Stream(buf)
	o.mu.Unlock()

	for i := 0; i < n; i++ {
		out[0][i] = clip(buf[i][0])
		out[1][i] = clip(buf[i][1])
	}
}

func clip(v float64) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return float32(v)
}

// DeviceInfo 输出设备信息
type DeviceInfo struct {
	Name              string
	HostAPI           string
	MaxOutputChannels int
	DefaultSampleRate float64
	Default           bool
}

// Devices 列出可用的输出设备
func Devices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defaultOutput, _ := portaudio.DefaultOutputDevice()

	var infos []DeviceInfo
	for _, dev := range devices {
		if dev.MaxOutputChannels <= 0 {
			continue
		}
		info := DeviceInfo{
			Name:              dev.Name,
			MaxOutputChannels: dev.MaxOutputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			Default:           defaultOutput != nil && dev.Name == defaultOutput.Name,
		}
		if dev.HostApi != nil {
			info.HostAPI = dev.HostApi.Name
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func findOutputDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.Name == name && dev.MaxOutputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("output device not found: %s", name)
}
