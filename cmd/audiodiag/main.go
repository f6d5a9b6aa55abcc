package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/liuscraft/synthea/internal/audio"
)

func main() {
	playTone := flag.Bool("tone", false, "Play a test tone through the selected output device")
	device := flag.String("device", "", "Output device name for the tone test (default device if empty)")
	toneDuration := flag.Duration("duration", 2*time.Second, "Duration of the test tone")
	flag.Parse()

	fmt.Println("=== PortAudio Output Diagnostics ===")
	fmt.Println()

	if *playTone {
		if err := runToneTest(*device, *toneDuration); err != nil {
			fmt.Fprintf(os.Stderr, "❌ Tone test failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := portaudio.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize PortAudio: %v\n", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	hostAPIs, err := portaudio.HostApis()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get host APIs: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d Host API(s):\n", len(hostAPIs))
	for i, api := range hostAPIs {
		fmt.Printf("  [%d] %s (devices: %d)\n", i, api.Name, len(api.Devices))
	}
	fmt.Println()

	defaultOutput, err := portaudio.DefaultOutputDevice()
	if err != nil {
		fmt.Printf("Default Output Device: (error: %v)\n", err)
	} else {
		fmt.Printf("Default Output Device: %s\n", defaultOutput.Name)
	}
	fmt.Println()

	devices, err := portaudio.Devices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get devices: %v\n", err)
		os.Exit(1)
	}

	outputs := 0
	for _, dev := range devices {
		if dev.MaxOutputChannels <= 0 {
			continue
		}
		outputs++
		marker := ""
		if defaultOutput != nil && dev.Name == defaultOutput.Name {
			marker = " [DEFAULT OUTPUT]"
		}
		fmt.Printf("[%d] %s%s\n", outputs, dev.Name, marker)
		fmt.Printf("    Max Output Channels: %d\n", dev.MaxOutputChannels)
		fmt.Printf("    Default Sample Rate: %.0f Hz\n", dev.DefaultSampleRate)
		fmt.Printf("    Output Latency: Low=%.1fms, High=%.1fms\n",
			dev.DefaultLowOutputLatency.Seconds()*1000,
			dev.DefaultHighOutputLatency.Seconds()*1000)

		if dev.DefaultSampleRate != 44100 {
			fmt.Printf("    ⚠️  Sample rate is %.0f Hz; consider audio.sample_rate=%.0f\n", dev.DefaultSampleRate, dev.DefaultSampleRate)
		}
		fmt.Println()
	}
	fmt.Printf("=== %d output device(s) ===\n\n", outputs)

	if defaultOutput != nil {
		// 缓冲至少为高延迟的 2 倍，下限 50ms
		bufferMs := int(defaultOutput.DefaultHighOutputLatency.Seconds() * 1000 * 2)
		if bufferMs < 50 {
			bufferMs = 50
		}
		fmt.Println("Add this to your config/synthea.json:")
		fmt.Println()
		fmt.Println("\"audio\": {")
		fmt.Println("    \"backend\": \"portaudio\",")
		fmt.Printf("    \"sample_rate\": %.0f,\n", defaultOutput.DefaultSampleRate)
		fmt.Printf("    \"buffer_ms\": %d,\n", bufferMs)
		fmt.Printf("    \"device\": %q\n", defaultOutput.Name)
		fmt.Println("}")
	}
}

// runToneTest 通过 portaudio 引擎播放一段测试音，验证整条播放链路
func runToneTest(device string, d time.Duration) error {
	dir, err := os.MkdirTemp("", "synthea-diag-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "tone.wav")
	if err := audio.WriteTone(path, audio.Tone{Freq: 440, Duration: d, Level: 0.3}); err != nil {
		return err
	}

	cfg := audio.DefaultBackendConfig()
	cfg.Name = audio.BackendPortAudio
	cfg.Device = device
	backend, err := audio.New(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	m, err := backend.Cache(path)
	if err != nil {
		return err
	}

	done := make(chan struct{}, 1)
	v := backend.Open(func(ev audio.Event) {
		if ev.Kind == audio.EventFinished {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	defer v.Close()

	fmt.Printf("Playing %s test tone (440Hz)...\n", d)
	v.Play(m, false, 0)
	select {
	case <-done:
		fmt.Println("✅ Tone finished")
	case <-time.After(d + 2*time.Second):
		return fmt.Errorf("tone did not finish; the output stream may be stalled")
	}
	return nil
}
