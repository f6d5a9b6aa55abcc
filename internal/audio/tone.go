package audio

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// Tone 生成一段正弦测试音
type Tone struct {
	Freq       float64
	Duration   time.Duration
	Level      float64 // 0..1
	SampleRate int
	// Ramp 首尾线性渐变时长，避免爆音
	Ramp time.Duration
}

func (t Tone) normalize() Tone {
	if t.SampleRate <= 0 {
		t.SampleRate = 44100
	}
	if t.Level <= 0 || t.Level > 1 {
		t.Level = 0.5
	}
	if t.Ramp <= 0 {
		t.Ramp = 10 * time.Millisecond
	}
	return t
}

// Streamer 返回有限长度的立体声正弦流
func (t Tone) Streamer() (beep.Streamer, beep.Format) {
	t = t.normalize()
	sr := beep.SampleRate(t.SampleRate)
	total := sr.N(t.Duration)
	ramp := sr.N(t.Ramp)
	if 2*ramp > total {
		ramp = total / 2
	}
	step := 2 * math.Pi * t.Freq / float64(t.SampleRate)

	pos := 0
	sine := beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		for i := range buf {
			v := t.Level * math.Sin(step*float64(pos))
			buf[i] = [2]float64{v, v}
			pos++
		}
		return len(buf), true
	})
	format := beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2}
	s := beep.Take(total, sine)
	if ramp == 0 {
		return s, format
	}
	return &envelope{s: s, total: total, ramp: ramp}, format
}

// envelope 首尾各 ramp 个样本线性渐变
type envelope struct {
	s           beep.Streamer
	total, ramp int
	pos         int
}

func (f *envelope) Stream(samples [][2]float64) (int, bool) {
	n, ok := f.s.Stream(samples)
	for i := 0; i < n; i++ {
		p := f.pos + i
		g := 1.0
		switch {
		case p < f.ramp:
			g = float64(p) / float64(f.ramp)
		case p >= f.total-f.ramp:
			g = float64(f.total-p) / float64(f.ramp)
		}
		samples[i][0] *= g
		samples[i][1] *= g
	}
	f.pos += n
	return n, ok
}

func (f *envelope) Err() error { return f.s.Err() }

// WriteTone 将测试音编码为 16 位 wav 文件
func WriteTone(path string, t Tone) error {
	if t.Duration <= 0 {
		return fmt.Errorf("tone duration must be positive")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	s, format := t.Streamer()
	if err := wav.Encode(f, s, format); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
