package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/liuscraft/synthea/internal/logging"
)

const resampleQuality = 4

// segment 声部上正在播放或排队的一段媒体
type segment struct {
	media  Media
	s      beep.Streamer
	rewind func() (beep.Streamer, error)
	close  func()
	loop   bool
	pos    int
}

func (sg *segment) release() {
	if sg != nil && sg.close != nil {
		sg.close()
	}
}

// opener 由本包的媒体实现，用于在输出格式下打开一段可播放的流
type opener interface {
	open(out beep.Format) (*segment, error)
}

func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return nil, beep.Format{}, fmt.Errorf("open %s: %w", path, err)
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		s, format, err = wav.Decode(f)
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".ogg", ".oga":
		s, format, err = vorbis.Decode(f)
	default:
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format: %s", path)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, format, nil
}

// cachedMedia 已按输出采样率解码到内存的媒体
type cachedMedia struct {
	path string
	buf  *beep.Buffer
}

func cacheFile(path string, out beep.Format) (*cachedMedia, error) {
	s, format, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	buf := beep.NewBuffer(out)
	buf.Append(beep.Resample(resampleQuality, format.SampleRate, out.SampleRate, s))
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &cachedMedia{path: path, buf: buf}, nil
}

func (m *cachedMedia) Path() string { return m.path }

func (m *cachedMedia) Duration() time.Duration {
	return m.buf.Format().SampleRate.D(m.buf.Len())
}

func (m *cachedMedia) Silent() bool { return false }

func (m *cachedMedia) open(beep.Format) (*segment, error) {
	fresh := func() (beep.Streamer, error) {
		return m.buf.Streamer(0, m.buf.Len()), nil
	}
	s, _ := fresh()
	return &segment{media: m, s: s, rewind: fresh}, nil
}

// streamedMedia 播放时才从磁盘解码的媒体
type streamedMedia struct {
	path     string
	duration time.Duration
}

func probeFile(path string) (*streamedMedia, error) {
	s, format, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return &streamedMedia{path: path, duration: format.SampleRate.D(s.Len())}, nil
}

func (m *streamedMedia) Path() string { return m.path }

func (m *streamedMedia) Duration() time.Duration { return m.duration }

func (m *streamedMedia) Silent() bool { return false }

func (m *streamedMedia) open(out beep.Format) (*segment, error) {
	dec, format, err := decodeFile(m.path)
	if err != nil {
		return nil, err
	}
	rewind := func() (beep.Streamer, error) {
		if err := dec.Seek(0); err != nil {
			return nil, err
		}
		return beep.Resample(resampleQuality, format.SampleRate, out.SampleRate, dec), nil
	}
	return &segment{
		media:  m,
		s:      beep.Resample(resampleQuality, format.SampleRate, out.SampleRate, dec),
		rewind: rewind,
		close: func() {
			_ = dec.Close()
		},
	}, nil
}

// silentMedia 零长度静音，用于替换缺失的文件
type silentMedia struct{}

func (silentMedia) Path() string { return "" }

func (silentMedia) Duration() time.Duration { return 0 }

func (silentMedia) Silent() bool { return true }

func (silentMedia) open(beep.Format) (*segment, error) {
	return &segment{media: silentMedia{}, s: beep.Silence(0)}, nil
}

// Silence 零长度静音媒体
func Silence() Media {
	return silentMedia{}
}

func openSegment(m Media, out beep.Format) *segment {
	o, ok := m.(opener)
	if !ok {
		return &segment{media: m, s: beep.Silence(0)}
	}
	sg, err := o.open(out)
	if err != nil {
		logging.Warnf("Audio: failed to open %s, substituting silence: %v", m.Path(), err)
		return &segment{media: Silence(), s: beep.Silence(0)}
	}
	return sg
}
