package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/liuscraft/synthea/internal/audio"
	"github.com/liuscraft/synthea/internal/board"
	"github.com/liuscraft/synthea/internal/deferral"
	"github.com/liuscraft/synthea/internal/logging"
	"github.com/liuscraft/synthea/internal/mixer"
)

const DefaultPath = "config/synthea.json"

type AppConfig struct {
	Logging LoggingConfig `json:"logging"`
	Audio   AudioConfig   `json:"audio"`
	Remote  RemoteConfig  `json:"remote"`
	Metrics MetricsConfig `json:"metrics"`
	Project ProjectConfig `json:"project"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	// File 可选的日志留档文件
	File string `json:"file"`
}

type AudioConfig struct {
	Backend       string  `json:"backend"`
	SampleRate    int     `json:"sample_rate"`
	BufferMs      int     `json:"buffer_ms"`
	Device        string  `json:"device"`
	MaxChannels   int     `json:"max_channels"`
	EffectsVolume float64 `json:"effects_volume"`
	MusicVolume   float64 `json:"music_volume"`
	// DeferralMode multi | single
	DeferralMode string `json:"deferral_mode"`
}

type RemoteConfig struct {
	Enable     bool   `json:"enable"`
	ListenAddr string `json:"listen_addr"`
}

type MetricsConfig struct {
	Enable bool `json:"enable"`
}

type ProjectConfig struct {
	Path      string `json:"path"`
	Watch     bool   `json:"watch"`
	DJHistory int    `json:"dj_history"`
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Logging: LoggingConfig{},
		Audio: AudioConfig{
			Backend:       audio.BackendSpeaker,
			SampleRate:    44100,
			BufferMs:      100,
			MaxChannels:   32,
			EffectsVolume: 1.0,
			MusicVolume:   1.0,
			DeferralMode:  deferral.MultiSlot.String(),
		},
		Remote: RemoteConfig{
			ListenAddr: "127.0.0.1:8765",
		},
		Project: ProjectConfig{
			Path:      "project.yaml",
			DJHistory: 20,
		},
	}
}

func Load(path string) (*AppConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func (c *AppConfig) ApplyEnv() {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
	if format := strings.TrimSpace(os.Getenv("LOG_FORMAT")); format != "" {
		c.Logging.Format = format
	}
	if backend := strings.TrimSpace(os.Getenv("SYNTHEA_BACKEND")); backend != "" {
		c.Audio.Backend = backend
	}
	if project := strings.TrimSpace(os.Getenv("SYNTHEA_PROJECT")); project != "" {
		c.Project.Path = project
	}
	if addr := strings.TrimSpace(os.Getenv("SYNTHEA_LISTEN_ADDR")); addr != "" {
		c.Remote.ListenAddr = addr
	}
}

func (c *AppConfig) Validate() error {
	switch c.Audio.Backend {
	case audio.BackendSpeaker, audio.BackendPortAudio, audio.BackendNull:
	default:
		return fmt.Errorf("invalid audio.backend: %q", c.Audio.Backend)
	}
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if c.Audio.BufferMs < 0 {
		return errors.New("audio.buffer_ms must be non-negative")
	}
	if c.Audio.MaxChannels < 0 {
		return errors.New("audio.max_channels must be non-negative")
	}
	if c.Audio.EffectsVolume < 0 || c.Audio.MusicVolume < 0 {
		return errors.New("audio volumes must be non-negative")
	}
	if _, err := deferral.ParseMode(c.Audio.DeferralMode); err != nil {
		return fmt.Errorf("audio.deferral_mode: %w", err)
	}
	if c.Remote.Enable && strings.TrimSpace(c.Remote.ListenAddr) == "" {
		return errors.New("remote.listen_addr is required when remote is enabled")
	}
	if c.Project.DJHistory < 0 {
		return errors.New("project.dj_history must be non-negative")
	}
	return nil
}

// LoggingOptions 转换为 logging.Config
func (c *AppConfig) LoggingOptions() logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format, File: c.Logging.File}
}

// BackendConfig 转换为音频引擎配置
func (c *AppConfig) BackendConfig() *audio.BackendConfig {
	return &audio.BackendConfig{
		Name:       c.Audio.Backend,
		SampleRate: c.Audio.SampleRate,
		Buffer:     time.Duration(c.Audio.BufferMs) * time.Millisecond,
		Device:     c.Audio.Device,
	}
}

// BoardConfig 转换为控制器配置
func (c *AppConfig) BoardConfig() (*board.Config, error) {
	mode, err := deferral.ParseMode(c.Audio.DeferralMode)
	if err != nil {
		return nil, err
	}
	return &board.Config{
		Mixer: &mixer.Config{
			MaxChannels:   c.Audio.MaxChannels,
			EffectsVolume: c.Audio.EffectsVolume,
			MusicVolume:   c.Audio.MusicVolume,
		},
		DeferralMode: mode,
		DJHistory:    c.Project.DJHistory,
	}, nil
}
