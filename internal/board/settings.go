package board

import (
	"fmt"
	"strings"
	"time"

	"github.com/liuscraft/synthea/internal/cue"
)

// Type 板类型，决定未声明互斥组的条目归属以及取消时的停止方式
type Type int

const (
	TypeSFX Type = iota
	TypeMusic
	TypeDialog
)

func (t Type) String() string {
	switch t {
	case TypeSFX:
		return "sfx"
	case TypeMusic:
		return "music"
	case TypeDialog:
		return "dialog"
	default:
		return "unknown"
	}
}

func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sfx":
		return TypeSFX, nil
	case "music":
		return TypeMusic, nil
	case "dialog":
		return TypeDialog, nil
	default:
		return TypeSFX, fmt.Errorf("invalid board type: %q", s)
	}
}

// DefaultGroup 未声明互斥组的条目所属的组
func (t Type) DefaultGroup() cue.Group {
	if t == TypeMusic {
		return cue.GroupMusic
	}
	return cue.GroupAny
}

// FadeTarget SetFadeTime 作用的方向
type FadeTarget int

const (
	FadeBoth FadeTarget = iota
	FadeIn
	FadeOut
)

func (f FadeTarget) String() string {
	switch f {
	case FadeIn:
		return "in"
	case FadeOut:
		return "out"
	default:
		return "both"
	}
}

// Axis 交叉淡化的两个开关
type Axis int

const (
	// AxisOverlap 新条目能否在前一条淡出完成前开始
	AxisOverlap Axis = iota
	// AxisFadeStyle 过渡使用音量渐变还是硬切
	AxisFadeStyle
)

func (a Axis) String() string {
	if a == AxisFadeStyle {
		return "fade_style"
	}
	return "overlap"
}

// Settings 全局播放配置，项目加载时设定，运行中由热键修改
type Settings struct {
	Overlap   bool
	FadeStyle bool
	FadeOut   time.Duration
	FadeIn    time.Duration

	Locked        bool
	EffectsPaused bool
	MusicPaused   bool

	Modes     []string
	ModeIndex int
	Type      Type
	DJ        bool
}

// DefaultSettings 与旧版布局加载器一致：交叉淡化开启，淡入淡出各 1 秒
func DefaultSettings() Settings {
	return Settings{
		Overlap:   true,
		FadeStyle: true,
		FadeOut:   time.Second,
		FadeIn:    time.Second,
		Modes:     []string{""},
	}
}

// FadeInTime 实际使用的淡入时长
func (s Settings) FadeInTime() time.Duration {
	if s.FadeStyle {
		return s.FadeIn
	}
	return 0
}

// ExclusiveFadeTime 互斥组中旧声道的淡出时长；等待模式下为 0
func (s Settings) ExclusiveFadeTime() time.Duration {
	if s.Overlap {
		return s.FadeOut
	}
	return 0
}

// Mode 当前模式目录
func (s Settings) Mode() string {
	if len(s.Modes) == 0 {
		return ""
	}
	return s.Modes[s.ModeIndex%len(s.Modes)]
}

// CrossfadeLabel 如 "Cross-Fade"、"Wait-Full"
func (s Settings) CrossfadeLabel() string {
	cross, fade := "Wait", "Full"
	if s.Overlap {
		cross = "Cross"
	}
	if s.FadeStyle {
		fade = "Fade"
	}
	return cross + "-" + fade
}

func (s Settings) FadeLabel() string {
	if s.FadeOut == s.FadeIn {
		return fmt.Sprintf("Fade Time: %g sec", s.FadeOut.Seconds())
	}
	return fmt.Sprintf("Fade In/Out: %g sec / %g sec", s.FadeIn.Seconds(), s.FadeOut.Seconds())
}

func (s Settings) PauseNote() string {
	switch {
	case !s.EffectsPaused && !s.MusicPaused:
		return ""
	case !s.MusicPaused:
		return "-- effects paused --"
	case !s.EffectsPaused:
		return "-- music paused --"
	default:
		return "-- all paused --"
	}
}
