package board

import (
	"fmt"
	"strings"
)

// Action 热键或远程端可触发的动作，封闭集合
type Action interface {
	action()
	String() string
}

// Play 触发条目
type Play struct{ Cue string }

// SetFadeTime 设置淡化时长（秒）
type SetFadeTime struct {
	Seconds float64
	Target  FadeTarget
}

type ToggleCrossfade struct{ Axis Axis }

type SetCrossfade struct{ Enabled bool }

// Stop 停止所有声音；Fade 为 false 时硬切
type Stop struct{ Fade bool }

type Cancel struct {
	Effects   bool
	Music     bool
	FadeOut   bool
	Interrupt bool
}

type Pause struct {
	Effects bool
	Music   bool
}

type ToggleLock struct{}

type ChangeMode struct{}

type AdvanceDJ struct{}

func (Play) action()            {}
func (SetFadeTime) action()     {}
func (ToggleCrossfade) action() {}
func (SetCrossfade) action()    {}
func (Stop) action()            {}
func (Cancel) action()          {}
func (Pause) action()           {}
func (ToggleLock) action()      {}
func (ChangeMode) action()      {}
func (AdvanceDJ) action()       {}

func (a Play) String() string { return "PLAY " + a.Cue }
func (a SetFadeTime) String() string {
	return fmt.Sprintf("FADE_TIME %g %s", a.Seconds, a.Target)
}
func (a ToggleCrossfade) String() string { return "TOGGLE_CROSSFADE " + a.Axis.String() }
func (a SetCrossfade) String() string {
	if a.Enabled {
		return "ENABLE_CROSSFADE"
	}
	return "DISABLE_CROSSFADE"
}
func (a Stop) String() string { return fmt.Sprintf("STOP_SOUND fade=%v", a.Fade) }
func (a Cancel) String() string {
	return fmt.Sprintf("CANCEL effects=%v music=%v fade=%v interrupt=%v", a.Effects, a.Music, a.FadeOut, a.Interrupt)
}
func (a Pause) String() string      { return fmt.Sprintf("PAUSE effects=%v music=%v", a.Effects, a.Music) }
func (a ToggleLock) String() string { return "TOGGLE_LOCK" }
func (a ChangeMode) String() string { return "CHANGE_MODE" }
func (a AdvanceDJ) String() string  { return "DJ" }

// Dispatch 执行动作。只有未知条目会返回错误，播放失败不会。
func (c *Controller) Dispatch(a Action) error {
	switch a := a.(type) {
	case Play:
		return c.Trigger(a.Cue)
	case SetFadeTime:
		c.SetFadeTime(a.Seconds, a.Target)
	case ToggleCrossfade:
		c.ToggleCrossfade(a.Axis)
	case SetCrossfade:
		c.SetCrossfadeEnabled(a.Enabled)
	case Stop:
		c.Cancel(true, true, a.Fade, false)
	case Cancel:
		c.Cancel(a.Effects, a.Music, a.FadeOut, a.Interrupt)
	case Pause:
		c.Pause(a.Effects, a.Music)
	case ToggleLock:
		c.ToggleLock()
	case ChangeMode:
		c.ChangeMode()
	case AdvanceDJ:
		c.AdvanceDJ()
	default:
		return fmt.Errorf("unsupported action %T", a)
	}
	return nil
}

// ActionArgs 动作参数，来自项目文件的热键表或远程消息
type ActionArgs struct {
	Cue       string
	Seconds   float64
	Axis      string
	Effects   bool
	Music     bool
	Fade      bool
	Interrupt bool
}

// ParseAction 按名称构造动作，名称不区分大小写
func ParseAction(name string, args ActionArgs) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "PLAY":
		if strings.TrimSpace(args.Cue) == "" {
			return nil, fmt.Errorf("action PLAY requires a cue")
		}
		return Play{Cue: args.Cue}, nil
	case "FADE_TIME":
		return SetFadeTime{Seconds: args.Seconds, Target: FadeBoth}, nil
	case "FADE_IN":
		return SetFadeTime{Seconds: args.Seconds, Target: FadeIn}, nil
	case "FADE_OUT":
		return SetFadeTime{Seconds: args.Seconds, Target: FadeOut}, nil
	case "TOGGLE_CROSSFADE":
		axis, err := parseAxis(args.Axis)
		if err != nil {
			return nil, err
		}
		return ToggleCrossfade{Axis: axis}, nil
	case "ENABLE_CROSSFADE":
		return SetCrossfade{Enabled: true}, nil
	case "DISABLE_CROSSFADE":
		return SetCrossfade{Enabled: false}, nil
	case "STOP_SOUND":
		return Stop{Fade: args.Fade}, nil
	case "CANCEL":
		return Cancel{Effects: args.Effects, Music: args.Music, FadeOut: args.Fade, Interrupt: args.Interrupt}, nil
	case "PAUSE":
		return Pause{Effects: args.Effects, Music: args.Music}, nil
	case "TOGGLE_LOCK":
		return ToggleLock{}, nil
	case "CHANGE_MODE":
		return ChangeMode{}, nil
	case "DJ":
		return AdvanceDJ{}, nil
	default:
		return nil, fmt.Errorf("unknown action: %q", name)
	}
}

func parseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fade", "fade_style":
		return AxisFadeStyle, nil
	case "overlap", "cross", "wait":
		return AxisOverlap, nil
	default:
		return AxisFadeStyle, fmt.Errorf("invalid crossfade axis: %q", s)
	}
}
