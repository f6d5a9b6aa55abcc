package board

import (
	"errors"
	"fmt"

	"github.com/liuscraft/synthea/internal/cue"
)

// Project 一个已解析的演出项目：布局、全局设置和热键绑定
type Project struct {
	Name     string
	Root     string
	Settings Settings
	// CrashNoise 中断取消时播放的噪声，相对模式目录；空为不播放
	CrashNoise string
	Layout     *cue.Layout
	Bindings   []Binding
}

// Binding 热键到动作的绑定
type Binding struct {
	Key    string
	Action Action
}

func (p *Project) Validate() error {
	if p.Layout == nil {
		return errors.New("project has no layout")
	}
	if len(p.Settings.Modes) == 0 {
		return errors.New("project needs at least one mode")
	}
	if err := p.Layout.Validate(); err != nil {
		return err
	}
	for _, b := range p.Bindings {
		if b.Action == nil {
			return fmt.Errorf("hotkey %s has no action", b.Key)
		}
		if play, ok := b.Action.(Play); ok {
			if _, found := p.Layout.Lookup(play.Cue); !found {
				return fmt.Errorf("hotkey %s: %w: %s", b.Key, ErrUnknownCue, play.Cue)
			}
		}
	}
	return nil
}
