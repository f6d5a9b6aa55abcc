package cue

import "fmt"

// Layout 页面 -> 分组 -> 条目
type Layout struct {
	Pages []Page
}

type Page struct {
	Name   string
	Frames []Frame
}

type Frame struct {
	Name string
	Cues []*Cue
}

// Cues 按页面、分组、条目顺序返回全部条目
func (l *Layout) Cues() []*Cue {
	var out []*Cue
	for _, p := range l.Pages {
		for _, f := range p.Frames {
			out = append(out, f.Cues...)
		}
	}
	return out
}

func (l *Layout) Lookup(name string) (*Cue, bool) {
	for _, c := range l.Cues() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Validate 校验每个条目，并要求名称唯一
func (l *Layout) Validate() error {
	seen := make(map[string]struct{})
	for _, c := range l.Cues() {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate cue name: %s", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}
