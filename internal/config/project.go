package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/liuscraft/synthea/internal/board"
	"github.com/liuscraft/synthea/internal/cue"
)

// projectFile 项目文件结构，JSON 与 YAML 共用
type projectFile struct {
	Name       string        `json:"name" yaml:"name"`
	Root       string        `json:"root" yaml:"root"`
	Type       string        `json:"type" yaml:"type"`
	Modes      []string      `json:"modes" yaml:"modes"`
	Crossfade  crossfadeFile `json:"crossfade" yaml:"crossfade"`
	FadeTime   fadeTimeFile  `json:"fadetime" yaml:"fadetime"`
	CrashNoise string        `json:"crash_noise" yaml:"crash_noise"`
	DJ         bool          `json:"dj" yaml:"dj"`
	Pages      []pageFile    `json:"pages" yaml:"pages"`
	Hotkeys    []hotkeyFile  `json:"hotkeys" yaml:"hotkeys"`
}

type crossfadeFile struct {
	Overlap   bool `json:"overlap" yaml:"overlap"`
	FadeStyle bool `json:"fade_style" yaml:"fade_style"`
}

type fadeTimeFile struct {
	OutMs int `json:"out_ms" yaml:"out_ms"`
	InMs  int `json:"in_ms" yaml:"in_ms"`
}

type pageFile struct {
	Name   string      `json:"name" yaml:"name"`
	Frames []frameFile `json:"frames" yaml:"frames"`
}

type frameFile struct {
	Name string    `json:"name" yaml:"name"`
	Cues []cueFile `json:"cues" yaml:"cues"`
}

type cueFile struct {
	Name      string   `json:"name" yaml:"name"`
	Sources   []string `json:"sources" yaml:"sources"`
	Loop      bool     `json:"loop" yaml:"loop"`
	LoopIntro string   `json:"loop_intro" yaml:"loop_intro"`
	Exclusive string   `json:"exclusive" yaml:"exclusive"`
	Buffering string   `json:"buffering" yaml:"buffering"`
	Hotkey    string   `json:"hotkey" yaml:"hotkey"`
}

type hotkeyFile struct {
	Key       string  `json:"key" yaml:"key"`
	Action    string  `json:"action" yaml:"action"`
	Cue       string  `json:"cue" yaml:"cue"`
	Seconds   float64 `json:"seconds" yaml:"seconds"`
	Axis      string  `json:"axis" yaml:"axis"`
	Effects   bool    `json:"effects" yaml:"effects"`
	Music     bool    `json:"music" yaml:"music"`
	Fade      bool    `json:"fade" yaml:"fade"`
	Interrupt bool    `json:"interrupt" yaml:"interrupt"`
}

// defaultProjectFile 与旧版布局加载器的默认值一致
func defaultProjectFile() *projectFile {
	return &projectFile{
		Crossfade: crossfadeFile{Overlap: true, FadeStyle: true},
		FadeTime:  fadeTimeFile{OutMs: 1000, InMs: 1000},
	}
}

// LoadProject 读取项目文件。.yaml / .yml 按 YAML 解析，其余按 JSON。
// 未指定 root 时以项目文件所在目录为根目录。
func LoadProject(path string) (*board.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project %s: %w", path, err)
	}
	pf := defaultProjectFile()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, pf)
	default:
		err = json.Unmarshal(data, pf)
	}
	if err != nil {
		return nil, fmt.Errorf("parse project %s: %w", path, err)
	}

	p, err := pf.build(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("project %s: %w", path, err)
	}
	return p, nil
}

func (pf *projectFile) build(dir string) (*board.Project, error) {
	typ, err := board.ParseType(pf.Type)
	if err != nil {
		return nil, err
	}
	if pf.FadeTime.OutMs < 0 || pf.FadeTime.InMs < 0 {
		return nil, fmt.Errorf("fadetime must be non-negative")
	}

	s := board.DefaultSettings()
	s.Type = typ
	s.Overlap = pf.Crossfade.Overlap
	s.FadeStyle = pf.Crossfade.FadeStyle
	s.FadeOut = time.Duration(pf.FadeTime.OutMs) * time.Millisecond
	s.FadeIn = time.Duration(pf.FadeTime.InMs) * time.Millisecond
	s.DJ = pf.DJ
	if len(pf.Modes) > 0 {
		s.Modes = pf.Modes
	}

	root := pf.Root
	if root == "" {
		root = dir
	} else if !filepath.IsAbs(root) {
		root = filepath.Join(dir, root)
	}

	layout := &cue.Layout{}
	for _, pg := range pf.Pages {
		page := cue.Page{Name: pg.Name}
		for _, fr := range pg.Frames {
			frame := cue.Frame{Name: fr.Name}
			for _, cf := range fr.Cues {
				c, err := cf.build()
				if err != nil {
					return nil, err
				}
				frame.Cues = append(frame.Cues, c)
			}
			page.Frames = append(page.Frames, frame)
		}
		layout.Pages = append(layout.Pages, page)
	}

	bindings := make([]board.Binding, 0, len(pf.Hotkeys))
	for _, hk := range pf.Hotkeys {
		if strings.TrimSpace(hk.Key) == "" {
			return nil, fmt.Errorf("hotkey for %s has no key", hk.Action)
		}
		action, err := board.ParseAction(hk.Action, board.ActionArgs{
			Cue:       hk.Cue,
			Seconds:   hk.Seconds,
			Axis:      hk.Axis,
			Effects:   hk.Effects,
			Music:     hk.Music,
			Fade:      hk.Fade,
			Interrupt: hk.Interrupt,
		})
		if err != nil {
			return nil, fmt.Errorf("hotkey %s: %w", hk.Key, err)
		}
		bindings = append(bindings, board.Binding{Key: hk.Key, Action: action})
	}

	return &board.Project{
		Name:       pf.Name,
		Root:       root,
		Settings:   s,
		CrashNoise: pf.CrashNoise,
		Layout:     layout,
		Bindings:   bindings,
	}, nil
}

func (cf cueFile) build() (*cue.Cue, error) {
	buffering, err := cue.ParseBuffering(cf.Buffering)
	if err != nil {
		return nil, fmt.Errorf("cue %s: %w", cf.Name, err)
	}
	return &cue.Cue{
		Name:      cf.Name,
		Sources:   cf.Sources,
		Loop:      cf.Loop,
		LoopIntro: cf.LoopIntro,
		Group:     parseGroup(cf.Exclusive),
		Buffering: buffering,
		Hotkey:    cf.Hotkey,
	}, nil
}

// parseGroup 空串沿用板类型的默认组；ANY 为通配组；其他标签原样作为新组
func parseGroup(tag string) cue.Group {
	tag = strings.TrimSpace(tag)
	switch {
	case tag == "":
		return ""
	case strings.EqualFold(tag, "any"), tag == string(cue.GroupAny):
		return cue.GroupAny
	default:
		return cue.Group(tag)
	}
}
