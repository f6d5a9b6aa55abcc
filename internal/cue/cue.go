// Package cue 定义可触发的声音条目及其所在的页面/分组布局。
package cue

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Group 互斥组标签
type Group string

const (
	// GroupAny 通配组，不参与互斥
	GroupAny Group = "__any__"
	// GroupMusic 音乐板默认组
	GroupMusic Group = "MUSIC"
)

// Exclusive 是否为互斥组
func (g Group) Exclusive() bool {
	return g != GroupAny && g != ""
}

func (g Group) String() string {
	if g == "" {
		return string(GroupAny)
	}
	return string(g)
}

// Buffering 媒体加载策略
type Buffering int

const (
	// Cached 加载时整体解码到内存
	Cached Buffering = iota
	// Streamed 播放时再从磁盘解码
	Streamed
	// NoCache 播放时解码到内存，取消后释放
	NoCache
)

func (b Buffering) String() string {
	switch b {
	case Cached:
		return "cache"
	case Streamed:
		return "stream"
	case NoCache:
		return "nocache"
	default:
		return "unknown"
	}
}

// ParseBuffering 解析加载策略，兼容旧布局中的 BUFFER / NOCACHE 标记
func ParseBuffering(s string) (Buffering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cache", "cached":
		return Cached, nil
	case "buffer", "stream", "streamed":
		return Streamed, nil
	case "nocache", "no_cache":
		return NoCache, nil
	default:
		return Cached, fmt.Errorf("invalid buffering policy: %q", s)
	}
}

// Rand 随机数来源，*rand.Rand (math/rand/v2) 满足该接口
type Rand interface {
	IntN(n int) int
}

// Cue 一个可触发的声音定义。
// Sources 为候选变体；LoopIntro 非空时先播放一次引子，再无缝衔接循环主体（所选变体）。
type Cue struct {
	Name      string
	Sources   []string
	Loop      bool
	LoopIntro string
	Group     Group
	Buffering Buffering
	Hotkey    string

	lastIndex int
	picked    bool
}

func (c *Cue) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("cue name is required")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("cue %s: at least one source is required", c.Name)
	}
	for _, src := range c.Sources {
		if strings.TrimSpace(src) == "" {
			return fmt.Errorf("cue %s: empty source path", c.Name)
		}
	}
	return nil
}

// HasIntro 是否有独立的循环引子
func (c *Cue) HasIntro() bool {
	return c.LoopIntro != ""
}

// SelectVariant 随机选择一个变体下标；多于一个变体时不会与上一次相同
func (c *Cue) SelectVariant(r Rand) int {
	n := len(c.Sources)
	if n < 2 {
		c.lastIndex, c.picked = 0, true
		return 0
	}

	var idx int
	if c.picked && c.lastIndex < n {
		idx = r.IntN(n - 1)
		if idx >= c.lastIndex {
			idx++
		}
	} else {
		idx = r.IntN(n)
	}
	c.lastIndex, c.picked = idx, true
	return idx
}

// LastVariant 返回上一次选择的变体下标，未选择过时 ok 为 false
func (c *Cue) LastVariant() (int, bool) {
	return c.lastIndex, c.picked
}

// Resolve 拼接 project_root/mode_dir/source
func Resolve(root, mode, source string) string {
	return filepath.Join(root, mode, source)
}
