package board

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/liuscraft/synthea/internal/logging"
)

const (
	djLoopMin = 90
	djLoopMax = 150
)

// AdvanceDJ 随机播放一个最近没播过的条目，并在其淡出点之前安排下一首
func (c *Controller) AdvanceDJ() {
	c.update(c.advanceDJ)
}

func (c *Controller) advanceDJ() {
	if len(c.cues) == 0 {
		return
	}
	notRecent := func(cs *cueState, _ int) bool {
		return !slices.Contains(c.djHistory, cs)
	}
	candidates := lo.Filter(c.cues, notRecent)
	if len(candidates) == 0 {
		// 全部播过：只保留上一首，避免立即重复
		c.djHistory = c.djHistory[len(c.djHistory)-1:]
		candidates = lo.Filter(c.cues, notRecent)
	}
	if len(candidates) == 0 {
		candidates = c.cues
	}
	next := candidates[c.rand.IntN(len(candidates))]

	c.djHistory = append(c.djHistory, next)
	if over := len(c.djHistory) - c.cfg.DJHistory; over > 0 {
		c.djHistory = c.djHistory[over:]
	}
	c.djActive = true

	c.stage(next)
	c.play(next)

	var countdown time.Duration
	if next.cue.Loop {
		countdown = time.Duration(djLoopMin+c.rand.IntN(djLoopMax-djLoopMin+1)) * time.Second
	} else {
		countdown = next.media.Duration()
	}
	delay := countdown - c.settings.FadeOut
	if delay < time.Second {
		delay = time.Second
	}
	logging.Infof("Board: DJ playing %s, next pick in %s", next.cue.Name, delay)
	c.scheduleDJ(delay)
}

func (c *Controller) scheduleDJ(d time.Duration) {
	if c.djTimer != nil {
		c.djTimer.Stop()
	}
	c.djGen++
	gen := c.djGen
	c.djTimer = c.clock.AfterFunc(d, func() {
		c.update(func() {
			if gen == c.djGen {
				c.djTimer = nil
				c.advanceDJ()
			}
		})
	})
}

// stopDJ 退出 DJ 模式并清空历史
func (c *Controller) stopDJ() {
	c.djGen++
	if c.djTimer != nil {
		c.djTimer.Stop()
		c.djTimer = nil
	}
	c.djHistory = nil
	c.djActive = false
}
