package board

import (
	"time"

	"github.com/liuscraft/synthea/internal/audio"
	"github.com/liuscraft/synthea/internal/cue"
	"github.com/liuscraft/synthea/internal/deferral"
	"github.com/liuscraft/synthea/internal/logging"
	"github.com/liuscraft/synthea/internal/mixer"
)

// statusTick 剩余时间的刷新间隔
const statusTick = time.Second

// cueState 条目的运行时状态。sources 按变体下标保存已加载的媒体，nil 表示播放前再加载。
type cueState struct {
	cue     *cue.Cue
	group   cue.Group
	sources []audio.Media
	intro   audio.Media

	channel *mixer.Channel
	media   audio.Media
}

func (c *Controller) newCueState(cu *cue.Cue) *cueState {
	group := cu.Group
	if group == "" {
		group = c.settings.Type.DefaultGroup()
	}
	return &cueState{cue: cu, group: group}
}

// loadMode 按当前模式目录重新加载条目的媒体，只有 Cached 条目立即解码
func (c *Controller) loadMode(cs *cueState) {
	cs.sources = make([]audio.Media, len(cs.cue.Sources))
	cs.intro = nil
	if cs.cue.Buffering != cue.Cached {
		return
	}
	for i := range cs.cue.Sources {
		cs.sources[i] = c.variant(cs, i)
	}
	c.introMedia(cs)
}

// variant 返回第 i 个变体的媒体，必要时加载
func (c *Controller) variant(cs *cueState, i int) audio.Media {
	if m := cs.sources[i]; m != nil {
		return m
	}
	m := c.loadMedia(c.resolve(cs.cue.Sources[i]), cs.cue.Buffering)
	if cs.cue.Buffering != cue.Streamed {
		cs.sources[i] = m
	}
	return m
}

// introMedia 返回循环引子；没有引子或引子文件缺失时返回 nil
func (c *Controller) introMedia(cs *cueState) audio.Media {
	if !cs.cue.HasIntro() {
		return nil
	}
	if cs.intro == nil {
		cs.intro = c.loadMedia(c.resolve(cs.cue.LoopIntro), cs.cue.Buffering)
	}
	if cs.intro.Silent() {
		return nil
	}
	return cs.intro
}

func (c *Controller) loadMedia(path string, policy cue.Buffering) audio.Media {
	m := audio.Load(c.backend, path, policy)
	if m.Silent() {
		c.metrics.RecordMissingSource()
	}
	return m
}

func (c *Controller) resolve(source string) string {
	return cue.Resolve(c.project.Root, c.settings.Mode(), source)
}

// dropCache 释放 NoCache 条目已解码的媒体
func (c *Controller) dropCache() {
	for _, cs := range c.cues {
		if cs.cue.Buffering != cue.NoCache {
			continue
		}
		logging.Debugf("Board: clearing cache of %s", cs.cue.Name)
		cs.sources = make([]audio.Media, len(cs.cue.Sources))
		cs.intro = nil
	}
}

// queueForPlayback 一次触发。互斥组已有声道在发声时，只淡出这些声道，本次不播放；
// 否则选取变体、分配声道并提交到触发队列。
func (c *Controller) queueForPlayback(cs *cueState) {
	c.metrics.RecordTrigger(cs.cue.Name)
	if cs.group.Exclusive() {
		if active := c.mixer.ActiveInGroup(cs.group); len(active) > 0 {
			logging.Debugf("Board: exclusive group %s already playing, fading out", cs.group)
			for _, ch := range active {
				ch.Fadeout(c.settings.ExclusiveFadeTime())
			}
			return
		}
	}
	c.stage(cs)
	c.queue.Submit(cs)
}

// stage 选取变体，分配新声道并载入首段媒体（有引子时为引子）
func (c *Controller) stage(cs *cueState) {
	if cs.channel != nil {
		c.mixer.Release(cs.channel)
	}
	idx := cs.cue.SelectVariant(c.rand)
	cs.media = c.variant(cs, idx)
	first := cs.media
	if intro := c.introMedia(cs); intro != nil {
		first = intro
	}
	cs.channel = c.mixer.FindChannel(cs.group)
	cs.channel.Load(first)
	logging.Debugf("Board: staged %s variant %d on %s", cs.cue.Name, idx, cs.channel)
}

// play 播放已就绪的条目，返回所用声道。
// 等待模式下延迟 fade_out 再开始；有引子时循环主体在引子开始 DefaultDelay 后接续。
func (c *Controller) play(cs *cueState) *mixer.Channel {
	s := c.settings
	ch := cs.channel
	first := ch.Staged()
	hasIntro := c.introMedia(cs) != nil
	looper := cs.cue.Loop && !hasIntro

	if !s.Overlap {
		c.mixer.FadeOthers(ch, s.ExclusiveFadeTime())
		c.deferrals.Defer(deferral.Deferral{
			Target:  ch,
			Media:   first,
			OneShot: true,
			Loop:    looper,
			Delay:   s.FadeOut,
		})
	} else {
		c.mixer.Play(ch, looper, s.FadeInTime(), s.ExclusiveFadeTime())
	}

	if hasIntro {
		delay := deferral.DefaultDelay
		if !s.Overlap {
			delay += s.FadeOut
		}
		logging.Debugf("Board: deferring loop body of %s by %s", cs.cue.Name, delay)
		c.deferrals.Defer(deferral.Deferral{
			Target: ch,
			Media:  cs.media,
			Loop:   cs.cue.Loop,
			Delay:  delay,
		})
	}

	seq := logging.NextCue()
	logging.Cue(cs.cue.Name).Infof("Board: playing #%d on %s loop=%v", seq, ch, cs.cue.Loop)
	c.showPlaying(cs.cue.Name, cs.cue.Loop, first.Duration())
	return ch
}

// playCue 实现 queueHost
func (c *Controller) playCue(cs *cueState) *mixer.Channel {
	return c.play(cs)
}

func (c *Controller) locked() bool {
	return c.settings.Locked
}

// hold 对白板不叠放：有声音时推迟队首
func (c *Controller) hold() bool {
	return c.settings.Type == TypeDialog && c.mixer.Busy()
}

func (c *Controller) cancelDeferrals() {
	c.deferrals.Cancel()
}

func (c *Controller) dequeued(cs *cueState) {
	c.mixer.Release(cs.channel)
}

func (c *Controller) cleared(cs *cueState) {
	c.mixer.Release(cs.channel)
}

// showPlaying 更新正在播放信息；非循环条目启动剩余时间计时
func (c *Controller) showPlaying(name string, loop bool, length time.Duration) {
	c.nowPlaying, c.looping = name, loop
	if loop {
		c.stopStatusTick()
		c.remaining = 0
		return
	}
	c.remaining = length
	c.startStatusTick()
}

func (c *Controller) clearPlaying() {
	c.stopStatusTick()
	c.nowPlaying, c.looping, c.remaining = "", false, 0
}

func (c *Controller) startStatusTick() {
	c.stopStatusTick()
	gen := c.tickGen
	c.ticker = c.clock.AfterFunc(statusTick, func() {
		c.update(func() { c.statusTick(gen) })
	})
}

func (c *Controller) stopStatusTick() {
	c.tickGen++
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

func (c *Controller) statusTick(gen uint64) {
	if gen != c.tickGen {
		return
	}
	c.ticker = nil
	c.remaining -= statusTick
	if c.remaining <= 0 && !c.mixer.Busy() {
		c.clearPlaying()
		return
	}
	if c.remaining < 0 {
		c.remaining = 0
	}
	c.ticker = c.clock.AfterFunc(statusTick, func() {
		c.update(func() { c.statusTick(gen) })
	})
}
