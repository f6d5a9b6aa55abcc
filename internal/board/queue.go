package board

import (
	"slices"

	"github.com/samber/lo"

	"github.com/liuscraft/synthea/internal/logging"
	"github.com/liuscraft/synthea/internal/mixer"
)

// queueHost 触发队列依赖的控制器能力
type queueHost interface {
	locked() bool
	// hold 为 true 时队首暂不播放，等混音器安静后再推进
	hold() bool
	cancelDeferrals()
	playCue(cs *cueState) *mixer.Channel
	// dequeued 条目被再次触发而移出队列，未播放
	dequeued(cs *cueState)
	// cleared 条目被 CancelAll 清出队列
	cleared(cs *cueState)
}

// TriggerQueue 等待播放的条目，同一条目最多出现一次。
// 再次提交已在队列中的条目会把它移出（切换语义）。
type TriggerQueue struct {
	host       queueHost
	items      []*cueState
	lastActive *mixer.Channel
	held       bool
}

func newTriggerQueue(host queueHost) *TriggerQueue {
	return &TriggerQueue{host: host}
}

// Submit 切换条目在队列中的状态；未锁定且队列非空时立即推进
func (q *TriggerQueue) Submit(cs *cueState) {
	q.toggle(cs, false)
}

func (q *TriggerQueue) toggle(cs *cueState, played bool) {
	if i := slices.Index(q.items, cs); i >= 0 {
		logging.Debugf("Queue: removing %s", cs.cue.Name)
		q.items = slices.Delete(q.items, i, i+1)
		if !played {
			q.host.dequeued(cs)
		}
	} else {
		logging.Debugf("Queue: adding %s", cs.cue.Name)
		q.items = append(q.items, cs)
	}
	if len(q.items) > 0 && !q.host.locked() {
		q.Advance()
	}
}

// Advance 播放队首条目，然后把它重新提交一次以移出队列。
// 队首移出后若仍未锁定，会继续推进下一个条目。
func (q *TriggerQueue) Advance() {
	if len(q.items) == 0 {
		return
	}
	if q.host.hold() {
		if !q.held {
			logging.Debugf("Queue: holding %s until playback is silent", q.items[0].cue.Name)
		}
		q.held = true
		return
	}
	q.held = false
	q.host.cancelDeferrals()

	head := q.items[0]
	q.lastActive = q.host.playCue(head)
	q.toggle(head, true)
}

// CancelAll 取消延迟并清空队列，不播放任何条目
func (q *TriggerQueue) CancelAll() {
	q.host.cancelDeferrals()
	items := q.items
	q.items = nil
	for _, cs := range items {
		q.host.cleared(cs)
	}
	q.lastActive = nil
	q.held = false
}

func (q *TriggerQueue) IsEmpty() bool {
	return len(q.items) == 0
}

func (q *TriggerQueue) Len() int {
	return len(q.items)
}

// Names 按队列顺序返回条目名
func (q *TriggerQueue) Names() []string {
	return lo.Map(q.items, func(cs *cueState, _ int) string { return cs.cue.Name })
}

func (q *TriggerQueue) Contains(cs *cueState) bool {
	return slices.Contains(q.items, cs)
}

// LastActive 最近一次推进所用的声道
func (q *TriggerQueue) LastActive() *mixer.Channel {
	return q.lastActive
}

// Held 队首是否在等待混音器安静
func (q *TriggerQueue) Held() bool {
	return q.held
}
