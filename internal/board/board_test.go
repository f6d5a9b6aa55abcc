package board

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/liuscraft/synthea/internal/audio/mock"
	"github.com/liuscraft/synthea/internal/clock"
	"github.com/liuscraft/synthea/internal/cue"
)

const testRoot = "/show"

type testBoard struct {
	c   *Controller
	b   *mock.Backend
	clk *clock.Fake
}

// zeroRand 总是返回 0，变体选择可预期
type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

func testProject(s Settings, cues ...*cue.Cue) *Project {
	return &Project{
		Name:     "test",
		Root:     testRoot,
		Settings: s,
		Layout: &cue.Layout{Pages: []cue.Page{{
			Name:   "main",
			Frames: []cue.Frame{{Name: "all", Cues: cues}},
		}}},
	}
}

func newBoard(t *testing.T, p *Project, cfg *Config, setup func(*mock.Backend), opts ...Option) *testBoard {
	t.Helper()
	b := mock.New()
	if setup != nil {
		setup(b)
	}
	clk := clock.NewFake(time.Unix(0, 0))
	opts = append([]Option{WithClock(clk), WithRand(zeroRand{})}, opts...)
	c, err := New(b, p, cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return &testBoard{c: c, b: b, clk: clk}
}

func seededRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func path(name string) string {
	return cue.Resolve(testRoot, "", name)
}

// voiceFor 返回当前媒体为 file 的未关闭声部
func (tb *testBoard) voiceFor(file string) *mock.Voice {
	for _, v := range tb.b.Voices() {
		if v.Closed || v.Current == nil {
			continue
		}
		if v.Current.Path() == path(file) {
			return v
		}
	}
	return nil
}

func (tb *testBoard) playing() int {
	n := 0
	for _, v := range tb.b.Voices() {
		if !v.Closed && v.Playing() {
			n++
		}
	}
	return n
}

func (tb *testBoard) trigger(t *testing.T, name string) {
	t.Helper()
	if err := tb.c.Trigger(name); err != nil {
		t.Fatalf("Trigger(%s): %v", name, err)
	}
}
