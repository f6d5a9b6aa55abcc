package board

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/liuscraft/synthea/internal/audio/mock"
	"github.com/liuscraft/synthea/internal/cue"
	"github.com/liuscraft/synthea/internal/deferral"
	"github.com/liuscraft/synthea/internal/mixer"
)

func TestLockedTriggersToggleQueueMembership(t *testing.T) {
	s := DefaultSettings()
	s.Locked = true
	tb := newBoard(t, testProject(s, &cue.Cue{Name: "Door_Slam", Sources: []string{"door.wav"}}), nil, nil)

	tb.trigger(t, "Door_Slam")
	tb.trigger(t, "Door_Slam")
	if got := tb.c.Status().Queued; len(got) != 0 {
		t.Fatalf("even number of triggers must leave the queue empty, got %v", got)
	}

	tb.trigger(t, "Door_Slam")
	if got := tb.c.Status().Queued; !slices.Equal(got, []string{"Door_Slam"}) {
		t.Fatalf("expected Door_Slam queued once, got %v", got)
	}
	if n := tb.playing(); n != 0 {
		t.Fatalf("locked board must not play, %d voices playing", n)
	}

	tb.c.ToggleLock()
	if n := tb.playing(); n != 1 {
		t.Fatalf("unlock must play exactly one instance, got %d", n)
	}
	if tb.voiceFor("door.wav") == nil {
		t.Fatalf("door.wav is not playing")
	}
	st := tb.c.Status()
	if len(st.Queued) != 0 || st.Locked {
		t.Fatalf("unexpected status after unlock: %+v", st)
	}
	if st.NowPlaying != "Door_Slam" {
		t.Fatalf("expected now playing Door_Slam, got %q", st.NowPlaying)
	}
}

func TestUnlockedTriggerPlaysImmediately(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil, nil)

	tb.trigger(t, "Bell")

	v := tb.voiceFor("bell.wav")
	if v == nil {
		t.Fatalf("bell.wav is not playing")
	}
	if v.FadeIn != time.Second || v.Loop {
		t.Fatalf("unexpected voice state: fade=%s loop=%v", v.FadeIn, v.Loop)
	}
	if got := tb.c.queue.LastActive(); got == nil || got.Media().Path() != path("bell.wav") {
		t.Fatalf("last active channel not recorded: %v", got)
	}
}

func TestTriggerUnknownCue(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil, nil)

	if err := tb.c.Trigger("Gong"); !errors.Is(err, ErrUnknownCue) {
		t.Fatalf("expected ErrUnknownCue, got %v", err)
	}
}

func TestLoopIntroHandsOverToBody(t *testing.T) {
	s := DefaultSettings()
	s.Type = TypeMusic
	s.FadeOut = time.Second
	s.FadeIn = 500 * time.Millisecond
	theme := &cue.Cue{Name: "Theme", Sources: []string{"theme.wav"}, Loop: true, LoopIntro: "theme_intro.wav"}
	tb := newBoard(t, testProject(s, theme), nil, nil)

	tb.trigger(t, "Theme")

	v := tb.voiceFor("theme_intro.wav")
	if v == nil {
		t.Fatalf("intro is not playing")
	}
	if v.Loop || v.FadeIn != 500*time.Millisecond {
		t.Fatalf("intro must play once with fade in: loop=%v fade=%s", v.Loop, v.FadeIn)
	}
	if tb.c.deferrals.Pending() != 1 {
		t.Fatalf("expected the loop body deferred, pending=%d", tb.c.deferrals.Pending())
	}

	tb.clk.Advance(deferral.DefaultDelay)
	ch := tb.c.byName["Theme"].channel
	if !ch.HasQueued() || v.Next == nil || v.Next.Path() != path("theme.wav") || !v.NextLoop {
		t.Fatalf("loop body must be queued behind the intro, next=%v", v.Next)
	}

	v.Finish()
	if ch.State() != mixer.StatePlaying {
		t.Fatalf("expected channel playing, got %s", ch.State())
	}
	if ch.Media().Path() != path("theme.wav") || !ch.Loop() {
		t.Fatalf("expected looping body, got %s loop=%v", ch.Media().Path(), ch.Loop())
	}
	if st := tb.c.Status(); !st.Looping || st.RemainingLabel() != "Looping: ∞" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestWaitModeDefersStartByFadeOut(t *testing.T) {
	s := DefaultSettings()
	s.Overlap = false
	tb := newBoard(t, testProject(s, &cue.Cue{Name: "Rain", Sources: []string{"rain.wav"}}), nil,
		func(b *mock.Backend) { b.SetDuration(path("rain.wav"), 10*time.Second) })

	tb.trigger(t, "Rain")

	ch := tb.c.byName["Rain"].channel
	if !ch.Idle() {
		t.Fatalf("wait mode must not start before the fade out, state=%s", ch.State())
	}
	tb.clk.Advance(s.FadeOut - time.Millisecond)
	if !ch.Idle() || tb.voiceFor("rain.wav") != nil {
		t.Fatalf("deferral fired early")
	}

	tb.clk.Advance(time.Millisecond)
	v := tb.voiceFor("rain.wav")
	if v == nil {
		t.Fatalf("rain.wav is not playing after %s", s.FadeOut)
	}
	if v.FadeIn != s.FadeIn {
		t.Fatalf("expected fade in %s, got %s", s.FadeIn, v.FadeIn)
	}
	if ch.State() != mixer.StatePlaying {
		t.Fatalf("expected playing, got %s", ch.State())
	}
}

func TestWaitModeStopsExclusiveGroupThenDefers(t *testing.T) {
	s := DefaultSettings()
	a := &cue.Cue{Name: "A", Sources: []string{"a.wav"}, Group: "amb"}
	b := &cue.Cue{Name: "B", Sources: []string{"b.wav"}, Group: "amb"}
	tb := newBoard(t, testProject(s, a, b), nil, nil)

	tb.trigger(t, "A")
	tb.c.SetCrossfadeEnabled(false)

	// A 仍在发声时再次触发同组条目只会停止 A
	tb.trigger(t, "B")
	if tb.voiceFor("a.wav") != nil {
		t.Fatalf("a.wav must be stopped in wait mode")
	}
	if tb.c.byName["B"].channel != nil {
		t.Fatalf("B must not be staged while the group is busy")
	}

	tb.trigger(t, "B")
	if !tb.c.byName["B"].channel.Idle() {
		t.Fatalf("B must wait for the fade out")
	}
	tb.clk.Advance(s.FadeOut)
	v := tb.voiceFor("b.wav")
	if v == nil {
		t.Fatalf("b.wav is not playing")
	}
	if v.FadeIn != 0 {
		t.Fatalf("hard cut expected without fade style, got fade %s", v.FadeIn)
	}
}

func TestWaitModePlayCutsPlayingPeers(t *testing.T) {
	s := DefaultSettings()
	s.Overlap = false
	a := &cue.Cue{Name: "A", Sources: []string{"a.wav"}, Group: "amb"}
	b := &cue.Cue{Name: "B", Sources: []string{"b.wav"}, Group: "amb"}
	tb := newBoard(t, testProject(s, a, b), nil, nil)

	tb.trigger(t, "A")
	tb.clk.Advance(s.FadeOut)
	if tb.voiceFor("a.wav") == nil {
		t.Fatalf("a.wav is not playing")
	}

	// 绕过触发时的占用检查，直接让 B 开始
	tb.c.update(func() {
		cs := tb.c.byName["B"]
		tb.c.stage(cs)
		tb.c.play(cs)
	})
	if va := tb.voiceFor("a.wav"); va != nil {
		t.Fatalf("a.wav must be cut, not faded: %+v", va)
	}
	if st := tb.c.byName["A"].channel.State(); st != mixer.StateIdle {
		t.Fatalf("expected A idle, got %s", st)
	}

	tb.clk.Advance(s.FadeOut)
	if tb.voiceFor("b.wav") == nil {
		t.Fatalf("b.wav is not playing after the wait")
	}
}

func TestExclusiveGroupFadesInsteadOfPlaying(t *testing.T) {
	a := &cue.Cue{Name: "A", Sources: []string{"a.wav"}, Group: "doors"}
	b := &cue.Cue{Name: "B", Sources: []string{"b.wav"}, Group: "doors"}
	tb := newBoard(t, testProject(DefaultSettings(), a, b), nil, nil)

	tb.trigger(t, "A")
	tb.trigger(t, "B")

	va := tb.voiceFor("a.wav")
	if va == nil || !va.Fading || va.FadeTime != time.Second {
		t.Fatalf("A must fade out over 1s: %+v", va)
	}
	if tb.voiceFor("b.wav") != nil {
		t.Fatalf("B must not start while A is active")
	}
	if got := tb.c.Status().Queued; len(got) != 0 {
		t.Fatalf("B must not be queued, got %v", got)
	}

	// A 淡出中不再算作占用
	tb.trigger(t, "B")
	if tb.voiceFor("b.wav") == nil {
		t.Fatalf("B must play once A is fading")
	}
}

func TestAdvanceOnEmptyQueueIsNoop(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil, nil)

	tb.c.update(tb.c.queue.Advance)

	if len(tb.b.Voices()) != 0 {
		t.Fatalf("advance on an empty queue must not open voices")
	}
	if tb.c.queue.LastActive() != nil {
		t.Fatalf("no channel must be recorded")
	}
}

func TestDeferralSlotModes(t *testing.T) {
	theme := func() *cue.Cue {
		return &cue.Cue{Name: "Theme", Sources: []string{"theme.wav"}, Loop: true, LoopIntro: "theme_intro.wav"}
	}
	s := DefaultSettings()
	s.Overlap = false

	t.Run("multi", func(t *testing.T) {
		tb := newBoard(t, testProject(s, theme()), nil, nil)
		tb.trigger(t, "Theme")
		if n := tb.c.deferrals.Pending(); n != 2 {
			t.Fatalf("expected intro and body pending, got %d", n)
		}

		tb.clk.Advance(s.FadeOut + deferral.DefaultDelay)
		v := tb.voiceFor("theme_intro.wav")
		if v == nil {
			t.Fatalf("intro is not playing")
		}
		if v.Next == nil || v.Next.Path() != path("theme.wav") {
			t.Fatalf("body must be queued behind the intro, next=%v", v.Next)
		}
	})

	t.Run("single", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DeferralMode = deferral.SingleSlot
		tb := newBoard(t, testProject(s, theme()), cfg, nil)
		tb.trigger(t, "Theme")
		if n := tb.c.deferrals.Pending(); n != 1 {
			t.Fatalf("single slot keeps only the body, got %d", n)
		}

		tb.clk.Advance(s.FadeOut + deferral.DefaultDelay)
		if tb.voiceFor("theme_intro.wav") != nil {
			t.Fatalf("overwritten intro must not play")
		}
		v := tb.voiceFor("theme.wav")
		if v == nil || !v.Loop {
			t.Fatalf("body must play looping on the idle channel: %+v", v)
		}
	})
}

func TestPauseIsNoopWhenSilent(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil, nil)

	tb.c.Pause(true, true)
	if st := tb.c.Status(); st.Pause != "" {
		t.Fatalf("nothing playing, pause must stay off: %q", st.Pause)
	}

	tb.trigger(t, "Bell")
	tb.c.Pause(true, false)
	v := tb.voiceFor("bell.wav")
	if !v.Paused {
		t.Fatalf("effects must be paused")
	}
	if st := tb.c.Status(); st.Pause != "-- effects paused --" {
		t.Fatalf("unexpected pause note %q", st.Pause)
	}

	// 音乐轴没有声道，切换不生效
	tb.c.Pause(false, true)
	if st := tb.c.Status(); st.Pause != "-- effects paused --" {
		t.Fatalf("music pause must not engage without music: %q", st.Pause)
	}

	tb.c.Pause(true, false)
	if v.Paused {
		t.Fatalf("second pause must resume")
	}
	if st := tb.c.Status(); st.Pause != "" {
		t.Fatalf("unexpected pause note %q", st.Pause)
	}
}

func TestCancelWhenIdleIsSafe(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil, nil)

	tb.c.Cancel(true, true, true, true)
	tb.c.Cancel(true, true, false, false)

	st := tb.c.Status()
	if st.NowPlaying != "" || st.Channels != 0 || st.Locked {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestCancelFadesAndUnlocks(t *testing.T) {
	s := DefaultSettings()
	bell := &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}
	gong := &cue.Cue{Name: "Gong", Sources: []string{"gong.wav"}}
	tb := newBoard(t, testProject(s, bell, gong), nil, nil)

	tb.trigger(t, "Bell")
	tb.c.ToggleLock()
	tb.trigger(t, "Gong")

	tb.c.Cancel(true, false, true, false)

	if v := tb.voiceFor("bell.wav"); v == nil || !v.Fading {
		t.Fatalf("bell must fade out")
	}
	st := tb.c.Status()
	if len(st.Queued) != 0 || st.Locked || st.NowPlaying != "" {
		t.Fatalf("cancel must clear the queue and unlock: %+v", st)
	}
	if tb.voiceFor("gong.wav") != nil {
		t.Fatalf("cancelled queue entries must not play")
	}
}

func TestCancelInterruptPlaysCrashNoise(t *testing.T) {
	p := testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}})
	p.CrashNoise = "crash.wav"
	tb := newBoard(t, p, nil, nil)

	tb.trigger(t, "Bell")
	tb.c.Cancel(true, true, false, true)

	if tb.voiceFor("bell.wav") != nil {
		t.Fatalf("hard cancel must stop the bell")
	}
	v := tb.voiceFor("crash.wav")
	if v == nil || v.FadeIn != 0 {
		t.Fatalf("crash noise must play without fade: %+v", v)
	}
}

func TestCancelMusicDropsPendingBody(t *testing.T) {
	s := DefaultSettings()
	s.Type = TypeMusic
	theme := &cue.Cue{Name: "Theme", Sources: []string{"theme.wav"}, Loop: true, LoopIntro: "theme_intro.wav"}
	tb := newBoard(t, testProject(s, theme), nil, nil)

	tb.trigger(t, "Theme")
	tb.c.Cancel(false, true, false, false)
	if n := tb.c.deferrals.Pending(); n != 0 {
		t.Fatalf("music cancel must drop deferrals, %d pending", n)
	}

	tb.clk.Advance(5 * time.Second)
	if tb.voiceFor("theme.wav") != nil {
		t.Fatalf("loop body must not start after cancel")
	}
}

func TestDialogBoardHoldsUntilSilent(t *testing.T) {
	s := DefaultSettings()
	s.Type = TypeDialog
	l1 := &cue.Cue{Name: "Line1", Sources: []string{"line1.wav"}}
	l2 := &cue.Cue{Name: "Line2", Sources: []string{"line2.wav"}}
	tb := newBoard(t, testProject(s, l1, l2), nil, nil)

	tb.trigger(t, "Line1")
	tb.trigger(t, "Line2")

	if tb.voiceFor("line2.wav") != nil {
		t.Fatalf("dialog lines must not overlap")
	}
	if got := tb.c.Status().Queued; !slices.Equal(got, []string{"Line2"}) {
		t.Fatalf("expected Line2 held in queue, got %v", got)
	}

	tb.voiceFor("line1.wav").Finish()

	if tb.voiceFor("line2.wav") == nil {
		t.Fatalf("held line must play once the board is silent")
	}
	if st := tb.c.Status(); len(st.Queued) != 0 || st.NowPlaying != "Line2" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestDialogHoldStaysQueuedWhileLocked(t *testing.T) {
	s := DefaultSettings()
	s.Type = TypeDialog
	l1 := &cue.Cue{Name: "Line1", Sources: []string{"line1.wav"}}
	l2 := &cue.Cue{Name: "Line2", Sources: []string{"line2.wav"}}
	tb := newBoard(t, testProject(s, l1, l2), nil, nil)

	tb.trigger(t, "Line1")
	tb.trigger(t, "Line2")
	tb.c.ToggleLock()

	tb.voiceFor("line1.wav").Finish()

	if tb.voiceFor("line2.wav") != nil {
		t.Fatalf("held line must not play while the board is locked")
	}
	if got := tb.c.Status().Queued; !slices.Equal(got, []string{"Line2"}) {
		t.Fatalf("expected Line2 still queued, got %v", got)
	}

	tb.c.ToggleLock()
	if tb.voiceFor("line2.wav") == nil {
		t.Fatalf("unlocking must play the held line")
	}
	if st := tb.c.Status(); len(st.Queued) != 0 || st.NowPlaying != "Line2" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestSetFadeTimeAndCrossfadeLabels(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil, nil)

	tb.c.SetFadeTime(0.5, FadeIn)
	if got := tb.c.Status().Fade; got != "Fade In/Out: 0.5 sec / 1 sec" {
		t.Fatalf("unexpected fade label %q", got)
	}
	tb.c.SetFadeTime(2.0004, FadeBoth)
	if got := tb.c.Status().Fade; got != "Fade Time: 2 sec" {
		t.Fatalf("unexpected fade label %q", got)
	}
	tb.c.SetFadeTime(-1, FadeOut)
	if got := tb.c.Status().Fade; got != "Fade In/Out: 2 sec / 0 sec" {
		t.Fatalf("negative fade must clamp to zero, got %q", got)
	}

	tb.c.ToggleCrossfade(AxisOverlap)
	if got := tb.c.Status().Crossfade; got != "Wait-Fade" {
		t.Fatalf("unexpected crossfade label %q", got)
	}
	tb.c.ToggleCrossfade(AxisFadeStyle)
	if got := tb.c.Status().Crossfade; got != "Wait-Full" {
		t.Fatalf("unexpected crossfade label %q", got)
	}
	tb.c.SetCrossfadeEnabled(true)
	if got := tb.c.Status().Crossfade; got != "Cross-Fade" {
		t.Fatalf("unexpected crossfade label %q", got)
	}
}

func TestChangeModeReloadsFromModeDirectory(t *testing.T) {
	s := DefaultSettings()
	s.Modes = []string{"day", "night"}
	tb := newBoard(t, testProject(s, &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil, nil)

	if got := tb.c.Status().Mode; got != "Mode: DAY" {
		t.Fatalf("unexpected mode label %q", got)
	}
	tb.c.ChangeMode()
	if got := tb.c.Status().Mode; got != "Mode: NIGHT" {
		t.Fatalf("unexpected mode label %q", got)
	}
	if !slices.Contains(tb.b.Loads(), cue.Resolve(testRoot, "night", "bell.wav")) {
		t.Fatalf("night sources not loaded: %v", tb.b.Loads())
	}
	tb.c.ChangeMode()
	if got := tb.c.Status().Mode; got != "Mode: DAY" {
		t.Fatalf("mode must wrap around, got %q", got)
	}
}

func TestChangeModeWithSingleModeIsNoop(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil, nil)
	loads := len(tb.b.Loads())

	tb.c.ChangeMode()

	if len(tb.b.Loads()) != loads {
		t.Fatalf("single mode must not reload")
	}
}

func TestStreamedCuesLoadOnPlay(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(),
		&cue.Cue{Name: "Long", Sources: []string{"long.wav"}, Buffering: cue.Streamed}), nil, nil)

	if slices.Contains(tb.b.Loads(), path("long.wav")) {
		t.Fatalf("streamed cue must not load eagerly")
	}
	tb.trigger(t, "Long")
	tb.voiceFor("long.wav").Finish()
	tb.trigger(t, "Long")

	n := 0
	for _, l := range tb.b.Loads() {
		if l == path("long.wav") {
			n++
		}
	}
	if n != 2 {
		t.Fatalf("streamed cue must reopen on each play, loaded %d times", n)
	}
}

func TestNoCacheCueReleasedOnCancel(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(),
		&cue.Cue{Name: "Big", Sources: []string{"big.wav"}, Buffering: cue.NoCache}), nil, nil)

	tb.trigger(t, "Big")
	if tb.c.byName["Big"].sources[0] == nil {
		t.Fatalf("nocache media must be kept while playing")
	}
	tb.c.Cancel(true, true, false, false)
	if tb.c.byName["Big"].sources[0] != nil {
		t.Fatalf("nocache media must be dropped on cancel")
	}
}

func TestStatusTickClearsAfterDuration(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil,
		func(b *mock.Backend) { b.SetDuration(path("bell.wav"), 3*time.Second) })

	tb.trigger(t, "Bell")
	if st := tb.c.Status(); st.Remaining != 3*time.Second || st.RemainingLabel() != "Remaining: 0:03" {
		t.Fatalf("unexpected status: %+v", st)
	}
	tb.voiceFor("bell.wav").Finish()

	tb.clk.Advance(time.Second)
	if st := tb.c.Status(); st.NowPlaying != "Bell" || st.Remaining != 2*time.Second {
		t.Fatalf("unexpected status after 1s: %+v", st)
	}
	tb.clk.Advance(2 * time.Second)
	if st := tb.c.Status(); st.NowPlaying != "" || st.Remaining != 0 {
		t.Fatalf("status must clear after the duration: %+v", st)
	}
	if tb.clk.Pending() != 0 {
		t.Fatalf("ticker must stop, %d timers pending", tb.clk.Pending())
	}
}

func TestSubscribeReceivesStatus(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil, nil)

	var got []Status
	unsubscribe := tb.c.Subscribe(func(st Status) { got = append(got, st) })

	tb.trigger(t, "Bell")
	if len(got) == 0 || got[len(got)-1].NowPlaying != "Bell" {
		t.Fatalf("expected a status with Bell playing, got %+v", got)
	}

	unsubscribe()
	n := len(got)
	tb.c.ToggleLock()
	if len(got) != n {
		t.Fatalf("unsubscribed observer still notified")
	}
}

func TestReloadKeepsLock(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil, nil)
	tb.trigger(t, "Bell")
	tb.c.ToggleLock()

	next := testProject(DefaultSettings(), &cue.Cue{Name: "Gong", Sources: []string{"gong.wav"}})
	if err := tb.c.Reload(next); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if tb.voiceFor("bell.wav") != nil {
		t.Fatalf("reload must stop playback")
	}
	if !tb.c.Status().Locked {
		t.Fatalf("reload must keep the lock")
	}
	if err := tb.c.Trigger("Bell"); !errors.Is(err, ErrUnknownCue) {
		t.Fatalf("old cues must be gone, got %v", err)
	}
	if err := tb.c.Reload(&Project{Name: "broken"}); err == nil {
		t.Fatalf("expected invalid project error")
	}
}

func TestCloseStopsEverything(t *testing.T) {
	b := mock.New()
	c, err := New(b, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Trigger("Bell"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if b.Busy() {
		t.Fatalf("voices still playing after close")
	}
	if err := c.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := c.Trigger("Bell"); err != nil {
		t.Fatalf("trigger after close must be ignored, got %v", err)
	}
}

func TestNewRejectsInvalidProject(t *testing.T) {
	if _, err := New(mock.New(), &Project{Name: "empty", Settings: DefaultSettings()}, nil); err == nil {
		t.Fatalf("expected error for project without layout")
	}
	if _, err := New(nil, testProject(DefaultSettings()), nil); err == nil {
		t.Fatalf("expected error without backend")
	}
}
