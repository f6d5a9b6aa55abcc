package board

import (
	"errors"
	"testing"

	"github.com/liuscraft/synthea/internal/cue"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		args    ActionArgs
		want    Action
		wantErr bool
	}{
		{"PLAY", ActionArgs{Cue: "Door"}, Play{Cue: "Door"}, false},
		{"play", ActionArgs{}, nil, true},
		{"FADE_TIME", ActionArgs{Seconds: 2}, SetFadeTime{Seconds: 2, Target: FadeBoth}, false},
		{"FADE_IN", ActionArgs{Seconds: 0.5}, SetFadeTime{Seconds: 0.5, Target: FadeIn}, false},
		{"fade_out", ActionArgs{Seconds: 3}, SetFadeTime{Seconds: 3, Target: FadeOut}, false},
		{"TOGGLE_CROSSFADE", ActionArgs{}, ToggleCrossfade{Axis: AxisFadeStyle}, false},
		{"TOGGLE_CROSSFADE", ActionArgs{Axis: "overlap"}, ToggleCrossfade{Axis: AxisOverlap}, false},
		{"TOGGLE_CROSSFADE", ActionArgs{Axis: "sideways"}, nil, true},
		{"ENABLE_CROSSFADE", ActionArgs{}, SetCrossfade{Enabled: true}, false},
		{"DISABLE_CROSSFADE", ActionArgs{}, SetCrossfade{Enabled: false}, false},
		{"STOP_SOUND", ActionArgs{Fade: true}, Stop{Fade: true}, false},
		{"CANCEL", ActionArgs{Effects: true, Fade: true}, Cancel{Effects: true, FadeOut: true}, false},
		{"PAUSE", ActionArgs{Music: true}, Pause{Music: true}, false},
		{" toggle_lock ", ActionArgs{}, ToggleLock{}, false},
		{"CHANGE_MODE", ActionArgs{}, ChangeMode{}, false},
		{"DJ", ActionArgs{}, AdvanceDJ{}, false},
		{"EXPLODE", ActionArgs{}, nil, true},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.name, tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAction(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAction(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestHandleKeyDispatchesBindings(t *testing.T) {
	p := testProject(DefaultSettings(),
		&cue.Cue{Name: "Door", Sources: []string{"door.wav"}, Hotkey: "d"},
		&cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}},
	)
	p.Bindings = []Binding{
		{Key: "l", Action: ToggleLock{}},
		{Key: "b", Action: Play{Cue: "Bell"}},
		{Key: "f", Action: SetFadeTime{Seconds: 3, Target: FadeBoth}},
	}
	tb := newBoard(t, p, nil, nil)

	if ok, err := tb.c.HandleKey("l"); !ok || err != nil {
		t.Fatalf("HandleKey(l) = %v, %v", ok, err)
	}
	if _, err := tb.c.HandleKey("d"); err != nil {
		t.Fatalf("HandleKey(d): %v", err)
	}
	if _, err := tb.c.HandleKey("b"); err != nil {
		t.Fatalf("HandleKey(b): %v", err)
	}
	st := tb.c.Status()
	if !st.Locked || st.QueueLabel() != "Queued: Door Bell" {
		t.Fatalf("unexpected status: %+v", st)
	}

	if _, err := tb.c.HandleKey("f"); err != nil {
		t.Fatalf("HandleKey(f): %v", err)
	}
	if got := tb.c.Status().Fade; got != "Fade Time: 3 sec" {
		t.Fatalf("unexpected fade label %q", got)
	}

	if ok, err := tb.c.HandleKey("z"); ok || err != nil {
		t.Fatalf("unbound key must be ignored, got %v, %v", ok, err)
	}
}

func TestDispatch(t *testing.T) {
	tb := newBoard(t, testProject(DefaultSettings(), &cue.Cue{Name: "Bell", Sources: []string{"bell.wav"}}), nil, nil)

	if err := tb.c.Dispatch(Play{Cue: "Nope"}); !errors.Is(err, ErrUnknownCue) {
		t.Fatalf("expected ErrUnknownCue, got %v", err)
	}
	if err := tb.c.Dispatch(Play{Cue: "Bell"}); err != nil {
		t.Fatalf("Dispatch(Play): %v", err)
	}
	if err := tb.c.Dispatch(Stop{Fade: false}); err != nil {
		t.Fatalf("Dispatch(Stop): %v", err)
	}
	if tb.voiceFor("bell.wav") != nil {
		t.Fatalf("stop must silence the bell")
	}
	if err := tb.c.Dispatch(SetCrossfade{Enabled: false}); err != nil {
		t.Fatalf("Dispatch(SetCrossfade): %v", err)
	}
	if got := tb.c.Status().Crossfade; got != "Wait-Full" {
		t.Fatalf("unexpected crossfade label %q", got)
	}
}

func TestActionString(t *testing.T) {
	if got := (Play{Cue: "Door"}).String(); got != "PLAY Door" {
		t.Fatalf("unexpected %q", got)
	}
	if got := (SetFadeTime{Seconds: 1.5, Target: FadeIn}).String(); got != "FADE_TIME 1.5 in" {
		t.Fatalf("unexpected %q", got)
	}
	if got := (SetCrossfade{}).String(); got != "DISABLE_CROSSFADE" {
		t.Fatalf("unexpected %q", got)
	}
}
