package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liuscraft/synthea/internal/board"
	"github.com/liuscraft/synthea/internal/cue"
)

func TestCollectSources(t *testing.T) {
	settings := board.DefaultSettings()
	settings.Modes = []string{"day", "night"}
	p := &board.Project{
		Name:       "show",
		Root:       "/show",
		Settings:   settings,
		CrashNoise: "crash.wav",
		Layout: &cue.Layout{Pages: []cue.Page{{Name: "p", Frames: []cue.Frame{{Name: "f", Cues: []*cue.Cue{
			{Name: "Theme", Sources: []string{"a.wav", "b.wav"}, Loop: true, LoopIntro: "intro.wav", Group: cue.GroupMusic},
			{Name: "Door", Sources: []string{"door.wav"}},
		}}}}}},
	}
	present := map[string]bool{
		filepath.Join("/show", "day", "a.wav"):    true,
		filepath.Join("/show", "day", "b.wav"):    true,
		filepath.Join("/show", "day", "door.wav"): true,
	}

	rows := collectSources(p, func(path string) bool { return present[path] })
	// 每个模式：2 变体 + 引子 + 1 变体 + 冲击噪声
	if len(rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}

	var buf bytes.Buffer
	missing := renderSources(&buf, p, rows)
	if missing != 7 {
		t.Fatalf("expected 7 missing, got %d", missing)
	}
	out := buf.String()
	for _, want := range []string{"Theme", "intro.wav", "(crash noise)", "MISSING", "night", "7 missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "show.yaml")
	data := "name: Small\npages: [{name: p, frames: [{name: f, cues: [{name: Bell, sources: [bell.wav]}]}]}]\n"
	if err := os.WriteFile(project, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	run := func(args ...string) (string, error) {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"check"}, args...))
		err := root.Execute()
		return out.String(), err
	}

	out, err := run(project)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "1 missing") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := run("--strict", project); err == nil {
		t.Fatalf("strict check must fail on missing files")
	}

	if err := os.WriteFile(filepath.Join(dir, "bell.wav"), []byte("RIFF"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := run("--strict", project); err != nil {
		t.Fatalf("strict check with all files present: %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("hotkeys: [{key: x, action: play, cue: Ghost}]\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := run(bad); err == nil {
		t.Fatalf("invalid project must fail")
	}
}
