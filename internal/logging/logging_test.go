package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNextCueAddsLogFields(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	baseLogger = zap.New(core)
	sugar = baseLogger.Sugar()
	showID.Store("")
	cueSeq = 0

	SetShowID("show-123")
	NextCue()
	Infof("hello")

	logs := recorded.All()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}

	fields := map[string]any{}
	for _, field := range logs[0].Context {
		fields[field.Key] = field.Interface
		if field.Type == zapcore.StringType {
			fields[field.Key] = field.String
		}
		if field.Type == zapcore.Uint64Type {
			fields[field.Key] = uint64(field.Integer)
		}
	}

	if fields["show_id"] != "show-123" {
		t.Fatalf("expected show_id to be show-123, got %v", fields["show_id"])
	}
	if fields["cue_seq"] != uint64(1) {
		t.Fatalf("expected cue_seq to be 1, got %v", fields["cue_seq"])
	}
	if fields["log_id"] != "show-123-1" {
		t.Fatalf("expected log_id to be show-123-1, got %v", fields["log_id"])
	}
}

func TestNewShowIDIsUnique(t *testing.T) {
	a, b := NewShowID(), NewShowID()
	if a == b || a == "show-unknown" {
		t.Fatalf("expected distinct show ids, got %q and %q", a, b)
	}
}

func TestInitRejectsInvalidFormat(t *testing.T) {
	if err := Init(Config{Format: "xml"}); err == nil {
		t.Fatalf("expected invalid format error")
	}
	if err := Init(Config{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
}

func TestCueLoggerAddsCueField(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	baseLogger = zap.New(core)
	sugar = baseLogger.Sugar()

	Cue("Door").Infof("playing")

	logs := recorded.FilterField(zap.String("cue", "Door")).All()
	if len(logs) != 1 || logs[0].Message != "playing" {
		t.Fatalf("expected one entry with cue=Door, got %+v", recorded.All())
	}
}

func TestInitWritesFileAndSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show.log")
	if err := Init(Config{Format: "json", Level: "warn", File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() {
		baseLogger = zap.NewNop()
		sugar = baseLogger.Sugar()
		_ = SetLevel("info")
	})

	SetShowID("show-file")
	Infof("filtered")
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	Debugf("kept")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "filtered") {
		t.Fatalf("info line must be filtered at warn level:\n%s", out)
	}
	if !strings.Contains(out, "kept") || !strings.Contains(out, `"show_id":"show-file"`) {
		t.Fatalf("unexpected log file:\n%s", out)
	}
	if err := SetLevel("loud"); err == nil {
		t.Fatalf("expected invalid level error")
	}
}
