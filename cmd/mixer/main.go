package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/liuscraft/synthea/internal/audio"
	"github.com/liuscraft/synthea/internal/board"
	"github.com/liuscraft/synthea/internal/cue"
	"github.com/liuscraft/synthea/internal/logging"
)

var (
	backendName = flag.String("backend", audio.BackendSpeaker, "音频引擎: speaker|portaudio|null")
	fileA       = flag.String("a", "", "第一段音乐（默认 440Hz 正弦波）")
	fileB       = flag.String("b", "", "第二段音乐（默认 660Hz 正弦波）")
	stage       = flag.Duration("stage", 3*time.Second, "每个阶段的时长")
	fade        = flag.Duration("fade", 2*time.Second, "淡出/淡入时长")
	overlap     = flag.Bool("overlap", true, "交叉淡化时两段重叠")
	help        = flag.Bool("h", false, "显示帮助信息")
)

func main() {
	flag.Parse()
	if *help {
		printHelp()
		return
	}
	_ = logging.Init(logging.Config{Level: "info", Format: "console"})
	defer logging.Sync()

	fmt.Println("=== 交叉淡化验证工具 ===")
	fmt.Println()

	dir, err := os.MkdirTemp("", "synthea-mixer-*")
	if err != nil {
		fmt.Printf("创建临时目录失败: %v\n", err)
		return
	}
	defer os.RemoveAll(dir)

	fmt.Println("1. 准备音频...")
	a, err := prepare(dir, "a.wav", *fileA, 440)
	if err != nil {
		fmt.Printf("准备 A 失败: %v\n", err)
		return
	}
	b, err := prepare(dir, "b.wav", *fileB, 660)
	if err != nil {
		fmt.Printf("准备 B 失败: %v\n", err)
		return
	}
	fmt.Printf("   - A: %s\n", a)
	fmt.Printf("   - B: %s\n", b)
	fmt.Println()

	backend, err := audio.New(&audio.BackendConfig{Name: *backendName, SampleRate: 44100, Buffer: 100 * time.Millisecond})
	if err != nil {
		fmt.Printf("创建音频引擎失败: %v\n", err)
		return
	}
	defer backend.Close()

	settings := board.DefaultSettings()
	settings.Type = board.TypeMusic
	settings.Overlap = *overlap
	settings.FadeOut = *fade
	settings.FadeIn = *fade
	project := &board.Project{
		Name:     "mixer",
		Root:     dir,
		Settings: settings,
		Layout: &cue.Layout{Pages: []cue.Page{{Name: "demo", Frames: []cue.Frame{{Name: "music", Cues: []*cue.Cue{
			{Name: "A", Sources: []string{a}, Loop: true},
			{Name: "B", Sources: []string{b}, Loop: true},
		}}}}}},
	}
	ctl, err := board.New(backend, project, nil)
	if err != nil {
		fmt.Printf("创建面板失败: %v\n", err)
		return
	}
	defer ctl.Close()

	steps := []struct {
		title string
		run   func() error
	}{
		{"播放 A（淡入）", func() error { return ctl.Trigger("A") }},
		{"切换到 B（交叉淡化）", func() error { return ctl.Trigger("B") }},
		{"暂停音乐", func() error { ctl.Pause(false, true); return nil }},
		{"恢复音乐", func() error { ctl.Pause(false, true); return nil }},
		{"淡出取消", func() error { ctl.Cancel(true, true, true, false); return nil }},
	}
	for i, step := range steps {
		fmt.Printf("%d. %s...\n", i+2, step.title)
		if err := step.run(); err != nil {
			fmt.Printf("   失败: %v\n", err)
			return
		}
		st := ctl.Status()
		fmt.Printf("   %s | %s | channels=%d\n", st.PlayingLabel(), st.Crossfade, st.Channels)
		time.Sleep(*stage)
	}

	fmt.Println()
	fmt.Println("=== 验证完成 ===")
	fmt.Println()
	fmt.Println("预期效果:")
	fmt.Println("  - A 在淡入时长内逐渐变响")
	fmt.Println("  - 切换时 A 淡出、B 淡入；overlap=false 时 B 在 A 淡出后才开始")
	fmt.Println("  - 暂停后静音，恢复后从原位置继续")
	fmt.Println("  - 取消后声音在淡出时长内消失")
}

// prepare 返回相对于 dir 的文件名；未指定文件时生成正弦波
func prepare(dir, name, src string, freq float64) (string, error) {
	if src != "" {
		abs, err := filepath.Abs(src)
		if err != nil {
			return "", err
		}
		return filepath.Rel(dir, abs)
	}
	tone := audio.Tone{Freq: freq, Duration: 2 * time.Second, Level: 0.4}
	if err := audio.WriteTone(filepath.Join(dir, name), tone); err != nil {
		return "", err
	}
	return name, nil
}

func printHelp() {
	fmt.Println("交叉淡化验证工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  go run ./cmd/mixer [选项]")
	fmt.Println()
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  go run ./cmd/mixer")
	fmt.Println("    - 使用默认的正弦波测试音频")
	fmt.Println()
	fmt.Println("  go run ./cmd/mixer -a=intro.wav -b=theme.wav -overlap=false")
	fmt.Println("    - 使用指定的音频文件，依次淡化")
}
