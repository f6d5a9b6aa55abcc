package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/liuscraft/synthea/internal/audio"
)

func main() {
	freq := flag.Float64("freq", 440, "频率（Hz）")
	duration := flag.Duration("duration", 2*time.Second, "时长")
	level := flag.Float64("level", 0.5, "幅值 0..1")
	rate := flag.Int("rate", 44100, "采样率")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "用法: maketone [选项] <输出文件>")
		fmt.Fprintln(os.Stderr, "示例: maketone -freq 440 -duration 2s show/door.wav")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	filename := flag.Arg(0)

	fmt.Printf("生成音频文件: %s (频率: %.0fHz, 时长: %s)\n", filename, *freq, *duration)
	tone := audio.Tone{Freq: *freq, Duration: *duration, Level: *level, SampleRate: *rate}
	if err := audio.WriteTone(filename, tone); err != nil {
		fmt.Fprintf(os.Stderr, "生成失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("完成!")
}
