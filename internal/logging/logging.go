// Package logging 进程级 zap 日志。每条日志都带有演出 ID（show_id）与
// 当前 cue 序号（cue_seq），便于把一场演出中的日志串起来。
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level  string
	Format string
	// File 非空时日志同时追加写入该文件（演出现场留档）
	File string
}

const unknownShow = "show-unknown"

var (
	baseLogger *zap.Logger
	sugar      *zap.SugaredLogger
	level      = zap.NewAtomicLevel()
	showID     atomic.Value
	cueSeq     uint64
)

func init() {
	baseLogger = zap.NewNop()
	sugar = baseLogger.Sugar()
}

func InitFromEnv() error {
	return Init(Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})
}

func Init(cfg Config) error {
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "console"
	}

	var zapCfg zap.Config
	switch format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %s", cfg.Format)
	}

	if err := SetLevel(cfg.Level); err != nil {
		return err
	}
	zapCfg.Level = level
	if file := strings.TrimSpace(cfg.File); file != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, file)
	}

	logger, err := zapCfg.Build(
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	baseLogger = logger
	sugar = logger.Sugar()
	return nil
}

// SetLevel 运行时调整日志级别，空串为 info
func SetLevel(l string) error {
	l = strings.ToLower(strings.TrimSpace(l))
	if l == "" {
		l = "info"
	}
	if err := level.UnmarshalText([]byte(l)); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %s", l)
	}
	return nil
}

func Sync() {
	if baseLogger != nil {
		_ = baseLogger.Sync()
	}
}

// SetShowID 设置本次演出的 ID，空串忽略
func SetShowID(id string) {
	if strings.TrimSpace(id) == "" {
		return
	}
	showID.Store(id)
}

// NewShowID 生成演出 ID
func NewShowID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return unknownShow
	}
	return id.String()
}

// NextCue 一个 cue 开始播放时推进序号
func NextCue() uint64 {
	return atomic.AddUint64(&cueSeq, 1)
}

// Cue 返回带 cue 字段的 logger
func Cue(name string) *zap.SugaredLogger {
	return withFields().WithOptions(zap.AddCallerSkip(-1)).With("cue", name)
}

func Debugf(format string, args ...any) {
	withFields().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	withFields().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	withFields().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	withFields().Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	withFields().Fatalf(format, args...)
}

func withFields() *zap.SugaredLogger {
	sid, _ := showID.Load().(string)
	if sid == "" {
		sid = unknownShow
	}
	seq := atomic.LoadUint64(&cueSeq)
	return sugar.With(
		"show_id", sid,
		"cue_seq", seq,
		"log_id", fmt.Sprintf("%s-%d", sid, seq),
	)
}
