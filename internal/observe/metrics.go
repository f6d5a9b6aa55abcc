// Package observe 提供播放引擎的 OpenTelemetry 指标。
//
// 指标通过 OpenTelemetry Metrics API 记录，InitProvider 安装 Prometheus 导出器，
// 以便通过 /metrics 抓取。测试应使用 NewMetrics 搭配自定义 MeterProvider。
// 所有记录方法对 nil *Metrics 安全。
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/liuscraft/synthea"

// Deferral 结果
const (
	DeferralArmed       = "armed"
	DeferralPlayed      = "played"
	DeferralSpliced     = "spliced"
	DeferralSkipped     = "skipped"
	DeferralCancelled   = "cancelled"
	DeferralOverwritten = "overwritten"
)

// Metrics 播放引擎的全部指标
type Metrics struct {
	// CuesTriggered 触发次数，属性 cue
	CuesTriggered metric.Int64Counter
	// CuesPlayed 实际开始播放的次数，属性 group
	CuesPlayed metric.Int64Counter
	// Fadeouts 开始淡出的声道数，属性 group
	Fadeouts metric.Int64Counter
	// Stops 被硬切停止的声道数，属性 group
	Stops metric.Int64Counter
	// Deferrals 延迟播放，属性 outcome
	Deferrals metric.Int64Counter
	// MissingSources 缺失文件被替换为静音的次数
	MissingSources metric.Int64Counter
	// ChannelEvictions 声道池满时被回收的声道数
	ChannelEvictions metric.Int64Counter
	// ActiveChannels 当前在发声的声道数
	ActiveChannels metric.Int64UpDownCounter
}

// NewMetrics 使用给定的 MeterProvider 创建全部指标
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CuesTriggered, err = m.Int64Counter("synthea.cues.triggered",
		metric.WithDescription("Number of cue triggers received."),
	); err != nil {
		return nil, err
	}
	if met.CuesPlayed, err = m.Int64Counter("synthea.cues.played",
		metric.WithDescription("Number of cues that started playback."),
	); err != nil {
		return nil, err
	}
	if met.Fadeouts, err = m.Int64Counter("synthea.channels.fadeouts",
		metric.WithDescription("Number of channels that started a fade out."),
	); err != nil {
		return nil, err
	}
	if met.Stops, err = m.Int64Counter("synthea.channels.stops",
		metric.WithDescription("Number of channels stopped without a fade."),
	); err != nil {
		return nil, err
	}
	if met.Deferrals, err = m.Int64Counter("synthea.deferrals",
		metric.WithDescription("Deferred playback actions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.MissingSources, err = m.Int64Counter("synthea.sources.missing",
		metric.WithDescription("Source files substituted with silence."),
	); err != nil {
		return nil, err
	}
	if met.ChannelEvictions, err = m.Int64Counter("synthea.channels.evictions",
		metric.WithDescription("Channels evicted because the pool was full."),
	); err != nil {
		return nil, err
	}
	if met.ActiveChannels, err = m.Int64UpDownCounter("synthea.channels.active",
		metric.WithDescription("Channels currently playing."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

func (m *Metrics) RecordTrigger(cue string) {
	if m == nil {
		return
	}
	m.CuesTriggered.Add(context.Background(), 1, metric.WithAttributes(attribute.String("cue", cue)))
}

func (m *Metrics) RecordPlay(group string) {
	if m == nil {
		return
	}
	m.CuesPlayed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("group", group)))
}

func (m *Metrics) RecordFadeout(group string) {
	if m == nil {
		return
	}
	m.Fadeouts.Add(context.Background(), 1, metric.WithAttributes(attribute.String("group", group)))
}

func (m *Metrics) RecordStop(group string) {
	if m == nil {
		return
	}
	m.Stops.Add(context.Background(), 1, metric.WithAttributes(attribute.String("group", group)))
}

func (m *Metrics) RecordDeferral(outcome string) {
	if m == nil {
		return
	}
	m.Deferrals.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordMissingSource() {
	if m == nil {
		return
	}
	m.MissingSources.Add(context.Background(), 1)
}

func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.ChannelEvictions.Add(context.Background(), 1)
}

// ChannelActive 声道开始（+1）或停止（-1）发声
func (m *Metrics) ChannelActive(delta int64) {
	if m == nil {
		return
	}
	m.ActiveChannels.Add(context.Background(), delta)
}
