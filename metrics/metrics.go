// Package metrics holds the OpenTelemetry instruments the LTC encoder and
// decoder report to.
//
// Instruments are created from a metric.MeterProvider passed to New. A
// package level instance backed by the global provider is available through
// Default; tests should use New with their own provider.
package metrics

import (
	"context"
	"math"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/dh1tw/goltc"

// Metrics bundles all instruments. The OTel types are safe for concurrent
// use.
type Metrics struct {
	// DecodedFrames counts frames returned by decoders. Use with attribute
	// direction=forward|reverse.
	DecodedFrames metric.Int64Counter

	// SyncLoss counts sync loss events of decoders.
	SyncLoss metric.Int64Counter

	// RejectedFrames counts frames discarded at a frame boundary.
	RejectedFrames metric.Int64Counter

	// MalformedFrames counts frames with out of range fields.
	MalformedFrames metric.Int64Counter

	// BiphaseErrors counts unpaired short pulses.
	BiphaseErrors metric.Int64Counter

	// EncodedFrames counts frames rendered by encoders.
	EncodedFrames metric.Int64Counter

	// SignalLevel records the peak level of every decoded frame in dBFS.
	SignalLevel metric.Float64Histogram
}

var levelBuckets = []float64{-60, -48, -42, -36, -30, -24, -18, -12, -6, -3, 0}

// New creates all instruments from mp.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DecodedFrames, err = m.Int64Counter("ltc.decoder.frames",
		metric.WithDescription("Frames decoded by direction."),
	); err != nil {
		return nil, err
	}
	if met.SyncLoss, err = m.Int64Counter("ltc.decoder.sync_loss",
		metric.WithDescription("Sync loss events."),
	); err != nil {
		return nil, err
	}
	if met.RejectedFrames, err = m.Int64Counter("ltc.decoder.rejected",
		metric.WithDescription("Frames rejected at a frame boundary."),
	); err != nil {
		return nil, err
	}
	if met.MalformedFrames, err = m.Int64Counter("ltc.decoder.malformed",
		metric.WithDescription("Frames with fields out of range."),
	); err != nil {
		return nil, err
	}
	if met.BiphaseErrors, err = m.Int64Counter("ltc.decoder.biphase_errors",
		metric.WithDescription("Unpaired half bit pulses."),
	); err != nil {
		return nil, err
	}
	if met.EncodedFrames, err = m.Int64Counter("ltc.encoder.frames",
		metric.WithDescription("Frames rendered to audio."),
	); err != nil {
		return nil, err
	}
	if met.SignalLevel, err = m.Float64Histogram("ltc.decoder.volume",
		metric.WithDescription("Peak signal level of decoded frames."),
		metric.WithUnit("dBFS"),
		metric.WithExplicitBucketBoundaries(levelBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the package level instance created from
// otel.GetMeterProvider on first use.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = New(otel.GetMeterProvider())
		if err != nil {
			panic("metrics: failed to create default instruments: " + err.Error())
		}
	})
	return defaultMetrics
}

func direction(reverse bool) metric.MeasurementOption {
	if reverse {
		return metric.WithAttributes(attribute.String("direction", "reverse"))
	}
	return metric.WithAttributes(attribute.String("direction", "forward"))
}

// The recording helpers below accept a nil receiver, so components without
// configured metrics can call them unconditionally.

// FrameDecoded records a decoded frame and its peak level.
func (m *Metrics) FrameDecoded(ctx context.Context, reverse bool, level float32) {
	if m == nil {
		return
	}
	m.DecodedFrames.Add(ctx, 1, direction(reverse))
	if !math.IsInf(float64(level), -1) {
		m.SignalLevel.Record(ctx, float64(level))
	}
}

func (m *Metrics) SyncLost(ctx context.Context) {
	if m != nil {
		m.SyncLoss.Add(ctx, 1)
	}
}

func (m *Metrics) FrameRejected(ctx context.Context) {
	if m != nil {
		m.RejectedFrames.Add(ctx, 1)
	}
}

func (m *Metrics) FrameMalformed(ctx context.Context) {
	if m != nil {
		m.MalformedFrames.Add(ctx, 1)
	}
}

func (m *Metrics) BiphaseError(ctx context.Context) {
	if m != nil {
		m.BiphaseErrors.Add(ctx, 1)
	}
}

func (m *Metrics) FrameEncoded(ctx context.Context) {
	if m != nil {
		m.EncodedFrames.Add(ctx, 1)
	}
}
