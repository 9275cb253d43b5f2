package decoder

import (
	"time"

	"github.com/dh1tw/goltc/metrics"
	"github.com/dh1tw/goltc/timecode"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSampleRate     float64            = 48000
	DefaultFrameRate      timecode.FrameRate = timecode.Rate25
	DefaultReferenceLevel float32            = 0.02
	DefaultTolerance      float64            = 0.25
	DefaultSyncTolerance  int                = 0
	DefaultSilenceTimeout                    = 100 * time.Millisecond
	DefaultSeedPulses     int                = 8
	DefaultEventQueueSize int                = 64
)

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for initializing a Decoder.
type Options struct {
	SampleRate     float64
	FrameRate      timecode.FrameRate
	ReferenceLevel float32
	Tolerance      float64
	SyncTolerance  int
	SilenceTimeout time.Duration
	SeedPulses     int
	EventQueueSize int
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
}

func defaultOptions() Options {
	return Options{
		SampleRate:     DefaultSampleRate,
		FrameRate:      DefaultFrameRate,
		ReferenceLevel: DefaultReferenceLevel,
		Tolerance:      DefaultTolerance,
		SyncTolerance:  DefaultSyncTolerance,
		SilenceTimeout: DefaultSilenceTimeout,
		SeedPulses:     DefaultSeedPulses,
		EventQueueSize: DefaultEventQueueSize,
		Logger:         log.Logger.Level(zerolog.InfoLevel),
	}
}

// SampleRate is a functional option to set the sample rate of the audio
// written to the decoder.
func SampleRate(s float64) Option {
	return func(args *Options) {
		args.SampleRate = s
	}
}

// FrameRate sets the expected frame rate. It seeds the bit period estimate
// and determines the valid range of the frames field.
func FrameRate(r timecode.FrameRate) Option {
	return func(args *Options) {
		args.FrameRate = r
	}
}

// ReferenceLevel sets the minimal excursion from the signal midline
// (normalized amplitude) that counts as a level change. Quieter signals
// are treated as silence.
func ReferenceLevel(l float32) Option {
	return func(args *Options) {
		args.ReferenceLevel = l
	}
}

// Tolerance sets the width of the short and long pulse windows as a
// fraction of the respective nominal length.
func Tolerance(t float64) Option {
	return func(args *Options) {
		args.Tolerance = t
	}
}

// SyncTolerance sets the number of sync word bits which may be wrong in
// a frame arriving at the expected position.
func SyncTolerance(n int) Option {
	return func(args *Options) {
		args.SyncTolerance = n
	}
}

// SilenceTimeout sets the time without any transition after which sync is
// considered lost.
func SilenceTimeout(d time.Duration) Option {
	return func(args *Options) {
		args.SilenceTimeout = d
	}
}

// SeedPulses sets the number of intervals used to estimate the bit period
// after start up and after every sync loss.
func SeedPulses(n int) Option {
	return func(args *Options) {
		args.SeedPulses = n
	}
}

// EventQueueSize sets the number of events retained until they are
// fetched with Events. Older events are overwritten.
func EventQueueSize(n int) Option {
	return func(args *Options) {
		args.EventQueueSize = n
	}
}

// Logger sets the logger of the decoder. The default is the global logger
// limited to info level; pass a logger at debug level to see signal events.
func Logger(l zerolog.Logger) Option {
	return func(args *Options) {
		args.Logger = l
	}
}

// Metrics sets the instruments the decoder reports to. Without this option
// the instruments of metrics.Default are used.
func Metrics(m *metrics.Metrics) Option {
	return func(args *Options) {
		args.Metrics = m
	}
}
