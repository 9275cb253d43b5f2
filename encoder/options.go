package encoder

import (
	"time"

	"github.com/dh1tw/goltc/ltcframe"
	"github.com/dh1tw/goltc/metrics"
	"github.com/dh1tw/goltc/timecode"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSampleRate float64            = 48000
	DefaultFrameRate  timecode.FrameRate = timecode.Rate25
	DefaultVolume     float32            = -3
	DefaultRiseTime                      = 40 * time.Microsecond
)

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for initializing an Encoder.
type Options struct {
	SampleRate      float64
	FrameRate       timecode.FrameRate
	Volume          float32 // dBFS
	RiseTime        time.Duration
	InitialPolarity Polarity
	Flags           ltcframe.Flags
	Logger          zerolog.Logger
	Metrics         *metrics.Metrics
}

func defaultOptions() Options {
	return Options{
		SampleRate:      DefaultSampleRate,
		FrameRate:       DefaultFrameRate,
		Volume:          DefaultVolume,
		RiseTime:        DefaultRiseTime,
		InitialPolarity: Low,
		Logger:          log.Logger.Level(zerolog.InfoLevel),
	}
}

// SampleRate is a functional option to set the sample rate of the
// generated audio.
func SampleRate(s float64) Option {
	return func(args *Options) {
		args.SampleRate = s
	}
}

// FrameRate sets the frame rate of the generated timecode.
func FrameRate(r timecode.FrameRate) Option {
	return func(args *Options) {
		args.FrameRate = r
	}
}

// Volume sets the signal level in dBFS. Values above 0 are rejected.
func Volume(dBFS float32) Option {
	return func(args *Options) {
		args.Volume = dBFS
	}
}

// RiseTime sets the 10%-90% rise time of the signal edges. SMPTE 12M
// asks for 40µs +/- 10µs; 0 produces a square wave.
func RiseTime(d time.Duration) Option {
	return func(args *Options) {
		args.RiseTime = d
	}
}

// InitialPolarity sets the signal level before the first bit. Chaining
// separately created encoders works by passing the Polarity of the
// previous one.
func InitialPolarity(p Polarity) Option {
	return func(args *Options) {
		args.InitialPolarity = p
	}
}

// Flags sets the colour frame and binary group flags written into every
// frame.
func Flags(f ltcframe.Flags) Option {
	return func(args *Options) {
		args.Flags = f
	}
}

// Logger sets the logger of the encoder. The default is the global logger
// limited to info level; pass a logger at debug level to see signal events.
func Logger(l zerolog.Logger) Option {
	return func(args *Options) {
		args.Logger = l
	}
}

// Metrics sets the instruments the encoder reports to. Without this option
// the instruments of metrics.Default are used.
func Metrics(m *metrics.Metrics) Option {
	return func(args *Options) {
		args.Metrics = m
	}
}
