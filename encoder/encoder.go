// Package encoder renders LTC frames as biphase mark coded audio.
//
// Every bit starts with a level transition; a 1 has a second transition in
// the middle of the bit. The polarity correction bit keeps the number of
// transitions per frame even, so consecutive frames join seamlessly. The
// signal level and the fractional sample clock are carried from one frame
// to the next.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chewxy/math32"
	"github.com/dh1tw/goltc/audio"
	"github.com/dh1tw/goltc/ltcframe"
	"github.com/dh1tw/goltc/metrics"
	"github.com/dh1tw/goltc/timecode"
	"github.com/rs/zerolog"
)

var (
	// ErrConfiguration is returned for invalid encoder options and for
	// timecodes which can not be encoded at the configured frame rate.
	ErrConfiguration = errors.New("invalid encoder configuration")

	// ErrShortBuffer is returned by EncodeInto if the buffer can not hold
	// the frame.
	ErrShortBuffer = errors.New("buffer too small for ltc frame")
)

// Polarity is the signal level before the next bit.
type Polarity int8

const (
	Low  Polarity = -1
	High Polarity = 1
)

func (p Polarity) String() string {
	if p == High {
		return "high"
	}
	return "low"
}

type parmError struct {
	Parameter string
	Reason    string
}

func (e *parmError) Error() string {
	return fmt.Sprintf("%s: %s", e.Parameter, e.Reason)
}

func (e *parmError) Unwrap() error {
	return ErrConfiguration
}

// Encoder is a LTC encoder session. Besides encoding arbitrary timecodes
// it keeps a current timecode which can be rendered with EncodeFrame and
// advanced with IncreaseTimecode. An Encoder is not safe for concurrent use.
type Encoder struct {
	options Options
	logger  zerolog.Logger
	metrics *metrics.Metrics

	tc          timecode.Timecode
	std         ltcframe.Standard
	amplitude   float32
	filterConst float32
	clock       *sampleClock

	polarity Polarity
	out      float32 // filter state
	buf      []float32
}

// New returns an Encoder configured with the given options. The current
// timecode starts at 00:00:00:00.
func New(opts ...Option) (*Encoder, error) {
	e := &Encoder{
		options: defaultOptions(),
	}

	for _, o := range opts {
		o(&e.options)
	}

	if err := checkOptions(e.options); err != nil {
		return nil, err
	}

	e.logger = e.options.Logger.With().Str("component", "ltc-encoder").Logger()
	e.metrics = e.options.Metrics
	if e.metrics == nil {
		e.metrics = metrics.Default()
	}
	e.tc = timecode.Timecode{DropFrame: e.options.FrameRate.DropFrame()}
	e.setup()

	e.logger.Debug().
		Float64("samplerate", e.options.SampleRate).
		Stringer("framerate", e.options.FrameRate).
		Float64("samples_per_bit", e.SamplesPerBit()).
		Msg("encoder created")

	return e, nil
}

func checkOptions(o Options) error {
	if o.SampleRate <= 0 {
		return &parmError{"samplerate", fmt.Sprintf("must be positive, got %v", o.SampleRate)}
	}
	if !o.FrameRate.Valid() {
		return &parmError{"framerate", fmt.Sprintf("unknown frame rate %v", o.FrameRate)}
	}
	if spb := o.SampleRate / (o.FrameRate.FPS() * ltcframe.Bits); spb < ltcframe.MinSamplesPerBit {
		return &parmError{"samplerate", fmt.Sprintf("%v Hz gives %.2f samples per bit at %v fps, at least %d required",
			o.SampleRate, spb, o.FrameRate, ltcframe.MinSamplesPerBit)}
	}
	if err := checkVolume(o.Volume); err != nil {
		return err
	}
	if err := checkRiseTime(o.RiseTime); err != nil {
		return err
	}
	if o.InitialPolarity != Low && o.InitialPolarity != High {
		return &parmError{"polarity", fmt.Sprintf("invalid value %d", o.InitialPolarity)}
	}
	return nil
}

func checkVolume(v float32) error {
	if v > 0 || math32.IsNaN(v) {
		return &parmError{"volume", fmt.Sprintf("must be <= 0 dBFS, got %v", v)}
	}
	return nil
}

func checkRiseTime(d time.Duration) error {
	if d < 0 {
		return &parmError{"rise time", fmt.Sprintf("must not be negative, got %v", d)}
	}
	return nil
}

// setup derives the signal parameters from the options and resets the
// signal state.
func (e *Encoder) setup() {
	o := e.options
	e.std = ltcframe.StandardFor(o.FrameRate)
	e.amplitude = audio.Gain(o.Volume)
	e.filterConst = filterConst(o.SampleRate, o.RiseTime)
	e.clock = newSampleClock(o.FrameRate.FPS()*ltcframe.Bits, o.SampleRate)
	e.polarity = o.InitialPolarity
	e.out = float32(e.polarity) * e.amplitude
}

// filterConst returns the coefficient of the one pole low pass which
// shapes the edges. 1 disables filtering.
func filterConst(sampleRate float64, rise time.Duration) float32 {
	if rise <= 0 {
		return 1
	}
	tau := sampleRate * rise.Seconds() / 2 / math.E
	return float32(1 - math.Exp(-1/tau))
}

// SamplesPerBit returns the (fractional) number of samples per bit.
func (e *Encoder) SamplesPerBit() float64 {
	return e.options.SampleRate / (e.options.FrameRate.FPS() * ltcframe.Bits)
}

// BufferSize returns the number of samples which is always sufficient to
// hold one frame.
func (e *Encoder) BufferSize() int {
	return 1 + int(math.Ceil(e.options.SampleRate/e.options.FrameRate.FPS()))
}

// Polarity returns the signal level after the last encoded sample.
func (e *Encoder) Polarity() Polarity {
	return e.polarity
}

// Options returns the current configuration.
func (e *Encoder) Options() Options {
	return e.options
}

// normalize validates tc for the configured frame rate. Timecode without
// the drop-frame flag is accepted at the drop-frame rate and flagged.
func (e *Encoder) normalize(tc timecode.Timecode) (timecode.Timecode, error) {
	rate := e.options.FrameRate
	if rate.DropFrame() {
		tc.DropFrame = true
	}
	if err := tc.Validate(rate); err != nil {
		return tc, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return tc, nil
}

// Encode renders one frame and returns its samples.
func (e *Encoder) Encode(tc timecode.Timecode) ([]float32, error) {
	f, err := e.frame(tc)
	if err != nil {
		return nil, err
	}
	return e.render(make([]float32, 0, e.BufferSize()), f, false), nil
}

// EncodeReverse renders one frame with its bits in reverse order, which is
// what a decoder sees when the tape runs backwards.
func (e *Encoder) EncodeReverse(tc timecode.Timecode) ([]float32, error) {
	f, err := e.frame(tc)
	if err != nil {
		return nil, err
	}
	return e.render(make([]float32, 0, e.BufferSize()), f, true), nil
}

// EncodeInto renders one frame into buf and returns the number of samples
// written. The encoder state is not modified if buf is too small.
func (e *Encoder) EncodeInto(tc timecode.Timecode, buf []float32) (int, error) {
	f, err := e.frame(tc)
	if err != nil {
		return 0, err
	}
	n := e.clock.peek(ltcframe.Bits)
	if len(buf) < n {
		return 0, fmt.Errorf("%w: need %d samples, got %d", ErrShortBuffer, n, len(buf))
	}
	return len(e.render(buf[:0], f, false)), nil
}

func (e *Encoder) frame(tc timecode.Timecode) (ltcframe.Frame, error) {
	tc, err := e.normalize(tc)
	if err != nil {
		return ltcframe.Frame{}, err
	}
	return ltcframe.Pack(tc, e.options.Flags, e.std), nil
}

func (e *Encoder) render(dst []float32, f ltcframe.Frame, reverse bool) []float32 {
	for i := 0; i < ltcframe.Bits; i++ {
		b := i
		if reverse {
			b = ltcframe.Bits - 1 - i
		}
		dst = e.bit(dst, f.Bit(b))
	}
	e.metrics.FrameEncoded(context.Background())
	return dst
}

func (e *Encoder) bit(dst []float32, v uint8) []float32 {
	c1, c2 := e.clock.samples()

	// always transition at the start of a bit
	e.polarity = -e.polarity
	dst = e.level(dst, c1)

	// transition again on ones
	if v != 0 {
		e.polarity = -e.polarity
	}
	return e.level(dst, c2)
}

func (e *Encoder) level(dst []float32, n int) []float32 {
	target := float32(e.polarity) * e.amplitude
	for i := 0; i < n; i++ {
		e.out += e.filterConst * (target - e.out)
		dst = append(dst, e.out)
	}
	return dst
}

// SetTimecode sets the current timecode. The user bits of tc replace the
// current user bits.
func (e *Encoder) SetTimecode(tc timecode.Timecode) error {
	tc, err := e.normalize(tc)
	if err != nil {
		return err
	}
	e.tc = tc
	return nil
}

// Timecode returns the current timecode.
func (e *Encoder) Timecode() timecode.Timecode {
	return e.tc
}

// IncreaseTimecode advances the current timecode by one frame.
func (e *Encoder) IncreaseTimecode() {
	e.tc.Increment(e.options.FrameRate)
}

// DecreaseTimecode moves the current timecode back by one frame.
func (e *Encoder) DecreaseTimecode() {
	e.tc.Decrement(e.options.FrameRate)
}

// SetUserBits stores v in the user bits of the current timecode, least
// significant nibble in user bits group 1.
func (e *Encoder) SetUserBits(v uint32) {
	e.tc.UserBits.SetUint32(v)
}

// UserBits returns the user bits of the current timecode.
func (e *Encoder) UserBits() uint32 {
	return e.tc.UserBits.Uint32()
}

// EncodeFrame renders the current timecode and appends the samples to the
// internal buffer.
func (e *Encoder) EncodeFrame() error {
	f, err := e.frame(e.tc)
	if err != nil {
		return err
	}
	e.buf = e.render(e.buf, f, false)
	return nil
}

// Buffer returns the samples rendered by EncodeFrame since the last call
// (or Flush) and empties the internal buffer.
func (e *Encoder) Buffer() []float32 {
	res := e.buf
	e.buf = nil
	return res
}

// BufferInt16 is Buffer rendered as signed 16 bit samples.
func (e *Encoder) BufferInt16() []int16 {
	return audio.Float32ToInt16(e.Buffer())
}

// BufferUint8 is Buffer rendered as unsigned 8 bit samples centered at 128.
func (e *Encoder) BufferUint8() []uint8 {
	return audio.Float32ToUint8(e.Buffer())
}

// Flush discards the internal buffer.
func (e *Encoder) Flush() {
	e.buf = e.buf[:0]
}

// Reset restores the initial polarity, the sample clock and the filter
// state and discards the internal buffer. The current timecode is kept.
func (e *Encoder) Reset() {
	e.clock.reset()
	e.polarity = e.options.InitialPolarity
	e.out = float32(e.polarity) * e.amplitude
	e.Flush()
}

// Reinitialize changes sample rate and frame rate. The encoder is reset
// and the rise time filter is recomputed for the new sample rate. The
// current timecode is kept if it is valid at the new frame rate, otherwise
// it starts over at 00:00:00:00.
func (e *Encoder) Reinitialize(sampleRate float64, rate timecode.FrameRate) error {
	o := e.options
	o.SampleRate = sampleRate
	o.FrameRate = rate
	if err := checkOptions(o); err != nil {
		return err
	}
	e.options = o
	e.setup()
	e.Flush()

	e.tc.DropFrame = rate.DropFrame()
	if e.tc.Validate(rate) != nil {
		ub := e.tc.UserBits
		e.tc = timecode.Timecode{DropFrame: rate.DropFrame(), UserBits: ub}
	}

	e.logger.Info().
		Float64("samplerate", sampleRate).
		Stringer("framerate", rate).
		Msg("encoder reinitialized")
	return nil
}

// SetVolume sets the signal level in dBFS. The level must not exceed 0.
func (e *Encoder) SetVolume(dBFS float32) error {
	if err := checkVolume(dBFS); err != nil {
		return err
	}
	e.options.Volume = dBFS
	e.amplitude = audio.Gain(dBFS)
	return nil
}

// SetRiseTime sets the rise time of the signal edges, 0 gives a square
// wave.
func (e *Encoder) SetRiseTime(d time.Duration) error {
	if err := checkRiseTime(d); err != nil {
		return err
	}
	e.options.RiseTime = d
	e.filterConst = filterConst(e.options.SampleRate, d)
	return nil
}
