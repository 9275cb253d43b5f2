// Package decoder recovers LTC frames from audio samples.
//
// Decoding runs in three stages: an edge detector which classifies the
// intervals between signal transitions as short or long pulses, a biphase
// stage turning pulses into bits and a frame assembler which locks onto
// the sync word. All stages are driven synchronously from Next, so a
// Decoder does no work in the background and is not safe for concurrent
// use.
//
//	dec, _ := decoder.New(decoder.SampleRate(48000), decoder.FrameRate(timecode.Rate25))
//	dec.Write(samples)
//	for f := range dec.Frames() {
//		fmt.Println(f.Timecode)
//	}
package decoder

import (
	"context"
	"fmt"
	"iter"

	"github.com/dh1tw/goltc/audio"
	"github.com/dh1tw/goltc/ltcframe"
	"github.com/dh1tw/goltc/metrics"
	"github.com/dh1tw/goltc/timecode"
	ringBuffer "github.com/dh1tw/golang-ring"
	"github.com/rs/zerolog"
)

// Frame is a decoded LTC frame.
type Frame struct {
	Timecode timecode.Timecode
	Flags    ltcframe.Flags
	// Raw holds the 80 frame bits in transmission order. Frames decoded
	// from reverse playback are stored as if they had been played forwards.
	Raw ltcframe.Frame
	// Start and End are the positions of the first and last sample of the
	// frame counted from the first sample written to the decoder.
	Start int64
	End   int64
	// Reverse is set for frames decoded from audio played backwards.
	Reverse bool
	// ParityOK reports whether the polarity correction bit matches.
	ParityOK bool
	// Volume is the peak signal level in dBFS.
	Volume float32
}

// Decoder is a streaming LTC decoder.
type Decoder struct {
	options Options
	logger  zerolog.Logger
	metrics *metrics.Metrics

	det *detector
	bp  *biphase
	asm *assembler

	events  ringBuffer.Ring
	stats   Stats
	eof     bool
	flushed bool
}

// New returns a Decoder configured with the given options.
func New(opts ...Option) (*Decoder, error) {
	d := &Decoder{
		options: defaultOptions(),
		events:  ringBuffer.Ring{},
	}

	for _, o := range opts {
		o(&d.options)
	}

	half, err := checkOptions(d.options)
	if err != nil {
		return nil, err
	}

	d.logger = d.options.Logger.With().Str("component", "ltc-decoder").Logger()
	d.metrics = d.options.Metrics
	if d.metrics == nil {
		d.metrics = metrics.Default()
	}
	d.det = newDetector(d.options.SampleRate, half, d.options)
	d.bp = newBiphase(d.det)
	d.asm = newAssembler(d.options.FrameRate, d.options.SyncTolerance)
	d.events.SetCapacity(d.options.EventQueueSize)

	d.logger.Debug().
		Float64("samplerate", d.options.SampleRate).
		Stringer("framerate", d.options.FrameRate).
		Float64("half_bit", half).
		Msg("decoder created")

	return d, nil
}

// checkOptions validates the options and returns the nominal half bit
// period in samples.
func checkOptions(o Options) (float64, error) {
	if o.SampleRate <= 0 {
		return 0, &parmError{"samplerate", fmt.Sprintf("must be positive, got %v", o.SampleRate)}
	}
	if !o.FrameRate.Valid() {
		return 0, &parmError{"framerate", fmt.Sprintf("unknown frame rate %v", o.FrameRate)}
	}
	if o.ReferenceLevel <= 0 || o.ReferenceLevel >= 1 {
		return 0, &parmError{"reference level", fmt.Sprintf("must be within (0, 1), got %v", o.ReferenceLevel)}
	}
	if o.Tolerance <= 0 || o.Tolerance >= 0.5 {
		return 0, &parmError{"tolerance", fmt.Sprintf("must be within (0, 0.5), got %v", o.Tolerance)}
	}
	if o.SyncTolerance < 0 || o.SyncTolerance > 2 {
		return 0, &parmError{"sync tolerance", fmt.Sprintf("allowed values are [0...2], got %d", o.SyncTolerance)}
	}
	if o.SilenceTimeout <= 0 {
		return 0, &parmError{"silence timeout", fmt.Sprintf("must be positive, got %v", o.SilenceTimeout)}
	}
	if o.SeedPulses < 2 {
		return 0, &parmError{"seed pulses", fmt.Sprintf("at least 2 required, got %d", o.SeedPulses)}
	}
	if o.EventQueueSize < 1 {
		return 0, &parmError{"event queue size", fmt.Sprintf("at least 1 required, got %d", o.EventQueueSize)}
	}
	spb := o.SampleRate / (o.FrameRate.FPS() * ltcframe.Bits)
	if spb < ltcframe.MinSamplesPerBit {
		return 0, &parmError{"samplerate", fmt.Sprintf("%v Hz gives %.2f samples per bit at %v fps, at least %d required",
			o.SampleRate, spb, o.FrameRate, ltcframe.MinSamplesPerBit)}
	}
	return spb / 2, nil
}

// Options returns the options the decoder was created with.
func (d *Decoder) Options() Options {
	return d.options
}

// Write queues normalized samples for decoding. Frames become available
// through Next. Writing after Flush starts a new stream; the gap between
// both is not treated as a signal transition.
func (d *Decoder) Write(samples []float32) {
	if d.eof {
		d.eof = false
		d.flushed = false
	}
	d.stats.Samples += int64(len(samples))
	d.det.write(samples)
}

// WriteInt16 queues signed 16 bit samples.
func (d *Decoder) WriteInt16(samples []int16) {
	d.Write(audio.Int16ToFloat32(samples))
}

// WriteUint8 queues unsigned 8 bit samples centered at 128.
func (d *Decoder) WriteUint8(samples []uint8) {
	d.Write(audio.Uint8ToFloat32(samples))
}

// Flush marks the end of the stream. The last interval is closed at the
// final sample, so a frame ending exactly at the end of the written audio
// can still be returned by Next.
func (d *Decoder) Flush() {
	d.eof = true
}

// Next returns the next decoded frame. It returns false once all written
// samples have been consumed.
func (d *Decoder) Next() (Frame, bool) {
	ctx := context.Background()
	for {
		sym, ok := d.bp.next()
		if !ok {
			if d.eof && !d.flushed {
				d.flushed = true
				d.det.flush()
				continue
			}
			return Frame{}, false
		}

		switch sym.kind {
		case symLoss:
			d.stats.SyncLoss++
			d.metrics.SyncLost(ctx)
			d.raise(Event{Kind: EventSyncLoss, Pos: sym.start, Err: ErrSyncLoss})
		case symDesync:
			d.stats.BiphaseErrors++
			d.metrics.BiphaseError(ctx)
			d.raise(Event{Kind: EventBiphaseError, Pos: sym.start,
				Err: fmt.Errorf("%w: unpaired short pulse", ErrBiphase)})
		}

		out, done := d.asm.push(sym)
		if !done {
			continue
		}

		switch out.kind {
		case outcomeRejected:
			d.det.rollback()
			d.stats.Rejected++
			d.metrics.FrameRejected(ctx)
			d.raise(Event{Kind: EventFrameRejected, Pos: out.end,
				Err: fmt.Errorf("%w: %s", ErrFrameRejected, out.reason)})

		case outcomeMalformed:
			d.det.rollback()
			d.stats.Malformed++
			d.metrics.FrameMalformed(ctx)
			d.raise(Event{Kind: EventMalformed, Pos: out.start, Err: out.err})

		default:
			d.det.commit()
			d.stats.Frames++
			f := Frame{
				Timecode: out.tc,
				Flags:    out.flags,
				Raw:      out.raw,
				Start:    out.start,
				End:      out.end,
				Reverse:  out.reverse,
				ParityOK: out.raw.ParityOK(),
				Volume:   d.det.takePeak(),
			}
			d.metrics.FrameDecoded(ctx, f.Reverse, f.Volume)
			return f, true
		}
	}
}

// Frames returns an iterator over the frames decodable from the samples
// written so far.
func (d *Decoder) Frames() iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for {
			f, ok := d.Next()
			if !ok || !yield(f) {
				return
			}
		}
	}
}

func (d *Decoder) raise(e Event) {
	if d.events.Length() == d.events.Capacity() {
		d.stats.DroppedEvents++
	}
	d.events.Enqueue(e)
	d.logger.Debug().Stringer("event", e.Kind).Int64("pos", e.Pos).Err(e.Err).Msg("decoder event")
}

// Events returns and removes the queued events, oldest first.
func (d *Decoder) Events() []Event {
	var res []Event
	for {
		x := d.events.Dequeue()
		if x == nil {
			return res
		}
		if e, ok := x.(Event); ok {
			res = append(res, e)
		}
	}
}

// Stats returns the decoder counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Reset discards all queued samples, events and the decoder state.
func (d *Decoder) Reset() {
	d.det.reset()
	d.bp.reset()
	d.asm.reset()
	for d.events.Dequeue() != nil {
	}
	d.stats = Stats{}
	d.eof = false
	d.flushed = false
}
