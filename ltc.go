package ltc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dh1tw/goltc/audio"
	"github.com/dh1tw/goltc/audio/wavReader"
	"github.com/dh1tw/goltc/audio/wavWriter"
	"github.com/dh1tw/goltc/decoder"
	"github.com/dh1tw/goltc/encoder"
	"github.com/dh1tw/goltc/timecode"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Decode decodes a complete recording. Frames spanning the end of samples
// are flushed.
func Decode(samples []float32, opts ...decoder.Option) ([]decoder.Frame, decoder.Stats, error) {
	dec, err := decoder.New(opts...)
	if err != nil {
		return nil, decoder.Stats{}, err
	}
	dec.Write(samples)
	dec.Flush()

	var frames []decoder.Frame
	for f := range dec.Frames() {
		frames = append(frames, f)
	}
	return frames, dec.Stats(), nil
}

// Encode renders a single frame. The returned polarity is the signal level
// after the frame; pass it as encoder.InitialPolarity to continue the
// signal with another call.
func Encode(tc timecode.Timecode, opts ...encoder.Option) ([]float32, encoder.Polarity, error) {
	enc, err := encoder.New(opts...)
	if err != nil {
		return nil, 0, err
	}
	samples, err := enc.Encode(tc)
	if err != nil {
		return nil, 0, err
	}
	return samples, enc.Polarity(), nil
}

// DecodeWav decodes every channel of a wav file and returns the frames
// per channel. The file is streamed through one decoder session per
// channel, each running in its own goroutine. The sample rate of the file
// overrides decoder.SampleRate.
func DecodeWav(ctx context.Context, path string, opts ...decoder.Option) ([][]decoder.Frame, error) {
	r, err := wavReader.NewWavReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	chs := r.Channels()
	opts = append(opts[:len(opts):len(opts)], decoder.SampleRate(r.Samplerate()))
	decs := make([]*decoder.Decoder, chs)
	for ch := range decs {
		if decs[ch], err = decoder.New(opts...); err != nil {
			return nil, err
		}
	}
	res := make([][]decoder.Frame, chs)

	g, ctx := errgroup.WithContext(ctx)
	router := audio.NewRouter()
	for ch, dec := range decs {
		in := make(chan []float32, 4)
		router.AddSink(fmt.Sprintf("channel %d", ch), &channelSink{ctx: ctx, ch: ch, in: in}, true)
		g.Go(func() error {
			frames, err := decodeChannel(ctx, dec, in)
			res[ch] = frames
			return err
		})
	}

	frames := 0
	err = func() error {
		defer router.Close()
		for {
			msg, err := r.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			frames += msg.Frames
			if err := router.Write(msg); err != nil {
				return err
			}
		}
	}()
	if werr := g.Wait(); werr != nil {
		return nil, werr
	}
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("file", path).
		Int("channels", chs).
		Int("frames", frames).
		Msg("wav file decoded")

	return res, nil
}

// channelSink hands one channel of the routed audio to a decoder goroutine.
type channelSink struct {
	ctx context.Context
	ch  int
	in  chan<- []float32
}

func (s *channelSink) Write(msg audio.Msg) error {
	select {
	case s.in <- audio.Channel(msg.Channels, s.ch, msg.Data):
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *channelSink) Close() error {
	close(s.in)
	return nil
}

func decodeChannel(ctx context.Context, dec *decoder.Decoder, in <-chan []float32) ([]decoder.Frame, error) {
	var frames []decoder.Frame
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case samples, ok := <-in:
			if !ok {
				dec.Flush()
				for f := range dec.Frames() {
					frames = append(frames, f)
				}
				return frames, nil
			}
			dec.Write(samples)
			for f := range dec.Frames() {
				frames = append(frames, f)
			}
		}
	}
}

// GenerateWav writes n consecutive frames starting at start into a mono
// 16 bit wav file at the encoder's sample rate.
func GenerateWav(path string, start timecode.Timecode, n int, opts ...encoder.Option) (err error) {
	if n < 1 {
		return fmt.Errorf("%w: frame count must be positive, got %d", encoder.ErrConfiguration, n)
	}

	enc, err := encoder.New(opts...)
	if err != nil {
		return err
	}
	if err := enc.SetTimecode(start); err != nil {
		return err
	}

	sr := enc.Options().SampleRate
	w, err := wavWriter.NewWavWriter(path,
		wavWriter.Samplerate(sr),
		wavWriter.Channels(1),
		wavWriter.BitDepth(16),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	for i := 0; i < n; i++ {
		if err := enc.EncodeFrame(); err != nil {
			return err
		}
		enc.IncreaseTimecode()
		data := enc.Buffer()
		msg := audio.Msg{
			Data:       data,
			Channels:   1,
			Samplerate: sr,
			Frames:     len(data),
			EOF:        i == n-1,
		}
		if err := w.Write(msg); err != nil {
			return err
		}
	}
	return nil
}
