package wavReader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dh1tw/goltc/audio"
	ga "github.com/go-audio/audio"
	wav "github.com/go-audio/wav"
)

// ErrInvalidFile is returned for files which are not valid PCM wav files.
var ErrInvalidFile = errors.New("invalid WAV file")

// WavReader implements the audio.Source interface and is used to read
// audio frames from a wav file.
type WavReader struct {
	sync.Mutex
	options  Options
	file     *os.File
	dec      *wav.Decoder
	buf      *ga.IntBuffer
	bitDepth int
	eof      bool
}

// NewWavReader opens a wav file and returns a WavReader object which
// implements the audio.Source interface.
func NewWavReader(path string, opts ...Option) (*WavReader, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidFile)
	}
	if err := dec.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	w := &WavReader{
		options: Options{
			FramesPerBuffer: DefaultFramesPerBuffer,
		},
		file:     f,
		dec:      dec,
		bitDepth: int(dec.BitDepth),
	}

	for _, o := range opts {
		o(&w.options)
	}

	if w.options.FramesPerBuffer <= 0 {
		w.options.FramesPerBuffer = DefaultFramesPerBuffer
	}

	w.buf = &ga.IntBuffer{
		Data:   make([]int, w.options.FramesPerBuffer*int(dec.NumChans)),
		Format: dec.Format(),
	}

	return w, nil
}

// Samplerate returns the sample rate of the file.
func (w *WavReader) Samplerate() float64 {
	return float64(w.dec.SampleRate)
}

// Channels returns the number of channels of the file.
func (w *WavReader) Channels() int {
	return int(w.dec.NumChans)
}

// Read returns the next buffer of normalized interleaved samples. It
// returns io.EOF once all samples have been read.
func (w *WavReader) Read() (audio.Msg, error) {
	w.Lock()
	defer w.Unlock()

	if w.eof {
		return audio.Msg{}, io.EOF
	}

	w.buf.Data = w.buf.Data[:cap(w.buf.Data)]
	n, err := w.dec.PCMBuffer(w.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return audio.Msg{}, err
	}
	if n == 0 {
		w.eof = true
		return audio.Msg{}, io.EOF
	}

	chs := w.Channels()
	msg := audio.Msg{
		Data:       audio.IntToFloat32(w.buf.Data[:n], w.bitDepth),
		Channels:   chs,
		Samplerate: w.Samplerate(),
		Frames:     n / chs,
	}
	if n < len(w.buf.Data) {
		w.eof = true
		msg.EOF = true
	}
	return msg, nil
}

// ReadAll reads the remaining samples of the file into a single buffer.
func (w *WavReader) ReadAll() (audio.Msg, error) {
	res := audio.Msg{
		Channels:   w.Channels(),
		Samplerate: w.Samplerate(),
		EOF:        true,
	}
	for {
		msg, err := w.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		res.Data = append(res.Data, msg.Data...)
		res.Frames += msg.Frames
	}
}

// Close closes the underlying file.
func (w *WavReader) Close() error {
	return w.file.Close()
}
