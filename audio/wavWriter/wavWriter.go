package wavWriter

import (
	"fmt"
	"os"
	"sync"

	"github.com/dh1tw/goltc/audio"
	"github.com/dh1tw/gosamplerate"
	ga "github.com/go-audio/audio"
	wav "github.com/go-audio/wav"
	"github.com/rs/zerolog/log"
)

// WavWriter implements the audio.Sink interface and is used to write (record)
// audio frames in the wav format.
type WavWriter struct {
	sync.Mutex
	file    *os.File
	encoder *wav.Encoder
	options Options
	volume  float32
	src     *src
	written int
}

// src contains a samplerate converter and its needed variables
type src struct {
	gosamplerate.Src
	samplerate float64
	ratio      float64
}

// NewWavWriter returns a wavWriter to which audio frames can be written to.
// The audio data will be saved in the wav format.
func NewWavWriter(path string, opts ...Option) (*WavWriter, error) {

	w := &WavWriter{
		options: Options{
			Channels:   DefaultChannels,
			BitDepth:   DefaultBitDepth,
			Samplerate: DefaultSamplerate,
		},
		volume: 1.0,
	}

	for _, o := range opts {
		o(&w.options)
	}

	// make sure we only allow 8 / 16 bit Bitdepth
	switch w.options.BitDepth {
	case 8, 16:
	default:
		w.options.BitDepth = DefaultBitDepth
	}
	if w.options.Channels < 1 {
		w.options.Channels = DefaultChannels
	}
	if w.options.Samplerate <= 0 {
		return nil, fmt.Errorf("invalid samplerate %v", w.options.Samplerate)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w.file = f

	w.encoder = wav.NewEncoder(f, int(w.options.Samplerate),
		w.options.BitDepth, w.options.Channels, 1)

	return w, nil
}

// Close writes the wav header and closes the file.
func (w *WavWriter) Close() error {
	w.Lock()
	defer w.Unlock()
	if w.src != nil {
		gosamplerate.Delete(w.src.Src)
		w.src = nil
	}
	err := w.encoder.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	log.Debug().Str("file", w.file.Name()).Int("frames", w.written).Msg("wav file closed")
	return err
}

// SetVolume sets the volume for all incoming audio frames.
func (w *WavWriter) SetVolume(v float32) {
	w.Lock()
	defer w.Unlock()
	if v < 0 {
		w.volume = 0
	} else if v > 1 {
		w.volume = 1
	} else {
		w.volume = v
	}
}

// Volume returns the current volume.
func (w *WavWriter) Volume() float32 {
	w.Lock()
	defer w.Unlock()
	return w.volume
}

// Write writes an audio buffer into the wav file. Channels and Samplerate
// will be adjusted, if necessary.
func (w *WavWriter) Write(msg audio.Msg) error {
	w.Lock()
	defer w.Unlock()

	var err error

	// work on a copy, the caller keeps ownership of msg.Data
	aData := append([]float32(nil), msg.Data...)

	// if necessary adjust the amount of audio channels
	chs := msg.Channels
	if chs < 1 {
		chs = 1
	}
	if chs != w.options.Channels {
		aData = audio.AdjustChannels(chs, w.options.Channels, aData)
	}

	if w.volume != 1 {
		audio.AdjustVolume(w.volume, aData)
	}

	if msg.Samplerate > 0 && msg.Samplerate != w.options.Samplerate {
		if w.src == nil || w.src.samplerate != msg.Samplerate {
			if err := w.newConverter(msg.Samplerate); err != nil {
				return err
			}
		}
		aData, err = w.src.Process(aData, w.src.ratio, msg.EOF)
		if err != nil {
			return err
		}
	}

	buf := ga.IntBuffer{
		Format: &ga.Format{
			SampleRate:  int(w.options.Samplerate),
			NumChannels: w.options.Channels,
		},
		SourceBitDepth: w.options.BitDepth,
		Data:           make([]int, len(aData)),
	}

	if w.options.BitDepth == 8 {
		for i, s := range audio.Float32ToUint8(aData) {
			buf.Data[i] = int(s)
		}
	} else {
		for i, s := range audio.Float32ToInt16(aData) {
			buf.Data[i] = int(s)
		}
	}

	if err := w.encoder.Write(&buf); err != nil {
		return err
	}
	w.written += len(aData) / w.options.Channels

	return nil
}

func (w *WavWriter) newConverter(samplerate float64) error {
	if w.src != nil {
		gosamplerate.Delete(w.src.Src)
	}
	// setup a samplerate converter
	srConv, err := gosamplerate.New(gosamplerate.SRC_SINC_FASTEST,
		w.options.Channels, 65536)
	if err != nil {
		return fmt.Errorf("WavWriter samplerate converter: %w", err)
	}
	w.src = &src{
		Src:        srConv,
		samplerate: samplerate,
		ratio:      w.options.Samplerate / samplerate,
	}
	return nil
}

// Frames returns the number of frames written so far.
func (w *WavWriter) Frames() int {
	w.Lock()
	defer w.Unlock()
	return w.written
}
