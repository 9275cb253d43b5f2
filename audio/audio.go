// Package audio contains the audio plumbing around the LTC codec: a common
// buffer type, Source and Sink interfaces and sample format conversions.
package audio

// Source is the interface which is implemented by an audio source, for
// example a wav file. Read returns io.EOF once the source is exhausted.
type Source interface {
	Read() (Msg, error)
	Close() error
}

// Sink is the interface which is implemented by an audio sink, for example
// a wav file used for recording generated timecode.
type Sink interface {
	Write(Msg) error
	Close() error
}

// Msg contains an audio buffer with its metadata. Data holds interleaved
// samples normalized to [-1, 1].
type Msg struct {
	Data       []float32
	Samplerate float64
	Channels   int
	Frames     int // Number of Frames in the buffer
	EOF        bool
}
