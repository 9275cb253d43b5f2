package decoder

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/dh1tw/goltc/encoder"
	"github.com/dh1tw/goltc/ltcframe"
	"github.com/dh1tw/goltc/timecode"
)

// ltcSignal encodes n consecutive frames starting at start.
func ltcSignal(t *testing.T, sr float64, rate timecode.FrameRate, start timecode.Timecode, n int, opts ...encoder.Option) ([]float32, []timecode.Timecode) {
	t.Helper()
	opts = append([]encoder.Option{encoder.SampleRate(sr), encoder.FrameRate(rate)}, opts...)
	enc, err := encoder.New(opts...)
	if err != nil {
		t.Fatalf("encoder.New: %v", err)
	}
	if err := enc.SetTimecode(start); err != nil {
		t.Fatalf("SetTimecode(%v): %v", start, err)
	}

	var tcs []timecode.Timecode
	for i := 0; i < n; i++ {
		tcs = append(tcs, enc.Timecode())
		if err := enc.EncodeFrame(); err != nil {
			t.Fatalf("EncodeFrame: %v", err)
		}
		enc.IncreaseTimecode()
	}
	return enc.Buffer(), tcs
}

func decodeAll(t *testing.T, samples []float32, opts ...Option) (*Decoder, []Frame) {
	t.Helper()
	dec, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dec.Write(samples)
	dec.Flush()
	var frames []Frame
	for f := range dec.Frames() {
		frames = append(frames, f)
	}
	return dec, frames
}

func timecodes(frames []Frame) []timecode.Timecode {
	res := make([]timecode.Timecode, 0, len(frames))
	for _, f := range frames {
		res = append(res, f.Timecode)
	}
	return res
}

func TestDecodeSingleFrame(t *testing.T) {
	samples, _ := ltcSignal(t, 48000, timecode.Rate25, timecode.Timecode{Hours: 10}, 1)
	if len(samples) != 1920 {
		t.Fatalf("got %d samples for one frame at 25 fps, want 1920", len(samples))
	}

	dec, frames := decodeAll(t, samples, SampleRate(48000), FrameRate(timecode.Rate25))
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1 (stats %+v)", len(frames), dec.Stats())
	}

	f := frames[0]
	if f.Timecode != (timecode.Timecode{Hours: 10}) {
		t.Errorf("got %v, want 10:00:00:00", f.Timecode)
	}
	if f.Reverse || !f.ParityOK {
		t.Errorf("unexpected flags: reverse=%v parity=%v", f.Reverse, f.ParityOK)
	}
	if f.Start != 0 || f.End != int64(len(samples)-1) {
		t.Errorf("frame spans [%d, %d], want [0, %d]", f.Start, f.End, len(samples)-1)
	}
	if f.Volume < -4.5 || f.Volume > -1.5 {
		t.Errorf("volume %.2f dBFS, expected about -3", f.Volume)
	}
	if s := dec.Stats(); s.SyncLoss != 0 || s.Rejected != 0 || s.BiphaseErrors != 0 {
		t.Errorf("unexpected errors: %+v", s)
	}
}

func TestRoundTripAllRates(t *testing.T) {
	tests := []struct {
		rate  timecode.FrameRate
		start timecode.Timecode
	}{
		{timecode.Rate24, timecode.Timecode{Hours: 1, Minutes: 2, Seconds: 3}},
		{timecode.Rate25, timecode.Timecode{Hours: 23, Minutes: 59, Seconds: 59, Frames: 20}},
		{timecode.Rate2997Drop, timecode.Timecode{Minutes: 9, Seconds: 59, Frames: 25, DropFrame: true}},
		{timecode.Rate2997, timecode.Timecode{Minutes: 0, Seconds: 59, Frames: 25}},
		{timecode.Rate30, timecode.Timecode{Hours: 12, Minutes: 34, Seconds: 56, Frames: 28}},
	}

	for _, sr := range []float64{44100, 48000, 96000} {
		for _, tt := range tests {
			samples, want := ltcSignal(t, sr, tt.rate, tt.start, 12)
			dec, frames := decodeAll(t, samples, SampleRate(sr), FrameRate(tt.rate))
			if got := timecodes(frames); !reflect.DeepEqual(got, want) {
				t.Errorf("%v Hz / %v fps: got %v, want %v (stats %+v)", sr, tt.rate, got, want, dec.Stats())
			}
			if s := dec.Stats(); s.SyncLoss != 0 || s.Rejected != 0 {
				t.Errorf("%v Hz / %v fps: unexpected errors %+v", sr, tt.rate, s)
			}
		}
	}
}

func TestRoundTripLowSampleRates(t *testing.T) {
	// 8 kHz at 30 fps leaves 3.33 samples per bit, half bits are 1 or 2
	// samples long
	rates := []timecode.FrameRate{timecode.Rate24, timecode.Rate25,
		timecode.Rate2997Drop, timecode.Rate2997, timecode.Rate30}

	for _, sr := range []float64{8000, 11025, 16000, 22050} {
		for _, rate := range rates {
			samples, want := ltcSignal(t, sr, rate, timecode.Timecode{Hours: 10}, 5)
			dec, frames := decodeAll(t, samples, SampleRate(sr), FrameRate(rate))
			if got := timecodes(frames); !reflect.DeepEqual(got, want) {
				t.Errorf("%v Hz / %v fps: got %v, want %v (stats %+v)", sr, rate, got, want, dec.Stats())
			}
		}
	}
}

func TestFrameRateHintIsOnlyASeed(t *testing.T) {
	// 30 fps material decoded with the default 25 fps hint
	samples, want := ltcSignal(t, 48000, timecode.Rate30, timecode.Timecode{Seconds: 10, Frames: 5}, 6)
	_, frames := decodeAll(t, samples, SampleRate(48000))
	if got := timecodes(frames); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestUserBitsRoundTrip(t *testing.T) {
	start := timecode.Timecode{Hours: 5, UserBits: timecode.UserBitsFromUint32(0xDEADBEEF)}
	samples, _ := ltcSignal(t, 48000, timecode.Rate25, start, 2)
	_, frames := decodeAll(t, samples)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	for _, f := range frames {
		if ub := f.Timecode.UserBits.Uint32(); ub != 0xDEADBEEF {
			t.Errorf("user bits %#08x, want 0xdeadbeef", ub)
		}
	}
}

func TestFlagsPassThrough(t *testing.T) {
	flags := ltcframe.Flags{ColorFrame: true, BGF0: true, BGF2: true}
	samples, _ := ltcSignal(t, 48000, timecode.Rate25, timecode.Timecode{}, 1, encoder.Flags(flags))
	_, frames := decodeAll(t, samples)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	got := frames[0].Flags
	got.Parity = false
	if got != flags {
		t.Fatalf("got %+v, want %+v", got, flags)
	}
}

func TestResyncAfterCorruptedFrame(t *testing.T) {
	samples, want := ltcSignal(t, 48000, timecode.Rate25, timecode.Timecode{Hours: 1}, 3)

	// wipe out bits 20..30 of the second frame
	for i := 1920 + 20*24; i < 1920+30*24; i++ {
		samples[i] = 0
	}

	dec, frames := decodeAll(t, samples)
	got := timecodes(frames)
	if !reflect.DeepEqual(got, []timecode.Timecode{want[0], want[2]}) {
		t.Fatalf("got %v, want [%v %v]", got, want[0], want[2])
	}
	s := dec.Stats()
	if s.Rejected != 1 {
		t.Errorf("got %d rejected frames, want 1", s.Rejected)
	}

	rejected := 0
	for _, e := range dec.Events() {
		if e.Kind == EventFrameRejected {
			rejected++
			if !errors.Is(e.Err, ErrFrameRejected) {
				t.Errorf("event error %v does not match ErrFrameRejected", e.Err)
			}
		}
	}
	if rejected != 1 {
		t.Errorf("got %d FrameRejected events, want 1", rejected)
	}
}

func TestSilence(t *testing.T) {
	dec, frames := decodeAll(t, make([]float32, 48000), SilenceTimeout(100*time.Millisecond))
	if len(frames) != 0 {
		t.Fatalf("decoded %d frames from silence", len(frames))
	}
	s := dec.Stats()
	if s.SyncLoss == 0 {
		t.Fatal("expected sync loss events")
	}
	// one event per elapsed grace period
	if s.SyncLoss > 10 {
		t.Fatalf("got %d sync loss events for 1s of silence", s.SyncLoss)
	}
	for _, e := range dec.Events() {
		if e.Kind != EventSyncLoss || !errors.Is(e.Err, ErrSyncLoss) {
			t.Errorf("unexpected event %v", e)
		}
	}
}

func TestLowLevelSignalIsSilence(t *testing.T) {
	samples, _ := ltcSignal(t, 48000, timecode.Rate25, timecode.Timecode{}, 4, encoder.Volume(-60))
	dec, frames := decodeAll(t, samples, ReferenceLevel(0.02))
	if len(frames) != 0 {
		t.Fatalf("decoded %d frames below the reference level", len(frames))
	}
	if dec.Stats().SyncLoss == 0 {
		t.Fatal("expected sync loss")
	}
}

func TestSilenceBetweenBursts(t *testing.T) {
	a, wantA := ltcSignal(t, 48000, timecode.Rate25, timecode.Timecode{Minutes: 1}, 3)
	b, wantB := ltcSignal(t, 48000, timecode.Rate25, timecode.Timecode{Minutes: 2}, 3)

	samples := append([]float32{}, a...)
	samples = append(samples, make([]float32, 24000)...)
	samples = append(samples, b...)

	dec, frames := decodeAll(t, samples)
	want := append(wantA, wantB...)
	if got := timecodes(frames); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v (stats %+v)", got, want, dec.Stats())
	}
	if dec.Stats().SyncLoss == 0 {
		t.Fatal("expected sync loss during the gap")
	}
}

func TestReversePlayback(t *testing.T) {
	enc, err := encoder.New()
	if err != nil {
		t.Fatal(err)
	}
	tc := timecode.Timecode{Hours: 2, Seconds: 1, Frames: 3}
	var samples []float32
	var want []timecode.Timecode
	for i := 0; i < 5; i++ {
		buf, err := enc.EncodeReverse(tc)
		if err != nil {
			t.Fatal(err)
		}
		samples = append(samples, buf...)
		want = append(want, tc)
		tc.Decrement(timecode.Rate25)
	}

	_, frames := decodeAll(t, samples)
	if got := timecodes(frames); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for _, f := range frames {
		if !f.Reverse {
			t.Errorf("%v: reverse flag not set", f.Timecode)
		}
		if err := f.Raw.CheckSync(); err != nil {
			t.Errorf("%v: %v", f.Timecode, err)
		}
	}
}

func TestInvertedSignal(t *testing.T) {
	samples, want := ltcSignal(t, 48000, timecode.Rate25, timecode.Timecode{Hours: 3}, 4)
	for i := range samples {
		samples[i] = -samples[i]
	}
	_, frames := decodeAll(t, samples)
	if got := timecodes(frames); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStreamingWrites(t *testing.T) {
	samples, want := ltcSignal(t, 44100, timecode.Rate30, timecode.Timecode{Minutes: 59, Seconds: 59, Frames: 25}, 10)
	dec, err := New(SampleRate(44100), FrameRate(timecode.Rate30))
	if err != nil {
		t.Fatal(err)
	}

	var got []timecode.Timecode
	for len(samples) > 0 {
		n := min(333, len(samples))
		dec.Write(samples[:n])
		samples = samples[n:]
		for f := range dec.Frames() {
			got = append(got, f.Timecode)
		}
	}
	dec.Flush()
	for f := range dec.Frames() {
		got = append(got, f.Timecode)
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFrameSamplePositions(t *testing.T) {
	samples, _ := ltcSignal(t, 48000, timecode.Rate25, timecode.Timecode{}, 3)
	_, frames := decodeAll(t, samples)
	if len(frames) != 3 {
		t.Fatalf("got %d frames", len(frames))
	}
	for i, f := range frames {
		wantStart := int64(i * 1920)
		if diff := f.Start - wantStart; diff < -1 || diff > 1 {
			t.Errorf("frame %d starts at %d, want %d", i, f.Start, wantStart)
		}
		if diff := f.End - (wantStart + 1919); diff < -1 || diff > 1 {
			t.Errorf("frame %d ends at %d, want %d", i, f.End, wantStart+1919)
		}
	}
}

func TestIntegerInputs(t *testing.T) {
	enc, err := encoder.New()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := enc.EncodeFrame(); err != nil {
			t.Fatal(err)
		}
		enc.IncreaseTimecode()
	}
	samples := enc.Buffer()

	tests := []struct {
		name  string
		write func(*Decoder)
	}{
		{"int16", func(d *Decoder) {
			pcm := make([]int16, len(samples))
			for i, s := range samples {
				pcm[i] = int16(s * 32767)
			}
			d.WriteInt16(pcm)
		}},
		{"uint8", func(d *Decoder) {
			pcm := make([]uint8, len(samples))
			for i, s := range samples {
				pcm[i] = uint8(128 + int(math.Round(float64(s*127))))
			}
			d.WriteUint8(pcm)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := New()
			if err != nil {
				t.Fatal(err)
			}
			tt.write(dec)
			dec.Flush()
			n := 0
			for range dec.Frames() {
				n++
			}
			if n != 2 {
				t.Fatalf("got %d frames, want 2", n)
			}
		})
	}
}

func TestMalformedFrame(t *testing.T) {
	// a valid 30 fps label which is out of range at 25 fps
	samples, _ := ltcSignal(t, 48000, timecode.Rate30, timecode.Timecode{Frames: 27}, 1)
	dec, frames := decodeAll(t, samples, FrameRate(timecode.Rate25))
	if len(frames) != 0 {
		t.Fatalf("got %d frames, want none", len(frames))
	}
	if dec.Stats().Malformed != 1 {
		t.Fatalf("stats %+v, want one malformed frame", dec.Stats())
	}
	events := dec.Events()
	if len(events) != 1 || events[0].Kind != EventMalformed {
		t.Fatalf("unexpected events %v", events)
	}
	if !errors.Is(events[0].Err, timecode.ErrFieldOutOfRange) {
		t.Fatalf("event error %v does not match ErrFieldOutOfRange", events[0].Err)
	}
}

func TestEventQueueOverflow(t *testing.T) {
	dec, _ := decodeAll(t, make([]float32, 48000), EventQueueSize(2))
	s := dec.Stats()
	events := dec.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if s.DroppedEvents != s.SyncLoss-2 {
		t.Fatalf("dropped %d of %d events", s.DroppedEvents, s.SyncLoss)
	}
	if events[0].Pos >= events[1].Pos {
		t.Fatalf("events out of order: %v", events)
	}
	if len(dec.Events()) != 0 {
		t.Fatal("Events must drain the queue")
	}
}

func TestReset(t *testing.T) {
	samples, want := ltcSignal(t, 48000, timecode.Rate25, timecode.Timecode{Hours: 4}, 2)
	dec, err := New()
	if err != nil {
		t.Fatal(err)
	}
	dec.Write(samples[:1000])
	dec.Next()
	dec.Reset()
	if (dec.Stats() != Stats{}) {
		t.Fatalf("stats not cleared: %+v", dec.Stats())
	}

	dec.Write(samples)
	dec.Flush()
	var got []timecode.Timecode
	for f := range dec.Frames() {
		got = append(got, f.Timecode)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"samplerate", []Option{SampleRate(0)}},
		{"framerate", []Option{FrameRate(timecode.FrameRate(42))}},
		{"tolerance", []Option{Tolerance(0.6)}},
		{"sync tolerance", []Option{SyncTolerance(5)}},
		{"reference level", []Option{ReferenceLevel(0)}},
		{"seed pulses", []Option{SeedPulses(1)}},
		{"event queue", []Option{EventQueueSize(0)}},
		{"silence timeout", []Option{SilenceTimeout(0)}},
		{"samplerate too low", []Option{SampleRate(3000)}},
		{"pulses overlap at 30 fps", []Option{SampleRate(6000), FrameRate(timecode.Rate30)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestSyncToleranceAcceptsDamagedSyncWord(t *testing.T) {
	enc, err := encoder.New(encoder.RiseTime(0))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := enc.EncodeFrame(); err != nil {
			t.Fatal(err)
		}
		enc.IncreaseTimecode()
	}
	samples := enc.Buffer()

	// Turn bit 70 of the second frame (a one) into a zero: inverting
	// everything from its mid-bit transition on removes that transition
	// and leaves all others in place.
	start := 1920 + 70*24
	for i := start + 12; i < len(samples); i++ {
		samples[i] = -samples[i]
	}

	_, strict := decodeAll(t, samples)
	_, tolerant := decodeAll(t, samples, SyncTolerance(1))
	if len(strict) != 2 {
		t.Errorf("strict decoder returned %d frames, want 2", len(strict))
	}
	if len(tolerant) != 3 {
		t.Errorf("tolerant decoder returned %d frames, want 3", len(tolerant))
	}
}
