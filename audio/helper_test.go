package audio

import (
	"math"
	"testing"
)

func TestAdjustChannels(t *testing.T) {
	tests := []struct {
		name string
		iChs int
		oChs int
		in   []float32
		want []float32
	}{
		{"same", 2, 2, []float32{1, 2}, []float32{1, 2}},
		{"mono to stereo", 1, 2, []float32{1, 2}, []float32{1, 1, 2, 2}},
		{"stereo to mono", 2, 1, []float32{1, 2, 3, 4}, []float32{1, 3}},
		{"4 channels to mono", 4, 1, []float32{1, 2, 3, 4, 5, 6, 7, 8}, []float32{1, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdjustChannels(tt.iChs, tt.oChs, tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestChannel(t *testing.T) {
	in := []float32{1, 2, 3, 4, 5, 6}
	got := Channel(3, 2, in)
	if len(got) != 2 || got[0] != 3 || got[1] != 6 {
		t.Fatalf("got %v", got)
	}
	if got := Channel(1, 0, in); len(got) != len(in) {
		t.Fatalf("mono must be returned unchanged, got %v", got)
	}
}

func TestAdjustVolume(t *testing.T) {
	in := []float32{1, -0.5}
	AdjustVolume(0.5, in)
	if in[0] != 0.5 || in[1] != -0.25 {
		t.Fatalf("got %v", in)
	}
}

func TestGainAndLevel(t *testing.T) {
	tests := []struct {
		dB  float32
		amp float64
	}{
		{0, 1},
		{-6, 0.501187},
		{-20, 0.1},
		{-60, 0.001},
	}
	for _, tt := range tests {
		if g := Gain(tt.dB); math.Abs(float64(g)-tt.amp) > 1e-5 {
			t.Errorf("Gain(%v) = %v, want %v", tt.dB, g, tt.amp)
		}
		if l := Level(float32(tt.amp)); math.Abs(float64(l-tt.dB)) > 1e-3 {
			t.Errorf("Level(%v) = %v, want %v", tt.amp, l, tt.dB)
		}
	}
	if l := Level(-0.1); math.Abs(float64(l+20)) > 1e-3 {
		t.Errorf("Level must ignore the sign, got %v", l)
	}
	if l := Level(0); !math.IsInf(float64(l), -1) {
		t.Errorf("Level(0) = %v, want -Inf", l)
	}
}

func TestSampleConversions(t *testing.T) {
	i16 := Float32ToInt16([]float32{0, 1, -1, 2, -2, 0.5})
	want16 := []int16{0, 32767, -32767, 32767, -32768, 16384}
	for i := range want16 {
		if i16[i] != want16[i] {
			t.Fatalf("Float32ToInt16: got %v, want %v", i16, want16)
		}
	}

	u8 := Float32ToUint8([]float32{0, 1, -1, 3, -3})
	want8 := []uint8{128, 255, 1, 255, 0}
	for i := range want8 {
		if u8[i] != want8[i] {
			t.Fatalf("Float32ToUint8: got %v, want %v", u8, want8)
		}
	}

	f := Int16ToFloat32([]int16{-32768, 0, 16384})
	if f[0] != -1 || f[1] != 0 || f[2] != 0.5 {
		t.Fatalf("Int16ToFloat32: got %v", f)
	}
	f = Uint8ToFloat32([]uint8{0, 128, 192})
	if f[0] != -1 || f[1] != 0 || f[2] != 0.5 {
		t.Fatalf("Uint8ToFloat32: got %v", f)
	}
}

func TestIntToFloat32(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		in       []int
		want     []float32
	}{
		{"8 bit unsigned", 8, []int{0, 128, 192}, []float32{-1, 0, 0.5}},
		{"16 bit", 16, []int{-32768, 16384}, []float32{-1, 0.5}},
		{"24 bit", 24, []int{-8388608, 4194304}, []float32{-1, 0.5}},
		{"unknown depth as 16 bit", 0, []int{16384}, []float32{0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntToFloat32(tt.in, tt.bitDepth)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
