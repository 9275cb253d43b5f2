package audio

import (
	"github.com/chewxy/math32"
)

// AdjustChannels converts interleaved audio between mono and stereo.
func AdjustChannels(iChs, oChs int, audioFrames []float32) []float32 {
	if iChs == oChs {
		return audioFrames
	}

	// mono -> stereo
	if iChs == 1 && oChs == 2 {
		res := make([]float32, 0, len(audioFrames)*2)
		// left channel = right channel
		for _, frame := range audioFrames {
			res = append(res, frame, frame)
		}
		return res
	}

	// n channels -> mono, keep the left channel
	return Channel(iChs, 0, audioFrames)
}

// Channel extracts channel ch from interleaved audio with chs channels.
func Channel(chs, ch int, audioFrames []float32) []float32 {
	if chs <= 1 {
		return audioFrames
	}
	res := make([]float32, 0, len(audioFrames)/chs)
	for i := ch; i < len(audioFrames); i += chs {
		res = append(res, audioFrames[i])
	}
	return res
}

// AdjustVolume scales the samples in place.
func AdjustVolume(volume float32, audioFrames []float32) {
	for i := 0; i < len(audioFrames); i++ {
		audioFrames[i] *= volume
	}
}

// Gain converts a level in dBFS into a linear factor.
func Gain(dBFS float32) float32 {
	return math32.Pow(10, dBFS/20)
}

// Level converts a linear amplitude into dBFS.
func Level(amplitude float32) float32 {
	return 20 * math32.Log10(math32.Abs(amplitude))
}

// Int16ToFloat32 normalizes signed 16 bit samples.
func Int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / 32768
	}
	return out
}

// Uint8ToFloat32 normalizes unsigned 8 bit samples centered at 128.
func Uint8ToFloat32(in []uint8) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = (float32(s) - 128) / 128
	}
	return out
}

// Float32ToInt16 converts normalized samples to signed 16 bit, clipping
// values outside [-1, 1].
func Float32ToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		v := math32.Round(s * 32767)
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

// Float32ToUint8 converts normalized samples to unsigned 8 bit centered at
// 128, clipping values outside [-1, 1].
func Float32ToUint8(in []float32) []uint8 {
	out := make([]uint8, len(in))
	for i, s := range in {
		v := math32.Round(128 + s*127)
		switch {
		case v > 255:
			v = 255
		case v < 0:
			v = 0
		}
		out[i] = uint8(v)
	}
	return out
}

// IntToFloat32 normalizes integer PCM samples of the given bit depth as
// delivered by a wav decoder. 8 bit samples are unsigned.
func IntToFloat32(in []int, bitDepth int) []float32 {
	out := make([]float32, len(in))
	if bitDepth == 8 {
		for i, s := range in {
			out[i] = (float32(s) - 128) / 128
		}
		return out
	}
	if bitDepth < 2 || bitDepth > 32 {
		bitDepth = 16
	}
	full := float32(int64(1) << (bitDepth - 1))
	for i, s := range in {
		out[i] = float32(s) / full
	}
	return out
}
