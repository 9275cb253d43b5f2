// Package ltc encodes and decodes SMPTE 12M linear timecode (LTC) audio.
//
// The functions in this package cover the common one-shot cases. Streams
// are handled by the sessions of the decoder and encoder packages:
//
//	enc, _ := encoder.New(encoder.SampleRate(48000), encoder.FrameRate(timecode.Rate25))
//	dec, _ := decoder.New(decoder.SampleRate(48000), decoder.FrameRate(timecode.Rate25))
//
//	samples, _ := enc.Encode(timecode.Timecode{Hours: 10})
//	dec.Write(samples)
//	dec.Flush()
//	for f := range dec.Frames() {
//		fmt.Println(f.Timecode)
//	}
package ltc
