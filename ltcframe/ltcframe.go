// Package ltcframe implements the 80-bit LTC frame layout defined by SMPTE 12M.
//
// Bits are numbered in transmission order, bit 0 being sent first. A Frame
// stores bit i in byte i/8 at position i%8 (LSB first), which is the memory
// layout used by libltc, so frames can be compared byte by byte with other
// implementations.
//
// Layout:
//
//	 0..3  frame units        4..7  user bits 1
//	 8..9  frame tens           10  drop frame flag
//	   11  colour frame flag  12..15 user bits 2
//	16..19 seconds units     20..23 user bits 3
//	24..26 seconds tens          27 flag (see Standard)
//	28..31 user bits 4       32..35 minutes units
//	36..39 user bits 5       40..42 minutes tens
//	   43  flag (see Standard) 44..47 user bits 6
//	48..51 hours units       52..55 user bits 7
//	56..57 hours tens        58, 59 flags (see Standard)
//	60..63 user bits 8       64..79 sync word
package ltcframe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dh1tw/goltc/timecode"
)

const (
	// Bits is the number of bits in one LTC frame.
	Bits = 80

	// MinSamplesPerBit is the lowest sample density at which short and
	// long pulses can still be told apart after rounding to whole samples.
	MinSamplesPerBit = 3

	// SyncWord is the sync pattern read in transmission order, bit 64 is
	// the most significant bit of the constant: 0011111111111101.
	SyncWord uint16 = 0x3FFD

	// ReverseSyncWord is the sync pattern as seen when the frame is played
	// backwards: 1011111111111100.
	ReverseSyncWord uint16 = 0xBFFC

	syncOffset = 64
	syncBits   = 16
)

// Frame holds the 80 bits of one LTC frame.
type Frame [10]byte

// Bit returns the value (0 or 1) of bit i.
func (f *Frame) Bit(i int) uint8 {
	return (f[i/8] >> (i % 8)) & 1
}

// SetBit sets bit i to v (any non zero value sets the bit).
func (f *Frame) SetBit(i int, v uint8) {
	if v != 0 {
		f[i/8] |= 1 << (i % 8)
	} else {
		f[i/8] &^= 1 << (i % 8)
	}
}

// field returns width bits starting at offset, LSB first.
func (f *Frame) field(offset, width int) int {
	v := 0
	for i := width - 1; i >= 0; i-- {
		v = v<<1 | int(f.Bit(offset+i))
	}
	return v
}

func (f *Frame) setField(offset, width, v int) {
	for i := 0; i < width; i++ {
		f.SetBit(offset+i, uint8(v>>i&1))
	}
}

// FromBits builds a frame from 80 bit values in transmission order.
func FromBits(bits []uint8) (Frame, error) {
	var f Frame
	if len(bits) != Bits {
		return f, fmt.Errorf("ltc frame needs %d bits, got %d", Bits, len(bits))
	}
	for i, b := range bits {
		f.SetBit(i, b)
	}
	return f, nil
}

// AppendBits appends the 80 bits of f in transmission order to dst.
func (f *Frame) AppendBits(dst []uint8) []uint8 {
	for i := 0; i < Bits; i++ {
		dst = append(dst, f.Bit(i))
	}
	return dst
}

// Sync returns the 16 sync bits, bit 64 in the most significant position.
func (f *Frame) Sync() uint16 {
	var v uint16
	for i := syncOffset; i < syncOffset+syncBits; i++ {
		v = v<<1 | uint16(f.Bit(i))
	}
	return v
}

func (f *Frame) setSync() {
	for i := 0; i < syncBits; i++ {
		f.SetBit(syncOffset+i, uint8(SyncWord>>(syncBits-1-i)&1))
	}
}

// SyncDistance returns the number of bits in which w differs from want.
func SyncDistance(w, want uint16) int {
	d := 0
	for x := w ^ want; x != 0; x &= x - 1 {
		d++
	}
	return d
}

// Ones returns the number of set bits in the frame.
func (f *Frame) Ones() int {
	n := 0
	for _, b := range f {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

func (f Frame) String() string {
	var sb strings.Builder
	for i := 0; i < Bits; i++ {
		if i > 0 && i%16 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('0' + f.Bit(i))
	}
	return sb.String()
}

// Pack converts a timecode into its frame representation. The sync word is
// written and the polarity correction bit is set so that the number of ones
// in the frame is even, which keeps the biphase signal phase identical at
// every frame start.
func Pack(tc timecode.Timecode, flags Flags, std Standard) Frame {
	var f Frame
	pos := std.positions()

	f.setField(0, 4, tc.Frames%10)
	f.setField(8, 2, tc.Frames/10)
	f.setField(16, 4, tc.Seconds%10)
	f.setField(24, 3, tc.Seconds/10)
	f.setField(32, 4, tc.Minutes%10)
	f.setField(40, 3, tc.Minutes/10)
	f.setField(48, 4, tc.Hours%10)
	f.setField(56, 2, tc.Hours/10)

	if tc.DropFrame {
		f.SetBit(10, 1)
	}
	if flags.ColorFrame {
		f.SetBit(11, 1)
	}
	for i, off := range userOffsets {
		f.setField(off, 4, int(tc.UserBits[i]&0xF))
	}
	for i, b := range []bool{flags.BGF0, flags.BGF1, flags.BGF2} {
		if b {
			f.SetBit(pos.bgf[i], 1)
		}
	}

	f.setSync()
	f.SetBit(pos.parity, uint8(f.Ones()%2))
	return f
}

// Unpack decodes the BCD fields, user bits and flags of f. Field ranges are
// not validated; BCD digits above 9 are returned as they are decoded.
func Unpack(f Frame, std Standard) (timecode.Timecode, Flags) {
	pos := std.positions()
	tc := timecode.Timecode{
		Frames:    f.field(0, 4) + 10*f.field(8, 2),
		Seconds:   f.field(16, 4) + 10*f.field(24, 3),
		Minutes:   f.field(32, 4) + 10*f.field(40, 3),
		Hours:     f.field(48, 4) + 10*f.field(56, 2),
		DropFrame: f.Bit(10) == 1,
	}
	for i, off := range userOffsets {
		tc.UserBits[i] = uint8(f.field(off, 4))
	}

	flags := Flags{
		ColorFrame: f.Bit(11) == 1,
		BGF0:       f.Bit(pos.bgf[0]) == 1,
		BGF1:       f.Bit(pos.bgf[1]) == 1,
		BGF2:       f.Bit(pos.bgf[2]) == 1,
		Parity:     f.Bit(pos.parity) == 1,
	}
	return tc, flags
}

// ValidBCD reports whether every BCD digit of the frame is a decimal digit.
func (f *Frame) ValidBCD() bool {
	for _, off := range unitOffsets {
		if f.field(off, 4) > 9 {
			return false
		}
	}
	return true
}

// ParityOK reports whether the frame has an even number of ones, i.e. the
// polarity correction bit is consistent with the payload.
func (f *Frame) ParityOK() bool {
	return f.Ones()%2 == 0
}

var (
	userOffsets = [8]int{4, 12, 20, 28, 36, 44, 52, 60}
	unitOffsets = [4]int{0, 16, 32, 48}
)

// ErrSyncMismatch is returned by CheckSync for frames without a valid sync
// word.
var ErrSyncMismatch = errors.New("ltc sync word mismatch")

// CheckSync verifies that bits 64..79 hold the sync word.
func (f *Frame) CheckSync() error {
	if s := f.Sync(); s != SyncWord {
		return fmt.Errorf("%w: got %016b", ErrSyncMismatch, s)
	}
	return nil
}
