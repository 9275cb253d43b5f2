package decoder

import (
	"github.com/dh1tw/goltc/ltcframe"
	"github.com/dh1tw/goltc/timecode"
)

type assemblerState int

const (
	stateEmpty assemblerState = iota
	stateFilling
	stateSyncCheck
	stateComplete
	stateRejected
)

func (s assemblerState) String() string {
	switch s {
	case stateEmpty:
		return "empty"
	case stateFilling:
		return "filling"
	case stateSyncCheck:
		return "sync check"
	case stateComplete:
		return "complete"
	}
	return "rejected"
}

type outcomeKind int

const (
	outcomeFrame outcomeKind = iota
	outcomeRejected
	outcomeMalformed
)

// outcome is the result of a frame boundary: a frame, a rejected frame or
// a frame whose fields are out of range.
type outcome struct {
	kind    outcomeKind
	reason  string
	err     error
	raw     ltcframe.Frame
	tc      timecode.Timecode
	flags   ltcframe.Flags
	start   int64
	end     int64
	reverse bool
}

const (
	reasonEarlySync = "sync word before the end of the frame"
	reasonNoSync    = "sync word missing"
	reasonBitErrors = "bit errors within the frame"
)

// assembler groups bits into frames. It keeps the last 80 bits in a
// sliding window. While hunting it waits for a sync word that completes an
// error free window; once locked it expects the next sync word exactly 80
// bits after the previous frame boundary.
//
// Frames played backwards arrive bit 79 first, their sync word shows up as
// ltcframe.ReverseSyncWord at the start of the window.
type assembler struct {
	rate          timecode.FrameRate
	std           ltcframe.Standard
	syncTolerance int

	state  assemblerState
	bits   [ltcframe.Bits]uint8
	starts [ltcframe.Bits]int64
	ends   [ltcframe.Bits]int64
	head   int // next slot to write
	filled int

	total   int64 // bits received
	errAt   int64 // value of total at the last bit level error
	count   int   // bits since the last frame boundary
	locked  bool
	reverse bool
	reason  string
}

func newAssembler(rate timecode.FrameRate, syncTolerance int) *assembler {
	a := &assembler{
		rate:          rate,
		std:           ltcframe.StandardFor(rate),
		syncTolerance: syncTolerance,
	}
	a.reset()
	return a
}

func (a *assembler) reset() {
	a.state = stateEmpty
	a.head = 0
	a.filled = 0
	a.total = 0
	a.errAt = -1
	a.count = 0
	a.locked = false
	a.reverse = false
}

// push feeds one symbol into the assembler. It returns an outcome whenever
// a frame boundary was evaluated.
func (a *assembler) push(s symbol) (outcome, bool) {
	if s.kind != symBit {
		a.errAt = a.total
		return outcome{}, false
	}

	if a.state == stateEmpty {
		a.state = stateFilling
	}
	a.bits[a.head] = s.value
	a.starts[a.head] = s.start
	a.ends[a.head] = s.end
	a.head = (a.head + 1) % ltcframe.Bits
	if a.filled < ltcframe.Bits {
		a.filled++
	}
	a.total++
	a.count++

	for {
		switch a.state {
		case stateFilling:
			if !a.boundary() {
				return outcome{}, false
			}
			a.state = stateSyncCheck

		case stateSyncCheck:
			a.state = a.syncCheck()
			if a.state == stateFilling {
				return outcome{}, false
			}

		case stateComplete:
			out := a.complete()
			a.state = stateEmpty
			return out, true

		case stateRejected:
			out := outcome{kind: outcomeRejected, reason: a.reason}
			out.start, out.end = a.span(a.count)
			a.state = stateEmpty
			a.count = 0
			return out, true

		default:
			return outcome{}, false
		}
	}
}

// bit returns the i-th oldest bit of the window.
func (a *assembler) bit(i int) uint8 {
	return a.bits[(a.head-a.filled+i+2*ltcframe.Bits)%ltcframe.Bits]
}

// newest returns the newest 16 bits, the most recent one in the LSB.
func (a *assembler) newest() uint16 {
	var w uint16
	for i := a.filled - 16; i < a.filled; i++ {
		w = w<<1 | uint16(a.bit(i))
	}
	return w
}

// oldest returns the oldest 16 bits of the window.
func (a *assembler) oldest() uint16 {
	var w uint16
	for i := 0; i < 16; i++ {
		w = w<<1 | uint16(a.bit(i))
	}
	return w
}

// tainted reports whether a bit level error happened within the newest
// n bits.
func (a *assembler) tainted(n int) bool {
	return a.errAt >= 0 && a.errAt > a.total-int64(n)
}

func (a *assembler) full() bool {
	return a.filled == ltcframe.Bits
}

// boundary reports whether the newest bit may end a frame.
func (a *assembler) boundary() bool {
	if a.filled < 16 {
		return false
	}
	if a.locked {
		return a.count >= ltcframe.Bits || (!a.reverse && a.newest() == ltcframe.SyncWord)
	}
	w := a.newest()
	return w == ltcframe.SyncWord || w == ltcframe.ReverseSyncWord ||
		(a.full() && a.oldest() == ltcframe.ReverseSyncWord)
}

func (a *assembler) syncCheck() assemblerState {
	if a.locked {
		if a.count < ltcframe.Bits {
			// a bit got lost, the frame restarts at this sync word
			a.reason = reasonEarlySync
			return stateRejected
		}
		w, want := a.newest(), ltcframe.SyncWord
		if a.reverse {
			w, want = a.oldest(), ltcframe.ReverseSyncWord
		}
		if ltcframe.SyncDistance(w, want) > a.syncTolerance {
			a.locked = false
			a.reason = reasonNoSync
			return stateRejected
		}
		if a.tainted(ltcframe.Bits) {
			a.reason = reasonBitErrors
			return stateRejected
		}
		return stateComplete
	}

	w := a.newest()
	if a.full() && !a.tainted(ltcframe.Bits) {
		switch {
		case w == ltcframe.SyncWord:
			a.locked, a.reverse = true, false
			return stateComplete
		case a.oldest() == ltcframe.ReverseSyncWord:
			a.locked, a.reverse = true, true
			return stateComplete
		}
	}

	// partial or damaged frame: only align to the boundary
	switch {
	case w == ltcframe.SyncWord:
		a.lock(false, 0)
	case w == ltcframe.ReverseSyncWord:
		a.lock(true, 16)
	case a.full() && a.oldest() == ltcframe.ReverseSyncWord:
		a.lock(true, 0)
	}
	return stateFilling
}

func (a *assembler) lock(reverse bool, count int) {
	a.locked = true
	a.reverse = reverse
	a.count = count
}

// span returns the sample positions covered by the newest n bits.
func (a *assembler) span(n int) (int64, int64) {
	if n > a.filled {
		n = a.filled
	}
	if n <= 0 {
		return 0, 0
	}
	first := (a.head - n + ltcframe.Bits) % ltcframe.Bits
	last := (a.head - 1 + ltcframe.Bits) % ltcframe.Bits
	return a.starts[first], a.ends[last]
}

// complete builds the frame from the window and validates its fields.
func (a *assembler) complete() outcome {
	var f ltcframe.Frame
	for i := 0; i < ltcframe.Bits; i++ {
		if a.reverse {
			f.SetBit(i, a.bit(ltcframe.Bits-1-i))
		} else {
			f.SetBit(i, a.bit(i))
		}
	}
	a.count = 0

	out := outcome{kind: outcomeFrame, raw: f, reverse: a.reverse}
	out.start, out.end = a.span(ltcframe.Bits)
	out.tc, out.flags = ltcframe.Unpack(f, a.std)

	rate := a.rate
	switch {
	case out.tc.DropFrame:
		rate = timecode.Rate2997Drop
	case rate.DropFrame():
		rate = timecode.Rate2997
	}
	if err := out.tc.Validate(rate); err != nil {
		out.kind = outcomeMalformed
		out.err = err
	}
	return out
}
