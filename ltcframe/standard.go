package ltcframe

import "github.com/dh1tw/goltc/timecode"

// Standard selects the TV standard which determines where the binary group
// flags and the polarity correction bit sit in the frame.
type Standard int

const (
	// TV525_60 is used for 24, 29.97 and 30 fps.
	TV525_60 Standard = iota
	// TV625_50 is used for 25 fps.
	TV625_50
)

func (s Standard) String() string {
	if s == TV625_50 {
		return "625/50"
	}
	return "525/60"
}

// StandardFor returns the standard used with a frame rate. The flag
// positions only differ for 25 fps.
func StandardFor(rate timecode.FrameRate) Standard {
	if rate == timecode.Rate25 {
		return TV625_50
	}
	return TV525_60
}

type positions struct {
	parity int
	bgf    [3]int
}

func (s Standard) positions() positions {
	if s == TV625_50 {
		return positions{parity: 59, bgf: [3]int{27, 58, 43}}
	}
	return positions{parity: 27, bgf: [3]int{43, 58, 59}}
}

// Flags are the single bit fields of a frame besides the drop frame flag.
// The binary group flags are passed through opaquely.
type Flags struct {
	ColorFrame bool
	BGF0       bool
	BGF1       bool
	BGF2       bool
	// Parity is the polarity correction bit. It is computed by Pack and
	// ignored on input.
	Parity bool
}
