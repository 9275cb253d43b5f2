package timecode

import (
	"fmt"
	"strings"
)

// FrameRate enumerates the video frame rates LTC is used with.
type FrameRate int

const (
	Rate24 FrameRate = iota
	Rate25
	Rate2997Drop
	Rate2997
	Rate30
)

// FPS returns the actual number of frames per second. Both 29.97 variants
// run at 30000/1001 fps; only the frame labelling differs.
func (r FrameRate) FPS() float64 {
	switch r {
	case Rate24:
		return 24
	case Rate25:
		return 25
	case Rate2997Drop, Rate2997:
		return 30000.0 / 1001.0
	default:
		return 30
	}
}

// Base returns the number of frame labels counted per second
// (frames run from 0 to Base()-1).
func (r FrameRate) Base() int {
	switch r {
	case Rate24:
		return 24
	case Rate25:
		return 25
	default:
		return 30
	}
}

// DropFrame reports whether the rate uses drop-frame labelling.
func (r FrameRate) DropFrame() bool {
	return r == Rate2997Drop
}

// Valid reports whether r is one of the known frame rates.
func (r FrameRate) Valid() bool {
	return r >= Rate24 && r <= Rate30
}

func (r FrameRate) String() string {
	switch r {
	case Rate24:
		return "24"
	case Rate25:
		return "25"
	case Rate2997Drop:
		return "29.97df"
	case Rate2997:
		return "29.97"
	case Rate30:
		return "30"
	}
	return fmt.Sprintf("FrameRate(%d)", int(r))
}

// ParseFrameRate converts a frame rate string (typically read from the
// application settings) into a FrameRate. Accepted values are 24, 25,
// 29.97df (or 29.97-drop, 2997df), 29.97 and 30.
func ParseFrameRate(s string) (FrameRate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "24":
		return Rate24, nil
	case "25":
		return Rate25, nil
	case "29.97df", "29.97-drop", "29.97drop", "2997df", "df":
		return Rate2997Drop, nil
	case "29.97", "29.97ndf", "2997":
		return Rate2997, nil
	case "30":
		return Rate30, nil
	}
	return 0, fmt.Errorf("unknown frame rate %q", s)
}
