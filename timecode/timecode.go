// Package timecode models SMPTE timecode labels: hours, minutes, seconds and
// frames at a given frame rate, including drop-frame counting, together with
// the 32 user bits carried in every LTC frame.
//
// A Timecode is a plain value. It is validated against a FrameRate rather
// than carrying one, so the same label can be checked for 25 fps and 30 fps
// material.
package timecode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrFieldOutOfRange is returned when a timecode field exceeds its
	// range for the frame rate (e.g. minutes=61, or frame 25 at 25 fps).
	ErrFieldOutOfRange = errors.New("timecode field out of range")

	// ErrDroppedFrame is returned for the labels drop-frame counting skips
	// (frames 0 and 1 of every minute not divisible by ten). It matches
	// ErrFieldOutOfRange with errors.Is.
	ErrDroppedFrame = fmt.Errorf("%w: label is dropped in drop-frame counting", ErrFieldOutOfRange)
)

// Timecode is a single timecode label.
type Timecode struct {
	Hours     int
	Minutes   int
	Seconds   int
	Frames    int
	DropFrame bool
	UserBits  UserBits
}

// New returns a validated Timecode for the given frame rate. The drop-frame
// flag is taken from the rate.
func New(hours, minutes, seconds, frames int, rate FrameRate) (Timecode, error) {
	tc := Timecode{
		Hours:     hours,
		Minutes:   minutes,
		Seconds:   seconds,
		Frames:    frames,
		DropFrame: rate.DropFrame(),
	}
	if err := tc.Validate(rate); err != nil {
		return Timecode{}, err
	}
	return tc, nil
}

type fieldError struct {
	field string
	value int
	max   int
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%s=%d: allowed values are [0...%d]", e.field, e.value, e.max)
}

func (e *fieldError) Unwrap() error {
	return ErrFieldOutOfRange
}

// Validate checks all fields against the frame rate. A Timecode flagged as
// drop-frame is only valid at a drop-frame rate.
func (tc Timecode) Validate(rate FrameRate) error {
	if !rate.Valid() {
		return fmt.Errorf("%w: unknown frame rate %v", ErrFieldOutOfRange, rate)
	}

	checks := []struct {
		field string
		value int
		max   int
	}{
		{"hours", tc.Hours, 23},
		{"minutes", tc.Minutes, 59},
		{"seconds", tc.Seconds, 59},
		{"frames", tc.Frames, rate.Base() - 1},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > c.max {
			return &fieldError{field: c.field, value: c.value, max: c.max}
		}
	}

	if tc.DropFrame && !rate.DropFrame() {
		return fmt.Errorf("%w: drop-frame flag set for %v fps", ErrFieldOutOfRange, rate)
	}

	for i, ub := range tc.UserBits {
		if ub > 0xF {
			return fmt.Errorf("%w: user bits group %d=%#x exceeds a nibble", ErrFieldOutOfRange, i+1, ub)
		}
	}

	if rate.DropFrame() && tc.dropped() {
		return fmt.Errorf("%w: %s", ErrDroppedFrame, tc.label(true))
	}
	return nil
}

// dropped reports whether the label is skipped in drop-frame counting.
func (tc Timecode) dropped() bool {
	return tc.Seconds == 0 && tc.Frames < 2 && tc.Minutes%10 != 0
}

// Increment advances the timecode by one frame, wrapping from the last
// frame of 23:59:59 to 00:00:00:00. Dropped labels are skipped at drop-frame
// rates. User bits are left untouched.
func (tc *Timecode) Increment(rate FrameRate) {
	tc.Frames++
	if tc.Frames >= rate.Base() {
		tc.Frames = 0
		tc.Seconds++
	}
	if tc.Seconds > 59 {
		tc.Seconds = 0
		tc.Minutes++
	}
	if tc.Minutes > 59 {
		tc.Minutes = 0
		tc.Hours++
	}
	if tc.Hours > 23 {
		tc.Hours = 0
	}
	if rate.DropFrame() && tc.dropped() {
		tc.Frames = 2
	}
}

// Decrement moves the timecode back by one frame; it is the inverse of
// Increment and is used for reverse LTC.
func (tc *Timecode) Decrement(rate FrameRate) {
	tc.Frames--
	if rate.DropFrame() && tc.Seconds == 0 && tc.Minutes%10 != 0 && tc.Frames < 2 {
		tc.Frames = -1
	}
	if tc.Frames >= 0 {
		return
	}
	tc.Frames = rate.Base() - 1
	tc.Seconds--
	if tc.Seconds >= 0 {
		return
	}
	tc.Seconds = 59
	tc.Minutes--
	if tc.Minutes >= 0 {
		return
	}
	tc.Minutes = 59
	tc.Hours--
	if tc.Hours < 0 {
		tc.Hours = 23
	}
}

// Compare returns -1, 0 or +1 depending on whether tc is earlier than,
// equal to, or later than other. Only the time fields are compared.
func (tc Timecode) Compare(other Timecode) int {
	a := [4]int{tc.Hours, tc.Minutes, tc.Seconds, tc.Frames}
	b := [4]int{other.Hours, other.Minutes, other.Seconds, other.Frames}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Equal reports whether both timecodes carry the same label, flag and
// user bits.
func (tc Timecode) Equal(other Timecode) bool {
	return tc == other
}

// frames per minute / ten minutes / day in drop-frame counting
const (
	dfFramesPerMinute    = 30*60 - 2
	dfFramesPer10Minutes = 10*dfFramesPerMinute + 2
	dfFramesPerDay       = 24 * 6 * dfFramesPer10Minutes
)

// FrameNumber returns the number of frames since 00:00:00:00.
func (tc Timecode) FrameNumber(rate FrameRate) int64 {
	base := int64(rate.Base())
	n := ((int64(tc.Hours)*60+int64(tc.Minutes))*60+int64(tc.Seconds))*base + int64(tc.Frames)
	if rate.DropFrame() {
		totalMinutes := int64(tc.Hours)*60 + int64(tc.Minutes)
		n -= 2 * (totalMinutes - totalMinutes/10)
	}
	return n
}

// FramesPerDay returns the number of frame labels in 24 hours.
func FramesPerDay(rate FrameRate) int64 {
	if rate.DropFrame() {
		return dfFramesPerDay
	}
	return int64(rate.Base()) * 86400
}

// FromFrameNumber is the inverse of FrameNumber. n is taken modulo one day.
func FromFrameNumber(n int64, rate FrameRate) Timecode {
	n %= FramesPerDay(rate)
	if n < 0 {
		n += FramesPerDay(rate)
	}
	if rate.DropFrame() {
		tens := n / dfFramesPer10Minutes
		rem := n % dfFramesPer10Minutes
		skipped := 18 * tens
		if rem >= 2 {
			skipped += 2 * ((rem - 2) / dfFramesPerMinute)
		}
		n += skipped
	}
	base := int64(rate.Base())
	return Timecode{
		Frames:    int(n % base),
		Seconds:   int(n / base % 60),
		Minutes:   int(n / base / 60 % 60),
		Hours:     int(n / base / 3600 % 24),
		DropFrame: rate.DropFrame(),
	}
}

// Duration returns the wall clock time elapsed between 00:00:00:00 and the
// start of the frame at the rate's actual frame rate.
func (tc Timecode) Duration(rate FrameRate) time.Duration {
	return time.Duration(float64(tc.FrameNumber(rate)) / rate.FPS() * float64(time.Second))
}

func (tc Timecode) label(drop bool) string {
	sep := ":"
	if drop {
		sep = ";"
	}
	return fmt.Sprintf("%02d:%02d:%02d%s%02d", tc.Hours, tc.Minutes, tc.Seconds, sep, tc.Frames)
}

// String formats the timecode as HH:MM:SS:FF, using HH:MM:SS;FF for
// drop-frame timecode.
func (tc Timecode) String() string {
	return tc.label(tc.DropFrame)
}

// Parse reads a timecode in HH:MM:SS:FF or HH:MM:SS;FF notation. A ';' (or
// '.') before the frames marks drop-frame timecode. Ranges are not
// validated; use Validate.
func Parse(s string) (Timecode, error) {
	s = strings.TrimSpace(s)
	var tc Timecode
	sepIdx := strings.LastIndexAny(s, ":;.")
	if sepIdx < 0 {
		return tc, fmt.Errorf("invalid timecode %q", s)
	}
	tc.DropFrame = s[sepIdx] != ':'

	parts := strings.Split(s[:sepIdx], ":")
	parts = append(parts, s[sepIdx+1:])
	if len(parts) != 4 {
		return tc, fmt.Errorf("invalid timecode %q", s)
	}

	fields := [4]*int{&tc.Hours, &tc.Minutes, &tc.Seconds, &tc.Frames}
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || len(p) == 0 || len(p) > 2 {
			return Timecode{}, fmt.Errorf("invalid timecode %q", s)
		}
		*fields[i] = v
	}
	return tc, nil
}
