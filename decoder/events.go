package decoder

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for invalid decoder options.
	ErrConfiguration = errors.New("invalid decoder configuration")

	// ErrSyncLoss is carried by events raised when the signal can no longer
	// be followed: a pulse outside both windows or a silent stretch.
	ErrSyncLoss = errors.New("ltc sync lost")

	// ErrFrameRejected is carried by events raised when a frame boundary
	// could not be confirmed or the frame contained bit errors.
	ErrFrameRejected = errors.New("ltc frame rejected")

	// ErrBiphase is carried by events raised for a half bit pulse without
	// its partner.
	ErrBiphase = errors.New("ltc biphase error")
)

// EventKind classifies the non fatal conditions a decoder reports.
type EventKind int

const (
	EventSyncLoss EventKind = iota
	EventFrameRejected
	// EventMalformed is raised for frames with out of range fields, its
	// Err matches timecode.ErrFieldOutOfRange.
	EventMalformed
	EventBiphaseError
)

func (k EventKind) String() string {
	switch k {
	case EventSyncLoss:
		return "sync loss"
	case EventFrameRejected:
		return "frame rejected"
	case EventMalformed:
		return "field out of range"
	case EventBiphaseError:
		return "biphase error"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a recoverable decoding condition. Pos is the sample position at
// which it was detected.
type Event struct {
	Kind EventKind
	Pos  int64
	Err  error
}

func (e Event) String() string {
	return fmt.Sprintf("%v @%d: %v", e.Kind, e.Pos, e.Err)
}

// Stats holds the counters of a decoder since the last Reset.
type Stats struct {
	Samples       int64
	Frames        int64
	SyncLoss      int64
	Rejected      int64
	Malformed     int64
	BiphaseErrors int64
	DroppedEvents int64
}

type parmError struct {
	Parameter string
	Reason    string
}

func (e *parmError) Error() string {
	return fmt.Sprintf("%s: %s", e.Parameter, e.Reason)
}

func (e *parmError) Unwrap() error {
	return ErrConfiguration
}
