package timecode

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tc      Timecode
		rate    FrameRate
		wantErr error
	}{
		{"valid 25", Timecode{Hours: 10}, Rate25, nil},
		{"last frame 25", Timecode{23, 59, 59, 24, false, UserBits{}}, Rate25, nil},
		{"frame 25 at 25fps", Timecode{Frames: 25}, Rate25, ErrFieldOutOfRange},
		{"frame 29 at 30fps", Timecode{Frames: 29}, Rate30, nil},
		{"minutes 61", Timecode{Minutes: 61}, Rate30, ErrFieldOutOfRange},
		{"hours 24", Timecode{Hours: 24}, Rate24, ErrFieldOutOfRange},
		{"negative seconds", Timecode{Seconds: -1}, Rate24, ErrFieldOutOfRange},
		{"dropped label", Timecode{Minutes: 1, DropFrame: true}, Rate2997Drop, ErrDroppedFrame},
		{"dropped label frame 1", Timecode{Minutes: 7, Frames: 1, DropFrame: true}, Rate2997Drop, ErrDroppedFrame},
		{"tenth minute kept", Timecode{Minutes: 10, DropFrame: true}, Rate2997Drop, nil},
		{"frame 2 kept", Timecode{Minutes: 1, Frames: 2, DropFrame: true}, Rate2997Drop, nil},
		{"non drop keeps label", Timecode{Minutes: 1}, Rate2997, nil},
		{"df flag at 25", Timecode{DropFrame: true}, Rate25, ErrFieldOutOfRange},
		{"user bits nibble", Timecode{UserBits: UserBits{0x10}}, Rate25, ErrFieldOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tc.Validate(tt.rate)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDroppedFrameIsFieldOutOfRange(t *testing.T) {
	_, err := New(0, 1, 0, 0, Rate2997Drop)
	if !errors.Is(err, ErrFieldOutOfRange) {
		t.Fatalf("expected ErrFieldOutOfRange, got %v", err)
	}
}

func TestIncrementWraps(t *testing.T) {
	tc := Timecode{Hours: 23, Minutes: 59, Seconds: 59, Frames: 29}
	tc.Increment(Rate30)
	if (tc != Timecode{}) {
		t.Fatalf("expected 00:00:00:00, got %v", tc)
	}
}

func TestIncrementSkipsDroppedFrames(t *testing.T) {
	tests := []struct {
		from Timecode
		want Timecode
	}{
		{Timecode{0, 0, 59, 29, true, UserBits{}}, Timecode{0, 1, 0, 2, true, UserBits{}}},
		{Timecode{0, 9, 59, 29, true, UserBits{}}, Timecode{0, 10, 0, 0, true, UserBits{}}},
		{Timecode{1, 59, 59, 29, true, UserBits{}}, Timecode{2, 0, 0, 0, true, UserBits{}}},
		{Timecode{0, 1, 0, 2, true, UserBits{}}, Timecode{0, 1, 0, 3, true, UserBits{}}},
	}

	for _, tt := range tests {
		tc := tt.from
		tc.Increment(Rate2997Drop)
		if tc != tt.want {
			t.Errorf("%v + 1: got %v, want %v", tt.from, tc, tt.want)
		}
	}
}

func TestDecrementInvertsIncrement(t *testing.T) {
	for _, rate := range []FrameRate{Rate24, Rate25, Rate2997Drop, Rate2997, Rate30} {
		// walk across midnight in both directions
		tc := Timecode{Hours: 23, Minutes: 58, Seconds: 30, DropFrame: rate.DropFrame()}
		for i := 0; i < 5000; i++ {
			prev := tc
			tc.Increment(rate)
			back := tc
			back.Decrement(rate)
			if back != prev {
				t.Fatalf("rate %v: %v +1 -1 = %v", rate, prev, back)
			}
			if err := tc.Validate(rate); err != nil {
				t.Fatalf("rate %v: increment produced invalid label %v: %v", rate, tc, err)
			}
		}
	}
}

func TestFrameNumberRoundTrip(t *testing.T) {
	for _, rate := range []FrameRate{Rate24, Rate25, Rate2997Drop, Rate2997, Rate30} {
		tc := Timecode{DropFrame: rate.DropFrame()}
		for n := int64(0); n < 40000; n++ {
			if got := tc.FrameNumber(rate); got != n {
				t.Fatalf("rate %v: %v has frame number %d, want %d", rate, tc, got, n)
			}
			if back := FromFrameNumber(n, rate); back != tc {
				t.Fatalf("rate %v: FromFrameNumber(%d) = %v, want %v", rate, n, back, tc)
			}
			tc.Increment(rate)
		}
	}
}

func TestFramesPerDay(t *testing.T) {
	last := Timecode{Hours: 23, Minutes: 59, Seconds: 59, Frames: 29, DropFrame: true}
	if got := last.FrameNumber(Rate2997Drop) + 1; got != FramesPerDay(Rate2997Drop) {
		t.Fatalf("got %d frames per day, want %d", got, FramesPerDay(Rate2997Drop))
	}
	if FromFrameNumber(FramesPerDay(Rate25), Rate25) != (Timecode{}) {
		t.Fatal("frame number should wrap after one day")
	}
}

func TestCompare(t *testing.T) {
	a := Timecode{Hours: 1, Minutes: 2, Seconds: 3, Frames: 4}
	b := a
	b.Frames++
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Fatal("unexpected ordering")
	}
	c := Timecode{Hours: 0, Minutes: 59, Seconds: 59, Frames: 29}
	if c.Compare(a) != -1 {
		t.Fatal("hours must dominate the ordering")
	}
}

func TestStringAndParse(t *testing.T) {
	tests := []struct {
		in   string
		want Timecode
		str  string
	}{
		{"10:00:00:00", Timecode{Hours: 10}, "10:00:00:00"},
		{"01:02:03;04", Timecode{1, 2, 3, 4, true, UserBits{}}, "01:02:03;04"},
		{"1:2:3.4", Timecode{1, 2, 3, 4, true, UserBits{}}, "01:02:03;04"},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if got.String() != tt.str {
			t.Errorf("String() = %q, want %q", got.String(), tt.str)
		}
	}

	for _, bad := range []string{"", "10:00:00", "aa:00:00:00", "10:00:00:000"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	for _, r := range []FrameRate{Rate24, Rate25, Rate2997Drop, Rate2997, Rate30} {
		got, err := ParseFrameRate(r.String())
		if err != nil || got != r {
			t.Errorf("ParseFrameRate(%q) = %v, %v", r.String(), got, err)
		}
	}
	if _, err := ParseFrameRate("60"); err == nil {
		t.Error("expected error for 60 fps")
	}
}
