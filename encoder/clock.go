package encoder

import "math"

// fracScale is the fixed point scale of the fractional samples per bit.
const fracScale = 10_000_000

// sampleClock hands out the whole number of samples for each half of an
// LTC bit. The fractional part of the samples per bit is accumulated in
// fixed point; each time it adds up to a full sample, the second half of
// the current bit is one sample longer.
type sampleClock struct {
	period int   // whole samples per bit
	frac   int64 // fractional samples per bit, scaled by fracScale
	acc    int64
}

func newSampleClock(bitsPerSecond, sampleRate float64) *sampleClock {
	spb := sampleRate / bitsPerSecond
	return &sampleClock{
		period: int(spb),
		frac:   int64(math.Round((spb - math.Floor(spb)) * fracScale)),
	}
}

// samples returns the length of the first and second half of the next bit.
// An odd period puts the extra sample into the first half, so the mid-bit
// transition of a one never comes early.
func (c *sampleClock) samples() (first, second int) {
	first = c.period - c.period/2
	second = c.period / 2

	c.acc += c.frac
	if c.acc >= fracScale {
		c.acc -= fracScale
		second++
	}
	return first, second
}

// peek returns the number of samples the next n bits take without
// advancing the clock.
func (c *sampleClock) peek(n int) int {
	cp := *c
	total := 0
	for i := 0; i < n; i++ {
		a, b := cp.samples()
		total += a + b
	}
	return total
}

func (c *sampleClock) reset() {
	c.acc = 0
}
