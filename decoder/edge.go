package decoder

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/dh1tw/goltc/audio"
)

// PulseKind classifies the interval between two signal transitions.
type PulseKind int

const (
	// PulseShort is an interval of about half a bit period.
	PulseShort PulseKind = iota
	// PulseLong is an interval of about one bit period.
	PulseLong
	// PulseLoss marks a sync loss: an interval outside both windows or a
	// silent stretch longer than the grace period.
	PulseLoss
)

func (k PulseKind) String() string {
	switch k {
	case PulseShort:
		return "short"
	case PulseLong:
		return "long"
	}
	return "loss"
}

// Pulse is a classified interval between two transitions. Start is the
// sample position of the transition which opened the interval, Length is
// measured in (fractional) samples.
type Pulse struct {
	Kind   PulseKind
	Start  int64
	Length float64
}

const (
	// smoothing factor for the half bit period estimate
	periodAlpha = 1.0 / 8
	// time constant of the midline tracker in seconds
	midlineTau = 0.01
	// windows used to match seed intervals against the hint
	seedMinRatio   = 0.5
	seedSplitRatio = 1.5
	seedMaxRatio   = 2.6
	// smallest accepted classification window in samples; pulses are
	// quantized to whole samples on both ends
	minWindow = 1.0
)

// detector is the bit edge detector. It finds transitions with a hysteresis
// comparator around a slowly tracked midline and classifies the intervals
// between them against a running estimate of the half bit period.
//
// The detector never blocks: next returns ok=false as soon as the samples
// handed to write are used up.
type detector struct {
	samples []float32
	pos     int   // next unread index in samples
	base    int64 // absolute position of samples[0]

	reference float32
	tolerance float64
	midAlpha  float32
	silence   int64

	midline float32
	prev    float32
	level   int8 // +1 high, -1 low, 0 unknown

	open         bool    // lastEdge marks the start of a running interval
	truncated    bool    // the running interval started at the stream start
	lastEdge     float64 // absolute position of the last transition
	lastActivity int64   // last transition or last reported silence
	lastActive   int64   // last sample outside the hysteresis band

	nominal   float64 // half period derived from the frame rate hint
	half      float64 // current half period estimate
	committed float64 // estimate at the last accepted frame

	seeding   bool
	seedCount int
	seeds     []Pulse
	seedTrunc bool // seeds[0] is a truncated interval

	out  []Pulse
	peak float32
}

func newDetector(sampleRate float64, nominalHalf float64, o Options) *detector {
	d := &detector{
		reference: o.ReferenceLevel,
		tolerance: o.Tolerance,
		midAlpha:  float32(1 / (sampleRate * midlineTau)),
		silence:   int64(o.SilenceTimeout.Seconds() * sampleRate),
		nominal:   nominalHalf,
		seedCount: o.SeedPulses,
	}
	if d.midAlpha > 1 {
		d.midAlpha = 1
	}
	if d.silence < 1 {
		d.silence = 1
	}
	d.reset()
	return d
}

func (d *detector) reset() {
	d.samples = d.samples[:0]
	d.pos = 0
	d.base = 0
	d.midline = 0
	d.prev = 0
	d.level = 0
	d.open = false
	d.truncated = false
	d.lastEdge = 0
	d.lastActivity = 0
	d.lastActive = 0
	d.half = d.nominal
	d.committed = d.nominal
	d.seeding = true
	d.seeds = d.seeds[:0]
	d.seedTrunc = false
	d.out = d.out[:0]
	d.peak = 0
}

// write queues samples for detection.
func (d *detector) write(samples []float32) {
	// drop consumed samples before growing the buffer
	if d.pos > 0 && d.pos == len(d.samples) {
		d.base += int64(d.pos)
		d.samples = d.samples[:0]
		d.pos = 0
	} else if d.pos > 4096 && d.pos > len(d.samples)/2 {
		n := copy(d.samples, d.samples[d.pos:])
		d.base += int64(d.pos)
		d.samples = d.samples[:n]
		d.pos = 0
	}
	d.samples = append(d.samples, samples...)
}

// position returns the absolute position of the next unread sample.
func (d *detector) position() int64 {
	return d.base + int64(d.pos)
}

// next returns the next classified pulse.
func (d *detector) next() (Pulse, bool) {
	for len(d.out) == 0 {
		if d.pos >= len(d.samples) {
			return Pulse{}, false
		}
		x := d.samples[d.pos]
		abs := d.base + int64(d.pos)
		d.pos++
		d.process(x, abs)
	}
	p := d.out[0]
	d.out = d.out[1:]
	return p, true
}

func (d *detector) process(x float32, abs int64) {
	d.midline += (x - d.midline) * d.midAlpha
	hi := d.midline + d.reference
	lo := d.midline - d.reference

	if a := math32.Abs(x - d.midline); a > d.peak {
		d.peak = a
	}

	level := d.level
	var threshold float32
	switch {
	case x > hi:
		level, threshold = 1, hi
		d.lastActive = abs
	case x < lo:
		level, threshold = -1, lo
		d.lastActive = abs
	}

	switch {
	case level == d.level:
		if abs-d.lastActivity >= d.silence {
			// the signal stopped: finish the last half bit, then start
			// over as if the stream began with the next excursion
			d.closeInterval(float64(d.lastActive) + 0.5)
			d.loss(abs)
			d.lastActivity = abs
			d.level = 0
		}
	case d.level == 0:
		// first excursion: the stream start counts as a transition
		d.level = level
		d.open = true
		d.truncated = true
		d.lastEdge = float64(abs) - 0.5
		d.lastActivity = abs
	default:
		frac := float64((threshold - d.prev) / (x - d.prev))
		if frac < 0 || frac > 1 {
			frac = 0.5
		}
		d.level = level
		d.edge(float64(abs-1) + frac)
		d.lastActivity = abs
	}
	d.prev = x
}

func (d *detector) edge(t float64) {
	if !d.open {
		d.open = true
		d.truncated = false
		d.lastEdge = t
		return
	}
	p := Pulse{Start: int64(math.Ceil(d.lastEdge)), Length: t - d.lastEdge}
	truncated := d.truncated
	d.lastEdge = t
	d.truncated = false
	d.interval(p, truncated)
}

func (d *detector) interval(p Pulse, truncated bool) {
	if d.seeding {
		if len(d.seeds) == 0 {
			d.seedTrunc = truncated
		}
		d.seeds = append(d.seeds, p)
		if len(d.seeds) >= d.seedCount {
			d.seed(false)
		}
		return
	}

	p.Kind = d.classify(p.Length)
	if p.Kind == PulseLoss {
		if truncated {
			return
		}
		d.loss(p.Start)
		return
	}
	d.out = append(d.out, p)
}

// classify matches an interval against the short and long windows.
func (d *detector) classify(length float64) PulseKind {
	h := d.half
	ds := math.Abs(length - h)
	dl := math.Abs(length - 2*h)
	ws := math.Max(d.tolerance*h, minWindow)
	wl := math.Max(d.tolerance*2*h, minWindow)
	switch {
	case ds <= ws && ds <= dl:
		return PulseShort
	case dl <= wl:
		return PulseLong
	}
	return PulseLoss
}

// loss reports a sync loss and starts re-seeding the period estimate.
func (d *detector) loss(at int64) {
	d.out = append(d.out, Pulse{Kind: PulseLoss, Start: at})
	d.seeding = true
	d.seeds = d.seeds[:0]
	d.seedTrunc = false
}

// seed estimates the half period from the collected seed intervals and
// replays them through the classifier. With force set, a partial seed set
// is used (end of stream).
func (d *detector) seed(force bool) {
	half, ok := estimateHalf(d.seeds, d.committed)
	if !ok && d.nominal != d.committed {
		half, ok = estimateHalf(d.seeds, d.nominal)
	}
	if !ok && len(d.seeds) > 1 && d.seedTrunc {
		// the truncated first interval may be what spoils the estimate
		d.seeds = d.seeds[1:]
		d.seedTrunc = false
		half, ok = estimateHalf(d.seeds, d.committed)
	}
	if !ok {
		if force {
			d.seeds = d.seeds[:0]
			return
		}
		// slide the seed window and wait for the next interval
		d.seeds = d.seeds[1:]
		d.seedTrunc = false
		return
	}

	d.half = half
	d.committed = half
	d.seeding = false

	for i, s := range d.seeds {
		s.Kind = d.classify(s.Length)
		if s.Kind == PulseLoss {
			if i == 0 && d.seedTrunc {
				continue
			}
			// reported without re-seeding, the estimate is fresh
			s.Length = 0
		}
		d.out = append(d.out, s)
	}
	d.seeds = d.seeds[:0]
	d.seedTrunc = false
}

// estimateHalf matches every seed against the hint as one or two half
// periods and averages the matches. At least three quarters of the seeds
// have to match.
func estimateHalf(seeds []Pulse, hint float64) (float64, bool) {
	if hint <= 0 || len(seeds) == 0 {
		return 0, false
	}
	var sum, units float64
	matched := 0
	for _, s := range seeds {
		r := s.Length / hint
		switch {
		case r >= seedMinRatio && r < seedSplitRatio:
			sum += s.Length
			units++
			matched++
		case r >= seedSplitRatio && r < seedMaxRatio:
			sum += s.Length
			units += 2
			matched++
		}
	}
	if matched == 0 || matched*4 < len(seeds)*3 {
		return 0, false
	}
	return sum / units, true
}

// adapt updates the half period estimate from a validated pulse.
func (d *detector) adapt(p Pulse) {
	obs := p.Length
	if p.Kind == PulseLong {
		obs /= 2
	}
	d.half += (obs - d.half) * periodAlpha
}

// commit records the current estimate as the last known good one.
func (d *detector) commit() {
	d.committed = d.half
}

// rollback discards adaptation since the last commit.
func (d *detector) rollback() {
	d.half = d.committed
}

// flush closes the running interval at the end of the stream and releases
// any pending seed intervals.
func (d *detector) flush() {
	d.closeInterval(float64(d.lastActive) + 0.5)
}

// closeInterval ends the running interval at t without a transition.
func (d *detector) closeInterval(t float64) {
	if d.open && d.level != 0 {
		p := Pulse{Start: int64(math.Ceil(d.lastEdge)), Length: t - d.lastEdge}
		truncated := d.truncated
		d.open = false
		if d.seeding {
			if len(d.seeds) == 0 {
				d.seedTrunc = truncated
			}
			d.seeds = append(d.seeds, p)
		} else if p.Kind = d.classify(p.Length); p.Kind != PulseLoss {
			d.out = append(d.out, p)
		}
	}
	d.open = false
	if d.seeding && len(d.seeds) > 0 {
		d.seed(true)
	}
}

// takePeak returns the peak excursion from the midline since the last call
// in dBFS.
func (d *detector) takePeak() float32 {
	p := d.peak
	d.peak = 0
	if p <= 0 {
		return float32(math.Inf(-1))
	}
	return audio.Level(p)
}
