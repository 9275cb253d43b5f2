package decoder

type symbolKind int

const (
	symBit symbolKind = iota
	// a short pulse without its partner
	symDesync
	// sync loss reported by the edge detector
	symLoss
)

// symbol is what the biphase stage hands to the frame assembler: either a
// decoded bit or a marker for a bit level error.
type symbol struct {
	kind  symbolKind
	value uint8
	start int64
	end   int64
}

// biphase turns classified pulses into bits. A long pulse is a 0, two
// consecutive short pulses are a 1. The pulse lengths of every decoded bit
// are fed back into the edge detector's period estimate.
type biphase struct {
	det   *detector
	short Pulse
	half  bool // short holds a first half bit
	out   []symbol
}

func newBiphase(det *detector) *biphase {
	return &biphase{det: det}
}

func (b *biphase) reset() {
	b.half = false
	b.out = b.out[:0]
}

func (b *biphase) next() (symbol, bool) {
	for len(b.out) == 0 {
		p, ok := b.det.next()
		if !ok {
			return symbol{}, false
		}
		b.pulse(p)
	}
	s := b.out[0]
	b.out = b.out[1:]
	return s, true
}

func (b *biphase) pulse(p Pulse) {
	switch p.Kind {
	case PulseLoss:
		b.half = false
		b.out = append(b.out, symbol{kind: symLoss, start: p.Start, end: p.Start})

	case PulseLong:
		if b.half {
			b.half = false
			b.out = append(b.out, symbol{kind: symDesync, start: b.short.Start, end: p.Start})
		}
		b.det.adapt(p)
		b.out = append(b.out, symbol{
			kind:  symBit,
			value: 0,
			start: p.Start,
			end:   p.Start + int64(p.Length+0.5) - 1,
		})

	case PulseShort:
		if !b.half {
			b.short = p
			b.half = true
			return
		}
		b.half = false
		b.det.adapt(b.short)
		b.det.adapt(p)
		b.out = append(b.out, symbol{
			kind:  symBit,
			value: 1,
			start: b.short.Start,
			end:   p.Start + int64(p.Length+0.5) - 1,
		})
	}
}
