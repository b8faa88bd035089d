package codec

import "math/bits"

// scramblerCodec is a multiplicative LFSR whitener working MSB-first over
// the bit stream. For each input bit the feedback is the parity of
// state & poly; the output bit is input xor feedback and the feedback is
// shifted into the state. A zero state reloads the initial mask so the
// register cannot lock up. The transform is self-inverse, so decode runs
// the identical pass.
type scramblerCodec struct {
	poly    uint64
	seed    uint64
	hasSeed bool
}

func (s scramblerCodec) transform(data []byte) []byte {
	if s.poly == 0 {
		out := make([]byte, len(data))
		copy(out, data)
		return out
	}

	width := 64 - bits.LeadingZeros64(s.poly)
	var mask uint64
	switch {
	case s.hasSeed:
		mask = s.seed
	case width == 64:
		mask = ^uint64(0)
	default:
		mask = 1<<width - 1
	}
	state := mask

	out := make([]byte, 0, len(data))
	for _, b := range data {
		var outByte byte
		for i := 7; i >= 0; i-- {
			feedback := byte(bits.OnesCount64(state&s.poly) & 1)
			bit := (b >> i) & 1
			outByte = outByte<<1 | (bit ^ feedback)

			state = (state<<1 | uint64(feedback)) & mask
			if state == 0 {
				state = mask
			}
		}
		out = append(out, outByte)
	}
	return out
}

func (s scramblerCodec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		out = append(out, s.transform(frag))
	}
	return out, nil
}

func (s scramblerCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		out = append(out, s.transform(frag))
	}
	return out, 1, nil
}

func (scramblerCodec) IsChunking() bool { return false }
func (scramblerCodec) IsHeader() bool   { return false }
