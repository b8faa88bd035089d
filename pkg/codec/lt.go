package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/marmos91/hqfbp/pkg/encoding"
)

// LT code over byte symbols. Packets are a 4-byte big-endian ESI followed
// by exactly one symbol. ESIs below K are systematic; repair packets XOR a
// degree-d random selection of source blocks, where both the degree and the
// selection derive from a SplitMix64 PRNG seeded with the ESI, so encoder
// and decoder agree without any side channel.

// splitMix64 is the deterministic cross-language PRNG the repair schedule
// is built on.
type splitMix64 struct {
	state uint64
}

func (s *splitMix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// robustSoliton is the LT degree distribution for K source blocks with
// c=0.1 and delta=0.5, sampled by inverse CDF.
type robustSoliton struct {
	k   int
	cdf []float64
}

func newRobustSoliton(k int) *robustSoliton {
	const (
		c     = 0.1
		delta = 0.5
	)

	rho := make([]float64, k+1)
	if k >= 1 {
		rho[1] = 1 / float64(k)
	}
	for d := 2; d <= k; d++ {
		rho[d] = 1 / float64(d*(d-1))
	}

	tau := make([]float64, k+1)
	s := c * math.Log(float64(k)/delta) * math.Sqrt(float64(k))
	limit := int(math.Round(float64(k) / s))
	for d := 1; d <= k; d++ {
		switch {
		case d < limit-1:
			tau[d] = s / float64(k) / float64(d)
		case d == limit:
			tau[d] = s * math.Log(s/delta) / float64(k)
		}
	}

	z := 0.0
	for d := 1; d <= k; d++ {
		z += rho[d] + tau[d]
	}

	cdf := make([]float64, k+2)
	current := 0.0
	for d := 1; d <= k; d++ {
		current += (rho[d] + tau[d]) / z
		cdf[d] = current
	}
	cdf[k+1] = 1

	return &robustSoliton{k: k, cdf: cdf}
}

func (r *robustSoliton) sample(prng *splitMix64) int {
	val := float64(prng.next()) / math.Exp2(64)
	for d := 1; d <= r.k; d++ {
		if val < r.cdf[d] {
			return d
		}
	}
	return 1
}

// ltNeighbors derives the source blocks a repair ESI covers.
func ltNeighbors(esi, k int, dist *robustSoliton) map[int]struct{} {
	prng := &splitMix64{state: uint64(esi)}
	degree := dist.sample(prng)
	neighbors := make(map[int]struct{}, degree)
	for len(neighbors) < degree {
		neighbors[int(prng.next()%uint64(k))] = struct{}{}
	}
	return neighbors
}

func xorBlock(dst, src []byte) {
	for i := range dst {
		if i < len(src) {
			dst[i] ^= src[i]
		}
	}
}

// ltEncode emits k systematic packets followed by repair packets.
func ltEncode(data []byte, symbolSize, repair int) ([][]byte, error) {
	if symbolSize <= 0 {
		return nil, fmt.Errorf("%w: lt symbol size %d", ErrInvalidParameters, symbolSize)
	}
	padded := make([]byte, (len(data)+symbolSize-1)/symbolSize*symbolSize)
	copy(padded, data)
	k := len(padded) / symbolSize
	if k == 0 {
		return nil, fmt.Errorf("%w: empty lt input", ErrInsufficientData)
	}

	blocks := make([][]byte, k)
	for i := range blocks {
		blocks[i] = padded[i*symbolSize : (i+1)*symbolSize]
	}
	dist := newRobustSoliton(k)

	total := k + repair
	pkts := make([][]byte, 0, total)
	for esi := 0; esi < total; esi++ {
		pkt := make([]byte, 4+symbolSize)
		binary.BigEndian.PutUint32(pkt[:4], uint32(esi))
		if esi < k {
			copy(pkt[4:], blocks[esi])
		} else {
			for idx := range ltNeighbors(esi, k, dist) {
				xorBlock(pkt[4:], blocks[idx])
			}
		}
		pkts = append(pkts, pkt)
	}
	return pkts, nil
}

// ltDecoder peels packets iteratively: resolving a source block is pushed
// through all pending repair packets that reference it via a reverse index,
// which may resolve further blocks (depth-first cascade on an explicit
// stack).
type ltDecoder struct {
	totalLen   int
	symbolSize int
	k          int
	dist       *robustSoliton

	blocks map[int][]byte
	// pending repair packets: ESI -> remaining neighbor set and running XOR
	graph map[int]*ltPending
	// reverse index: source block -> repair ESIs still referencing it
	blockDeps map[int]map[int]struct{}
}

type ltPending struct {
	neighbors map[int]struct{}
	payload   []byte
}

func newLTDecoder(totalLen, symbolSize int) *ltDecoder {
	k := (totalLen + symbolSize - 1) / symbolSize
	return &ltDecoder{
		totalLen:   totalLen,
		symbolSize: symbolSize,
		k:          k,
		dist:       newRobustSoliton(k),
		blocks:     make(map[int][]byte),
		graph:      make(map[int]*ltPending),
		blockDeps:  make(map[int]map[int]struct{}),
	}
}

// add ingests one packet and reports whether all source blocks are known.
func (d *ltDecoder) add(packet []byte) bool {
	if len(packet) < 4+d.symbolSize {
		return d.done()
	}
	esi := int(binary.BigEndian.Uint32(packet[:4]))
	payload := make([]byte, d.symbolSize)
	copy(payload, packet[4:4+d.symbolSize])

	if esi < d.k {
		if _, known := d.blocks[esi]; !known {
			d.blocks[esi] = payload
			d.propagate(esi)
		}
		return d.done()
	}

	unknown := make(map[int]struct{})
	for idx := range ltNeighbors(esi, d.k, d.dist) {
		if blk, known := d.blocks[idx]; known {
			xorBlock(payload, blk)
		} else {
			unknown[idx] = struct{}{}
		}
	}

	switch len(unknown) {
	case 0:
		// Redundant packet.
	case 1:
		var idx int
		for i := range unknown {
			idx = i
		}
		if _, known := d.blocks[idx]; !known {
			d.blocks[idx] = payload
			d.propagate(idx)
		}
	default:
		for idx := range unknown {
			deps, ok := d.blockDeps[idx]
			if !ok {
				deps = make(map[int]struct{})
				d.blockDeps[idx] = deps
			}
			deps[esi] = struct{}{}
		}
		d.graph[esi] = &ltPending{neighbors: unknown, payload: payload}
	}
	return d.done()
}

func (d *ltDecoder) propagate(start int) {
	stack := []int{start}
	for len(stack) > 0 {
		resolved := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		deps, ok := d.blockDeps[resolved]
		if !ok {
			continue
		}
		delete(d.blockDeps, resolved)
		blockVal := d.blocks[resolved]

		for esi := range deps {
			pending, ok := d.graph[esi]
			if !ok {
				continue
			}
			if _, refs := pending.neighbors[resolved]; !refs {
				continue
			}
			xorBlock(pending.payload, blockVal)
			delete(pending.neighbors, resolved)

			if len(pending.neighbors) != 1 {
				continue
			}
			var newIdx int
			for i := range pending.neighbors {
				newIdx = i
			}
			delete(d.graph, esi)
			if _, known := d.blocks[newIdx]; !known {
				d.blocks[newIdx] = pending.payload
				stack = append(stack, newIdx)
			}
		}
	}
}

func (d *ltDecoder) done() bool { return len(d.blocks) == d.k }

func (d *ltDecoder) result() ([]byte, bool) {
	if !d.done() {
		return nil, false
	}
	out := make([]byte, 0, d.k*d.symbolSize)
	for i := 0; i < d.k; i++ {
		out = append(out, d.blocks[i]...)
	}
	return out[:d.totalLen], true
}

func ltDecode(packets [][]byte, totalLen, symbolSize int) ([]byte, error) {
	if symbolSize <= 0 || totalLen <= 0 {
		return nil, fmt.Errorf("%w: lt(%d,%d)", ErrInvalidParameters, totalLen, symbolSize)
	}
	dec := newLTDecoder(totalLen, symbolSize)
	for _, pkt := range packets {
		if dec.add(pkt) {
			break
		}
	}
	if out, ok := dec.result(); ok {
		return out, nil
	}
	return nil, fmt.Errorf("%w: lt decoding needs more symbols", ErrInsufficientData)
}

const ltSymbolQuality = 10

type ltCodec struct {
	length, mtu, repair int
}

func (l ltCodec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	var out [][]byte
	for _, frag := range fragments {
		padded := make([]byte, max(len(frag), l.length))
		copy(padded, frag)
		pkts, err := ltEncode(padded[:l.length], l.mtu, l.repair)
		if err != nil {
			return nil, err
		}
		out = append(out, pkts...)
	}
	return out, nil
}

func (l ltCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	res, err := ltDecode(fragments, l.length, l.mtu)
	if err != nil {
		return nil, 0, err
	}
	return [][]byte{res}, ltSymbolQuality, nil
}

func (ltCodec) IsChunking() bool { return true }
func (ltCodec) IsHeader() bool   { return false }

// ltDynamicCodec resolves the source length from the fragment it encodes
// and rewrites its stack entry so the header carries lt(len,mtu,rep).
type ltDynamicCodec struct {
	mtu, repair int
}

func (l ltDynamicCodec) Encode(fragments [][]byte, ctx *Context) ([][]byte, error) {
	var out [][]byte
	for _, frag := range fragments {
		if ctx != nil && ctx.Index < len(ctx.Encodings) {
			ctx.Encodings[ctx.Index] = encoding.LT(len(frag), l.mtu, l.repair)
		}
		pkts, err := ltEncode(frag, l.mtu, l.repair)
		if err != nil {
			return nil, err
		}
		out = append(out, pkts...)
	}
	return out, nil
}

func (l ltDynamicCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	totalLen := 0
	for _, f := range fragments {
		totalLen += len(f)
	}
	res, err := ltDecode(fragments, totalLen, l.mtu)
	if err != nil {
		return nil, 0, err
	}
	return [][]byte{res}, ltSymbolQuality, nil
}

func (ltDynamicCodec) IsChunking() bool { return true }
func (ltDynamicCodec) IsHeader() bool   { return false }
