package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/marmos91/hqfbp/pkg/encoding"
	"github.com/xssnick/raptorq"
)

// RaptorQ (RFC 6330) systematic fountain code. Packets are a 4-byte
// big-endian encoded-symbol identifier followed by exactly one MTU-sized
// symbol; with a single source block the identifier matches the RFC payload
// id. Encoding over L bytes yields K = ceil(L/MTU) source symbols plus the
// requested repair symbols. On decode, packets longer than MTU+4 are
// trimmed (an outer codec may have padded them) and shorter ones dropped.

const rqSymbolQuality = 10

func rqEncode(data []byte, length, mtu, repair int) ([][]byte, error) {
	if mtu <= 0 || mtu > 0xFFFF || length <= 0 {
		return nil, fmt.Errorf("%w: rq(%d,%d,%d)", ErrInvalidParameters, length, mtu, repair)
	}
	padded := make([]byte, length)
	copy(padded, data)

	enc, err := raptorq.NewRaptorQ(uint32(mtu)).CreateEncoder(padded)
	if err != nil {
		return nil, fmt.Errorf("%w: raptorq encoder: %v", ErrInvalidParameters, err)
	}

	k := (length + mtu - 1) / mtu
	total := k + repair
	out := make([][]byte, 0, total)
	for esi := 0; esi < total; esi++ {
		sym := enc.GenSymbol(uint32(esi))
		pkt := make([]byte, 4+len(sym))
		binary.BigEndian.PutUint32(pkt[:4], uint32(esi))
		copy(pkt[4:], sym)
		out = append(out, pkt)
	}
	return out, nil
}

func rqDecode(packets [][]byte, length, mtu int) ([]byte, error) {
	if mtu <= 0 || length <= 0 {
		return nil, fmt.Errorf("%w: rq(%d,%d)", ErrInvalidParameters, length, mtu)
	}
	dec, err := raptorq.NewRaptorQ(uint32(mtu)).CreateDecoder(uint32(length))
	if err != nil {
		return nil, fmt.Errorf("%w: raptorq decoder: %v", ErrInvalidParameters, err)
	}

	expected := mtu + 4
	for _, pkt := range packets {
		if len(pkt) < expected {
			continue
		}
		if len(pkt) > expected {
			pkt = pkt[:expected]
		}
		esi := binary.BigEndian.Uint32(pkt[:4])
		canTry, err := dec.AddSymbol(esi, pkt[4:])
		if err != nil {
			continue
		}
		if !canTry {
			continue
		}
		done, data, err := dec.Decode()
		if err != nil {
			continue
		}
		if done {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: raptorq decoding needs more symbols", ErrInsufficientData)
}

type rqCodec struct {
	length, mtu, repair int
}

func (r rqCodec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	var out [][]byte
	for _, frag := range fragments {
		pkts, err := rqEncode(frag, r.length, r.mtu, r.repair)
		if err != nil {
			return nil, err
		}
		out = append(out, pkts...)
	}
	return out, nil
}

func (r rqCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	res, err := rqDecode(fragments, r.length, r.mtu)
	if err != nil {
		return nil, 0, err
	}
	return [][]byte{res}, rqSymbolQuality, nil
}

func (rqCodec) IsChunking() bool { return true }
func (rqCodec) IsHeader() bool   { return false }

// rqDynamicCodec resolves the source length from the fragment it encodes
// and rewrites its stack entry so the header carries rq(len,mtu,rep).
type rqDynamicCodec struct {
	mtu, repair int
}

func (r rqDynamicCodec) Encode(fragments [][]byte, ctx *Context) ([][]byte, error) {
	var out [][]byte
	for _, frag := range fragments {
		if ctx != nil && ctx.Index < len(ctx.Encodings) {
			ctx.Encodings[ctx.Index] = encoding.RaptorQ(len(frag), r.mtu, r.repair)
		}
		pkts, err := rqEncode(frag, len(frag), r.mtu, r.repair)
		if err != nil {
			return nil, err
		}
		out = append(out, pkts...)
	}
	return out, nil
}

func (r rqDynamicCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	totalLen := 0
	for _, f := range fragments {
		totalLen += len(f)
	}
	res, err := rqDecode(fragments, totalLen, r.mtu)
	if err != nil {
		return nil, 0, err
	}
	return [][]byte{res}, rqSymbolQuality, nil
}

func (rqDynamicCodec) IsChunking() bool { return true }
func (rqDynamicCodec) IsHeader() bool   { return false }

// rqPercentCodec sizes the repair budget as a percentage of the source
// length: R = max(1, ceil(L*p/(100*MTU))).
type rqPercentCodec struct {
	mtu, percent int
}

func (r rqPercentCodec) Encode(fragments [][]byte, ctx *Context) ([][]byte, error) {
	var out [][]byte
	for _, frag := range fragments {
		repairs := max(1, (len(frag)*r.percent+100*r.mtu-1)/(100*r.mtu))
		if ctx != nil && ctx.Index < len(ctx.Encodings) {
			ctx.Encodings[ctx.Index] = encoding.RaptorQ(len(frag), r.mtu, repairs)
		}
		pkts, err := rqEncode(frag, len(frag), r.mtu, repairs)
		if err != nil {
			return nil, err
		}
		out = append(out, pkts...)
	}
	return out, nil
}

func (r rqPercentCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	totalLen := 0
	for _, f := range fragments {
		totalLen += len(f)
	}
	res, err := rqDecode(fragments, totalLen, r.mtu)
	if err != nil {
		return nil, 0, err
	}
	return [][]byte{res}, rqSymbolQuality, nil
}

func (rqPercentCodec) IsChunking() bool { return true }
func (rqPercentCodec) IsHeader() bool   { return false }
