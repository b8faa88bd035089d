package codec

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// asmCodec prepends an attached sync marker to every fragment. The decoder
// requires an exact prefix match.
type asmCodec struct {
	sync []byte
}

func (a asmCodec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		d := make([]byte, 0, len(a.sync)+len(frag))
		d = append(d, a.sync...)
		d = append(d, frag...)
		out = append(out, d)
	}
	return out, nil
}

func (a asmCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		if !bytes.HasPrefix(frag, a.sync) {
			return nil, 0, fmt.Errorf("%w: asm sync word %s not found",
				ErrFECFailure, hex.EncodeToString(a.sync))
		}
		out = append(out, frag[len(a.sync):])
	}
	return out, float64(crcQuality), nil
}

func (asmCodec) IsChunking() bool { return false }
func (asmCodec) IsHeader() bool   { return false }

// postASMCodec appends the sync marker. The decoder scans backwards for the
// last occurrence, truncating it and any trailing garbage a downstream
// codec may have added.
type postASMCodec struct {
	sync []byte
}

func (p postASMCodec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		d := make([]byte, 0, len(frag)+len(p.sync))
		d = append(d, frag...)
		d = append(d, p.sync...)
		out = append(out, d)
	}
	return out, nil
}

func (p postASMCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		pos := bytes.LastIndex(frag, p.sync)
		if pos < 0 {
			return nil, 0, fmt.Errorf("%w: post-asm sync word %s not found",
				ErrFECFailure, hex.EncodeToString(p.sync))
		}
		out = append(out, frag[:pos])
	}
	return out, float64(crcQuality), nil
}

func (postASMCodec) IsChunking() bool { return false }
func (postASMCodec) IsHeader() bool   { return false }
