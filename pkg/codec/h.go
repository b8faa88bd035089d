package codec

import (
	"github.com/marmos91/hqfbp/pkg/header"
)

// hCodec is the header boundary. Encoding wraps every fragment in a packed
// HQFBP header built from the sender context: a fresh Message-Id per
// fragment, Chunk-Id/Total-Chunks/Original-Message-Id when the message
// spans more than one fragment, Payload-Size, the fully resolved encoding
// list, and the media type on chunk 0 only. The reverse direction is a
// byte-level join; the deframer parses headers through UnpackHeader
// instead.
type hCodec struct{}

func (hCodec) Encode(fragments [][]byte, ctx *Context) ([][]byte, error) {
	totalChunks := uint32(len(fragments))
	dataOrigID := ctx.NextMessageID

	template := header.Header{
		FileSize: ctx.FileSize,
	}
	if ctx.SrcCallsign != "" {
		template.SrcCallsign = header.Ptr(ctx.SrcCallsign)
	}
	if ctx.DstCallsign != "" {
		template.DstCallsign = header.Ptr(ctx.DstCallsign)
	}
	template.SetMedia(ctx.Media)

	out := make([][]byte, 0, len(fragments))
	for idx, frag := range fragments {
		h := template.Clone()

		var msgID uint32
		if idx == 0 {
			msgID = dataOrigID
			if ctx.NextMessageID == msgID {
				ctx.NextMessageID++
			}
		} else {
			msgID = ctx.NextMessageID
			ctx.NextMessageID++
		}

		if totalChunks > 1 {
			h.TotalChunks = header.Ptr(totalChunks)
			h.ChunkID = header.Ptr(uint32(idx))
			h.OriginalMessageID = header.Ptr(dataOrigID)
		}
		h.MessageID = header.Ptr(msgID)

		if idx > 0 {
			h.SetMedia(nil)
		}

		h.SetEncodings(ctx.Encodings)

		packed, err := header.Pack(h, frag)
		if err != nil {
			return nil, err
		}
		hSize := len(packed) - len(frag)
		ctx.MinHeaderSize = min(ctx.MinHeaderSize, hSize)
		ctx.MaxHeaderSize = max(ctx.MaxHeaderSize, hSize)
		ctx.TotalHeaderSize += hSize

		out = append(out, packed)
	}
	return out, nil
}

func (hCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	if len(fragments) == 0 {
		return nil, 1, nil
	}
	total := 0
	for _, f := range fragments {
		total += len(f)
	}
	joined := make([]byte, 0, total)
	for _, f := range fragments {
		joined = append(joined, f...)
	}
	return [][]byte{joined}, 1, nil
}

func (hCodec) UnpackHeader(data []byte) (*header.Header, []byte, error) {
	return header.Unpack(data)
}

func (hCodec) IsChunking() bool { return true }
func (hCodec) IsHeader() bool   { return true }
