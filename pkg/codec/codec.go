// Package codec implements the HQFBP codec catalog behind a uniform
// four-operation contract, plus the factory cache the generator and
// deframer share. Codecs are pure: one instance per descriptor serves any
// number of concurrent pipelines.
package codec

import (
	"math"

	"github.com/marmos91/hqfbp/pkg/encoding"
	"github.com/marmos91/hqfbp/pkg/header"
)

// Context carries sender-side state through a forward stack traversal.
// Dynamic codecs rewrite their entry in Encodings so the header records
// resolved parameters; the H codec consumes message ids and accumulates
// header-size statistics.
type Context struct {
	SrcCallsign string
	DstCallsign string

	NextMessageID     uint32
	OriginalMessageID uint32

	MinHeaderSize   int
	MaxHeaderSize   int
	TotalHeaderSize int

	FileSize *uint64
	Media    *header.MediaType

	Encodings encoding.List
	// Index is the position of the codec currently encoding, so dynamic
	// codecs can rewrite their own entry.
	Index int
}

// NewContext returns a context with header-size statistics reset.
func NewContext() *Context {
	return &Context{MinHeaderSize: math.MaxInt}
}

// Codec is the uniform transform contract. Encode runs forward over a list
// of fragments and may preserve, expand, or collapse the count. TryDecode
// runs the reverse transform and reports a quality credit: accumulated
// CRC/FEC headroom used by the deframer to rank duplicate fragments.
type Codec interface {
	Encode(fragments [][]byte, ctx *Context) ([][]byte, error)
	TryDecode(fragments [][]byte) ([][]byte, float64, error)

	// IsChunking reports whether Encode can change the fragment count.
	IsChunking() bool
	// IsHeader reports whether this codec writes a protocol header.
	IsHeader() bool
}

// HeaderCodec is implemented by the two codecs able to parse a header off
// the front of a PDU: H and AX.25.
type HeaderCodec interface {
	Codec
	UnpackHeader(data []byte) (*header.Header, []byte, error)
}
