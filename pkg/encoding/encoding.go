// Package encoding models the HQFBP encoding stack: the ordered list of
// codec descriptors carried in the Content-Encoding header field, the
// short-code registry, the textual token grammar, and the stack
// normalization rules used by the generator.
package encoding

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Kind identifies one codec in the catalog.
type Kind int

const (
	KindIdentity Kind = iota
	KindH
	KindGzip
	KindDeflate
	KindBrotli
	KindLzma
	KindCRC16
	KindCRC32
	KindAX25
	KindASM
	KindPostASM
	KindReedSolomon
	KindRaptorQ
	KindLT
	KindConv
	KindGolay
	KindScrambler
	KindChunk
	KindRepeat
	KindOtherString
	KindOtherInteger
)

// DefaultSyncWord is the CCSDS attached sync marker used when asm/post_asm
// appear as bare short codes with no explicit parameter.
var DefaultSyncWord = []byte{0x1A, 0xCF, 0xFC, 0x1D}

// Encoding is a single codec descriptor. It is a flat value type so it can
// key the codec factory cache; the sync word is stored as a string for
// comparability.
type Encoding struct {
	Kind Kind

	N, K    int    // rs(n,k), golay(n,k), conv constraint length in N
	Rate    string // conv code rate, e.g. "1/2"
	Len     int    // rq/lt source length; 0 while unresolved dynamic
	MTU     int    // rq/lt symbol size
	Repair  int    // rq/lt repair symbol count
	Percent int    // rq(dlen,mtu,p%) redundancy percentage
	Dynamic bool   // rq/lt "dlen" form, resolved by the generator

	Poly    uint64 // scrambler polynomial mask
	Seed    uint64 // scrambler initial state override
	HasSeed bool

	Sync  string // asm/post_asm sync word bytes
	Size  int    // chunk(n)
	Count int    // repeat(n)

	Label string // OtherString original token
	Code  int8   // OtherInteger original short code
}

// Constructors for the catalog. Parameterized codecs validate nothing here;
// the codec factory rejects bad parameters when an instance is built.

func Identity() Encoding { return Encoding{Kind: KindIdentity} }
func H() Encoding        { return Encoding{Kind: KindH} }
func Gzip() Encoding     { return Encoding{Kind: KindGzip} }
func Deflate() Encoding  { return Encoding{Kind: KindDeflate} }
func Brotli() Encoding   { return Encoding{Kind: KindBrotli} }
func Lzma() Encoding     { return Encoding{Kind: KindLzma} }
func CRC16() Encoding    { return Encoding{Kind: KindCRC16} }
func CRC32() Encoding    { return Encoding{Kind: KindCRC32} }
func AX25() Encoding     { return Encoding{Kind: KindAX25} }

func ASM(sync []byte) Encoding     { return Encoding{Kind: KindASM, Sync: string(sync)} }
func PostASM(sync []byte) Encoding { return Encoding{Kind: KindPostASM, Sync: string(sync)} }

func ReedSolomon(n, k int) Encoding { return Encoding{Kind: KindReedSolomon, N: n, K: k} }

func RaptorQ(length, mtu, repair int) Encoding {
	return Encoding{Kind: KindRaptorQ, Len: length, MTU: mtu, Repair: repair}
}

func RaptorQDynamic(mtu, repair int) Encoding {
	return Encoding{Kind: KindRaptorQ, Dynamic: true, MTU: mtu, Repair: repair}
}

func RaptorQPercent(mtu, percent int) Encoding {
	return Encoding{Kind: KindRaptorQ, Dynamic: true, MTU: mtu, Percent: percent}
}

func LT(length, mtu, repair int) Encoding {
	return Encoding{Kind: KindLT, Len: length, MTU: mtu, Repair: repair}
}

func LTDynamic(mtu, repair int) Encoding {
	return Encoding{Kind: KindLT, Dynamic: true, MTU: mtu, Repair: repair}
}

func Conv(k int, rate string) Encoding { return Encoding{Kind: KindConv, N: k, Rate: rate} }

func Golay() Encoding { return Encoding{Kind: KindGolay, N: 24, K: 12} }

func Scrambler(poly uint64) Encoding { return Encoding{Kind: KindScrambler, Poly: poly} }

func ScramblerSeeded(poly, seed uint64) Encoding {
	return Encoding{Kind: KindScrambler, Poly: poly, Seed: seed, HasSeed: true}
}

func Chunk(size int) Encoding  { return Encoding{Kind: KindChunk, Size: size} }
func Repeat(count int) Encoding { return Encoding{Kind: KindRepeat, Count: count} }

func OtherString(label string) Encoding { return Encoding{Kind: KindOtherString, Label: label} }
func OtherInteger(code int8) Encoding   { return Encoding{Kind: KindOtherInteger, Code: code} }

// IsHeader reports whether this codec writes a protocol header and exposes
// UnpackHeader: the H boundary itself and AX.25 addressing.
func (e Encoding) IsHeader() bool {
	return e.Kind == KindH || e.Kind == KindAX25
}

// IsChunking reports whether encode may change the fragment count. The
// deframer uses it to find reassembly boundaries.
func (e Encoding) IsChunking() bool {
	switch e.Kind {
	case KindChunk, KindRepeat, KindRaptorQ, KindLT, KindH:
		return true
	}
	return false
}

// IsErasure reports whether this codec can complete a session before
// Total-Chunks fragments arrive.
func (e Encoding) IsErasure() bool {
	return e.Kind == KindRaptorQ || e.Kind == KindLT
}

// IsPacketLocal reports whether the codec operates on one PDU body at a
// time, so the deframer may strip it at the per-packet stage instead of at
// reassembly.
func (e Encoding) IsPacketLocal() bool {
	switch e.Kind {
	case KindReedSolomon, KindCRC16, KindCRC32, KindConv, KindGolay,
		KindScrambler, KindChunk, KindASM, KindPostASM:
		return true
	}
	return false
}

// SyncWord returns the asm/post_asm marker bytes.
func (e Encoding) SyncWord() []byte { return []byte(e.Sync) }

// Token renders the descriptor in the textual stack grammar.
func (e Encoding) Token() string {
	switch e.Kind {
	case KindIdentity:
		return "identity"
	case KindH:
		return "h"
	case KindGzip:
		return "gzip"
	case KindDeflate:
		return "deflate"
	case KindBrotli:
		return "br"
	case KindLzma:
		return "lzma"
	case KindCRC16:
		return "crc16"
	case KindCRC32:
		return "crc32"
	case KindAX25:
		return "ax.25"
	case KindASM:
		return fmt.Sprintf("asm(0x%s)", hex.EncodeToString(e.SyncWord()))
	case KindPostASM:
		return fmt.Sprintf("post_asm(0x%s)", hex.EncodeToString(e.SyncWord()))
	case KindReedSolomon:
		return fmt.Sprintf("rs(%d,%d)", e.N, e.K)
	case KindRaptorQ:
		if e.Dynamic {
			if e.Percent > 0 {
				return fmt.Sprintf("rq(dlen,%d,%d%%)", e.MTU, e.Percent)
			}
			return fmt.Sprintf("rq(dlen,%d,%d)", e.MTU, e.Repair)
		}
		return fmt.Sprintf("rq(%d,%d,%d)", e.Len, e.MTU, e.Repair)
	case KindLT:
		if e.Dynamic {
			return fmt.Sprintf("lt(dlen,%d,%d)", e.MTU, e.Repair)
		}
		return fmt.Sprintf("lt(%d,%d,%d)", e.Len, e.MTU, e.Repair)
	case KindConv:
		return fmt.Sprintf("conv(%d,%s)", e.N, e.Rate)
	case KindGolay:
		return fmt.Sprintf("golay(%d,%d)", e.N, e.K)
	case KindScrambler:
		if e.HasSeed {
			return fmt.Sprintf("scr(0x%X,0x%X)", e.Poly, e.Seed)
		}
		return fmt.Sprintf("scr(0x%X)", e.Poly)
	case KindChunk:
		return fmt.Sprintf("chunk(%d)", e.Size)
	case KindRepeat:
		return fmt.Sprintf("repeat(%d)", e.Count)
	case KindOtherString:
		return e.Label
	case KindOtherInteger:
		return fmt.Sprintf("%d", e.Code)
	}
	return "identity"
}

func (e Encoding) String() string { return e.Token() }

// List is an ordered encoding stack. The position of the H entry splits it
// into the pre-boundary (payload domain) and post-boundary (whole PDU
// domain) phases.
type List []Encoding

// Clone returns a copy safe to mutate.
func (l List) Clone() List {
	out := make(List, len(l))
	copy(out, l)
	return out
}

// BoundaryIndex returns the index of the last header codec, or -1.
func (l List) BoundaryIndex() int {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].IsHeader() {
			return i
		}
	}
	return -1
}

// Split divides the stack at the header boundary. The boundary entry itself
// belongs to neither half; ok is false when the stack has no boundary.
func (l List) Split() (pre, post List, boundary Encoding, ok bool) {
	idx := l.BoundaryIndex()
	if idx < 0 {
		return l.Clone(), nil, Encoding{}, false
	}
	return l[:idx].Clone(), l[idx+1:].Clone(), l[idx], true
}

// HasCombiner reports whether any entry can collapse several fragments into
// one on decode.
func (l List) HasCombiner() bool {
	for _, e := range l {
		if e.IsChunking() {
			return true
		}
	}
	return false
}

// Normalize prepares a stack for transmission: H is appended when the stack
// has no header codec (H or AX.25); header entries already present are kept,
// so duplicate H entries are not removed. A synthetic chunk(maxPayload) goes
// immediately before the boundary when the pre-boundary half has no chunk(n)
// entry and a payload cap was supplied.
func (l List) Normalize(maxPayload int) List {
	encs := l.Clone()
	if encs.BoundaryIndex() < 0 {
		encs = append(encs, H())
	}

	boundary := encs.BoundaryIndex()
	hasChunk := false
	for _, e := range encs[:boundary] {
		if e.Kind == KindChunk {
			hasChunk = true
			break
		}
	}
	if hasChunk || maxPayload <= 0 {
		return encs
	}

	out := make(List, 0, len(encs)+1)
	out = append(out, encs[:boundary]...)
	out = append(out, Chunk(maxPayload))
	out = append(out, encs[boundary:]...)
	return out
}

func (l List) String() string {
	tokens := make([]string, len(l))
	for i, e := range l {
		tokens[i] = e.Token()
	}
	return strings.Join(tokens, ",")
}
