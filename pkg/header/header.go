// Package header implements the HQFBP wire header: a CBOR map keyed by
// small unsigned integers, immediately followed by the PDU body. All fields
// are optional except Message-Id, which every non-announcement PDU must
// carry.
package header

import (
	"bytes"
	"fmt"

	"github.com/marmos91/hqfbp/pkg/encoding"
)

// Header is the HQFBP PDU header.
//
// CBOR map keys:
//
//	0  Message-Id            per-PDU identity, monotone within a sender
//	1  Src-Callsign          sender identity
//	2  Dst-Callsign          optional recipient
//	3  Content-Format        CoAP numeric media type
//	4  Content-Type          textual media type fallback
//	5  Content-Encoding      polymorphic encoding list
//	6  Repr-Digest           digest of the wire representation
//	7  Content-Digest        digest of the decoded content
//	8  File-Size             length of the reassembled message
//	9  Chunk-Id              0-based fragment index
//	10 Original-Message-Id   session key; Message-Id of chunk 0
//	11 Total-Chunks          fragment count for this session
//	12 Payload-Size          PDU body size before post-boundary codecs
type Header struct {
	MessageID         *uint32        `cbor:"0,keyasint,omitempty"`
	SrcCallsign       *string        `cbor:"1,keyasint,omitempty"`
	DstCallsign       *string        `cbor:"2,keyasint,omitempty"`
	ContentFormat     *uint16        `cbor:"3,keyasint,omitempty"`
	ContentType       *string        `cbor:"4,keyasint,omitempty"`
	ContentEncoding   *encoding.List `cbor:"5,keyasint,omitempty"`
	ReprDigest        []byte         `cbor:"6,keyasint,omitempty"`
	ContentDigest     []byte         `cbor:"7,keyasint,omitempty"`
	FileSize          *uint64        `cbor:"8,keyasint,omitempty"`
	ChunkID           *uint32        `cbor:"9,keyasint,omitempty"`
	OriginalMessageID *uint32        `cbor:"10,keyasint,omitempty"`
	TotalChunks       *uint32        `cbor:"11,keyasint,omitempty"`
	PayloadSize       *uint64        `cbor:"12,keyasint,omitempty"`
}

// Ptr returns a pointer to v, for building headers with optional fields.
func Ptr[T any](v T) *T { return &v }

// Clone returns a deep copy.
func (h *Header) Clone() *Header {
	out := &Header{}
	out.MessageID = clonePtr(h.MessageID)
	out.SrcCallsign = clonePtr(h.SrcCallsign)
	out.DstCallsign = clonePtr(h.DstCallsign)
	out.ContentFormat = clonePtr(h.ContentFormat)
	out.ContentType = clonePtr(h.ContentType)
	if h.ContentEncoding != nil {
		ce := h.ContentEncoding.Clone()
		out.ContentEncoding = &ce
	}
	out.ReprDigest = bytes.Clone(h.ReprDigest)
	out.ContentDigest = bytes.Clone(h.ContentDigest)
	out.FileSize = clonePtr(h.FileSize)
	out.ChunkID = clonePtr(h.ChunkID)
	out.OriginalMessageID = clonePtr(h.OriginalMessageID)
	out.TotalChunks = clonePtr(h.TotalChunks)
	out.PayloadSize = clonePtr(h.PayloadSize)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Encodings returns the carried encoding list, or nil.
func (h *Header) Encodings() encoding.List {
	if h.ContentEncoding == nil {
		return nil
	}
	return *h.ContentEncoding
}

// SetEncodings replaces the encoding list; an empty list clears the field.
func (h *Header) SetEncodings(l encoding.List) {
	if len(l) == 0 {
		h.ContentEncoding = nil
		return
	}
	c := l.Clone()
	h.ContentEncoding = &c
}

// Merge folds other into h. Src-Callsign, Repr-Digest and File-Size must
// agree when both sides carry them; every other field takes the first
// non-nil value.
func (h *Header) Merge(other *Header) error {
	if err := mergeConsistent(&h.SrcCallsign, other.SrcCallsign, "Src-Callsign"); err != nil {
		return err
	}
	mergeFirst(&h.DstCallsign, other.DstCallsign)
	mergeFirst(&h.ContentFormat, other.ContentFormat)
	mergeFirst(&h.ContentType, other.ContentType)
	if h.ContentEncoding == nil && other.ContentEncoding != nil {
		ce := other.ContentEncoding.Clone()
		h.ContentEncoding = &ce
	}
	if other.ReprDigest != nil {
		if h.ReprDigest != nil {
			if !bytes.Equal(h.ReprDigest, other.ReprDigest) {
				return fmt.Errorf("%w: Repr-Digest", ErrInconsistentField)
			}
		} else {
			h.ReprDigest = bytes.Clone(other.ReprDigest)
		}
	}
	if h.ContentDigest == nil && other.ContentDigest != nil {
		h.ContentDigest = bytes.Clone(other.ContentDigest)
	}
	if err := mergeConsistent(&h.FileSize, other.FileSize, "File-Size"); err != nil {
		return err
	}
	mergeFirst(&h.PayloadSize, other.PayloadSize)
	return nil
}

func mergeFirst[T any](dst **T, src *T) {
	if *dst == nil && src != nil {
		*dst = clonePtr(src)
	}
}

func mergeConsistent[T comparable](dst **T, src *T, field string) error {
	if src == nil {
		return nil
	}
	if *dst != nil {
		if **dst != *src {
			return fmt.Errorf("%w: %s", ErrInconsistentField, field)
		}
		return nil
	}
	*dst = clonePtr(src)
	return nil
}

// StripChunking clears the per-fragment bookkeeping fields after a session
// is reassembled into one message.
func (h *Header) StripChunking() {
	h.MessageID = nil
	h.ChunkID = nil
	h.OriginalMessageID = nil
	h.TotalChunks = nil
}
