// Package generator turns application payloads into HQFBP PDUs by folding
// them forward through an encoding stack.
package generator

import (
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/marmos91/hqfbp/pkg/codec"
	"github.com/marmos91/hqfbp/pkg/encoding"
	"github.com/marmos91/hqfbp/pkg/header"
	"github.com/marmos91/hqfbp/pkg/metrics"
)

// HeaderStats are the header sizes observed over the PDUs of the last
// Generate call, for link budget diagnostics.
type HeaderStats struct {
	Min, Max, Total int
}

// Generator emits the PDUs of one sender. It is not safe for concurrent
// use; callers drive it synchronously.
type Generator struct {
	srcCallsign    string
	dstCallsign    string
	maxPayloadSize int
	encodings      encoding.List
	announcement   *Generator
	nextMessageID  uint32
	stats          HeaderStats

	factory *codec.Factory
}

// Options configures a Generator. Zero values mean "absent": no callsigns,
// no payload cap, an empty stack (normalized to a bare H), no announcement.
type Options struct {
	SrcCallsign    string
	DstCallsign    string
	MaxPayloadSize int
	Encodings      encoding.List
	// Announcement, when set, makes every Generate emit a leading
	// announcement PDU built with this stack, describing the data stack.
	Announcement encoding.List
	// StartMessageID seeds the Message-Id counter.
	StartMessageID uint32
}

// New builds a generator from options.
func New(opts Options) *Generator {
	g := &Generator{
		srcCallsign:    opts.SrcCallsign,
		dstCallsign:    opts.DstCallsign,
		maxPayloadSize: opts.MaxPayloadSize,
		encodings:      opts.Encodings.Clone(),
		nextMessageID:  opts.StartMessageID,
		factory:        codec.NewFactory(),
	}
	if opts.Announcement != nil {
		g.announcement = New(Options{
			SrcCallsign:    opts.SrcCallsign,
			DstCallsign:    opts.DstCallsign,
			Encodings:      opts.Announcement,
			StartMessageID: opts.StartMessageID,
		})
	}
	return g
}

// LastHeaderStats returns the header-size statistics of the last Generate.
func (g *Generator) LastHeaderStats() HeaderStats { return g.stats }

// ResolveEncodings normalizes the configured stack for transmission: H
// appended when no header codec is present, plus a synthetic
// chunk(maxPayloadSize) before the boundary
// when no explicit chunk exists and a cap was configured.
func (g *Generator) ResolveEncodings() encoding.List {
	return g.encodings.Normalize(g.maxPayloadSize)
}

// Generate folds data through the stack and returns the ordered PDUs,
// announcement first when one is configured. mediaType may be nil.
func (g *Generator) Generate(data []byte, mediaType *header.MediaType) ([][]byte, error) {
	fileSize := uint64(len(data))
	fullEncs := g.ResolveEncodings()

	fragments := [][]byte{data}

	var annMsgID uint32
	hasAnnouncement := g.announcement != nil
	if hasAnnouncement {
		annMsgID = g.nextMessageID
		g.nextMessageID++
	}
	dataOrigID := g.nextMessageID

	ctx := codec.NewContext()
	ctx.SrcCallsign = g.srcCallsign
	ctx.DstCallsign = g.dstCallsign
	ctx.NextMessageID = g.nextMessageID
	ctx.OriginalMessageID = dataOrigID
	ctx.FileSize = &fileSize
	ctx.Media = mediaType
	ctx.Encodings = fullEncs.Clone()

	for i, enc := range fullEncs {
		ctx.Index = i
		var err error
		fragments, err = g.factory.Get(enc).Encode(fragments, ctx)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", enc.Token(), err)
		}
	}

	g.nextMessageID = ctx.NextMessageID
	g.stats = HeaderStats{Min: ctx.MinHeaderSize, Max: ctx.MaxHeaderSize, Total: ctx.TotalHeaderSize}
	if g.stats.Min == math.MaxInt {
		g.stats.Min = 0
	}

	// The announcement sub-generator counts its own PDUs.
	metrics.PDUsGenerated.Add(float64(len(fragments)))
	metrics.MessagesGenerated.Inc()

	var pdus [][]byte
	if hasAnnouncement {
		annPDUs, err := g.generateAnnouncement(annMsgID, dataOrigID, fileSize, mediaType, ctx.Encodings)
		if err != nil {
			return nil, err
		}
		pdus = append(pdus, annPDUs...)
	}
	pdus = append(pdus, fragments...)
	return pdus, nil
}

// generateAnnouncement builds the announcement PDU: its body is a CBOR
// Header carrying the data message's original id and its fully resolved
// stack (dynamic entries already rewritten), wrapped by the announcement
// stack under the hqfbp media type.
func (g *Generator) generateAnnouncement(annMsgID, dataOrigID uint32, fileSize uint64, mediaType *header.MediaType, resolved encoding.List) ([][]byte, error) {
	ann := g.announcement
	ann.nextMessageID = annMsgID

	body := header.Header{
		MessageID: header.Ptr(dataOrigID),
	}
	body.SetEncodings(resolved)
	body.SetMedia(mediaType)

	bodyBytes, err := cbor.Marshal(&body)
	if err != nil {
		return nil, fmt.Errorf("announcement body encode: %w", err)
	}

	annMedia := header.NamedMedia(header.AnnouncementMediaName)
	pdus, err := ann.Generate(bodyBytes, &annMedia)
	if err != nil {
		return nil, fmt.Errorf("announcement generate: %w", err)
	}

	annStats := ann.LastHeaderStats()
	if annStats.Min > 0 {
		g.stats.Min = min(g.stats.Min, annStats.Min)
	}
	g.stats.Max = max(g.stats.Max, annStats.Max)
	g.stats.Total += annStats.Total

	return pdus, nil
}
