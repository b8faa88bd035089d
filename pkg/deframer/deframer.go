// Package deframer implements the receiver side of HQFBP: a stateful,
// single-threaded reassembly engine that ingests PDUs one at a time,
// opportunistically strips codecs (including blind retries when the header
// cannot be parsed), groups fragments into sessions and emits ordered
// decode and reassembly events.
package deframer

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/fxamacker/cbor/v2"
	"github.com/marmos91/hqfbp/pkg/codec"
	"github.com/marmos91/hqfbp/pkg/encoding"
	"github.com/marmos91/hqfbp/pkg/header"
	"github.com/marmos91/hqfbp/pkg/metrics"
)

// holdingCap bounds the buffer of packets not yet attributed to a session.
// Heuristic retries are O(buffer * announcements) per arrival, so this must
// stay small.
const holdingCap = 100

// maxNestingDepth bounds recursive decoding of messages that are themselves
// PDUs. One level covers every stack in the catalog.
const maxNestingDepth = 2

// Event is either a PDUEvent or a MessageEvent, delivered in the exact
// order decodes and completions occur.
type Event interface {
	event()
}

// PDUEvent reports one decoded PDU.
type PDUEvent struct {
	Header  *header.Header
	Payload []byte
}

// MessageEvent reports one fully reassembled message.
type MessageEvent struct {
	Header  *header.Header
	Payload []byte
}

func (PDUEvent) event()     {}
func (MessageEvent) event() {}

type sessionKey struct {
	src string
	id  uint32
}

type fragment struct {
	payload []byte
	quality int
}

// session is the receiver-side state of one original message.
type session struct {
	chunks      map[uint32]fragment
	headers     []*header.Header
	totalChunks uint32
}

// Deframer ingests packets via ReceiveBytes and yields events via
// NextEvent. It is strictly single-threaded: no internal locking, no
// timers, no I/O.
type Deframer struct {
	events        []Event
	sessions      map[sessionKey]*session
	announcements map[sessionKey]encoding.List
	holding       [][]byte
	factory       *codec.Factory
	depth         int
}

// New returns an empty deframer.
func New() *Deframer {
	return &Deframer{
		sessions:      make(map[sessionKey]*session),
		announcements: make(map[sessionKey]encoding.List),
		factory:       codec.NewFactory(),
	}
}

// NextEvent pops the oldest pending event, or nil.
func (d *Deframer) NextEvent() Event {
	if len(d.events) == 0 {
		return nil
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev
}

// RegisterAnnouncement seeds the announcement table out of band: packets
// from src whose (Original-)Message-Id equals msgID decode with stack.
func (d *Deframer) RegisterAnnouncement(src string, msgID uint32, stack encoding.List) {
	d.announcements[sessionKey{src: src, id: msgID}] = stack.Clone()
}

// Reset drops all sessions, pending events, held packets and learned
// announcements.
func (d *Deframer) Reset() {
	metrics.SessionsActive.Sub(float64(len(d.sessions)))
	d.events = nil
	d.sessions = make(map[sessionKey]*session)
	d.announcements = make(map[sessionKey]encoding.List)
	d.holding = nil
}

// ReceiveBytes ingests one packet. It never blocks and may queue zero or
// more events. Zero-length input is ignored.
func (d *Deframer) ReceiveBytes(data []byte) {
	if len(data) == 0 {
		return
	}
	if d.depth == 0 {
		metrics.PDUsReceived.Inc()
	}
	b := bytes.Clone(data)

	var hdr *header.Header
	var payload []byte
	quality := 0

	// Phase 1: direct peek with the standard H header. The announcement
	// table takes precedence over the stack the peeked header carries.
	if peekHdr, peekPayload, err := header.Unpack(b); err == nil {
		ceList := d.lookupStack(peekHdr)
		if ceList != nil {
			if h2, p2, q, ok := d.decodeWithStack(b, ceList); ok {
				hdr, payload, quality = h2, p2, q
			}
		} else {
			hdr, payload = peekHdr, peekPayload
		}
	}

	// Phase 2: blind heuristic over every known announcement.
	if hdr == nil {
		if d.heuristicRecover(b) {
			return
		}
		d.hold(b)
		return
	}

	d.processPDU(hdr, payload, quality)
}

// lookupStack picks the stack to decode a peeked PDU with: the
// announcement table entry for (Src, Original-Message-Id ?? Message-Id)
// when one exists, the header's own Content-Encoding otherwise.
func (d *Deframer) lookupStack(peek *header.Header) encoding.List {
	src := deref(peek.SrcCallsign)
	var targetID *uint32
	if peek.OriginalMessageID != nil {
		targetID = peek.OriginalMessageID
	} else {
		targetID = peek.MessageID
	}
	if targetID != nil {
		if ann, ok := d.announcements[sessionKey{src: src, id: *targetID}]; ok {
			return ann
		}
	}
	return peek.Encodings()
}

// decodeWithStack runs the full per-packet pipeline for one candidate
// stack: post-boundary decoders over the raw bytes, header re-parse via
// the stack's boundary codec, Payload-Size validation, post-boundary strip
// and packet-local pre-boundary decode.
func (d *Deframer) decodeWithStack(raw []byte, ceList encoding.List) (*header.Header, []byte, int, bool) {
	_, post, boundary, hasBoundary := ceList.Split()
	if !hasBoundary {
		return nil, nil, 0, false
	}
	hc, ok := d.factory.Get(boundary).(codec.HeaderCodec)
	if !ok {
		return nil, nil, 0, false
	}

	cleanPDU, q, err := d.applyDecodersMulti([][]byte{raw}, post)
	if err != nil {
		return nil, nil, 0, false
	}

	h2, p2, err := hc.UnpackHeader(cleanPDU)
	if err != nil {
		return nil, nil, 0, false
	}
	if h2.PayloadSize != nil {
		ps := *h2.PayloadSize
		if uint64(len(p2)) < ps {
			return nil, nil, 0, false
		}
		p2 = p2[:ps]
	}

	d.stripPostBoundary(h2)
	p3, qGain, err := d.applyPDULevelDecoders(h2, p2)
	if err != nil {
		return nil, nil, 0, false
	}
	return h2, p3, q + qGain, true
}

// heuristicRecover retries an unparseable packet against every known
// announcement: alone first (per-PDU local FEC may still hold), then
// grouped with the holding buffer when the stack's post-boundary phase
// contains a combiner. Returns true when the packet landed somewhere.
func (d *Deframer) heuristicRecover(b []byte) bool {
	keys := make([]sessionKey, 0, len(d.announcements))
	for k := range d.announcements {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b sessionKey) int {
		if a.src != b.src {
			if a.src < b.src {
				return -1
			}
			return 1
		}
		return int(int64(a.id) - int64(b.id))
	})

	for _, key := range keys {
		annEncs := d.announcements[key]

		if h2, p2, q, ok := d.decodeWithStack(b, annEncs); ok {
			if !d.hasBetterCopy(h2, q) {
				d.processPDU(h2, p2, q)
				d.holding = nil
				return true
			}
			continue
		}

		_, post, _, hasBoundary := annEncs.Split()
		if !hasBoundary || !post.HasCombiner() {
			continue
		}

		tryList := make([][]byte, 0, len(d.holding)+1)
		tryList = append(tryList, d.holding...)
		tryList = append(tryList, b)

		joined, q, err := d.applyDecodersMulti(tryList, post)
		if err != nil {
			continue
		}
		// The group pipeline already consumed the post-boundary phase;
		// re-parse with an empty post stack.
		boundaryOnly := encoding.List{annEncs[annEncs.BoundaryIndex()]}
		h2, p2, qGain, ok := d.decodeWithStack(joined, boundaryOnly)
		if !ok {
			continue
		}
		if d.hasBetterCopy(h2, q+qGain) {
			continue
		}
		d.processPDU(h2, p2, q+qGain)
		d.holding = nil
		return true
	}
	return false
}

func (d *Deframer) hold(b []byte) {
	d.holding = append(d.holding, b)
	if len(d.holding) > holdingCap {
		d.holding = d.holding[1:]
	}
	metrics.PDUsHeld.Inc()
}

// hasBetterCopy reports whether the session already stores this chunk with
// at least the given quality.
func (d *Deframer) hasBetterCopy(h *header.Header, quality int) bool {
	origID := h.OriginalMessageID
	if origID == nil {
		origID = h.MessageID
	}
	if origID == nil {
		return false
	}
	s, ok := d.sessions[sessionKey{src: deref(h.SrcCallsign), id: *origID}]
	if !ok {
		return false
	}
	existing, ok := s.chunks[derefU32(h.ChunkID)]
	return ok && existing.quality >= quality
}

// applyDecodersMulti walks a stack segment from its last entry to its first
// (decode order) over a fragment list, accumulating quality, and joins the
// result into one byte string.
func (d *Deframer) applyDecodersMulti(input [][]byte, encs encoding.List) ([]byte, int, error) {
	fragments, quality, err := d.decodeFragments(input, encs)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	for _, f := range fragments {
		total += len(f)
	}
	if total == 0 {
		return nil, 0, fmt.Errorf("empty data after decoding")
	}
	joined := make([]byte, 0, total)
	for _, f := range fragments {
		joined = append(joined, f...)
	}
	return joined, quality, nil
}

func (d *Deframer) decodeFragments(input [][]byte, encs encoding.List) ([][]byte, int, error) {
	current := input
	quality := 0.0
	for i := len(encs) - 1; i >= 0; i-- {
		res, q, err := d.factory.Get(encs[i]).TryDecode(current)
		if err != nil {
			return nil, 0, err
		}
		current = res
		quality += q
	}
	return current, int(quality), nil
}

// applyPDULevelDecoders strips the packet-local tail of the pre-boundary
// stack: every codec after the last non-local step operates on one PDU body
// at a time and is consumed here rather than at reassembly. The header's
// encoding list is truncated to match.
func (d *Deframer) applyPDULevelDecoders(h *header.Header, payload []byte) ([]byte, int, error) {
	pre, _, _, _ := h.Encodings().Split()

	if h.PayloadSize != nil && uint64(len(payload)) > *h.PayloadSize {
		payload = payload[:*h.PayloadSize]
	}

	first := len(pre)
	for first > 0 && pre[first-1].IsPacketLocal() {
		first--
	}
	toApply := pre[first:]
	if len(toApply) == 0 {
		return payload, 0, nil
	}

	h.SetEncodings(h.Encodings()[:len(h.Encodings())-len(toApply)])

	return d.applyDecodersMulti([][]byte{payload}, toApply)
}

// stripPostBoundary drops the boundary entry and everything after it from
// the header's stack: those codecs were consumed before the header was
// re-parsed.
func (d *Deframer) stripPostBoundary(h *header.Header) {
	ce := h.Encodings()
	idx := ce.BoundaryIndex()
	if idx < 0 {
		return
	}
	h.SetEncodings(ce[:idx])
}

// processPDU queues the PDU event and folds the fragment into its session.
func (d *Deframer) processPDU(h *header.Header, payload []byte, quality int) {
	d.events = append(d.events, PDUEvent{Header: h, Payload: payload})
	metrics.PDUsDecoded.Inc()

	origID := h.OriginalMessageID
	if origID == nil {
		origID = h.MessageID
	}
	if origID == nil {
		// No session identity at all; surface what we have.
		d.events = append(d.events, MessageEvent{Header: h, Payload: payload})
		return
	}

	src := deref(h.SrcCallsign)
	key := sessionKey{src: src, id: *origID}
	chunkID := derefU32(h.ChunkID)
	totalChunks := derefU32(h.TotalChunks)
	if totalChunks == 0 {
		totalChunks = 1
	}

	s, ok := d.sessions[key]
	if !ok {
		s = &session{chunks: make(map[uint32]fragment), totalChunks: totalChunks}
		d.sessions[key] = s
		metrics.SessionsActive.Inc()
	}
	if s.totalChunks == 1 && totalChunks > 1 {
		s.totalChunks = totalChunks
	}

	existing, have := s.chunks[chunkID]
	if have && existing.quality >= quality {
		return
	}
	s.chunks[chunkID] = fragment{payload: payload, quality: quality}
	s.headers = append(s.headers, h)

	isAnnouncement := h.IsAnnouncement()

	completed := uint32(len(s.chunks)) >= s.totalChunks
	if !completed {
		if threshold, ok := erasureThreshold(h.Encodings()); ok {
			// Early completion: an erasure code lowers the number of
			// fragments a session must collect.
			if len(s.chunks) >= threshold && d.completeMessage(key) {
				return
			}
		} else if h.Encodings().HasCombiner() && len(s.chunks) > 1 {
			if d.completeMessage(key) {
				return
			}
		}
	}

	if isAnnouncement {
		d.learnAnnouncement(src, payload)
	}
	if completed {
		d.completeMessage(key)
	}
}

// erasureThreshold resolves the minimum fragment count from an erasure
// entry with known (len, mtu) parameters.
func erasureThreshold(encs encoding.List) (int, bool) {
	for _, e := range encs {
		if e.IsErasure() && !e.Dynamic && e.Len > 0 && e.MTU > 0 {
			return (e.Len + e.MTU - 1) / e.MTU, true
		}
	}
	return 0, false
}

// learnAnnouncement parses an announcement body (a bare CBOR header) and
// records its stack under (src, inner Message-Id).
func (d *Deframer) learnAnnouncement(src string, payload []byte) {
	var inner header.Header
	if err := cbor.Unmarshal(payload, &inner); err != nil {
		return
	}
	if inner.MessageID == nil || inner.ContentEncoding == nil {
		return
	}
	d.announcements[sessionKey{src: src, id: *inner.MessageID}] = inner.Encodings().Clone()
}

// completeMessage reassembles one session. Returns true when a message (or
// announcement) was produced and the session removed.
func (d *Deframer) completeMessage(key sessionKey) bool {
	s, ok := d.sessions[key]
	if !ok {
		return false
	}

	merged := s.headers[0].Clone()
	for _, h := range s.headers[1:] {
		if err := merged.Merge(h); err != nil {
			// Inconsistent merge aborts the session without a message.
			delete(d.sessions, key)
			metrics.SessionsActive.Dec()
			return false
		}
	}
	merged.StripChunking()

	ids := make([]uint32, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	segments := make([][]byte, 0, len(ids))
	for _, id := range ids {
		segments = append(segments, s.chunks[id].payload)
	}

	pre, _, _, _ := merged.Encodings().Split()
	data, _, err := d.applyDecodersMulti(segments, pre)
	if err != nil {
		return false
	}

	delete(d.sessions, key)
	metrics.SessionsActive.Dec()

	// Strip H and the whole pre-boundary phase; what remains describes the
	// reassembled bytes themselves (nested stacks).
	ce := merged.Encodings()
	if idx := ce.BoundaryIndex(); idx >= 0 {
		merged.SetEncodings(ce[idx+1:])
	} else {
		merged.SetEncodings(nil)
	}

	if merged.IsAnnouncement() {
		d.learnAnnouncement(key.src, data)
		return true
	}

	// A reassembled message may itself be a PDU (nested stack): feed it
	// back through the receiver, bounded in depth.
	if d.depth+1 < maxNestingDepth && d.looksLikePDU(merged.Encodings(), data) {
		d.depth++
		d.ReceiveBytes(data)
		d.depth--
		return true
	}

	if merged.FileSize != nil && uint64(len(data)) > *merged.FileSize {
		data = data[:*merged.FileSize]
	}
	d.events = append(d.events, MessageEvent{Header: merged, Payload: data})
	metrics.MessagesReassembled.Inc()
	d.holding = nil
	return true
}

// looksLikePDU probes whether data decodes to a parseable nested PDU under
// the remaining stack.
func (d *Deframer) looksLikePDU(encs encoding.List, data []byte) bool {
	preInner, _, boundary, hasBoundary := encs.Split()
	if !hasBoundary {
		return false
	}
	hc, ok := d.factory.Get(boundary).(codec.HeaderCodec)
	if !ok {
		return false
	}
	inner, _, err := d.applyDecodersMulti([][]byte{data}, preInner)
	if err != nil {
		return false
	}
	_, _, err = hc.UnpackHeader(inner)
	return err == nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefU32(v *uint32) uint32 {
	if v == nil {
		return 0
	}
	return *v
}
