package header

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode emits map keys in ascending order so headers are byte-stable.
var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Pack serializes the header followed by the payload. Canonicalizations
// applied to a copy of h: Content-Type converted to Content-Format when a
// CoAP mapping exists, the default Content-Format 0 dropped, Payload-Size
// stamped with len(payload). Message-Id is mandatory.
func Pack(h *Header, payload []byte) ([]byte, error) {
	c := h.Clone()

	if c.ContentType != nil {
		if id, ok := CoapID(*c.ContentType); ok {
			c.ContentFormat = Ptr(id)
			c.ContentType = nil
		}
	}
	if c.ContentFormat != nil && *c.ContentFormat == 0 {
		c.ContentFormat = nil
	}
	if c.MessageID == nil {
		return nil, fmt.Errorf("%w: Message-Id", ErrMissingField)
	}
	c.PayloadSize = Ptr(uint64(len(payload)))

	hdr, err := encMode.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	out := make([]byte, 0, len(hdr)+len(payload))
	out = append(out, hdr...)
	out = append(out, payload...)
	return out, nil
}

// Unpack parses a header off the front of data and returns it with the
// remaining payload, trimmed to Payload-Size when the field is present and
// the body is longer (a downstream codec may have padded it). A header
// without Message-Id is rejected unless its media type marks an
// announcement.
func Unpack(data []byte) (*Header, []byte, error) {
	dec := cbor.NewDecoder(bytes.NewReader(data))
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if h.MessageID == nil && !h.IsAnnouncement() {
		return nil, nil, fmt.Errorf("%w: Message-Id", ErrMissingField)
	}
	payload := data[dec.NumBytesRead():]
	if h.PayloadSize != nil && uint64(len(payload)) > *h.PayloadSize {
		payload = payload[:*h.PayloadSize]
	}
	return &h, payload, nil
}
