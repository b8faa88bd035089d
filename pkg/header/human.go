package header

import (
	"encoding/hex"
	"strconv"
)

// HumanReadable renders the header as a map keyed by field names, the way
// the unpack CLI prints it. Content-Format is resolved back to its media
// type name when known; digests are hex encoded.
func (h *Header) HumanReadable() map[string]string {
	m := make(map[string]string)
	if h.MessageID != nil {
		m["Message-Id"] = strconv.FormatUint(uint64(*h.MessageID), 10)
	}
	if h.SrcCallsign != nil {
		m["Src-Callsign"] = *h.SrcCallsign
	}
	if h.DstCallsign != nil {
		m["Dst-Callsign"] = *h.DstCallsign
	}

	contentType := ""
	if h.ContentType != nil {
		contentType = *h.ContentType
	}
	if h.ContentFormat != nil {
		if name, ok := CoapName(*h.ContentFormat); ok {
			contentType = name
		} else {
			contentType = strconv.FormatUint(uint64(*h.ContentFormat), 10)
		}
	}
	if contentType != "" {
		m["Content-Type"] = contentType
	}

	if h.ContentEncoding != nil {
		m["Content-Encoding"] = h.ContentEncoding.String()
	}
	if h.ReprDigest != nil {
		m["Repr-Digest"] = hex.EncodeToString(h.ReprDigest)
	}
	if h.ContentDigest != nil {
		m["Content-Digest"] = hex.EncodeToString(h.ContentDigest)
	}
	if h.FileSize != nil {
		m["File-Size"] = strconv.FormatUint(*h.FileSize, 10)
	}
	if h.ChunkID != nil {
		m["Chunk-Id"] = strconv.FormatUint(uint64(*h.ChunkID), 10)
	}
	if h.OriginalMessageID != nil {
		m["Original-Message-Id"] = strconv.FormatUint(uint64(*h.OriginalMessageID), 10)
	}
	if h.TotalChunks != nil {
		m["Total-Chunks"] = strconv.FormatUint(uint64(*h.TotalChunks), 10)
	}
	if h.PayloadSize != nil {
		m["Payload-Size"] = strconv.FormatUint(*h.PayloadSize, 10)
	}
	return m
}
