package logger

import "log/slog"

// Standard field keys for structured logging. Use these consistently so
// logs from pack, unpack, simulate and explore aggregate cleanly.
const (
	KeySrcCallsign = "src_callsign" // sender callsign
	KeyDstCallsign = "dst_callsign" // recipient callsign
	KeyMessageID   = "msg_id"       // PDU Message-Id
	KeyChunkID     = "chunk_id"     // fragment index within a session
	KeyTotalChunks = "total_chunks" // fragments expected for a session
	KeySession     = "session"      // session key (src/original-message-id)
	KeyStack       = "stack"        // encoding stack in token form
	KeyQuality     = "quality"      // fragment quality credit
	KeyPDUBytes    = "pdu_bytes"    // on-the-wire PDU size
	KeyFile        = "file"         // input/output file path
	KeySize        = "size"         // payload size in bytes
	KeyBER         = "ber"          // simulated bit error rate
	KeySeed        = "seed"         // deterministic seed
	KeyError       = "error"        // error message
)

// SrcCallsign returns a slog.Attr for the sender callsign.
func SrcCallsign(c string) slog.Attr { return slog.String(KeySrcCallsign, c) }

// DstCallsign returns a slog.Attr for the recipient callsign.
func DstCallsign(c string) slog.Attr { return slog.String(KeyDstCallsign, c) }

// MessageID returns a slog.Attr for a PDU Message-Id.
func MessageID(id uint32) slog.Attr { return slog.Uint64(KeyMessageID, uint64(id)) }

// ChunkID returns a slog.Attr for a fragment index.
func ChunkID(id uint32) slog.Attr { return slog.Uint64(KeyChunkID, uint64(id)) }

// TotalChunks returns a slog.Attr for a session's expected fragment count.
func TotalChunks(n uint32) slog.Attr { return slog.Uint64(KeyTotalChunks, uint64(n)) }

// Session returns a slog.Attr for a session key.
func Session(s string) slog.Attr { return slog.String(KeySession, s) }

// Stack returns a slog.Attr for an encoding stack in token form.
func Stack(s string) slog.Attr { return slog.String(KeyStack, s) }

// Quality returns a slog.Attr for a fragment quality credit.
func Quality(q int) slog.Attr { return slog.Int(KeyQuality, q) }

// PDUBytes returns a slog.Attr for an on-the-wire PDU size.
func PDUBytes(n int) slog.Attr { return slog.Int(KeyPDUBytes, n) }

// File returns a slog.Attr for a file path.
func File(p string) slog.Attr { return slog.String(KeyFile, p) }

// Size returns a slog.Attr for a payload size.
func Size(n int) slog.Attr { return slog.Int(KeySize, n) }

// BER returns a slog.Attr for a simulated bit error rate.
func BER(r float64) slog.Attr { return slog.Float64(KeyBER, r) }

// Seed returns a slog.Attr for a deterministic seed.
func Seed(s uint64) slog.Attr { return slog.Uint64(KeySeed, s) }

// Err returns a slog.Attr for an error; a nil error yields an empty attr.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
