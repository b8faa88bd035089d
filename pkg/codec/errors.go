package codec

import "errors"

// Codec errors. All of them are recoverable at the deframer (the PDU is
// demoted to the holding buffer or rejected); the generator surfaces them.
var (
	ErrCRCMismatch       = errors.New("crc mismatch")
	ErrFECFailure        = errors.New("fec failure")
	ErrCompression       = errors.New("compression error")
	ErrInsufficientData  = errors.New("insufficient data for decoding")
	ErrInvalidParameters = errors.New("invalid codec parameters")
)
