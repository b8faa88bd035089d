package encoding

// Well-known short codes for the Content-Encoding integer wire form.
// Parameterized codecs have no short code and always travel as strings,
// except asm/post_asm which collapse to a code when they carry the default
// CCSDS sync word.
const (
	CodeH        int8 = -1
	CodeIdentity int8 = 0
	CodeGzip     int8 = 1
	CodeDeflate  int8 = 2
	CodeBrotli   int8 = 3
	CodeLzma     int8 = 4
	CodeCRC16    int8 = 5
	CodeCRC32    int8 = 6
	CodeAX25     int8 = 41
	CodeASM      int8 = 54
	CodePostASM  int8 = 56
)

// FromCode resolves a short code to a descriptor. Unknown codes are
// preserved as OtherInteger identities so they survive a round trip.
func FromCode(code int8) Encoding {
	switch code {
	case CodeH:
		return H()
	case CodeIdentity:
		return Identity()
	case CodeGzip:
		return Gzip()
	case CodeDeflate:
		return Deflate()
	case CodeBrotli:
		return Brotli()
	case CodeLzma:
		return Lzma()
	case CodeCRC16:
		return CRC16()
	case CodeCRC32:
		return CRC32()
	case CodeAX25:
		return AX25()
	case CodeASM:
		return ASM(DefaultSyncWord)
	case CodePostASM:
		return PostASM(DefaultSyncWord)
	}
	return OtherInteger(code)
}

// ShortCode returns the integer wire form when one exists.
func (e Encoding) ShortCode() (int8, bool) {
	switch e.Kind {
	case KindH:
		return CodeH, true
	case KindIdentity:
		return CodeIdentity, true
	case KindGzip:
		return CodeGzip, true
	case KindDeflate:
		return CodeDeflate, true
	case KindBrotli:
		return CodeBrotli, true
	case KindLzma:
		return CodeLzma, true
	case KindCRC16:
		return CodeCRC16, true
	case KindCRC32:
		return CodeCRC32, true
	case KindAX25:
		return CodeAX25, true
	case KindASM:
		if e.Sync == string(DefaultSyncWord) {
			return CodeASM, true
		}
	case KindPostASM:
		if e.Sync == string(DefaultSyncWord) {
			return CodePostASM, true
		}
	case KindOtherInteger:
		return e.Code, true
	}
	return 0, false
}
