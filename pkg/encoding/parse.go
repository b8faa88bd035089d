package encoding

import (
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"
)

// Token grammar for parameterized codecs. Anchored; a token that matches
// nothing becomes an OtherString identity with its label preserved.
var (
	reRS      = regexp.MustCompile(`^rs\((\d+),(\d+)\)$`)
	reRQ      = regexp.MustCompile(`^rq\((dlen|\d+),(\d+),(\d+)(%?)\)$`)
	reLT      = regexp.MustCompile(`^lt\((dlen|\d+),(\d+),(\d+)\)$`)
	reConv    = regexp.MustCompile(`^conv\((\d+),(\d+/\d+)\)$`)
	reGolay   = regexp.MustCompile(`^golay(?:\((\d+),(\d+)\))?$`)
	reScr     = regexp.MustCompile(`^scr\((0[xX][0-9a-fA-F]+|\d+)(?:,(0[xX][0-9a-fA-F]+|\d+))?\)$`)
	reChunk   = regexp.MustCompile(`^chunk\((\d+)\)$`)
	reRepeat  = regexp.MustCompile(`^repeat\((\d+)\)$`)
	reASM     = regexp.MustCompile(`^asm\((0[xX][0-9a-fA-F]+|\d+)\)$`)
	rePostASM = regexp.MustCompile(`^post_asm\((0[xX][0-9a-fA-F]+|\d+)\)$`)
)

// ParseToken maps one stack token to its descriptor.
func ParseToken(tok string) Encoding {
	s := strings.TrimSpace(tok)

	switch strings.ToLower(s) {
	case "h":
		return H()
	case "identity":
		return Identity()
	case "gzip":
		return Gzip()
	case "deflate":
		return Deflate()
	case "br":
		return Brotli()
	case "lzma":
		return Lzma()
	case "crc16":
		return CRC16()
	case "crc32":
		return CRC32()
	case "ax.25":
		return AX25()
	case "asm":
		return ASM(DefaultSyncWord)
	case "post_asm":
		return PostASM(DefaultSyncWord)
	}

	if m := reRS.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		k, _ := strconv.Atoi(m[2])
		return ReedSolomon(n, k)
	}
	if m := reRQ.FindStringSubmatch(s); m != nil {
		mtu, _ := strconv.Atoi(m[2])
		last, _ := strconv.Atoi(m[3])
		if m[1] == "dlen" {
			if m[4] == "%" {
				return RaptorQPercent(mtu, last)
			}
			return RaptorQDynamic(mtu, last)
		}
		if m[4] == "%" {
			return OtherString(s) // percent form only pairs with dlen
		}
		length, _ := strconv.Atoi(m[1])
		return RaptorQ(length, mtu, last)
	}
	if m := reLT.FindStringSubmatch(s); m != nil {
		mtu, _ := strconv.Atoi(m[2])
		rep, _ := strconv.Atoi(m[3])
		if m[1] == "dlen" {
			return LTDynamic(mtu, rep)
		}
		length, _ := strconv.Atoi(m[1])
		return LT(length, mtu, rep)
	}
	if m := reConv.FindStringSubmatch(s); m != nil {
		k, _ := strconv.Atoi(m[1])
		return Conv(k, m[2])
	}
	if reGolay.MatchString(s) {
		return Golay()
	}
	if m := reScr.FindStringSubmatch(s); m != nil {
		poly := parseNumber(m[1])
		if m[2] != "" {
			return ScramblerSeeded(poly, parseNumber(m[2]))
		}
		return Scrambler(poly)
	}
	if m := reChunk.FindStringSubmatch(s); m != nil {
		size, _ := strconv.Atoi(m[1])
		return Chunk(size)
	}
	if m := reRepeat.FindStringSubmatch(s); m != nil {
		count, _ := strconv.Atoi(m[1])
		return Repeat(count)
	}
	if m := reASM.FindStringSubmatch(s); m != nil {
		return ASM(parseSyncWord(m[1]))
	}
	if m := rePostASM.FindStringSubmatch(s); m != nil {
		return PostASM(parseSyncWord(m[1]))
	}

	// Bare integers are short codes.
	if code, err := strconv.ParseInt(s, 10, 8); err == nil {
		return FromCode(int8(code))
	}

	return OtherString(s)
}

// ParseList splits a stack string on commas at parenthesis depth 0 and
// parses each token.
func ParseList(s string) List {
	var out List
	depth := 0
	var current strings.Builder
	flush := func() {
		tok := strings.TrimSpace(current.String())
		if tok != "" {
			out = append(out, ParseToken(tok))
		}
		current.Reset()
	}
	for _, c := range s {
		switch {
		case c == ',' && depth == 0:
			flush()
		default:
			if c == '(' {
				depth++
			}
			if c == ')' {
				depth--
			}
			current.WriteRune(c)
		}
	}
	flush()
	return out
}

func parseNumber(s string) uint64 {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, _ := strconv.ParseUint(s[2:], 16, 64)
		return v
	}
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}

// parseSyncWord reads a sync marker literal. Hex literals keep their digit
// count (odd counts gain a leading nibble); decimals become the minimal
// big-endian byte string.
func parseSyncWord(s string) []byte {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := s[2:]
		if len(digits)%2 != 0 {
			digits = "0" + digits
		}
		out := make([]byte, len(digits)/2)
		for i := 0; i < len(out); i++ {
			v, _ := strconv.ParseUint(digits[2*i:2*i+2], 16, 8)
			out[i] = byte(v)
		}
		return out
	}
	v, _ := strconv.ParseUint(s, 10, 64)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return buf[i:]
}
