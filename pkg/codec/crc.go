package codec

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/sigurn/crc16"
)

// CRC trailers are big-endian and appended per fragment. Decoding verifies
// the trailer at the very end first; on mismatch it scans backwards up to
// 256 bytes, in case a downstream codec (bit-level FEC, block padding)
// appended trailing bytes, and accepts the longest length whose CRC
// matches. A matching CRC earns a large quality credit.

const (
	crcScanWindow = 256
	crcQuality    = 1000
)

// crc16Table implements CRC-16/CCITT-FALSE: poly 0x1021, init 0xFFFF, no
// reflection, no xorout.
var crc16Table = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

func crc16Sum(data []byte) [2]byte {
	var out [2]byte
	binary.BigEndian.PutUint16(out[:], crc16.Checksum(data, crc16Table))
	return out
}

// crc32Sum is CRC-32 ISO-HDLC, which the standard library's IEEE table
// implements exactly.
func crc32Sum(data []byte) [4]byte {
	var out [4]byte
	binary.BigEndian.PutUint32(out[:], crc32.ChecksumIEEE(data))
	return out
}

type crc16Codec struct{}

func (crc16Codec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		sum := crc16Sum(frag)
		d := make([]byte, 0, len(frag)+2)
		d = append(d, frag...)
		d = append(d, sum[:]...)
		out = append(out, d)
	}
	return out, nil
}

func (crc16Codec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	return crcDecode(fragments, 2, func(data, trailer []byte) bool {
		sum := crc16Sum(data)
		return sum[0] == trailer[0] && sum[1] == trailer[1]
	})
}

func (crc16Codec) IsChunking() bool { return false }
func (crc16Codec) IsHeader() bool   { return false }

type crc32Codec struct{}

func (crc32Codec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		sum := crc32Sum(frag)
		d := make([]byte, 0, len(frag)+4)
		d = append(d, frag...)
		d = append(d, sum[:]...)
		out = append(out, d)
	}
	return out, nil
}

func (crc32Codec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	return crcDecode(fragments, 4, func(data, trailer []byte) bool {
		sum := crc32Sum(data)
		for i := range sum {
			if sum[i] != trailer[i] {
				return false
			}
		}
		return true
	})
}

func (crc32Codec) IsChunking() bool { return false }
func (crc32Codec) IsHeader() bool   { return false }

func crcDecode(fragments [][]byte, width int, check func(data, trailer []byte) bool) ([][]byte, float64, error) {
	out := make([][]byte, 0, len(fragments))
	quality := 0.0
	for _, data := range fragments {
		validLen := -1
		if len(data) >= width && check(data[:len(data)-width], data[len(data)-width:]) {
			validLen = len(data) - width
		}

		if validLen < 0 && len(data) > width {
			minLen := width
			if len(data) > crcScanWindow+width+width {
				minLen = len(data) - crcScanWindow
			}
			for testLen := len(data) - 1; testLen >= minLen; testLen-- {
				payloadLen := testLen - width
				if check(data[:payloadLen], data[payloadLen:testLen]) {
					validLen = payloadLen
					break
				}
			}
		}

		if validLen < 0 {
			return nil, 0, ErrCRCMismatch
		}
		out = append(out, data[:validLen])
		quality += crcQuality
	}
	return out, quality, nil
}
