package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marmos91/hqfbp/pkg/header"
)

// ax25Codec wraps fragments in a minimal AX.25 UI frame: 7-byte destination
// address, 7-byte source address (extension bit set), control 0x03,
// PID 0xF0. Callsign characters are shifted left one bit per the AX.25
// address field encoding; the SSID occupies bits 1-4 of the seventh byte. As a header codec it populates Src/Dst-Callsign on decode.
type ax25Codec struct{}

const (
	ax25Control = 0x03
	ax25PID     = 0xF0
	ax25HdrLen  = 16
)

func ax25EncodeAddress(callsignSSID string, last bool) [7]byte {
	// Space-padded: 0x20 << 1.
	addr := [7]byte{0x40, 0x40, 0x40, 0x40, 0x40, 0x40, 0}

	callsign, ssidPart, _ := strings.Cut(callsignSSID, "-")
	ssid := 0
	if ssidPart != "" {
		if v, err := strconv.Atoi(ssidPart); err == nil {
			ssid = v
		}
	}

	for i, c := range strings.ToUpper(callsign) {
		if i >= 6 {
			break
		}
		addr[i] = byte(c) << 1
	}

	// SSID byte: 011 S S S S E with E the extension bit (1 = last address).
	addr[6] = 0x60 | byte(ssid&0x0F)<<1
	if last {
		addr[6] |= 0x01
	}
	return addr
}

func ax25DecodeAddress(addr []byte) (string, bool) {
	var callsign strings.Builder
	for _, b := range addr[:6] {
		c := b >> 1
		if c != ' ' {
			callsign.WriteByte(c)
		}
	}
	ssid := (addr[6] >> 1) & 0x0F
	last := addr[6]&0x01 != 0
	if ssid > 0 {
		return fmt.Sprintf("%s-%d", callsign.String(), ssid), last
	}
	return callsign.String(), last
}

func (ax25Codec) Encode(fragments [][]byte, ctx *Context) ([][]byte, error) {
	src := "N0CALL"
	dst := "QST"
	if ctx != nil {
		if ctx.SrcCallsign != "" {
			src = ctx.SrcCallsign
		}
		if ctx.DstCallsign != "" {
			dst = ctx.DstCallsign
		}
	}

	hdr := make([]byte, 0, ax25HdrLen)
	dstAddr := ax25EncodeAddress(dst, false)
	srcAddr := ax25EncodeAddress(src, true)
	hdr = append(hdr, dstAddr[:]...)
	hdr = append(hdr, srcAddr[:]...)
	hdr = append(hdr, ax25Control, ax25PID)

	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		d := make([]byte, 0, ax25HdrLen+len(frag))
		d = append(d, hdr...)
		d = append(d, frag...)
		out = append(out, d)
	}
	return out, nil
}

func (a ax25Codec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	out := make([][]byte, 0, len(fragments))
	for _, frag := range fragments {
		_, payload, err := a.UnpackHeader(frag)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, payload)
	}
	return out, float64(crcQuality), nil
}

func (ax25Codec) UnpackHeader(data []byte) (*header.Header, []byte, error) {
	if len(data) < ax25HdrLen {
		return nil, nil, fmt.Errorf("%w: ax.25 frame too short", ErrInsufficientData)
	}
	if data[14] != ax25Control || data[15] != ax25PID {
		return nil, nil, fmt.Errorf("%w: ax.25 control=0x%02x pid=0x%02x",
			ErrFECFailure, data[14], data[15])
	}

	dst, dstLast := ax25DecodeAddress(data[0:7])
	src, srcLast := ax25DecodeAddress(data[7:14])
	if dstLast {
		return nil, nil, fmt.Errorf("%w: ax.25 destination has extension bit set", ErrFECFailure)
	}
	if !srcLast {
		return nil, nil, fmt.Errorf("%w: ax.25 source missing extension bit", ErrFECFailure)
	}

	h := &header.Header{
		SrcCallsign: header.Ptr(src),
		DstCallsign: header.Ptr(dst),
	}
	return h, data[ax25HdrLen:], nil
}

func (ax25Codec) IsChunking() bool { return false }
func (ax25Codec) IsHeader() bool   { return true }
