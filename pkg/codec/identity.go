package codec

// identityCodec passes fragments through unchanged. It also stands in for
// unknown OtherString/OtherInteger stack entries.
type identityCodec struct{}

func (identityCodec) Encode(fragments [][]byte, _ *Context) ([][]byte, error) {
	return fragments, nil
}

func (identityCodec) TryDecode(fragments [][]byte) ([][]byte, float64, error) {
	return fragments, 1, nil
}

func (identityCodec) IsChunking() bool { return false }
func (identityCodec) IsHeader() bool   { return false }
