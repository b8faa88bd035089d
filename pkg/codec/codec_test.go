package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/hqfbp/pkg/encoding"
)

func roundTrip(t *testing.T, c Codec, input []byte) []byte {
	t.Helper()
	encoded, err := c.Encode([][]byte{input}, NewContext())
	require.NoError(t, err)
	decoded, _, err := c.TryDecode(encoded)
	require.NoError(t, err)

	joined := bytes.Join(decoded, nil)
	require.GreaterOrEqual(t, len(joined), len(input))
	assert.Equal(t, input, joined[:len(input)], "round trip mismatch")
	for _, b := range joined[len(input):] {
		assert.Zero(t, b, "padding must be zero filled")
	}
	return joined
}

func TestFactoryCachesInstances(t *testing.T) {
	f := NewFactory()
	a := f.Get(encoding.ReedSolomon(16, 8))
	b := f.Get(encoding.ReedSolomon(16, 8))
	assert.True(t, a == b, "factory must return the cached instance")

	c := f.Get(encoding.ReedSolomon(16, 10))
	assert.False(t, a == c)
}

func TestFactoryUnknownActsAsIdentity(t *testing.T) {
	f := NewFactory()
	c := f.Get(encoding.OtherString("quantum(42)"))
	out, _, err := c.TryDecode([][]byte{[]byte("abc")})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("abc")}, out)
}

func TestChunkSplitsAndJoins(t *testing.T) {
	c := chunkCodec{size: 2}
	out, err := c.Encode([][]byte{[]byte("hello")}, NewContext())
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("he"), []byte("ll"), []byte("o")}, out)

	joined, _, err := c.TryDecode(out)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("hello")}, joined)
}

func TestRepeatEmitsAndCollapses(t *testing.T) {
	r := repeatCodec{count: 3}
	out, err := r.Encode([][]byte{[]byte("abc")}, NewContext())
	require.NoError(t, err)
	require.Len(t, out, 3)

	collapsed, _, err := r.TryDecode(out)
	require.NoError(t, err)
	require.Len(t, collapsed, 1)
	assert.Equal(t, []byte("abc"), collapsed[0])
}

func TestCRC16RoundTripAndTrailer(t *testing.T) {
	c := crc16Codec{}
	out, err := c.Encode([][]byte{[]byte("123456789")}, NewContext())
	require.NoError(t, err)
	require.Len(t, out[0], 9+2)
	// CRC-16/CCITT-FALSE of "123456789" is 0x29B1.
	assert.Equal(t, []byte{0x29, 0xB1}, out[0][9:])

	dec, q, err := c.TryDecode(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("123456789"), dec[0])
	assert.GreaterOrEqual(t, q, float64(crcQuality))
}

func TestCRC32DetectsCorruption(t *testing.T) {
	c := crc32Codec{}
	out, err := c.Encode([][]byte{[]byte("payload under test")}, NewContext())
	require.NoError(t, err)

	corrupted := bytes.Clone(out[0])
	corrupted[3] ^= 0x40
	_, _, err = c.TryDecode([][]byte{corrupted})
	assert.ErrorIs(t, err, ErrCRCMismatch)
}

func TestCRCBackwardScanSkipsPadding(t *testing.T) {
	// A downstream codec appended padding after the trailer; the decoder
	// must scan back and find the matching length.
	c := crc32Codec{}
	out, err := c.Encode([][]byte{[]byte("padded payload")}, NewContext())
	require.NoError(t, err)

	padded := append(bytes.Clone(out[0]), 0x00, 0x00, 0x00)
	dec, _, err := c.TryDecode([][]byte{padded})
	require.NoError(t, err)
	assert.Equal(t, []byte("padded payload"), dec[0])
}

func TestCompressorsRoundTrip(t *testing.T) {
	input := bytes.Repeat([]byte("compress me please! "), 20)
	for name, c := range map[string]Codec{
		"gzip":    gzipCodec{},
		"deflate": deflateCodec{},
		"brotli":  brotliCodec{},
		"lzma":    lzmaCodec{},
	} {
		t.Run(name, func(t *testing.T) {
			roundTrip(t, c, input)
		})
	}
}

func TestGzipWireFormat(t *testing.T) {
	out, err := gzipCodec{}.Encode([][]byte{[]byte("x")}, NewContext())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(out[0]), 2)
	assert.Equal(t, []byte{0x1F, 0x8B}, out[0][:2], "standard gzip magic")
}

func TestRSRoundTrip(t *testing.T) {
	data := make([]byte, 223)
	for i := range data {
		data[i] = byte(i)
	}
	enc, err := rsEncode(data, 255, 223)
	require.NoError(t, err)
	require.Len(t, enc, 255)

	dec, corrected, err := rsDecode(enc, 255, 223)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
	assert.Zero(t, corrected)
}

func TestRSCorrectsErrors(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 16)
	enc, err := rsEncode(data, 32, 16)
	require.NoError(t, err)
	require.Len(t, enc, 32)

	// (n-k)/2 = 8 errors are correctable.
	noisy := bytes.Clone(enc)
	for _, pos := range []int{0, 3, 7, 11, 15, 20, 25, 31} {
		noisy[pos] ^= 0xFF
	}
	dec, corrected, err := rsDecode(noisy, 32, 16)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
	assert.Equal(t, 8, corrected)
}

func TestRSFailsBeyondCapacity(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 16)
	enc, err := rsEncode(data, 32, 16)
	require.NoError(t, err)

	noisy := bytes.Clone(enc)
	for pos := 0; pos < 12; pos++ {
		noisy[pos] ^= 0xA5
	}
	dec, _, err := rsDecode(noisy, 32, 16)
	if err == nil {
		// Some uncorrectable patterns decode to a wrong codeword; it must
		// at least not silently equal the original.
		assert.NotEqual(t, data, dec)
	}
}

func TestRSShortTailBlock(t *testing.T) {
	// 20 bytes with k=16 leaves a short tail block; the encoder zero-pads
	// it to k, so the decoded output carries the padding after the data.
	data := make([]byte, 20)
	for i := range data {
		data[i] = byte(i + 1)
	}
	enc, err := rsEncode(data, 32, 16)
	require.NoError(t, err)
	require.Len(t, enc, 64)

	dec, _, err := rsDecode(enc, 32, 16)
	require.NoError(t, err)
	assert.Equal(t, data, dec[:len(data)])
}

func TestRSQualityHeadroom(t *testing.T) {
	c := rsCodec{n: 32, k: 16}
	enc, err := c.Encode([][]byte{bytes.Repeat([]byte{7}, 16)}, NewContext())
	require.NoError(t, err)

	_, clean, err := c.TryDecode(enc)
	require.NoError(t, err)

	noisy := bytes.Clone(enc[0])
	noisy[2] ^= 0xFF
	_, dirty, err := c.TryDecode([][]byte{noisy})
	require.NoError(t, err)
	assert.Greater(t, clean, dirty, "corrections consume quality headroom")
}

func TestConvRoundTrip(t *testing.T) {
	input := []byte("convolutional payload")
	enc, err := convEncode(input, 7, "1/2")
	require.NoError(t, err)

	dec, metric, err := convDecode(enc, 7, "1/2")
	require.NoError(t, err)
	assert.Equal(t, input, dec)
	assert.Zero(t, metric)
}

func TestConvCorrectsSingleBitAnywhere(t *testing.T) {
	input := []byte{0xA5, 0x3C, 0x77}
	enc, err := convEncode(input, 7, "1/2")
	require.NoError(t, err)

	for bit := 0; bit < len(enc)*8; bit++ {
		noisy := bytes.Clone(enc)
		noisy[bit/8] ^= 1 << (7 - bit%8)
		dec, _, err := convDecode(noisy, 7, "1/2")
		require.NoError(t, err, "bit %d", bit)
		assert.Equal(t, input, dec, "bit %d", bit)
	}
}

func TestConvQualityCountsDecodedBits(t *testing.T) {
	c := convCodec{k: 7, rate: "1/2"}
	input := []byte("quality probe")
	enc, err := c.Encode([][]byte{input}, NewContext())
	require.NoError(t, err)

	_, clean, err := c.TryDecode(enc)
	require.NoError(t, err)
	// Total bits are counted over the decoded output, not the received
	// rate-1/2 stream; a clean pass has metric zero.
	assert.Equal(t, float64(len(input)*8), clean)

	noisy := bytes.Clone(enc[0])
	noisy[4] ^= 0x01
	_, dirty, err := c.TryDecode([][]byte{noisy})
	require.NoError(t, err)
	assert.Greater(t, clean, dirty, "channel errors consume quality credit")
}

func TestConvRejectsOtherParameters(t *testing.T) {
	_, err := convEncode([]byte("x"), 9, "1/2")
	assert.ErrorIs(t, err, ErrInvalidParameters)
	_, err = convEncode([]byte("x"), 7, "1/3")
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestGolayCodewordRoundTrip(t *testing.T) {
	for _, input := range []uint16{0x000, 0xABC, 0x123, 0xFFF} {
		enc := golayEncodeWord(input)
		dec, corrected := golayDecodeWord(enc)
		assert.Equal(t, input, dec)
		assert.Zero(t, corrected)
	}
}

func TestGolayCorrectsSingleBit(t *testing.T) {
	enc := golayEncodeWord(0x123)
	for i := 0; i < 24; i++ {
		dec, corrected := golayDecodeWord(enc ^ 1<<i)
		assert.EqualValues(t, 0x123, dec, "bit %d", i)
		assert.Equal(t, 1, corrected, "bit %d", i)
	}
}

func TestGolayCorrectsThreeBits(t *testing.T) {
	enc := golayEncodeWord(0x555)
	noisy := enc ^ 1<<0 ^ 1<<5 ^ 1<<20
	dec, corrected := golayDecodeWord(noisy)
	assert.EqualValues(t, 0x555, dec)
	assert.Equal(t, 3, corrected)
}

func TestGolayStreamRoundTrip(t *testing.T) {
	data := []byte("Hello Golay codec")
	enc := golayEncode(data)
	assert.Equal(t, (len(data)+2)/3*6, len(enc))

	dec, corrected, err := golayDecode(enc)
	require.NoError(t, err)
	assert.Equal(t, data, dec[:len(data)])
	assert.Zero(t, corrected)
}

func TestGolayRejectsRaggedInput(t *testing.T) {
	_, _, err := golayDecode(make([]byte, 7))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestScramblerSelfInverse(t *testing.T) {
	input := []byte("whitening test vector 0123456789")
	for _, s := range []scramblerCodec{
		{poly: 0x1C7},
		{poly: 0x1A9, seed: 0xFF, hasSeed: true},
		{poly: 0xA9},
	} {
		scrambled := s.transform(input)
		assert.NotEqual(t, input, scrambled)
		assert.Equal(t, input, s.transform(scrambled))
	}
}

func TestScramblerZeroPolyIsIdentity(t *testing.T) {
	s := scramblerCodec{poly: 0}
	assert.Equal(t, []byte("abc"), s.transform([]byte("abc")))
}

func TestASMRoundTripAndMismatch(t *testing.T) {
	sync := []byte{0x1A, 0xCF, 0xFC, 0x1D}
	a := asmCodec{sync: sync}
	out, err := a.Encode([][]byte{[]byte("data")}, NewContext())
	require.NoError(t, err)
	assert.Equal(t, sync, out[0][:4])

	dec, _, err := a.TryDecode(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), dec[0])

	_, _, err = a.TryDecode([][]byte{[]byte("garbage")})
	assert.ErrorIs(t, err, ErrFECFailure)
}

func TestPostASMTruncatesTrailingGarbage(t *testing.T) {
	sync := []byte{0xCA, 0xFE}
	p := postASMCodec{sync: sync}
	out, err := p.Encode([][]byte{{1, 2, 3, 4}}, NewContext())
	require.NoError(t, err)

	withGarbage := append(bytes.Clone(out[0]), 0x99)
	dec, _, err := p.TryDecode([][]byte{withGarbage})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, dec[0])
}

func TestAX25RoundTrip(t *testing.T) {
	ctx := NewContext()
	ctx.SrcCallsign = "MYCALL"
	ctx.DstCallsign = "URCALL-7"

	a := ax25Codec{}
	out, err := a.Encode([][]byte{[]byte("Hello AX.25")}, ctx)
	require.NoError(t, err)
	require.Len(t, out[0], 16+11)

	h, payload, err := a.UnpackHeader(out[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("Hello AX.25"), payload)
	assert.Equal(t, "MYCALL", *h.SrcCallsign)
	assert.Equal(t, "URCALL-7", *h.DstCallsign)
}

func TestAX25RejectsBadFrames(t *testing.T) {
	a := ax25Codec{}
	_, _, err := a.UnpackHeader([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInsufficientData)

	ctx := NewContext()
	ctx.SrcCallsign = "MYCALL"
	out, err := a.Encode([][]byte{[]byte("x")}, ctx)
	require.NoError(t, err)

	bad := bytes.Clone(out[0])
	bad[14] = 0x42 // not a UI frame
	_, _, err = a.UnpackHeader(bad)
	assert.ErrorIs(t, err, ErrFECFailure)
}

func TestLTSystematicPrefix(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	pkts, err := ltEncode(data, 30, 10)
	require.NoError(t, err)
	require.Len(t, pkts, 4+10)

	// The first K packets carry ESIs 0..K-1 with the source bytes.
	for esi := 0; esi < 4; esi++ {
		assert.Equal(t, byte(esi), pkts[esi][3])
	}

	dec, err := ltDecode(pkts[:4], len(data), 30)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
}

func TestLTRecoversFromRepair(t *testing.T) {
	data := make([]byte, 120)
	for i := range data {
		data[i] = byte(i * 3)
	}
	pkts, err := ltEncode(data, 30, 20)
	require.NoError(t, err)

	// Drop source block 1; the repair packets must cascade it back.
	survivors := append([][]byte{}, pkts[:1]...)
	survivors = append(survivors, pkts[2:]...)

	dec, err := ltDecode(survivors, len(data), 30)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
}

func TestLTInsufficientSymbols(t *testing.T) {
	data := make([]byte, 120)
	pkts, err := ltEncode(data, 30, 0)
	require.NoError(t, err)

	_, err = ltDecode(pkts[:2], len(data), 30)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRQSystematicPrefix(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}
	pkts, err := rqEncode(data, len(data), 30, 20)
	require.NoError(t, err)
	require.Len(t, pkts, 4+20)
	for esi := 0; esi < 4; esi++ {
		assert.Equal(t, byte(esi), pkts[esi][3])
	}

	dec, err := rqDecode(pkts[:4], len(data), 30)
	require.NoError(t, err)
	assert.Equal(t, data, dec[:len(data)])
}

func TestRQRecoversFromRepair(t *testing.T) {
	data := make([]byte, 150)
	for i := range data {
		data[i] = byte(i * 7)
	}
	pkts, err := rqEncode(data, len(data), 30, 20)
	require.NoError(t, err)

	// Drop one source symbol; the repair pool covers it.
	survivors := append([][]byte{}, pkts[:2]...)
	survivors = append(survivors, pkts[3:]...)
	dec, err := rqDecode(survivors, len(data), 30)
	require.NoError(t, err)
	assert.Equal(t, data, dec[:len(data)])
}

func TestRQTrimsOversizedPackets(t *testing.T) {
	data := make([]byte, 90)
	pkts, err := rqEncode(data, len(data), 30, 5)
	require.NoError(t, err)

	padded := make([][]byte, len(pkts))
	for i, p := range pkts {
		padded[i] = append(bytes.Clone(p), 0xAA, 0xBB)
	}
	dec, err := rqDecode(padded, len(data), 30)
	require.NoError(t, err)
	assert.Equal(t, data, dec[:len(data)])
}

func TestHCodecWrapsFragments(t *testing.T) {
	ctx := NewContext()
	ctx.SrcCallsign = "N0CALL"
	ctx.NextMessageID = 1
	fileSize := uint64(10)
	ctx.FileSize = &fileSize
	ctx.Encodings = encoding.List{encoding.Chunk(5), encoding.H()}

	h := hCodec{}
	out, err := h.Encode([][]byte{[]byte("12345"), []byte("67890")}, ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.EqualValues(t, 3, ctx.NextMessageID)

	hdr0, p0, err := h.UnpackHeader(out[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("12345"), p0)
	assert.EqualValues(t, 1, *hdr0.MessageID)
	assert.EqualValues(t, 0, *hdr0.ChunkID)
	assert.EqualValues(t, 2, *hdr0.TotalChunks)
	assert.EqualValues(t, 1, *hdr0.OriginalMessageID)
	// chunk(…) entries are never serialized.
	assert.Equal(t, encoding.List{encoding.H()}, hdr0.Encodings())

	hdr1, _, err := h.UnpackHeader(out[1])
	require.NoError(t, err)
	assert.EqualValues(t, 2, *hdr1.MessageID)
	assert.EqualValues(t, 1, *hdr1.ChunkID)
}

func TestHCodecSingleFragmentOmitsChunking(t *testing.T) {
	ctx := NewContext()
	ctx.NextMessageID = 5
	ctx.Encodings = encoding.List{encoding.H()}

	out, err := hCodec{}.Encode([][]byte{[]byte("only")}, ctx)
	require.NoError(t, err)

	hdr, _, err := hCodec{}.UnpackHeader(out[0])
	require.NoError(t, err)
	assert.EqualValues(t, 5, *hdr.MessageID)
	assert.Nil(t, hdr.ChunkID)
	assert.Nil(t, hdr.TotalChunks)
	assert.Nil(t, hdr.OriginalMessageID)
}
