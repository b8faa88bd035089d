package encoding

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  Encoding
	}{
		{"header", "h", H()},
		{"identity", "identity", Identity()},
		{"gzip", "gzip", Gzip()},
		{"deflate", "deflate", Deflate()},
		{"brotli", "br", Brotli()},
		{"lzma", "lzma", Lzma()},
		{"crc16", "crc16", CRC16()},
		{"crc32", "crc32", CRC32()},
		{"ax25", "ax.25", AX25()},
		{"rs", "rs(255,223)", ReedSolomon(255, 223)},
		{"rq static", "rq(1024,30,20)", RaptorQ(1024, 30, 20)},
		{"rq dynamic", "rq(dlen,30,20)", RaptorQDynamic(30, 20)},
		{"rq percent", "rq(dlen,30,50%)", RaptorQPercent(30, 50)},
		{"lt static", "lt(1024,30,20)", LT(1024, 30, 20)},
		{"lt dynamic", "lt(dlen,30,20)", LTDynamic(30, 20)},
		{"conv", "conv(7,1/2)", Conv(7, "1/2")},
		{"golay bare", "golay", Golay()},
		{"golay params", "golay(24,12)", Golay()},
		{"scrambler", "scr(0x1C7)", Scrambler(0x1C7)},
		{"scrambler seeded", "scr(0x1A9,0xFF)", ScramblerSeeded(0x1A9, 0xFF)},
		{"scrambler decimal", "scr(455)", Scrambler(455)},
		{"chunk", "chunk(200)", Chunk(200)},
		{"repeat", "repeat(3)", Repeat(3)},
		{"asm", "asm(0x1ACFFC1D)", ASM([]byte{0x1A, 0xCF, 0xFC, 0x1D})},
		{"post asm", "post_asm(0xCAFE)", PostASM([]byte{0xCA, 0xFE})},
		{"short code", "5", CRC16()},
		{"unknown", "quantum(42)", OtherString("quantum(42)")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseToken(tt.token))
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	stacks := []Encoding{
		H(), Identity(), Gzip(), Deflate(), Brotli(), Lzma(), CRC16(), CRC32(),
		AX25(), ReedSolomon(255, 223), RaptorQ(1024, 30, 20),
		RaptorQDynamic(30, 20), RaptorQPercent(30, 50), LT(512, 30, 10),
		LTDynamic(30, 10), Conv(7, "1/2"), Golay(), Scrambler(0x1C7),
		ScramblerSeeded(0x1A9, 0xFF), Chunk(128), Repeat(3),
		ASM([]byte{0x1A, 0xCF, 0xFC, 0x1D}), PostASM([]byte{0xCA, 0xFE}),
	}
	for _, e := range stacks {
		assert.Equal(t, e, ParseToken(e.Token()), "token %q", e.Token())
	}
}

func TestParseList(t *testing.T) {
	l := ParseList("rs(16,8),crc32,h,scr(0x1C7)")
	require.Len(t, l, 4)
	assert.Equal(t, ReedSolomon(16, 8), l[0])
	assert.Equal(t, CRC32(), l[1])
	assert.Equal(t, H(), l[2])
	assert.Equal(t, Scrambler(0x1C7), l[3])
}

func TestParseListDepth(t *testing.T) {
	// Commas inside parentheses must not split tokens.
	l := ParseList("rq(dlen,30,20),h")
	require.Len(t, l, 2)
	assert.Equal(t, RaptorQDynamic(30, 20), l[0])
	assert.Equal(t, H(), l[1])
}

func TestNormalizeAppendsBoundary(t *testing.T) {
	l := List{CRC32()}.Normalize(0)
	require.Len(t, l, 2)
	assert.Equal(t, H(), l[1])
}

func TestNormalizeInsertsChunk(t *testing.T) {
	l := List{CRC32(), H(), Gzip()}.Normalize(100)
	require.Len(t, l, 4)
	assert.Equal(t, Chunk(100), l[1])
	assert.Equal(t, H(), l[2])

	// An existing pre-boundary chunk suppresses the synthetic one.
	l2 := List{Chunk(50), H()}.Normalize(100)
	assert.Len(t, l2, 2)
}

func TestNormalizeSingleBoundary(t *testing.T) {
	l := List{H()}.Normalize(10)
	count := 0
	for _, e := range l {
		if e.Kind == KindH {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSplit(t *testing.T) {
	pre, post, boundary, ok := List{Chunk(10), CRC32(), H(), Gzip()}.Split()
	require.True(t, ok)
	assert.Equal(t, KindH, boundary.Kind)
	assert.Equal(t, List{Chunk(10), CRC32()}, pre)
	assert.Equal(t, List{Gzip()}, post)

	_, _, _, ok = List{CRC32()}.Split()
	assert.False(t, ok)
}

func TestCBORSingleWellKnown(t *testing.T) {
	// A single well-known entry travels as a bare integer.
	raw, err := List{Gzip()}.MarshalCBOR()
	require.NoError(t, err)

	var v any
	require.NoError(t, cbor.Unmarshal(raw, &v))
	assert.EqualValues(t, 1, v)

	var back List
	require.NoError(t, back.UnmarshalCBOR(raw))
	assert.Equal(t, List{Gzip()}, back)
}

func TestCBORSingleParameterized(t *testing.T) {
	// A single parameterized entry travels as a bare string.
	raw, err := List{ReedSolomon(16, 8)}.MarshalCBOR()
	require.NoError(t, err)

	var v any
	require.NoError(t, cbor.Unmarshal(raw, &v))
	assert.Equal(t, "rs(16,8)", v)
}

func TestCBORArray(t *testing.T) {
	l := List{ReedSolomon(16, 8), CRC32(), H()}
	raw, err := l.MarshalCBOR()
	require.NoError(t, err)

	var back List
	require.NoError(t, back.UnmarshalCBOR(raw))
	assert.Equal(t, l, back)
}

func TestCBORStripsChunk(t *testing.T) {
	raw, err := List{Chunk(100), CRC32(), H()}.MarshalCBOR()
	require.NoError(t, err)

	var back List
	require.NoError(t, back.UnmarshalCBOR(raw))
	assert.Equal(t, List{CRC32(), H()}, back)
}

func TestCBORUnknownCodesSurvive(t *testing.T) {
	l := List{OtherInteger(99), OtherString("quantum(42)"), H()}
	raw, err := l.MarshalCBOR()
	require.NoError(t, err)

	var back List
	require.NoError(t, back.UnmarshalCBOR(raw))
	assert.Equal(t, l, back)
}

func TestRandomSensibleDeterminism(t *testing.T) {
	a := RandomSensible(42)
	b := RandomSensible(42)
	c := RandomSensible(43)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRandomSensibleValidity(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		encs := RandomSensible(seed)

		hCount := 0
		for _, e := range encs {
			if e.Kind == KindH {
				hCount++
			}
		}
		require.Equal(t, 1, hCount, "seed %d", seed)

		for _, e := range encs {
			switch e.Kind {
			case KindReedSolomon:
				assert.LessOrEqual(t, e.N, 255)
				assert.Greater(t, e.K, 0)
				assert.Less(t, e.K, e.N)
			case KindRaptorQ, KindLT:
				assert.Greater(t, e.MTU, 0)
			}
		}
	}
}
