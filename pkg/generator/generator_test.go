package generator

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/hqfbp/pkg/encoding"
	"github.com/marmos91/hqfbp/pkg/header"
)

func TestGenerateSinglePDU(t *testing.T) {
	gen := New(Options{SrcCallsign: "N0CALL", StartMessageID: 1})
	pdus, err := gen.Generate([]byte("hello world"), nil)
	require.NoError(t, err)
	require.Len(t, pdus, 1)

	h, payload, err := header.Unpack(pdus[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), payload)
	assert.EqualValues(t, 1, *h.MessageID)
	assert.Equal(t, "N0CALL", *h.SrcCallsign)
	assert.EqualValues(t, 11, *h.FileSize)
	assert.Nil(t, h.ChunkID)
}

func TestGenerateChunked(t *testing.T) {
	gen := New(Options{SrcCallsign: "F4JXQ-1", MaxPayloadSize: 10, StartMessageID: 1})
	data := []byte("This is a longer message that will be chunked.")
	pdus, err := gen.Generate(data, nil)
	require.NoError(t, err)
	require.Len(t, pdus, 5)

	var reassembled []byte
	for i, pdu := range pdus {
		h, payload, err := header.Unpack(pdu)
		require.NoError(t, err)
		assert.EqualValues(t, uint32(i+1), *h.MessageID, "message ids are monotone")
		assert.EqualValues(t, uint32(i), *h.ChunkID)
		assert.EqualValues(t, 5, *h.TotalChunks)
		assert.EqualValues(t, 1, *h.OriginalMessageID)
		assert.EqualValues(t, len(data), *h.FileSize)
		reassembled = append(reassembled, payload...)
	}
	assert.Equal(t, data, reassembled)
}

func TestGenerateStampsResolvedStack(t *testing.T) {
	gen := New(Options{
		SrcCallsign:    "N0CALL",
		Encodings:      encoding.List{encoding.CRC32(), encoding.H()},
		StartMessageID: 1,
	})
	pdus, err := gen.Generate([]byte("x"), nil)
	require.NoError(t, err)

	h, _, err := header.Unpack(pdus[0])
	require.NoError(t, err)
	assert.Equal(t, encoding.List{encoding.CRC32(), encoding.H()}, h.Encodings())
}

func TestGenerateMediaTypeOnFirstChunkOnly(t *testing.T) {
	gen := New(Options{SrcCallsign: "S", MaxPayloadSize: 4, StartMessageID: 1})
	media := header.NamedMedia("application/json")
	pdus, err := gen.Generate([]byte("eightbyte"), &media)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(pdus), 2)

	h0, _, err := header.Unpack(pdus[0])
	require.NoError(t, err)
	require.NotNil(t, h0.ContentFormat)
	assert.EqualValues(t, 50, *h0.ContentFormat)

	h1, _, err := header.Unpack(pdus[1])
	require.NoError(t, err)
	assert.Nil(t, h1.ContentFormat)
	assert.Nil(t, h1.ContentType)
}

func TestGenerateAnnouncementFirst(t *testing.T) {
	gen := New(Options{
		SrcCallsign:    "F4JXQ-2",
		Encodings:      encoding.List{encoding.H(), encoding.CRC32()},
		Announcement:   encoding.List{encoding.H()},
		StartMessageID: 1,
	})
	pdus, err := gen.Generate([]byte("Sensitive Data"), nil)
	require.NoError(t, err)
	require.Len(t, pdus, 2)

	// The announcement consumes message id 1; the data PDU gets id 2.
	annHdr, annBody, err := header.Unpack(pdus[0])
	require.NoError(t, err)
	assert.EqualValues(t, 1, *annHdr.MessageID)
	assert.True(t, annHdr.IsAnnouncement())

	var inner header.Header
	require.NoError(t, cbor.Unmarshal(annBody, &inner))
	assert.EqualValues(t, 2, *inner.MessageID)
	assert.Equal(t, encoding.List{encoding.H(), encoding.CRC32()}, inner.Encodings())
}

func TestGenerateResolvesDynamicRaptorQ(t *testing.T) {
	gen := New(Options{
		SrcCallsign:    "RQ",
		Encodings:      encoding.List{encoding.RaptorQDynamic(30, 5), encoding.H()},
		Announcement:   encoding.List{encoding.H()},
		StartMessageID: 1,
	})
	data := make([]byte, 100)
	pdus, err := gen.Generate(data, nil)
	require.NoError(t, err)
	// 1 announcement + ceil(100/30)+5 = 9 data PDUs.
	require.Len(t, pdus, 10)

	_, annBody, err := header.Unpack(pdus[0])
	require.NoError(t, err)
	var inner header.Header
	require.NoError(t, cbor.Unmarshal(annBody, &inner))
	assert.Equal(t, encoding.List{encoding.RaptorQ(100, 30, 5), encoding.H()},
		inner.Encodings(), "dynamic entries resolve before announcement")
}

func TestHeaderStatsAccumulate(t *testing.T) {
	gen := New(Options{SrcCallsign: "STATS", MaxPayloadSize: 10, StartMessageID: 1})
	_, err := gen.Generate([]byte("a payload long enough to chunk"), nil)
	require.NoError(t, err)

	stats := gen.LastHeaderStats()
	assert.Greater(t, stats.Min, 0)
	assert.GreaterOrEqual(t, stats.Max, stats.Min)
	assert.GreaterOrEqual(t, stats.Total, stats.Max)
}

func TestMessageIDsAdvanceAcrossGenerations(t *testing.T) {
	gen := New(Options{SrcCallsign: "SEQ", StartMessageID: 10})
	_, err := gen.Generate([]byte("first"), nil)
	require.NoError(t, err)
	pdus, err := gen.Generate([]byte("second"), nil)
	require.NoError(t, err)

	h, _, err := header.Unpack(pdus[0])
	require.NoError(t, err)
	assert.EqualValues(t, 11, *h.MessageID)
}
