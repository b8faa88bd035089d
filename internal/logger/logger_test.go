package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	Info("message received", SrcCallsign("N0CALL"), MessageID(7), PDUBytes(42))

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "message received")
	// Protocol identity fields are promoted into the station tag.
	assert.Contains(t, out, "[N0CALL #7]")
	assert.NotContains(t, out, "src_callsign=")
	// Everything else trails as key=value.
	assert.Contains(t, out, "pdu_bytes=42")
}

func TestStationTagWithPath(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")

	Info("chunk stored",
		SrcCallsign("F4JXQ-1"), DstCallsign("QST"),
		MessageID(12), ChunkID(3), TotalChunks(7))

	assert.Contains(t, buf.String(), "[F4JXQ-1>QST #12 3/7]")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")

	Debug("hidden")
	Info("also hidden")
	Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")

	Info("session complete", Session("S1/42"), Quality(1000))

	line := strings.TrimSpace(buf.String())
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))
	assert.Equal(t, "session complete", record["msg"])
	assert.Equal(t, "S1/42", record["session"])
	assert.EqualValues(t, 1000, record["quality"])
}

func TestInvalidLevelIgnored(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")
	SetLevel("SHOUTING")

	Info("still works")
	assert.Contains(t, buf.String(), "still works")
}

func TestErrAttr(t *testing.T) {
	assert.True(t, Err(nil).Equal(Err(nil)))

	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")
	Error("decode failed", Err(assert.AnError))
	assert.Contains(t, buf.String(), "error=")
}
