package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"plain", "200", 200, false},
		{"bytes suffix", "1024B", 1024, false},
		{"kibibytes", "1Ki", 1024, false},
		{"kibibytes long", "64KiB", 64 * 1024, false},
		{"kilobytes", "1KB", 1000, false},
		{"mebibytes", "2Mi", 2 * 1024 * 1024, false},
		{"float", "1.5Ki", ByteSize(1.5 * 1024), false},
		{"whitespace", " 1 Ki ", 1024, false},
		{"case insensitive", "1ki", 1024, false},
		{"empty", "", 0, true},
		{"garbage", "lots", 0, true},
		{"unknown unit", "1Xi", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalText(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("200")))
	assert.Equal(t, ByteSize(200), b)
	assert.Error(t, b.UnmarshalText([]byte("nope")))
}

func TestString(t *testing.T) {
	assert.Equal(t, "200B", ByteSize(200).String())
	assert.Equal(t, "1.00KiB", ByteSize(1024).String())
	assert.Equal(t, "2.00MiB", (2 * MiB).String())
}
