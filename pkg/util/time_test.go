package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0.000", FormatSeconds(0))
	assert.Equal(t, "1.500", FormatSeconds(1500*time.Millisecond))
	assert.Equal(t, "3661.250", FormatSeconds(time.Hour+time.Minute+time.Second+250*time.Millisecond))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00:00.000", FormatDuration(0))
	assert.Equal(t, "00:01:30.500", FormatDuration(90500*time.Millisecond))
	assert.Equal(t, "01:01:01.000", FormatDuration(3661*time.Second))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"45.5", 45500 * time.Millisecond},
		{"01:30", 90 * time.Second},
		{"1:01:01", 3661 * time.Second},
		{" 2.0 ", 2 * time.Second},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseTimestamp("1:2:3:4")
	assert.Error(t, err)
	_, err = ParseTimestamp("abc")
	assert.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	assert.Equal(t, 30.0, ParseFrameRate("30/1"))
	assert.InDelta(t, 29.97, ParseFrameRate("30000/1001"), 0.001)
	assert.Equal(t, 0.0, ParseFrameRate("30"))
	assert.Equal(t, 0.0, ParseFrameRate("30/0"))
	assert.Equal(t, 0.0, ParseFrameRate("a/b"))
}

func TestFrameTimestamp(t *testing.T) {
	assert.Equal(t, time.Duration(0), FrameTimestamp(0, 30))
	assert.Equal(t, 2*time.Second, FrameTimestamp(60, 30))
	assert.Equal(t, time.Duration(0), FrameTimestamp(100, 0))
}
