package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp_AcceptedLayouts(t *testing.T) {
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{name: "strapi millis zulu", in: "2024-01-15T10:30:00.000Z", want: want},
		{name: "rfc3339 zulu", in: "2024-01-15T10:30:00Z", want: want},
		{name: "rfc3339 offset", in: "2024-01-15T12:30:00+02:00", want: want},
		{name: "local millis", in: "2024-01-15T10:30:00.000", want: want},
		{name: "local", in: "2024-01-15T10:30:00", want: want},
		{name: "sql style", in: "2024-01-15 10:30:00", want: want},
		{name: "date only", in: "2024-01-15", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "surrounding space", in: " 2024-01-15T10:30:00Z\n", want: want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_BlankIsAbsent(t *testing.T) {
	got, err := ParseTimestamp("  ")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestParseTimestamp_MalformedIsExplicit(t *testing.T) {
	for _, in := range []string{"yesterday", "15/01/2024", "2024-13-45T99:00:00Z"} {
		got, err := ParseTimestamp(in)
		require.ErrorIs(t, err, common.ErrMalformedTimestamp)
		assert.Contains(t, err.Error(), in)
		assert.True(t, got.IsZero(), "no substitute value for %q", in)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123000000, time.UTC)
	got, err := ParseTimestamp(FormatTimestamp(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	assert.Equal(t, "", FormatTimestamp(time.Time{}))
	assert.Equal(t, "", FormatDate(time.Time{}))
	assert.Equal(t, "2024-01-15", FormatDate(ts))
}

func TestDuration_UnmarshalJSON(t *testing.T) {
	var cfg struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"3s","b":2000000000}`), &cfg))
	assert.Equal(t, 3*time.Second, cfg.A.Duration)
	assert.Equal(t, 2*time.Second, cfg.B.Duration)

	require.Error(t, json.Unmarshal([]byte(`{"a":"soon"}`), &cfg))
	require.Error(t, json.Unmarshal([]byte(`{"a":true}`), &cfg))
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 1500 * time.Millisecond})
	require.NoError(t, err)
	assert.JSONEq(t, `"1.5s"`, string(b))
}
