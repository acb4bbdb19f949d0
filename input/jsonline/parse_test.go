package jsonline

import (
	"testing"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2025, time.March, 8, 14, 0, 0, 0, time.Local)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected message.Passing
	}{
		{
			name: "Time overrides UTCTime clock",
			line: `{"Passing":{"Transponder":"TR002","UTCTime":"2024-01-12T09:06:35.944Z"},"Time":32795.5}`,
			expected: message.Passing{
				Transponder: "TR002",
				Date:        "2024-01-12",
				Time:        "09:06:35.500",
				RTCTime:     "2024-01-12T09:06:35.500",
			},
		},
		{
			name: "UTCTime only",
			line: `{"Passing":{"Transponder":"TR003","UTCTime":"2024-01-12T09:06:35.944Z","Hits":4,"RSSI":87,"InternalData":"0x1F","PassingNo":12}}`,
			expected: message.Passing{
				PassingNumber: 12,
				Transponder:   "TR003",
				Date:          "2024-01-12",
				Time:          "09:06:35.944",
				RTCTime:       "2024-01-12T09:06:35.944",
				Strength:      87,
				Hits:          4,
				TranCode:      "0x1F",
			},
		},
		{
			name: "zero date replaced with local date",
			line: `{"Passing":{"Transponder":"TR004","UTCTime":"0001-01-01T00:00:00Z"},"Time":3661.25}`,
			expected: message.Passing{
				Transponder: "TR004",
				Date:        "2025-03-08",
				Time:        "01:01:01.250",
				RTCTime:     "2025-03-08T01:01:01.250",
			},
		},
		{
			name: "empty date replaced with local date",
			line: `{"Passing":{"Transponder":"TR005","UTCTime":"T12:00:00Z"},"Time":0}`,
			expected: message.Passing{
				Transponder: "TR005",
				Date:        "2025-03-08",
				Time:        "00:00:00.000",
				RTCTime:     "2025-03-08T00:00:00.000",
			},
		},
		{
			name: "unsplittable UTCTime falls back to raw value",
			line: `{"Passing":{"Transponder":"TR006","UTCTime":"garbage"}}`,
			expected: message.Passing{
				Transponder: "TR006",
				RTCTime:     "garbage",
			},
		},
		{
			name: "negative numbers clamp to zero",
			line: `{"Passing":{"Transponder":"TR007","UTCTime":"2024-01-12T09:06:35Z","Hits":-1,"RSSI":-60,"PassingNo":-3}}`,
			expected: message.Passing{
				Transponder: "TR007",
				Date:        "2024-01-12",
				Time:        "09:06:35",
				RTCTime:     "2024-01-12T09:06:35",
			},
		},
		{
			name: "extra producer fields accepted",
			line: `{"Passing":{"Transponder":"TR008","UTCTime":"2024-01-12T09:06:35Z","Battery":3.7,"Temperature":21.5,"LoopID":2,"Channel":5}}`,
			expected: message.Passing{
				Transponder: "TR008",
				Date:        "2024-01-12",
				Time:        "09:06:35",
				RTCTime:     "2024-01-12T09:06:35",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseLine([]byte(tt.line), fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestParseLine_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `hello`},
		{"truncated", `{"Passing":{"Transponder":"TR1"`},
		{"missing Passing", `{"Time":1.5}`},
		{"missing Transponder", `{"Passing":{"UTCTime":"2024-01-12T09:06:35Z"}}`},
		{"missing UTCTime", `{"Passing":{"Transponder":"TR1"}}`},
		{"wrong type", `{"Passing":{"Transponder":"TR1","UTCTime":"2024-01-12T09:06:35Z","Hits":"three"}}`},
		{"fractional integer", `{"Passing":{"Transponder":"TR1","UTCTime":"2024-01-12T09:06:35Z","RSSI":1.5}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine([]byte(tt.line), fixedNow)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestClockFromSeconds(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "00:00:00.000"},
		{32795.5, "09:06:35.500"},
		{59.9999, "00:00:59.999"},
		{86399.5, "23:59:59.500"},
		{-5, "00:00:00.000"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClockFromSeconds(tt.seconds))
		})
	}
}
