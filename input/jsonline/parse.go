package jsonline

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/message"
)

// zeroDate is what producers send when their clock has no calendar date
const zeroDate = "0001-01-01"

// document is one inbound line
type document struct {
	Passing *passingFields `json:"Passing"`
	Time    *float64       `json:"Time"`
}

type passingFields struct {
	Transponder  *string  `json:"Transponder"`
	UTCTime      *string  `json:"UTCTime"`
	Hits         *int64   `json:"Hits"`
	RSSI         *int64   `json:"RSSI"`
	Battery      *float64 `json:"Battery"`
	Temperature  *float64 `json:"Temperature"`
	LoopID       *int64   `json:"LoopID"`
	Channel      *int64   `json:"Channel"`
	InternalData *string  `json:"InternalData"`
	PassingNo    *int64   `json:"PassingNo"`
}

// ParseLine decodes one JSON document into a Passing. now supplies the local
// date when the document carries Time but no usable date.
func ParseLine(line []byte, now func() time.Time) (message.Passing, error) {
	var doc document
	if err := json.Unmarshal(line, &doc); err != nil {
		return message.Passing{}, errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrParsingFailed, err),
			"jsonline", "ParseLine", "JSON decode")
	}
	if doc.Passing == nil {
		return message.Passing{}, errors.WrapInvalid(
			fmt.Errorf("%w: missing Passing", errors.ErrInvalidData),
			"jsonline", "ParseLine", "document check")
	}
	in := doc.Passing
	if in.Transponder == nil || in.UTCTime == nil {
		return message.Passing{}, errors.WrapInvalid(
			fmt.Errorf("%w: Transponder and UTCTime are required", errors.ErrInvalidData),
			"jsonline", "ParseLine", "document check")
	}

	utc := *in.UTCTime
	date, clock, ok := strings.Cut(utc, "T")
	if ok {
		clock = strings.TrimSuffix(clock, "Z")
	} else {
		date, clock = "", ""
	}

	if doc.Time != nil {
		clock = ClockFromSeconds(*doc.Time)
		if date == "" || date == zeroDate {
			if now == nil {
				now = time.Now
			}
			date = now().Format(time.DateOnly)
		}
	}

	rtc := utc
	if date != "" && clock != "" {
		rtc = message.CombineRTC(date, clock)
	}

	var tranCode string
	if in.InternalData != nil {
		tranCode = *in.InternalData
	}

	return message.Passing{
		PassingNumber: clampUint32(in.PassingNo),
		Transponder:   *in.Transponder,
		RTCTime:       rtc,
		Strength:      clampUint32(in.RSSI),
		TranCode:      tranCode,
		Hits:          clampUint32(in.Hits),
		Date:          date,
		Time:          clock,
	}, nil
}

// ClockFromSeconds formats seconds since midnight as HH:MM:SS.mmm.
// Milliseconds are truncated; negative input is treated as 0.
func ClockFromSeconds(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	whole := uint32(math.Min(seconds, math.MaxUint32))
	millis := uint32((seconds - float64(whole)) * 1000)
	if millis > 999 {
		millis = 999
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", whole/3600, (whole%3600)/60, whole%60, millis)
}

// clampUint32 maps absent values to 0 and clamps into the uint32 range
func clampUint32(v *int64) uint32 {
	switch {
	case v == nil || *v < 0:
		return 0
	case *v > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(*v)
	}
}
