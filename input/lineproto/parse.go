package lineproto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/message"
)

// Protocol literals
const (
	Delimiter = ";"

	RecordMarker = "#P"
	PingCommand  = "PING"

	SetProtocolCommand = "SETPROTOCOL;2.0"
	SetProtocolAck     = "SETPROTOCOL;2.0"

	PushPassingsCommand = "SETPUSHPASSINGS;1;1"
	PushPassingsAck     = "SETPUSHPASSINGS;1"

	// MinRecordFields is the number of fields a passing record needs to be parsed
	MinRecordFields = 5
)

// Record field positions
const (
	fieldPassingNumber = 1
	fieldTransponder   = 2
	fieldDate          = 3
	fieldTime          = 4
	fieldHits          = 6
	fieldStrength      = 7
	fieldTranCode      = 8
)

// ParseRecord turns one #P line into a Passing.
// It fails only when the line is not a passing record or has too few fields.
func ParseRecord(line string) (message.Passing, error) {
	parts := strings.Split(line, Delimiter)
	if parts[0] != RecordMarker {
		return message.Passing{}, errors.WrapInvalid(
			fmt.Errorf("%w: unexpected record type %q", errors.ErrInvalidData, parts[0]),
			"lineproto", "ParseRecord", "record type check")
	}
	if len(parts) < MinRecordFields {
		return message.Passing{}, errors.WrapInvalid(
			fmt.Errorf("%w: got %d, need %d", errors.ErrInsufficientFields, len(parts), MinRecordFields),
			"lineproto", "ParseRecord", "field count check")
	}

	field := func(idx int) string {
		if idx < len(parts) {
			return parts[idx]
		}
		return ""
	}

	date := field(fieldDate)
	clock := field(fieldTime)

	return message.Passing{
		PassingNumber: parseUint(field(fieldPassingNumber)),
		Transponder:   field(fieldTransponder),
		RTCTime:       message.CombineRTC(date, clock),
		Strength:      parseUint(field(fieldStrength)),
		TranCode:      field(fieldTranCode),
		Hits:          parseUint(field(fieldHits)),
		Date:          date,
		Time:          clock,
	}, nil
}

// parseUint returns 0 for anything that is not an unsigned 32-bit number
func parseUint(s string) uint32 {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
