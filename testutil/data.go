package testutil

import (
	"fmt"

	"github.com/gilliangoud/RRCLiveLaps/message"
)

// Fixed date and time used by the fixtures
const (
	SampleDate = "2024-01-12"
	SampleTime = "09:06:35.944"
)

// SamplePassing returns a fully populated passing for the given transponder
func SamplePassing(number uint32, transponder string) message.Passing {
	return message.Passing{
		PassingNumber: number,
		Transponder:   transponder,
		RTCTime:       SampleDate + "T" + SampleTime,
		Strength:      99,
		TranCode:      "EVT",
		Noise:         3,
		Hits:          10,
		Date:          SampleDate,
		Time:          SampleTime,
	}
}

// RecordLine formats p as a line-protocol passing record. The line protocol
// carries no noise figure, so p.Noise is not encoded.
func RecordLine(p message.Passing) string {
	return fmt.Sprintf("#P;%d;%s;%s;%s;0;%d;%d;%s",
		p.PassingNumber, p.Transponder, p.Date, p.Time, p.Hits, p.Strength, p.TranCode)
}

// JSONLine formats a JSON-line ingestor record for transponder at utc
func JSONLine(transponder, utc string) string {
	return fmt.Sprintf(`{"Passing":{"Transponder":%q,"UTCTime":%q}}`, transponder, utc)
}
