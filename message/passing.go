package message

import "fmt"

// Passing is one timing read of a transponder crossing a detection loop.
//
// Every field has a zero default so a Passing can always be built from partial
// input: parsing degrades field by field, it never fails as a whole.
type Passing struct {
	PassingNumber uint32 `json:"passing_number"`
	Transponder   string `json:"transponder"`
	RTCTime       string `json:"rtc_time"`
	Strength      uint32 `json:"strength"`
	TranCode      string `json:"tran_code"`
	Noise         uint32 `json:"noise"`
	Hits          uint32 `json:"hits"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

// CombineRTC joins a date and a time verbatim into the "{date}T{time}" form
// used for rtc_time.
func CombineRTC(date, clock string) string {
	return date + "T" + clock
}

func (p Passing) String() string {
	return fmt.Sprintf("passing #%d transponder=%s rtc=%s hits=%d strength=%d",
		p.PassingNumber, p.Transponder, p.RTCTime, p.Hits, p.Strength)
}
