package timeutil

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30)
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if Asia/Kolkata not available
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Now returns the current time in IST
func Now() time.Time {
	return time.Now().In(IST)
}

// ToIST converts any time to IST
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// FormatIST formats a time in IST using the given layout
func FormatIST(t time.Time, layout string) string {
	return t.In(IST).Format(layout)
}

// StartOfDay returns 00:00:00 IST of the day containing t.
func StartOfDay(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IST)
}

// EndOfDay returns the last instant of the IST day containing t. The bound
// is inclusive, so 23:59:59.5 still belongs to the day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ParseDay parses a YYYY-MM-DD value as a calendar day in IST.
func ParseDay(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, IST)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day %q: %w", value, err)
	}
	return t, nil
}

// DayStart parses a YYYY-MM-DD value and returns its 00:00:00 bound.
func DayStart(value string) (time.Time, error) {
	t, err := ParseDay(value)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(t), nil
}

// DayEnd parses a YYYY-MM-DD value and returns its inclusive upper bound.
func DayEnd(value string) (time.Time, error) {
	t, err := ParseDay(value)
	if err != nil {
		return time.Time{}, err
	}
	return EndOfDay(t), nil
}

// Common layouts for IST formatting
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
