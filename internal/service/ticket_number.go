package service

import (
	"fmt"
	"strings"
	"time"
)

// FormatTicketNumber renders TCKT-{YYYYMMDD}-{unit}-{count}.  The unit
// segment is the last four characters of unit, uppercased and left-padded
// with X.  day must already be in the business time zone.
func FormatTicketNumber(day time.Time, unit string, count int64) string {
	r := []rune(strings.ToUpper(unit))
	if len(r) > 4 {
		r = r[len(r)-4:]
	}
	short := strings.Repeat("X", 4-len(r)) + string(r)
	return fmt.Sprintf("TCKT-%s-%s-%04d", day.Format("20060102"), short, count)
}
