package statement

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateOrder is the default reading of an ambiguous NN/NN/YYYY date.
type DateOrder int

const (
	// DayFirst reads 06/07/2025 as 6 July 2025.
	DayFirst DateOrder = iota
	// MonthFirst reads 06/07/2025 as 7 June 2025.
	MonthFirst
)

func (o DateOrder) String() string {
	if o == MonthFirst {
		return "month-first"
	}
	return "day-first"
}

var (
	slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	dashDate  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})\b`)
	isoDate   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\b`)
)

// ParseDate reads a statement date. The slash and dash forms follow order
// unless the value that would be the month is above 12 while the other one
// is not, in which case the two are swapped. ISO dates are unambiguous.
// Dates that do not exist on the calendar are rejected.
func ParseDate(raw string, order DateOrder) (time.Time, bool) {
	s := strings.Trim(strings.TrimSpace(raw), `"'`)

	for _, re := range []*regexp.Regexp{slashDate, dashDate} {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])

		day, month := first, second
		if order == MonthFirst {
			day, month = second, first
		}
		if month > 12 && day <= 12 {
			day, month = month, day
		}

		if t, ok := calendarDate(year, month, day); ok {
			return t, true
		}
	}

	if m := isoDate.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if t, ok := calendarDate(year, month, day); ok {
			return t, true
		}
	}

	return time.Time{}, false
}

// NormalizeDate is ParseDate with a fallback: when nothing matches, the
// calendar date of now is returned.
func NormalizeDate(raw string, order DateOrder, now time.Time) time.Time {
	if t, ok := ParseDate(raw, order); ok {
		return t
	}
	return truncateToDate(now)
}

func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
