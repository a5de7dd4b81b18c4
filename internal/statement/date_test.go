package statement

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   string
		order DateOrder
		want  time.Time
		ok    bool
	}{
		{"day first slash", "12/06/2025", DayFirst, day(2025, time.June, 12), true},
		{"month first slash", "12/06/2025", MonthFirst, day(2025, time.December, 6), true},
		{"day above 12 under day first", "25/06/2025", DayFirst, day(2025, time.June, 25), true},
		{"day above 12 under month first swaps", "25/06/2025", MonthFirst, day(2025, time.June, 25), true},
		{"us date under day first swaps", "06/25/2025", DayFirst, day(2025, time.June, 25), true},
		{"dash form", "3-1-2024", DayFirst, day(2024, time.January, 3), true},
		{"iso", "2025-06-12", DayFirst, day(2025, time.June, 12), true},
		{"iso ignores order", "2025-06-12", MonthFirst, day(2025, time.June, 12), true},
		{"trailing time is ignored", "12/06/2025 14:32", DayFirst, day(2025, time.June, 12), true},
		{"quoted", `"12/06/2025"`, DayFirst, day(2025, time.June, 12), true},
		{"leap day", "29/02/2024", DayFirst, day(2024, time.February, 29), true},
		{"impossible date", "31/02/2025", DayFirst, time.Time{}, false},
		{"not a leap year", "29/02/2025", DayFirst, time.Time{}, false},
		{"both above 12", "13/13/2025", DayFirst, time.Time{}, false},
		{"two digit year", "12/06/25", DayFirst, time.Time{}, false},
		{"words", "yesterday", DayFirst, time.Time{}, false},
		{"empty", "", DayFirst, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseDate(tt.raw, tt.order)
			require.Equal(t, tt.ok, ok)
			require.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 9, 17, 45, 0, 0, time.UTC)

	t.Run("parsable date ignores the clock", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, day(2025, time.June, 12), NormalizeDate("12/06/2025", DayFirst, now))
	})

	t.Run("unparsable date falls back to the clock's day", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, day(2025, time.March, 9), NormalizeDate("not a date", DayFirst, now))
	})
}

func TestDateOrder_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "day-first", DayFirst.String())
	require.Equal(t, "month-first", MonthFirst.String())
}

func TestProfileFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		source string
		order  DateOrder
		name   string
	}{
		{"Chase Sapphire", MonthFirst, "chase sapphire"},
		{"AMEX", MonthFirst, "amex"},
		{"Bank of America", MonthFirst, "bank of america"},
		{"Revolut", DayFirst, "revolut"},
		{"  ", DayFirst, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			t.Parallel()
			p := ProfileFor(tt.source)
			require.Equal(t, tt.order, p.DateOrder)
			require.Equal(t, tt.name, p.Name)
			require.Equal(t, ',', p.Delimiter)
			require.Equal(t, 3, p.minColumns())
			require.True(t, p.AbsoluteAmounts)
		})
	}
}

func TestParseDate_Properties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		want := day(
			rapid.IntRange(1990, 2040).Draw(t, "year"),
			time.Month(rapid.IntRange(1, 12).Draw(t, "month")),
			rapid.IntRange(1, 28).Draw(t, "day"),
		)

		iso, ok := ParseDate(want.Format(time.DateOnly), MonthFirst)
		if !ok || !iso.Equal(want) {
			t.Fatalf("ISO %s parsed as %v (ok=%v)", want.Format(time.DateOnly), iso, ok)
		}

		dayFirst := fmt.Sprintf("%d/%d/%d", want.Day(), want.Month(), want.Year())
		got, ok := ParseDate(dayFirst, DayFirst)
		if !ok || !got.Equal(want) {
			t.Fatalf("%s parsed as %v (ok=%v)", dayFirst, got, ok)
		}

		// Past the 12th only one reading is a real date.
		if want.Day() > 12 {
			other, ok := ParseDate(dayFirst, MonthFirst)
			if !ok || !other.Equal(want) {
				t.Fatalf("%s month-first parsed as %v (ok=%v)", dayFirst, other, ok)
			}
		}
	})
}
