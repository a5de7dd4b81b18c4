package statement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalizeAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"47,40", "47.40"},
		{"1.234,56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"12.50", "12.50"},
		{"-12.50", "-12.50"},
		{"+8", "8"},
		{"€ 1.234,56", "1234.56"},
		{"$1,000", "1000"},
		{"R$ 99,90", "99.90"},
		{"40EUR", "40"},
		{"1 234,00", "1234.00"},
		{`"3,5"`, "3.5"},
		{"12.345.678,90", "12345678.90"},
		{"garbage", "0"},
		{"", "0"},
		{"1.2.3", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			want := decimal.RequireFromString(tt.want)
			got := NormalizeAmount(tt.raw)
			require.True(t, want.Equal(got), "NormalizeAmount(%q) = %s, want %s", tt.raw, got, want)
		})
	}
}

func TestNormalizeAmount_Idempotent(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.OneOf(
			rapid.StringMatching(`[+-]?\d{1,7}([.,]\d{1,2})?`),
			rapid.StringMatching(`\d{1,3}(\.\d{3}){0,3},\d{2}`),
			rapid.StringMatching(`\d{1,3}(,\d{3}){0,3}\.\d{2}`),
			rapid.String(),
		).Draw(t, "raw")

		once := NormalizeAmount(raw)
		twice := NormalizeAmount(once.String())
		if !once.Equal(twice) {
			t.Fatalf("NormalizeAmount not idempotent for %q: %s then %s", raw, once, twice)
		}
	})
}

func FuzzNormalizeAmount(f *testing.F) {
	for _, seed := range []string{"47,40", "1.234,56", "1,234.56", "€5", "", "--1"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		got := NormalizeAmount(raw)
		if again := NormalizeAmount(got.String()); !again.Equal(got) {
			t.Errorf("NormalizeAmount(%q) = %s, re-normalized to %s", raw, got, again)
		}
	})
}
