package classifier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/expense-importer/internal/models"
)

func TestMatchCategory(t *testing.T) {
	t.Parallel()

	categories := []models.Category{
		{ID: 1, Name: "Food - Dining Out"},
		{ID: 2, Name: "Food - Grocery"},
		{ID: 3, Name: "Transportation"},
		{ID: 4, Name: "Health and Wellness"},
		{ID: 5, Name: "Travel & Vacation"},
		{ID: 6, Name: "Other"},
	}

	tests := []struct {
		name   string
		label  string
		wantID int
	}{
		{"exact match", "Transportation", 3},
		{"exact match case insensitive", "food - dining out", 1},
		{"label contained in category", "dining", 1},
		{"shortest containing category wins", "food", 2},
		{"category contained in label", "Other Expenses", 6},
		{"significant word", "Vacation Rentals", 5},
		{"stop words do not match", "Out and About", 0},
		{"empty label", "  ", 0},
		{"no match", "Pets", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := MatchCategory(tt.label, categories)
			if tt.wantID == 0 {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got, "expected match for %q", tt.label)
			require.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestMatchCategory_EmptyCategories(t *testing.T) {
	t.Parallel()

	require.Nil(t, MatchCategory("Food", nil))
	require.Nil(t, MatchCategory("Food", []models.Category{}))
}

func TestSignificantWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  []string
	}{
		{"Food - Dining Out", []string{"food", "dining"}},
		{"Credit/Debt Payments", []string{"credit", "debt", "payments"}},
		{"Travel & Vacation", []string{"travel", "vacation"}},
		{"Health and Wellness", []string{"health", "wellness"}},
		{"a to be", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, significantWords(tt.input))
		})
	}
}
