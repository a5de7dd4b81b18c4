package bot

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/expense-importer/internal/models"
)

func TestGenerateIssuesCSV(t *testing.T) {
	t.Parallel()

	t.Run("writes header and one row per issue", func(t *testing.T) {
		t.Parallel()

		data, err := GenerateIssuesCSV([]models.LineIssue{
			{Line: 3, Kind: models.IssueSkipped, Reason: `zero or unreadable amount "0,00"`},
			{Line: 9, Kind: models.IssueFailed, Reason: "expected at least 3 columns, found 1"},
		})
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		require.NoError(t, err)
		require.Equal(t, [][]string{
			{"line", "kind", "reason"},
			{"3", "skipped", `zero or unreadable amount "0,00"`},
			{"9", "failed", "expected at least 3 columns, found 1"},
		}, records)
	})

	t.Run("empty list has only the header", func(t *testing.T) {
		t.Parallel()

		data, err := GenerateIssuesCSV(nil)
		require.NoError(t, err)
		require.Equal(t, "line,kind,reason\n", string(data))
	})
}
