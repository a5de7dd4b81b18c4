package bot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"gitlab.com/yelinaung/expense-importer/internal/models"
)

// GenerateIssuesCSV renders line issues as a CSV file.
func GenerateIssuesCSV(issues []models.LineIssue) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"line", "kind", "reason"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, issue := range issues {
		row := []string{strconv.Itoa(issue.Line), string(issue.Kind), issue.Reason}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}
