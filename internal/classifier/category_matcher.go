package classifier

import (
	"strings"

	"gitlab.com/yelinaung/expense-importer/internal/models"
)

// MatchCategory finds the directory category a label refers to.
// Matching strategy:
// 1. Exact match (case-insensitive)
// 2. Contains match, either direction ("dining" matches "Food - Dining Out")
// 3. A shared significant word
// No match returns nil.
func MatchCategory(label string, categories []models.Category) *models.Category {
	labelLower := strings.ToLower(strings.TrimSpace(label))
	if labelLower == "" {
		return nil
	}

	for i := range categories {
		if strings.EqualFold(strings.TrimSpace(categories[i].Name), labelLower) {
			return &categories[i]
		}
	}

	// Shortest category containing the label.
	var best *models.Category
	for i := range categories {
		if strings.Contains(strings.ToLower(categories[i].Name), labelLower) {
			if best == nil || len(categories[i].Name) < len(best.Name) {
				best = &categories[i]
			}
		}
	}
	if best != nil {
		return best
	}

	// Longest category name contained in the label.
	for i := range categories {
		name := strings.ToLower(strings.TrimSpace(categories[i].Name))
		if name != "" && strings.Contains(labelLower, name) {
			if best == nil || len(categories[i].Name) > len(best.Name) {
				best = &categories[i]
			}
		}
	}
	if best != nil {
		return best
	}

	labelWords := significantWords(label)
	for i := range categories {
		for _, cw := range significantWords(categories[i].Name) {
			for _, lw := range labelWords {
				if lw == cw {
					return &categories[i]
				}
			}
		}
	}

	return nil
}

// significantWords lowercases s and keeps words of three or more letters that
// are not stop words.
func significantWords(s string) []string {
	s = strings.NewReplacer("-", " ", "/", " ", "&", " ").Replace(strings.ToLower(s))

	var words []string
	for _, w := range strings.Fields(s) {
		if len(w) >= 3 && !stopWords[w] {
			words = append(words, w)
		}
	}
	return words
}

var stopWords = map[string]bool{
	"and": true,
	"the": true,
	"for": true,
	"out": true,
}
