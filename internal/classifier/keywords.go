package classifier

import (
	"strings"

	"gitlab.com/yelinaung/expense-importer/internal/models"
)

// KeywordRule maps description keywords to a category. Labels are tried in
// order against the category directory with MatchCategory.
type KeywordRule struct {
	Labels   []string
	Keywords []string
}

// DefaultKeywordRules is the built-in fallback table. Order matters: the first
// rule with a keyword found in the description wins.
var DefaultKeywordRules = []KeywordRule{
	{
		Labels:   []string{"Eating Out", "Dining", "Restaurants"},
		Keywords: []string{"restaurant", "cafe", "café", "coffee", "starbucks", "mcdonald", "burger", "pizza", "deliveroo", "uber eats", "just eat", "takeaway", "bistro", "pub ", "bar "},
	},
	{
		Labels:   []string{"Groceries", "Grocery", "Supermarket"},
		Keywords: []string{"supermarket", "grocery", "groceries", "tesco", "sainsbury", "lidl", "aldi", "carrefour", "waitrose", "asda", "whole foods", "market"},
	},
	{
		Labels:   []string{"Transport", "Transportation", "Travel"},
		Keywords: []string{"uber", "lyft", "taxi", "bolt", "train", "rail", "metro", "subway", "bus ", "fuel", "petrol", "parking", "airline", "tfl"},
	},
	{
		Labels:   []string{"Entertainment", "Leisure"},
		Keywords: []string{"netflix", "spotify", "disney", "steam", "theatre", "theater", "concert", "ticketmaster"},
	},
	{
		Labels:   []string{"Health", "Healthcare", "Medical"},
		Keywords: []string{"pharmacy", "chemist", "doctor", "dentist", "clinic", "hospital", "boots", "gym"},
	},
	{
		Labels:   []string{"Utilities", "Bills"},
		Keywords: []string{"electric", "energy", "water", "gas ", "broadband", "internet", "mobile", "vodafone", "telecom"},
	},
	{
		Labels:   []string{"Housing", "Rent", "Home"},
		Keywords: []string{" rent", "mortgage", "landlord", "letting"},
	},
	{
		Labels:   []string{"Shopping"},
		Keywords: []string{"amazon", "ebay", "ikea", "zara", "h&m", "primark", "store"},
	},
}

// MatchKeywords returns the category whose keywords occur in description.
// Keywords attached to directory categories are checked before rules.
func MatchKeywords(description string, categories []models.Category, rules []KeywordRule) *models.Category {
	// Padding lets keywords with a leading or trailing space match at the
	// edges of the text.
	text := " " + strings.ToLower(description) + " "

	for i := range categories {
		for _, kw := range categories[i].Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(text, kw) {
				return &categories[i]
			}
		}
	}

	for _, rule := range rules {
		if !containsAny(text, rule.Keywords) {
			continue
		}
		for _, label := range rule.Labels {
			if cat := MatchCategory(label, categories); cat != nil {
				return cat
			}
		}
	}

	return nil
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
