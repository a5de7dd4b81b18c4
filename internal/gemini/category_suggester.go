package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"gitlab.com/yelinaung/expense-importer/internal/logger"
	"google.golang.org/genai"
)

// MaxDescriptionLength is the maximum allowed length for statement descriptions.
const MaxDescriptionLength = 200

// MaxCategoryNameLength is the maximum allowed length for category names.
const MaxCategoryNameLength = 50

// CategorySuggestion represents a suggested category for a transaction description.
type CategorySuggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	// Known reports whether Category is one of the names that were offered.
	Known bool `json:"-"`
}

// SuggestCategory asks Gemini to place a statement description into one of
// availableCategories. A name outside the list is returned as-is with Known
// unset; confidence is clamped to [0, 1].
func (c *Client) SuggestCategory(ctx context.Context, description string, availableCategories []string) (*CategorySuggestion, error) {
	descHash := logger.HashDescription(description)
	logger.Log.Debug().
		Str("description_hash", descHash).
		Int("category_count", len(availableCategories)).
		Msg("SuggestCategory called")

	if c == nil || c.generator == nil {
		return nil, ErrNotConfigured
	}

	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("description is required")
	}

	if len(availableCategories) == 0 {
		return nil, fmt.Errorf("no categories available")
	}

	names := make([]string, 0, len(availableCategories))
	for _, name := range availableCategories {
		names = append(names, SanitizeCategoryName(name))
	}

	prompt := buildCategorySuggestionPrompt(sanitizeDescription(description), names)

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	temp := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(500),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: "You are a JSON API. You MUST respond with ONLY valid JSON, no preamble or explanation. Output a single JSON object."},
			},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {
					Type:        genai.TypeString,
					Enum:        names,
					Description: "The most appropriate category from the provided list",
				},
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Confidence score between 0 and 1",
				},
				"reasoning": {
					Type:        genai.TypeString,
					Description: "Brief explanation for the categorization",
				},
			},
			Required: []string{"category", "confidence", "reasoning"},
		},
	}

	resp, err := c.generator.GenerateContent(timeoutCtx, c.model, contents, config)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("description_hash", descHash).
			Msg("SuggestCategory: Gemini API call failed")
		return nil, fmt.Errorf("%w: %w", ErrAPICall, err)
	}

	if resp == nil {
		return nil, fmt.Errorf("%w: no response", ErrInvalidResponse)
	}

	fullText := resp.Text()
	if fullText == "" {
		return nil, fmt.Errorf("%w: no text content in response", ErrInvalidResponse)
	}

	jsonText := extractJSON(fullText)
	if jsonText == "" {
		return nil, fmt.Errorf("%w: no JSON found in response", ErrInvalidResponse)
	}

	var suggestion CategorySuggestion
	if err := json.Unmarshal([]byte(jsonText), &suggestion); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %w", ErrInvalidResponse, err)
	}

	for i, name := range names {
		if strings.EqualFold(name, strings.TrimSpace(suggestion.Category)) {
			suggestion.Category = availableCategories[i]
			suggestion.Known = true
			break
		}
	}
	if !suggestion.Known {
		logger.Log.Warn().
			Str("description_hash", descHash).
			Str("suggested_category", SanitizeCategoryName(suggestion.Category)).
			Msg("SuggestCategory: suggested category not in available list")
	}

	suggestion.Confidence = ClampConfidence(suggestion.Confidence)
	suggestion.Reasoning = sanitizeReasoning(suggestion.Reasoning)

	logger.Log.Debug().
		Str("description_hash", descHash).
		Str("category", suggestion.Category).
		Float64("confidence", suggestion.Confidence).
		Msg("SuggestCategory: parsed Gemini suggestion")

	return &suggestion, nil
}

// ClampConfidence forces a model-reported score into [0, 1].
func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// buildCategorySuggestionPrompt creates the prompt for category suggestion.
func buildCategorySuggestionPrompt(description string, categories []string) string {
	categoriesList := strings.Join(categories, "\n- ")

	return fmt.Sprintf(`Categorize this bank statement transaction: "%s"

Available categories:
- %s

Rules:
- Choose the MOST appropriate category from the list
- Statement descriptions are terse merchant names, often with card or terminal codes; ignore the codes
- Restaurants, cafes and takeaways are eating out; supermarkets are groceries
- Higher confidence (0.8-1.0) for obvious merchants, lower (0.4-0.7) for ambiguous ones

Return JSON only:
{"category": "exact category name", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`, description, categoriesList)
}

// extractJSON extracts a JSON object from text that may contain preamble.
// Gemini sometimes returns responses like "Here is the JSON:\n{...}" even
// when ResponseMIMEType is set to application/json.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(text, "}")
	if end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}

// SanitizeForPrompt sanitizes user input to prevent prompt injection attacks.
// It removes or escapes characters that could break prompt structure,
// and truncates to the given maxLength.
func SanitizeForPrompt(input string, maxLength int) string {
	input = strings.ReplaceAll(input, `"`, `'`)
	input = strings.ReplaceAll(input, "`", "'")
	input = strings.ReplaceAll(input, "\x00", "")

	// Collapses every run of whitespace, newlines included.
	input = strings.Join(strings.Fields(input), " ")

	return truncate(input, maxLength)
}

// truncate cuts s to at most maxBytes without splitting a UTF-8 sequence.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

// SanitizeCategoryName sanitizes a category name for safe embedding in prompts.
func SanitizeCategoryName(name string) string {
	return SanitizeForPrompt(name, MaxCategoryNameLength)
}

func sanitizeDescription(description string) string {
	return SanitizeForPrompt(description, MaxDescriptionLength)
}

// sanitizeReasoning sanitizes the reasoning field from LLM response.
func sanitizeReasoning(reasoning string) string {
	reasoning = strings.Join(strings.Fields(reasoning), " ")

	const maxReasoningLength = 500
	return truncate(reasoning, maxReasoningLength)
}
