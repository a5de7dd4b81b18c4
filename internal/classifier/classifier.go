// Package classifier assigns spending categories to statement descriptions.
package classifier

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"gitlab.com/yelinaung/expense-importer/internal/gemini"
	"gitlab.com/yelinaung/expense-importer/internal/logger"
	"gitlab.com/yelinaung/expense-importer/internal/models"
	"gitlab.com/yelinaung/expense-importer/internal/telemetry"
)

// Confidence assigned by the fallback paths.
const (
	KeywordConfidence = 0.7
	DefaultConfidence = 0.3
)

var tracer = otel.Tracer("gitlab.com/yelinaung/expense-importer/internal/classifier")

// Suggester proposes a category name for a description.
type Suggester interface {
	SuggestCategory(ctx context.Context, description string, categories []string) (*gemini.CategorySuggestion, error)
}

// Result is a category decision for one description.
type Result struct {
	CategoryID int
	Confidence float64
	Method     string
}

// Classifier tries the suggester first and falls back to keywords.
type Classifier struct {
	suggester    Suggester
	defaultLabel string
	rules        []KeywordRule
	metrics      *telemetry.Metrics
}

// New creates a Classifier. suggester may be nil, in which case only the
// keyword fallback runs. An empty defaultLabel means "Other".
func New(suggester Suggester, defaultLabel string, metrics *telemetry.Metrics) *Classifier {
	if strings.TrimSpace(defaultLabel) == "" {
		defaultLabel = models.DefaultCategoryLabel
	}
	return &Classifier{
		suggester:    suggester,
		defaultLabel: defaultLabel,
		rules:        DefaultKeywordRules,
		metrics:      metrics,
	}
}

// Classify never fails. With no categories at all the result has CategoryID 0.
func (c *Classifier) Classify(ctx context.Context, description string, categories []models.Category) Result {
	ctx, span := tracer.Start(ctx, "classifier.Classify")
	defer span.End()

	result := c.classify(ctx, description, categories)

	span.SetAttributes(
		attribute.String("classifier.method", result.Method),
		attribute.Float64("classifier.confidence", result.Confidence),
	)
	c.metrics.Classified(ctx, result.Method)

	return result
}

func (c *Classifier) classify(ctx context.Context, description string, categories []models.Category) Result {
	if len(categories) == 0 {
		return Result{Method: models.ClassifiedByDefault}
	}
	def := DefaultCategory(categories, c.defaultLabel)

	if c.suggester != nil {
		if result, ok := c.suggest(ctx, description, categories, def); ok {
			return result
		}
	}

	if cat := MatchKeywords(description, categories, c.rules); cat != nil {
		return Result{CategoryID: cat.ID, Confidence: KeywordConfidence, Method: models.ClassifiedByKeyword}
	}

	return Result{CategoryID: def.ID, Confidence: DefaultConfidence, Method: models.ClassifiedByDefault}
}

func (c *Classifier) suggest(ctx context.Context, description string, categories []models.Category, def *models.Category) (Result, bool) {
	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = cat.Name
	}

	suggestion, err := c.suggester.SuggestCategory(ctx, description, names)
	if err != nil || suggestion == nil {
		logger.Log.Debug().Err(err).
			Str("description_hash", logger.HashDescription(description)).
			Msg("AI classification unavailable, using keyword fallback")
		return Result{}, false
	}

	confidence := gemini.ClampConfidence(suggestion.Confidence)
	name := strings.TrimSpace(suggestion.Category)
	for i := range categories {
		if strings.EqualFold(categories[i].Name, name) {
			return Result{CategoryID: categories[i].ID, Confidence: confidence, Method: models.ClassifiedByAI}, true
		}
	}

	logger.Log.Debug().
		Str("description_hash", logger.HashDescription(description)).
		Msg("AI suggested an unknown category, using default")
	return Result{CategoryID: def.ID, Confidence: confidence, Method: models.ClassifiedByDefault}, true
}

// DefaultCategory returns the category named label, or the first category.
// It returns nil only for an empty directory.
func DefaultCategory(categories []models.Category, label string) *models.Category {
	if len(categories) == 0 {
		return nil
	}
	for i := range categories {
		if strings.EqualFold(strings.TrimSpace(categories[i].Name), strings.TrimSpace(label)) {
			return &categories[i]
		}
	}
	return &categories[0]
}
