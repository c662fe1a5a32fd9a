// Package intent infers what domain operation a free-text query requests.
// Tier 1 delegates to an external language model; tier 2 is a deterministic
// multilingual keyword matcher used whenever tier 1 is unavailable or its
// output is unusable.
package intent

import (
	"context"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/anbose/studiodesk/internal/models"
	"github.com/anbose/studiodesk/internal/prompts"
)

// Classifier is the tier-1 intent classifier. It never returns an error:
// transport failures, timeouts and unparseable output all degrade to an
// unknown classification, which callers feed to the tier-2 matcher.
type Classifier struct {
	model   llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// NewClassifier wraps an LLM behind the classification contract. A nil model
// means tier 1 is disabled and every query classifies as unknown.
func NewClassifier(model llms.Model, timeout time.Duration, logger *slog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{model: model, timeout: timeout, logger: logger}
}

// Classify produces a structured intent guess for an already
// reference-resolved query. The model call is bounded by the configured
// timeout; a timeout is treated like any other transport failure.
func (c *Classifier) Classify(ctx context.Context, agent models.AgentType, query, sessionContext string) *models.Classification {
	unknown := &models.Classification{Intent: models.IntentUnknown}

	if c.model == nil {
		return unknown
	}

	var prompt string
	switch agent {
	case models.AgentDashboard:
		prompt = prompts.BuildDashboardPrompt(query, sessionContext)
	default:
		prompt = prompts.BuildSupportPrompt(query, sessionContext)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(0.1),
		llms.WithMaxTokens(1000),
	)
	if err != nil {
		c.logger.Warn("classifier call failed", "agent", agent, "error", err)
		return unknown
	}

	classification, err := prompts.ParseClassification(content)
	if err != nil {
		c.logger.Warn("failed to parse classifier response", "agent", agent, "error", err)
		return unknown
	}

	return classification
}
