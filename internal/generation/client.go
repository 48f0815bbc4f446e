package generation

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/campaign-briefing/internal/campaign"
	"github.com/jonathan/campaign-briefing/internal/digest"
	"github.com/jonathan/campaign-briefing/internal/llm"
	"github.com/jonathan/campaign-briefing/internal/prompts"
	"github.com/jonathan/campaign-briefing/internal/retry"
	"github.com/jonathan/campaign-briefing/internal/schemas"
	"github.com/jonathan/campaign-briefing/internal/types"
)

const (
	operationArticles = "Article selection"
	operationDeepDive = "Deep dive"
)

// Options configures a Client
type Options struct {
	MaxAttempts int
	Delay       retry.Delay
	Logger      *slog.Logger
	// NewID generates ids for charts the model returned without one.
	NewID func() string
}

// DefaultOptions returns three attempts with a short exponential backoff.
func DefaultOptions() *Options {
	return &Options{
		MaxAttempts: retry.DefaultMaxAttempts,
		Delay:       retry.Exponential(500*time.Millisecond, 4*time.Second),
	}
}

// Client produces validated article selections and deep dives
type Client struct {
	llm         llm.Client
	maxAttempts int
	delay       retry.Delay
	logger      *slog.Logger
	newID       func() string
}

// NewClient wraps an llm.Client. A nil opts uses DefaultOptions.
func NewClient(client llm.Client, opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Client{
		llm:         client,
		maxAttempts: opts.MaxAttempts,
		delay:       opts.Delay,
		logger:      logger.With("component", "generation"),
		newID:       newID,
	}
}

// SelectArticles asks the model to pick up to ten articles for the issue from
// the shortlist, retrying until the response passes validation.
func (c *Client) SelectArticles(ctx context.Context, issue string, shortlist []types.ScoredArticle) (*types.ArticleSearchResult, error) {
	system, err := prompts.Get(prompts.ArticlesFile, "select-system")
	if err != nil {
		return nil, err
	}
	user, err := prompts.Render(prompts.ArticlesFile, "select-user", map[string]string{
		"Issue":          issue,
		"CandidateCount": strconv.Itoa(len(shortlist)),
		"Digest":         digest.Articles(shortlist),
	})
	if err != nil {
		return nil, err
	}
	prompt := llm.Prompt{System: system, User: user}
	logger := c.logger.With("operation", "select_articles", "issue", issue)

	var (
		attempts    int
		lastInvalid *schemas.ValidationError
		result      *types.ArticleSearchResult
	)

	_, err = retry.Do(ctx,
		func(ctx context.Context) (string, error) {
			attempts++
			return c.llm.GenerateJSON(ctx, prompt, llm.TierLite)
		},
		func(_ context.Context, raw string) (bool, error) {
			parsed, err := schemas.ValidateArticleSearch(raw)
			if err != nil {
				var ve *schemas.ValidationError
				if errors.As(err, &ve) {
					lastInvalid = ve
					return false, nil
				}
				return false, err
			}
			lastInvalid = nil
			result = parsed
			return true, nil
		},
		retry.Options[string]{
			MaxAttempts: c.maxAttempts,
			Delay:       c.delay,
			OnError: func(err error, attempt int) {
				lastInvalid = nil
				logger.Warn("model request failed", "attempt", attempt, "error", err)
			},
			OnValidationFailure: func(_ string, attempt int) {
				logger.Warn("model output failed validation", "attempt", attempt, "issues", lastInvalid.Issues())
			},
			ShouldRetry: retryable,
		},
	)
	if err != nil {
		return nil, classify(operationArticles, err, attempts, lastInvalid)
	}

	logger.Info("articles selected", "count", len(result.Articles), "attempts", attempts)
	return result, nil
}

// DeepDive asks for a free-text draft covering the metrics, validates the
// repaired JSON and, when it is still invalid, runs one schema repair pass.
func (c *Client) DeepDive(ctx context.Context, metrics types.ExpandedMetrics, category types.Category) (*types.DeepDiveResult, error) {
	typeDefinitions, err := prompts.Get(prompts.InsightsFile, "type-definitions")
	if err != nil {
		return nil, err
	}
	system, err := prompts.Get(prompts.InsightsFile, "deep-dive-system")
	if err != nil {
		return nil, err
	}
	sections := digest.Metrics(metrics)
	user, err := prompts.Render(prompts.InsightsFile, "deep-dive-user", map[string]string{
		"Category":        string(category),
		"TypeDefinitions": typeDefinitions,
		"Totals":          campaign.BuildSummary(metrics).Text(),
		"Rollups":         campaign.Rollups(metrics),
		"DonationsCSV":    sections.Donations,
		"VolunteersCSV":   sections.Volunteers,
		"EventsCSV":       sections.Events,
	})
	if err != nil {
		return nil, err
	}
	logger := c.logger.With("operation", "deep_dive", "category", string(category))

	draft, err := c.request(ctx, logger, llm.Prompt{System: system, User: user}, llm.TierStandard, false)
	if err != nil {
		return nil, err
	}

	result, err := schemas.ValidateDeepDive(llm.RepairJSON(draft))
	if err == nil {
		logger.Info("deep dive draft valid")
		return c.finish(result), nil
	}
	var draftInvalid *schemas.ValidationError
	if !errors.As(err, &draftInvalid) {
		return nil, err
	}
	logger.Warn("deep dive draft failed validation, running repair pass", "issues", draftInvalid.Issues())

	repairSystem, err := prompts.Get(prompts.InsightsFile, "repair-system")
	if err != nil {
		return nil, err
	}
	repairUser, err := prompts.Render(prompts.InsightsFile, "repair-user", map[string]string{
		"Category":        string(category),
		"Violations":      "Validation issues: " + draftInvalid.Issues(),
		"Draft":           strings.TrimSpace(draft),
		"TypeDefinitions": typeDefinitions,
	})
	if err != nil {
		return nil, err
	}

	repaired, err := c.request(ctx, logger, llm.Prompt{System: repairSystem, User: repairUser}, llm.TierAdvanced, true)
	if err != nil {
		return nil, err
	}

	result, err = schemas.ValidateDeepDive(llm.RepairJSON(repaired))
	if err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			logger.Warn("repair pass failed validation", "issues", ve.Issues())
			return nil, &SchemaValidationError{Operation: operationDeepDive, Errors: ve.Errors}
		}
		return nil, err
	}

	logger.Info("deep dive repaired")
	return c.finish(result), nil
}

// modelCall is a single generation request. Any non-blank text is accepted;
// schema checks happen after the call returns.
type modelCall struct {
	llm      llm.Client
	prompt   llm.Prompt
	tier     llm.ModelTier
	jsonMode bool
	attempts int
}

func (m *modelCall) Run(ctx context.Context) (string, error) {
	m.attempts++
	if m.jsonMode {
		return m.llm.GenerateJSON(ctx, m.prompt, m.tier)
	}
	return m.llm.GenerateContent(ctx, m.prompt, m.tier)
}

func (m *modelCall) IsValid(_ context.Context, text string) (bool, error) {
	return strings.TrimSpace(text) != "", nil
}

// request runs one generation call through the retry harness. Only transport
// failures and empty responses are retried.
func (c *Client) request(ctx context.Context, logger *slog.Logger, prompt llm.Prompt, tier llm.ModelTier, jsonMode bool) (string, error) {
	call := &modelCall{llm: c.llm, prompt: prompt, tier: tier, jsonMode: jsonMode}
	text, err := retry.Run[string](ctx, call, retry.Options[string]{
		MaxAttempts: c.maxAttempts,
		Delay:       c.delay,
		OnError: func(err error, attempt int) {
			logger.Warn("model request failed", "tier", tier, "attempt", attempt, "error", err)
		},
		OnValidationFailure: func(_ string, attempt int) {
			logger.Warn("model returned an empty response", "tier", tier, "attempt", attempt)
		},
		ShouldRetry: retryable,
	})
	if err != nil {
		empty := &schemas.ValidationError{Errors: []schemas.FieldError{{Field: "(root)", Message: "response is empty"}}}
		return "", classify(operationDeepDive, err, call.attempts, empty)
	}
	return text, nil
}

func (c *Client) finish(result *types.DeepDiveResult) *types.DeepDiveResult {
	if result.Chart.Base().ID == "" {
		result.Chart = types.WithID(result.Chart, c.newID())
	}
	return result
}

// retryable reports whether another attempt could succeed. An HTML gateway
// page means the credentials or model access are wrong.
func retryable(err error) bool {
	var gateway *llm.UpstreamGatewayError
	return !errors.As(err, &gateway)
}

// classify turns the terminal error of a retry run into the caller-facing kind.
func classify(operation string, err error, attempts int, lastInvalid *schemas.ValidationError) error {
	var gateway *llm.UpstreamGatewayError
	if errors.As(err, &gateway) {
		return gateway
	}
	var exhausted *retry.ValidationExhaustedError
	if errors.As(err, &exhausted) && lastInvalid != nil {
		return &SchemaValidationError{Operation: operation, Errors: lastInvalid.Errors}
	}
	return &TransportError{Operation: operation, Attempts: attempts, Cause: err}
}
