package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
)

// AnthropicConfig defines configuration options for the Anthropic evaluator.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
	Logger    zerolog.Logger
}

// AnthropicEvaluator implements Evaluator against the Anthropic messages API.
type AnthropicEvaluator struct {
	httpClient *http.Client
	cfg        AnthropicConfig
	endpoint   string
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewAnthropicEvaluator constructs an evaluator backed by the messages API.
func NewAnthropicEvaluator(cfg AnthropicConfig) (*AnthropicEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 768
	}

	endpoint := anthropicEndpoint
	if cfg.BaseURL != "" {
		endpoint = strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &AnthropicEvaluator{
		httpClient: &http.Client{},
		cfg:        cfg,
		endpoint:   endpoint,
		tracer:     otel.Tracer("github.com/sara-edu/sara-grading-api/pkg/ai/anthropic"),
		logger:     logger,
	}, nil
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage map[string]interface{} `json:"usage"`
}

// EvaluateCriterion sends the criterion and answer to the messages API
// and parses the structured response.
func (e *AnthropicEvaluator) EvaluateCriterion(parent context.Context, input CriterionInput) (CriterionOutcome, error) {
	ctx, span := e.tracer.Start(parent, "anthropic.evaluate_criterion", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.String("criterion_id", input.CriterionID),
		attribute.String("criterion_kind", input.Kind),
	))
	defer span.End()

	payload := anthropicRequest{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		System:    evaluatorSystemPrompt(),
		Messages: []anthropicMessage{
			{Role: "user", Content: buildUserPrompt(input)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return CriterionOutcome{}, fmt.Errorf("encode anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return CriterionOutcome{}, fmt.Errorf("build anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	aiDuration.WithLabelValues("anthropic", e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues("anthropic", e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CriterionOutcome{}, fmt.Errorf("anthropic evaluate: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		aiFailures.WithLabelValues("anthropic", e.cfg.Model).Inc()
		span.RecordError(err)
		return CriterionOutcome{}, fmt.Errorf("read anthropic response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("anthropic evaluate: status %d", resp.StatusCode)
		aiFailures.WithLabelValues("anthropic", e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CriterionOutcome{}, err
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		aiFailures.WithLabelValues("anthropic", e.cfg.Model).Inc()
		span.RecordError(err)
		return CriterionOutcome{}, fmt.Errorf("decode anthropic response: %w", err)
	}

	text := ""
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	outcome, err := parseOutcome(strings.TrimSpace(text))
	if err != nil {
		aiFailures.WithLabelValues("anthropic", e.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CriterionOutcome{}, err
	}

	outcome.Raw = map[string]interface{}{
		"usage": decoded.Usage,
	}

	return outcome, nil
}
