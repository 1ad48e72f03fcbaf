package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/figo-endometrial-mcp-server/internal/domain"
)

// Fallback replies returned when the explanation service cannot answer.
const (
	ExplainUnavailable = "Service temporarily unavailable. Please check API Key."
	ExplainEmpty       = "I apologize, I couldn't generate an explanation at this moment."
	ChatUnavailable    = "I'm having trouble connecting right now."
	ChatEmpty          = "I couldn't generate a response."
)

// ExplainClient asks the explanation service to describe an assessment in
// plain language and answers follow-up questions about it.
type ExplainClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

type explainRequest struct {
	Stage     string   `json:"stage"`
	Risk      string   `json:"risk"`
	Treatment []string `json:"treatment"`
	Context   string   `json:"context"`
}

type chatRequest struct {
	History []domain.ChatMessage `json:"history"`
	Context string               `json:"context"`
}

type textResponse struct {
	Text string `json:"text"`
}

// NewExplainClient creates a new explanation client
func NewExplainClient(config domain.ServiceEndpointConfig, logger *logrus.Logger) *ExplainClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &ExplainClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   newCircuitBreaker("explain", DefaultCircuitBreakerConfig(), logger),
		logger:    logger,
	}
}

// Enabled reports whether an endpoint is configured.
func (c *ExplainClient) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Explain returns a short patient-facing explanation of the assessment. The
// returned text is always usable; err reports why a fallback was used.
func (c *ExplainClient) Explain(ctx context.Context, a *domain.Assessment) (string, error) {
	if !c.Enabled() {
		return ExplainUnavailable, ErrServiceDisabled
	}

	text, err := c.post(ctx, "/explain", explainRequest{
		Stage:     a.Stage.String(),
		Risk:      a.RiskGroup.Label(),
		Treatment: append(append([]string{}, a.Plan.Surgery...), a.Plan.Adjuvant...),
		Context:   a.ContextSummary(),
	})
	if err != nil {
		c.logger.WithError(err).WithField("assessment_id", a.ID).Warn("Explanation request failed")
		return ExplainUnavailable, err
	}
	if text == "" {
		return ExplainEmpty, nil
	}
	return text, nil
}

// Chat answers the last message in history using the assessment as context.
func (c *ExplainClient) Chat(ctx context.Context, history []domain.ChatMessage, a *domain.Assessment) (string, error) {
	if !c.Enabled() {
		return ChatUnavailable, ErrServiceDisabled
	}
	if len(history) == 0 {
		return "", domain.NewValidationError("history", "history must contain at least one message", nil)
	}

	text, err := c.post(ctx, "/chat", chatRequest{
		History: history,
		Context: a.ContextSummary(),
	})
	if err != nil {
		c.logger.WithError(err).WithField("assessment_id", a.ID).Warn("Chat request failed")
		return ChatUnavailable, err
	}
	if text == "" {
		return ChatEmpty, nil
	}
	return text, nil
}

func (c *ExplainClient) post(ctx context.Context, path string, payload interface{}) (string, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		setHeaders(req, c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("explain service returned status %d", resp.StatusCode)
		}

		var out textResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return strings.TrimSpace(out.Text), nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
