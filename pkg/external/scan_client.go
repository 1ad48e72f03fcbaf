package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/figo-endometrial-mcp-server/internal/domain"
)

// ErrServiceDisabled is returned when a collaborator has no endpoint configured.
var ErrServiceDisabled = errors.New("external service not configured")

const scanPrompt = "Analyze this pathology report image. Extract the Histology type, Depth of Myoinvasion, LVSI status, and any Molecular markers (POLE, MMR, p53). Return JSON."

// ScanClient forwards pathology report images to the extraction service.
type ScanClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

type scanRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mime_type"`
	Prompt   string `json:"prompt"`
}

// NewScanClient creates a new scan client. An empty BaseURL yields a client
// whose calls fail with ErrServiceDisabled.
func NewScanClient(config domain.ServiceEndpointConfig, logger *logrus.Logger) *ScanClient {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &ScanClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   newCircuitBreaker("scan", DefaultCircuitBreakerConfig(), logger),
		logger:    logger,
	}
}

// Enabled reports whether an endpoint is configured.
func (c *ScanClient) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Scan submits an image and decodes the extracted fields.
func (c *ScanClient) Scan(ctx context.Context, image []byte, mimeType string) (*domain.ScanResult, error) {
	if !c.Enabled() {
		return nil, ErrServiceDisabled
	}
	if len(image) == 0 {
		return nil, domain.NewValidationError("image", "image cannot be empty", nil)
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doScan(ctx, image, mimeType)
	})
	if err != nil {
		c.logger.WithError(err).Warn("Report scan failed")
		return nil, fmt.Errorf("report scan failed: %w", err)
	}
	return result.(*domain.ScanResult), nil
}

func (c *ScanClient) doScan(ctx context.Context, image []byte, mimeType string) (*domain.ScanResult, error) {
	body, err := json.Marshal(scanRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		MimeType: mimeType,
		Prompt:   scanPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scan", bytes.NewReader(body))
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
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scan service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result domain.ScanResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode scan response: %w", err)
	}
	return &result, nil
}

func setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
}
