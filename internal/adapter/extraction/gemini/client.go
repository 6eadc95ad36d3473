package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iho/invoiceagent/internal/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.5-flash"

	maxResponseSize = 4 << 20
)

// Config holds Gemini client settings.
type Config struct {
	APIKey            string
	Model             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute float64 // 0 disables client-side rate limiting
	HTTPClient        *http.Client
	Logger            zerolog.Logger
}

// Client implements usecase.Extractor with the Gemini generateContent API.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient creates a new Client. It fails with domain.ErrMissingCredential
// when no API key is configured.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ErrMissingCredential
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
	}

	endpoint := strings.TrimRight(cfg.BaseURL, "/") +
		"/v1beta/models/" + url.PathEscape(cfg.Model) + ":generateContent"

	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		endpoint:   endpoint,
		httpClient: cfg.HTTPClient,
		limiter:    limiter,
		logger:     cfg.Logger,
	}, nil
}

// Extract sends image with the fixed instruction and decodes the JSON reply.
// It makes exactly one request; every failure wraps domain.ErrExtraction.
func (c *Client) Extract(ctx context.Context, image domain.Image) (*domain.InvoiceFields, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrExtraction, err)
		}
	}

	text, err := c.generate(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, image.Name, err)
	}

	fields, err := domain.ParseInvoiceFields([]byte(stripCodeFence(text)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, image.Name, err)
	}

	c.logger.Debug().
		Str("file", image.Name).
		Str("model", c.model).
		Str("response", text).
		Msg("fields extracted")

	return fields, nil
}

func (c *Client) generate(ctx context.Context, image domain.Image) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: Instruction},
				{InlineData: &inlineData{
					MIMEType: image.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(image.Data),
				}},
			},
		}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("model returned %d %s: %s", resp.StatusCode, apiErr.Error.Status, apiErr.Error.Message)
		}
		return "", fmt.Errorf("model returned %d", resp.StatusCode)
	}

	var gen generateResponse
	if err := json.Unmarshal(payload, &gen); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return gen.text()
}

// stripCodeFence removes a surrounding ```json fence, which some models add
// even when asked for raw JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
