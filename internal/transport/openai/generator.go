package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/quickai/quickai/internal/domain"
	"github.com/quickai/quickai/internal/metrics"
)

// Defaults for the Pollinations endpoints.
const (
	DefaultTextBaseURL  = "https://text.pollinations.ai/openai"
	DefaultImageBaseURL = "https://image.pollinations.ai/prompt/"
	DefaultImageSize    = 1024
	DefaultImageSeed    = 42
)

// Generator produces text through an OpenAI-compatible chat endpoint and
// image links through the Pollinations prompt URL scheme.
type Generator struct {
	client       *openai.Client
	imageBaseURL string
	width        int
	height       int
	seed         int
	user         string
	provider     string
	logger       *zap.Logger
}

// Config holds the generation provider settings.
type Config struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	ImageWidth   int
	ImageHeight  int
	ImageSeed    int
	User         string
	Provider     string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// NewGenerator creates a generation client. Zero fields take the Pollinations defaults.
func NewGenerator(cfg *Config) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = orDefault(cfg.BaseURL, DefaultTextBaseURL)
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		client:       openai.NewClientWithConfig(clientCfg),
		imageBaseURL: orDefault(cfg.ImageBaseURL, DefaultImageBaseURL),
		width:        orDefaultInt(cfg.ImageWidth, DefaultImageSize),
		height:       orDefaultInt(cfg.ImageHeight, DefaultImageSize),
		seed:         orDefaultInt(cfg.ImageSeed, DefaultImageSeed),
		user:         cfg.User,
		provider:     orDefault(cfg.Provider, "pollinations"),
		logger:       logger,
	}
}

// GenerateText sends one chat completion with the given system prompt.
func (g *Generator) GenerateText(ctx context.Context, model, systemPrompt, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		User: g.user,
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues("text", model, "error").Inc()
		g.logger.Warn("Text generation failed",
			zap.String("provider", g.provider),
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.GenerationRequestsTotal.WithLabelValues("text", model, "error").Inc()
		return "", fmt.Errorf("empty completion from %s: %w", g.provider, domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestsTotal.WithLabelValues("text", model, "success").Inc()
	metrics.GenerationDuration.WithLabelValues("text", model).Observe(duration.Seconds())
	return resp.Choices[0].Message.Content, nil
}

// ImageURL returns the link that renders prompt with the given image model.
func (g *Generator) ImageURL(_ context.Context, model, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("empty image prompt: %w", domain.ErrGenerationFailed)
	}

	q := url.Values{}
	q.Set("model", model)
	q.Set("width", strconv.Itoa(g.width))
	q.Set("height", strconv.Itoa(g.height))
	q.Set("seed", strconv.Itoa(g.seed))
	q.Set("nologo", "true")

	metrics.GenerationRequestsTotal.WithLabelValues("image", model, "success").Inc()
	return g.imageBaseURL + url.PathEscape(prompt) + "?" + q.Encode(), nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError wraps every upstream failure with domain.ErrGenerationFailed for the 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrGenerationFailed

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("generation API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("generation API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("generation timed out: %w", wrap)
	}
	return fmt.Errorf("generation request failed: %w", wrap)
}

// extractDetail reads "detail" or "error" from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Error
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
