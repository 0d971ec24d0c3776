package aiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/imagecodec"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// GenAIConfig configures the Gemini-backed generator.
type GenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// HTTPClient overrides the transport; nil uses the SDK default.
	HTTPClient *http.Client
}

// GenAIClient calls the Gemini API through google.golang.org/genai.
type GenAIClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGenAIClient builds a generator; an empty API key is an auth error.
func NewGenAIClient(ctx context.Context, cfg GenAIConfig, logger *zap.Logger) (*GenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperror.New(apperror.KindAuth, "generative AI API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIClient{client: client, model: model, logger: logger.Named("genai")}, nil
}

// Generate sends the images followed by the prompt as a single user turn.
// Failures are returned as network, auth or rate-limit errors and are never
// retried here.
func (g *GenAIClient) Generate(ctx context.Context, images []imagecodec.Image, prompt string) (string, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		classified := classifyError(err)
		g.logger.Warn("generate content failed",
			zap.String("model", g.model),
			zap.Int("images", len(images)),
			zap.Stringer("kind", apperror.KindOf(classified)),
			zap.Error(err))
		return "", classified
	}
	if resp == nil {
		return "", apperror.New(apperror.KindNetwork, "empty response from model")
	}
	return resp.Text(), nil
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyStatus(apiErrPtr.Code, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Wrap(apperror.KindNetwork, "model request interrupted", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperror.Wrap(apperror.KindNetwork, "model unreachable", err)
	}
	return apperror.Wrap(apperror.KindNetwork, "model request failed", err)
}

func classifyStatus(code int, err error) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperror.Wrap(apperror.KindAuth, "model rejected credentials", err)
	case http.StatusTooManyRequests:
		return apperror.Wrap(apperror.KindRateLimit, "model quota exhausted", err)
	case http.StatusBadRequest:
		// The Gemini API answers an invalid key with 400 API_KEY_INVALID.
		if strings.Contains(strings.ToUpper(err.Error()), "API_KEY") || strings.Contains(strings.ToUpper(err.Error()), "API KEY") {
			return apperror.Wrap(apperror.KindAuth, "model rejected credentials", err)
		}
	}
	return apperror.Wrap(apperror.KindNetwork, fmt.Sprintf("model returned status %d", code), err)
}
