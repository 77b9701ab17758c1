// Package chat answers the site's chat widget through an OpenAI-compatible
// chat-completions API. GLM is preferred when configured, then OpenAI.
// Without any key it answers with a localized "not configured" message.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/folio/internal/errors"
	"github.com/hpungsan/folio/internal/i18n"
	"github.com/hpungsan/folio/internal/logger"
)

const (
	DefaultGLMURL    = "https://open.bigmodel.cn/api/paas/v4/chat/completions"
	DefaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

	// maxResponseBytes bounds how much of an upstream response is read.
	maxResponseBytes = 1 << 20
)

// Provider describes one chat-completions endpoint and its request knobs.
type Provider struct {
	Name        string
	URL         string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	// TopP is sent only when non-zero.
	TopP    float64
	Timeout time.Duration
	// PromptKey selects the system prompt from the i18n catalog.
	PromptKey string
}

// Config holds the keys and endpoints. Empty URLs use the public defaults.
type Config struct {
	GLMAPIKey    string
	GLMURL       string
	OpenAIAPIKey string
	OpenAIURL    string
}

// Service produces chat replies.
type Service struct {
	provider *Provider
	client   *http.Client
	log      logger.Logger
}

// New builds a service from cfg. A nil client uses http.DefaultClient.
func New(cfg Config, client *http.Client, log logger.Logger) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		provider: selectProvider(cfg),
		client:   client,
		log:      log.With(logger.String("component", "chat")),
	}
}

func selectProvider(cfg Config) *Provider {
	switch {
	case cfg.GLMAPIKey != "":
		return &Provider{
			Name:        "glm",
			URL:         orDefault(cfg.GLMURL, DefaultGLMURL),
			APIKey:      cfg.GLMAPIKey,
			Model:       "glm-4-flash",
			MaxTokens:   150,
			Temperature: 0.5,
			TopP:        0.9,
			Timeout:     15 * time.Second,
			PromptKey:   "chat.prompt.glm",
		}
	case cfg.OpenAIAPIKey != "":
		return &Provider{
			Name:        "openai",
			URL:         orDefault(cfg.OpenAIURL, DefaultOpenAIURL),
			APIKey:      cfg.OpenAIAPIKey,
			Model:       "gpt-3.5-turbo",
			MaxTokens:   500,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
			PromptKey:   "chat.prompt",
		}
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Provider returns the selected provider name, or "" when none is configured.
func (s *Service) Provider() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name
}

// Reply answers message in locale.
//
// An empty message is INVALID_REQUEST. When no provider is configured the
// reply is a localized notice and err is nil. When the upstream call fails
// the reply is a localized apology carrying the failure text and err is an
// UPSTREAM error, so callers can pick the status while still showing text.
func (s *Service) Reply(ctx context.Context, message, locale string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errors.NewInvalidRequest("message is required")
	}
	if s.provider == nil {
		return i18n.T(locale, "chat.unconfigured"), nil
	}

	start := time.Now()
	reply, err := s.complete(ctx, message, locale)
	if err != nil {
		s.log.Error("chat completion failed",
			logger.String("provider", s.provider.Name),
			logger.Duration("elapsed", time.Since(start)),
			logger.Error(err),
		)
		return fmt.Sprintf(i18n.T(locale, "chat.failed"), err.Error()), errors.NewUpstream(s.provider.Name, err)
	}

	s.log.Debug("chat completion",
		logger.String("provider", s.provider.Name),
		logger.Duration("elapsed", time.Since(start)),
	)
	return reply, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Service) complete(ctx context.Context, message, locale string) (string, error) {
	p := s.provider
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	body, err := json.Marshal(completionRequest{
		Model: p.Model,
		Messages: []chatMessage{
			{Role: "system", Content: i18n.T(locale, p.PromptKey)},
			{Role: "user", Content: message},
		},
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("request to %s timed out after %s", p.Name, p.Timeout)
		}
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s API error: %d - %s", p.Name, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if strings.TrimSpace(string(raw)) == "" {
		return "", fmt.Errorf("%s API returned empty response", p.Name)
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("invalid JSON response from %s API", p.Name)
	}
	if out.Error != nil {
		if out.Error.Message != "" {
			return "", stderrors.New(out.Error.Message)
		}
		return "", fmt.Errorf("%s API returned an error", p.Name)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", stderrors.New("no content in API response")
	}
	return out.Choices[0].Message.Content, nil
}
