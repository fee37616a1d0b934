package gemini

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/hh-matcher/internal/utils"
)

const (
	defaultModel = "gemini-2.5-flash"

	baseRetryDelay = 2 * time.Second
	// Longer server-requested pauses mean the quota is gone for a while.
	maxRetryDelay = 30 * time.Second
)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := c.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// Generator sends single-turn prompts to Gemini, retrying transient failures.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	logger     *zap.Logger
	wait       func(ctx context.Context, d time.Duration) error
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:      genaiChats{chats: client.Chats},
		model:      model,
		maxRetries: maxRetries,
		logger:     logger,
		wait:       utils.WaitFor,
	}, nil
}

// GenerateContent sends message with the given system instruction and
// returns the textual answer. maxRetries is the total number of attempts.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("prompt must not be empty")
	}

	var config *genai.GenerateContentConfig
	if system = strings.TrimSpace(system); system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	attempts := g.maxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		output, err := g.send(ctx, config, message)
		if err == nil {
			return output, nil
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == attempts {
			break
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		waitFn := g.wait
		if waitFn == nil {
			waitFn = utils.WaitFor
		}
		if err := waitFn(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

func (g *Generator) send(ctx context.Context, config *genai.GenerateContentConfig, message string) (string, error) {
	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9.]+) ?(s|sec|seconds?)\b`)

// retryDelay reports whether err is worth another attempt and how long to
// wait before it.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}
	if apiErr.Code != 429 && apiErr.Code < 500 {
		return 0, false
	}

	delay := utils.Backoff(baseRetryDelay, attempt)
	if m := retryAfterPattern.FindStringSubmatch(apiErr.Message); m != nil {
		seconds, parseErr := strconv.ParseFloat(m[1], 64)
		if parseErr == nil {
			delay = time.Duration(seconds * float64(time.Second))
		}
	}
	if delay > maxRetryDelay {
		return delay, false
	}
	return delay, true
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
