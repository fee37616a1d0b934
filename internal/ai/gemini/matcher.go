package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai"
	"github.com/spigell/hh-matcher/internal/jobs"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/utils"
)

const providerName = "gemini"

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Matcher asks Gemini whether a posting fits the applicant profile.
type Matcher struct {
	generator contentGenerator
	minScore  float64
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var systemPrompt string

const defaultMaxLogLength = 200

func NewMatcher(generator contentGenerator, minScore float64, maxLogLength int, log *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Matcher{
		generator: generator,
		minScore:  minScore,
		logger:    logger.WithCommonFields(log, providerName, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

type postingPayload struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Company        string  `json:"company,omitempty"`
	Location       string  `json:"location,omitempty"`
	Salary         string  `json:"salary,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

func (m *Matcher) Evaluate(ctx context.Context, profile *ai.Profile, posting *jobs.Posting) (*ai.FitAssessment, error) {
	if profile == nil {
		return nil, fmt.Errorf("applicant profile is required")
	}
	if posting == nil {
		return nil, fmt.Errorf("posting is required")
	}

	message, err := json.MarshalIndent(map[string]any{
		"profile": profile,
		"posting": postingPayload{
			Title:          posting.Title,
			Description:    posting.Description,
			Company:        posting.Company,
			Location:       posting.Location,
			Salary:         posting.Salary,
			RelevanceScore: posting.RelevanceScore,
		},
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal prompt payload: %w", err)
	}

	m.logger.Debug("gemini generate content request",
		zap.String("posting_id", posting.ID),
		zap.Int("prompt_length", utf8.RuneCount(message)),
		zap.String("prompt_preview", utils.TruncateForLog(string(message), m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, systemPrompt, string(message))
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content response",
		zap.String("posting_id", posting.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if m.minScore > 0 && assessment.Score < m.minScore {
		m.logger.Debug("set fit to false by score threshold",
			zap.String("posting_id", posting.ID),
			zap.Float64("score", assessment.Score),
			zap.Float64("threshold", m.minScore),
		)
		assessment.Fit = false
	}

	assessment.Raw = raw
	return assessment, nil
}

func parseResponse(raw string) (*ai.FitAssessment, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		score = 0
	}

	return &ai.FitAssessment{
		Fit:    coerceBool(data["fit"]),
		Score:  score,
		Reason: coerceString(data["reason"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	// models sometimes wrap the object in prose
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start > 0 && end > start {
		raw = raw[start : end+1]
	}
	return raw
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
