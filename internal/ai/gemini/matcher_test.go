package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai"
	"github.com/spigell/hh-matcher/internal/jobs"
	"github.com/spigell/hh-matcher/internal/relevance"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func testPosting() *jobs.Posting {
	return &jobs.Posting{
		JobPosting: relevance.JobPosting{
			ID:          "v1",
			Title:       "Go Developer",
			Description: "Go, Kubernetes",
			Company:     "Acme",
		},
		RelevanceScore: 41.2,
	}
}

func TestMatcherEvaluate(t *testing.T) {
	stub := &stubGenerator{response: `{"fit": true, "score": 0.9, "reason": "Matches skills"}`}
	matcher := NewMatcher(stub, 0.5, 0, zap.NewNop())

	profile := &ai.Profile{Skills: []string{"Go"}, Excluded: []string{"php"}}

	assessment, err := matcher.Evaluate(context.Background(), profile, testPosting())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !assessment.Fit {
		t.Fatalf("expected fit to be true")
	}

	if assessment.Score != 0.9 {
		t.Fatalf("expected score 0.9, got %v", assessment.Score)
	}

	if assessment.Reason != "Matches skills" {
		t.Fatalf("unexpected reason: %q", assessment.Reason)
	}

	if assessment.Raw == "" {
		t.Fatalf("expected raw response to be kept")
	}

	if !strings.Contains(stub.lastSystem, "excluded_skills") {
		t.Fatalf("expected embedded system prompt, got %q", stub.lastSystem)
	}

	var payload struct {
		Profile ai.Profile `json:"profile"`
		Posting struct {
			Title          string  `json:"title"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"posting"`
	}
	if err := json.Unmarshal([]byte(stub.lastMessage), &payload); err != nil {
		t.Fatalf("message is not json: %v", err)
	}
	if payload.Posting.Title != "Go Developer" || payload.Posting.RelevanceScore != 41.2 {
		t.Fatalf("unexpected posting payload: %+v", payload.Posting)
	}
	if len(payload.Profile.Excluded) != 1 || payload.Profile.Excluded[0] != "php" {
		t.Fatalf("unexpected profile payload: %+v", payload.Profile)
	}
}

func TestMatcherAppliesScoreThreshold(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"fit\": \"yes\", \"score\": \"0.3\", \"reason\": \"weak\"}\n```"}
	matcher := NewMatcher(stub, 0.5, 0, zap.NewNop())

	assessment, err := matcher.Evaluate(context.Background(), &ai.Profile{}, testPosting())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assessment.Fit {
		t.Fatalf("expected fit to be forced to false")
	}
	if assessment.Score != 0.3 {
		t.Fatalf("unexpected score %v", assessment.Score)
	}
}

func TestMatcherErrors(t *testing.T) {
	matcher := NewMatcher(&stubGenerator{err: errors.New("quota")}, 0, 0, zap.NewNop())

	if _, err := matcher.Evaluate(context.Background(), nil, testPosting()); err == nil {
		t.Fatalf("expected error for nil profile")
	}
	if _, err := matcher.Evaluate(context.Background(), &ai.Profile{}, nil); err == nil {
		t.Fatalf("expected error for nil posting")
	}
	if _, err := matcher.Evaluate(context.Background(), &ai.Profile{}, testPosting()); err == nil {
		t.Fatalf("expected generator error")
	}

	matcher = NewMatcher(&stubGenerator{response: "not json"}, 0, 0, zap.NewNop())
	if _, err := matcher.Evaluate(context.Background(), &ai.Profile{}, testPosting()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseResponse(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		fit    bool
		score  float64
		reason string
	}{
		{name: "plain", raw: `{"fit": true, "score": 0.8, "reason": "ok"}`, fit: true, score: 0.8, reason: "ok"},
		{name: "fenced", raw: "```\n{\"fit\": false, \"score\": 0.1}\n```", score: 0.1},
		{name: "prose around", raw: `Sure! {"fit": 1, "score": "0.7", "reason": ["a"]} Thanks`, fit: true, score: 0.7, reason: `["a"]`},
		{name: "bad score", raw: `{"fit": "no", "score": "high"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseResponse(tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Fit != tc.fit || got.Score != tc.score || got.Reason != tc.reason {
				t.Fatalf("unexpected assessment: %+v", got)
			}
		})
	}
}
