// Package ai defines the contract for model-backed posting assessments.
package ai

import (
	"context"

	"github.com/spigell/hh-matcher/internal/jobs"
)

// Profile is what the model knows about the applicant.
type Profile struct {
	Skills   []string `json:"skills"`
	Excluded []string `json:"excluded_skills,omitempty"`
	Resume   string   `json:"resume,omitempty"`
}

type FitAssessment struct {
	Fit    bool
	Score  float64
	Reason string
	Raw    string
}

// ToJobs converts the assessment to its posting representation.
func (a *FitAssessment) ToJobs() *jobs.AIAssessment {
	if a == nil {
		return nil
	}
	return &jobs.AIAssessment{
		Fit:    a.Fit,
		Score:  a.Score,
		Reason: a.Reason,
		Raw:    a.Raw,
	}
}

type Matcher interface {
	Evaluate(ctx context.Context, profile *Profile, posting *jobs.Posting) (*FitAssessment, error)
}
