package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/hh-matcher/internal/jobs"
	"github.com/spigell/hh-matcher/internal/relevance"
)

type relevanceFilter struct {
	toggle
}

// NewRelevance creates the step that scores postings against the profile,
// drops those below the engine threshold and sorts the rest.
func NewRelevance() Filter {
	return &relevanceFilter{}
}

func (f *relevanceFilter) Name() string { return "relevance" }

func (f *relevanceFilter) Validate(*Config) error { return nil }

func (f *relevanceFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if deps.Engine == nil {
		return p, Step{}, fmt.Errorf("relevance engine is required")
	}
	if deps.Profile == nil {
		return p, Step{}, fmt.Errorf("applicant profile is required")
	}

	ranked, err := deps.Engine.Rank(
		relevance.SkillProfile(deps.Profile.Skills),
		p.JobPostings(),
		relevance.ExclusionList(deps.Profile.Excluded),
	)
	if err != nil {
		return p, Step{}, err
	}

	p.ApplyRanking(ranked)

	return p, Step{Initial: initial, Dropped: initial - p.Len(), Left: p.Len()}, nil
}

func (f *relevanceFilter) Status() Status {
	return f.status(f.Name(), nil)
}
