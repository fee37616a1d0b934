package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/jobs"
)

const skipAppliedMsg = "skip-applied is disabled"

type appliedHistoryFilter struct {
	toggle
	ignore bool
}

// NewAppliedHistory creates a filter that removes postings found in the
// negotiation history.
func NewAppliedHistory() Filter {
	return &appliedHistoryFilter{}
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

func (f *appliedHistoryFilter) Validate(cfg *Config) error {
	f.ignore = !cfg.SkipApplied
	return nil
}

func (f *appliedHistoryFilter) Apply(ctx context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if f.ignore {
		deps.Logger.Info("keeping already applied postings", zap.String("reason", skipAppliedMsg))
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	if deps.History == nil {
		return p, Step{}, fmt.Errorf("negotiation history source is required")
	}

	negotiations, err := deps.History.GetNegotiations(ctx)
	if err != nil {
		return p, Step{}, fmt.Errorf("get my negotiations: %w", err)
	}

	excluded := p.Exclude(jobs.FieldID, negotiations.VacanciesIDs())
	if len(excluded) > 0 {
		deps.Logger.Info("excluding postings based on my negotiations",
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *appliedHistoryFilter) Status() Status {
	return f.status(f.Name(), map[string]string{
		"exclude_applied": strconv.FormatBool(!f.ignore),
	})
}
