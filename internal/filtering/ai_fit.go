package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/jobs"
	"github.com/spigell/hh-matcher/internal/logger"
)

const excludeReasonAI = "ai"

type aiFitFilter struct {
	toggle
	config      *AIConfig
	excludeFile string
}

// NewAIFit creates the AI-based filtering step. It must run after relevance
// so that TopN picks the best ranked postings.
func NewAIFit() Filter {
	return &aiFitFilter{}
}

func (f *aiFitFilter) Name() string { return "ai_fit" }

func (f *aiFitFilter) Validate(cfg *Config) error {
	f.config = cfg.AI
	f.excludeFile = strings.TrimSpace(cfg.ExcludeFile)
	if f.config == nil || !f.config.Enabled {
		f.Disable("ai is disabled in config")
		return nil
	}
	if f.config.TopN < 0 {
		return fmt.Errorf("top-n must not be negative")
	}
	return nil
}

// Apply evaluates the first TopN postings. Rejected ones are dropped; a
// failed evaluation keeps the posting with the error attached. Postings past
// TopN are kept unevaluated.
func (f *aiFitFilter) Apply(ctx context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if f.config == nil || !f.config.Enabled {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}
	if deps.Matcher == nil {
		deps.Logger.Info("ai matcher is not configured; skipping ai_fit filter")
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}
	if deps.Profile == nil {
		return p, Step{}, fmt.Errorf("applicant profile is required for AI evaluation")
	}

	limit := p.Len()
	if f.config.TopN > 0 && f.config.TopN < limit {
		limit = f.config.TopN
	}

	rejected := &jobs.Postings{}
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return p, Step{}, err
		}

		posting := p.Items[i]
		log := logger.WithFields(deps.Logger, logger.PostingFields(posting.ID, posting.Company, posting.Source)...)

		assessment, err := deps.Matcher.Evaluate(ctx, deps.Profile, posting)
		if err != nil {
			log.Warn("AI evaluation failed", zap.Error(err))
			posting.AI = &jobs.AIAssessment{Error: err.Error()}
			continue
		}

		posting.AI = assessment.ToJobs()
		if !posting.AI.Fit {
			log.Info("posting rejected by AI provider",
				zap.Float64("ai_score", assessment.Score),
				zap.String("reason", assessment.Reason),
			)
			rejected.Items = append(rejected.Items, posting)
			continue
		}

		log.Info("posting approved by AI", zap.Float64("ai_score", assessment.Score))
	}

	// IDs may be blank, so drop by identity.
	rejectedSet := make(map[*jobs.Posting]struct{}, rejected.Len())
	for _, posting := range rejected.Items {
		rejectedSet[posting] = struct{}{}
	}
	dropped := p.ExcludeFunc(func(posting *jobs.Posting) bool {
		_, ok := rejectedSet[posting]
		return ok
	})

	if f.config.ExcludeRejected && rejected.Len() > 0 {
		if err := f.appendToExcludeFile(rejected, deps.Logger); err != nil {
			deps.Logger.Warn("failed to append postings to exclude file", zap.Error(err))
		}
	}

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

func (f *aiFitFilter) appendToExcludeFile(rejected *jobs.Postings, log *zap.Logger) error {
	if f.excludeFile == "" {
		return nil
	}

	excluded, err := jobs.LoadExcluded(f.excludeFile)
	if err != nil {
		return fmt.Errorf("load excluded postings: %w", err)
	}

	excluded.Append(rejected.ToExcluded(excludeReasonAI))

	if err := excluded.ToFile(f.excludeFile); err != nil {
		return fmt.Errorf("write excluded postings: %w", err)
	}

	log.Info("postings appended to exclude file",
		zap.Strings("posting_ids", rejected.IDs()),
		zap.String("exclude_file", f.excludeFile),
	)

	return nil
}

func (f *aiFitFilter) Status() Status {
	details := map[string]string{}
	if f.config != nil {
		details["top_n"] = strconv.Itoa(f.config.TopN)
	}
	return f.status(f.Name(), details)
}
