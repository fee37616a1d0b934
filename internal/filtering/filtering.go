// Package filtering narrows a fetched posting list down to the ranked
// postings worth showing. Each step is a Filter; Run applies the enabled
// ones in order.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/ai"
	"github.com/spigell/hh-matcher/internal/headhunter"
	"github.com/spigell/hh-matcher/internal/jobs"
	"github.com/spigell/hh-matcher/internal/relevance"
)

// Filter represents a single filtering step applied to postings.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error)
}

// NegotiationSource lists the vacancies the user already applied to.
type NegotiationSource interface {
	GetNegotiations(ctx context.Context) (*headhunter.Negotations, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	History NegotiationSource
	Logger  *zap.Logger
	Engine  *relevance.Engine
	Matcher ai.Matcher
	Profile *ai.Profile
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Result is a Step tagged with the filter that produced it.
type Result struct {
	Name string
	Step
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	Companies   []string
	ExcludeFile string
	SkipApplied bool
	AI          *AIConfig
}

// AIConfig stores AI-related configuration used by the filters.
type AIConfig struct {
	Enabled bool
	// TopN limits evaluation to the best ranked postings. Zero means all.
	TopN int
	// ExcludeRejected appends rejected postings to the exclude file.
	ExcludeRejected bool
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns every known step in pipeline order.
func Default() []Filter {
	return []Filter{
		NewWithTest(),
		NewAppliedHistory(),
		NewCompanies(),
		NewExcludeFile(),
		NewRelevance(),
		NewAIFit(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the surviving
// postings with one Result per executed step.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, p *jobs.Postings) (*jobs.Postings, []Result, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	results := make([]Result, 0, len(steps))
	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, p)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		results = append(results, Result{Name: step.Name(), Step: info})
		p = next
	}

	return p, results, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// toggle implements the enable/disable part of Filter.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) status(name string, details map[string]string) Status {
	return Status{Name: name, Enabled: !t.disabled, Reason: t.reason, Details: details}
}
