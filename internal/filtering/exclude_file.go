package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/jobs"
)

type excludeFileFilter struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that removes postings listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = strings.TrimSpace(cfg.ExcludeFile)
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if f.path == "" {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	excluded, err := jobs.LoadExcluded(f.path)
	if err != nil {
		return p, Step{}, fmt.Errorf("getting excluded postings from file: %w", err)
	}

	removed := p.Exclude(jobs.FieldID, excluded.IDs())
	if len(removed) > 0 {
		deps.Logger.Info("excluding postings based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_postings", removed),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(removed), Left: p.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return f.status(f.Name(), details)
}
