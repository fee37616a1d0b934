package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/jobs"
	"github.com/spigell/hh-matcher/internal/textnorm"
)

type companiesFilter struct {
	toggle
	companies []string
}

// NewCompanies creates a filter that removes postings of blocked companies.
// An entry matches the company ID exactly or the company name ignoring case.
func NewCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = f.companies[:0]
	for _, company := range cfg.Companies {
		if company = strings.TrimSpace(company); company != "" {
			f.companies = append(f.companies, company)
		}
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, deps Deps, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if len(f.companies) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	ids := make(map[string]struct{}, len(f.companies))
	names := make(map[string]struct{}, len(f.companies))
	for _, company := range f.companies {
		ids[company] = struct{}{}
		names[textnorm.Lower(company)] = struct{}{}
	}

	excluded := p.ExcludeFunc(func(posting *jobs.Posting) bool {
		if _, ok := ids[posting.CompanyID]; ok && posting.CompanyID != "" {
			return true
		}
		_, ok := names[textnorm.Lower(strings.TrimSpace(posting.Company))]
		return ok && posting.Company != ""
	})
	if len(excluded) > 0 {
		deps.Logger.Info("excluding postings by companies",
			zap.Strings("excluded_companies", f.companies),
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return f.status(f.Name(), details)
}
