package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hh-matcher/internal/headhunter"
	"github.com/spigell/hh-matcher/internal/jobs"
)

const defaultConcurrency = 4

// HH searches hh.ru and loads the full description of every hit.
type HH struct {
	name        string
	client      *headhunter.Client
	search      *headhunter.SearchParams
	concurrency int
	logger      *zap.Logger
}

func NewHH(name string, client *headhunter.Client, search *headhunter.SearchParams, concurrency int, logger *zap.Logger) *HH {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HH{
		name:        name,
		client:      client,
		search:      search,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (h *HH) Name() string {
	return h.name
}

func (h *HH) Client() *headhunter.Client {
	return h.client
}

// Fetch returns the search results. A vacancy whose details cannot be loaded
// keeps its search snippet as description.
func (h *HH) Fetch(ctx context.Context) (*jobs.Postings, error) {
	found, err := h.client.Search(ctx, h.search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	h.logger.Info("getting vacancies", zap.String("provider", h.name), zap.Int("count", found.Len()))

	detailed := make([]*headhunter.Vacancy, found.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for i, vacancy := range found.Items {
		g.Go(func() error {
			full, err := h.client.GetVacancy(gctx, vacancy.ID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				h.logger.Warn("using search snippet for vacancy",
					zap.String("posting_id", vacancy.ID),
					zap.Error(err),
				)
				detailed[i] = vacancy
				return nil
			}
			detailed[i] = full
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	postings := &jobs.Postings{Items: make([]*jobs.Posting, 0, len(detailed))}
	for i, vacancy := range detailed {
		// details do not repeat has_test reliably
		hasTest := vacancy.HasTest || found.Items[i].HasTest
		postings.Items = append(postings.Items, &jobs.Posting{
			JobPosting: vacancy.ToPosting(),
			CompanyID:  vacancy.Employer.ID,
			HasTest:    hasTest,
		})
	}

	return postings, nil
}
