// Package provider fetches raw postings from configured job sources.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hh-matcher/internal/headhunter"
	"github.com/spigell/hh-matcher/internal/jobs"
	"github.com/spigell/hh-matcher/internal/secrets"
)

const (
	KindHH   = "hh"
	KindFile = "file"
)

// Provider is a single job source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (*jobs.Postings, error)
}

// Resource is the configuration entry of one provider.
type Resource struct {
	Name           string  `mapstructure:"name" json:"name" validate:"required"`
	Kind           string  `mapstructure:"kind" json:"kind" validate:"required,oneof=hh file"`
	BaseURL        string  `mapstructure:"base-url" json:"base_url,omitempty" validate:"omitempty,url"`
	Enabled        bool    `mapstructure:"enabled" json:"enabled"`
	APIKeyRequired bool    `mapstructure:"api-key-required" json:"api_key_required"`
	TokenFile      string  `mapstructure:"token-file" json:"token_file,omitempty"`
	TokenEnv       string  `mapstructure:"token-env" json:"token_env,omitempty"`
	Path           string  `mapstructure:"path" json:"path,omitempty" validate:"required_if=Kind file"`
	RateLimit      float64 `mapstructure:"rate-limit" json:"rate_limit,omitempty" validate:"gte=0"`
	Concurrency    int     `mapstructure:"concurrency" json:"concurrency,omitempty" validate:"gte=0"`
	UserAgent      string  `mapstructure:"user-agent" json:"user_agent,omitempty"`
}

func (r *Resource) Validate() error {
	return validator.New().Struct(r)
}

// errNoToken marks an hh provider whose token could not be loaded.
var errNoToken = errors.New("token is not available")

// Build creates the enabled providers in configuration order. search is
// used by the hh providers. A provider whose token cannot be loaded is
// skipped with a warning.
func Build(resources []Resource, search *headhunter.SearchParams, logger *zap.Logger) ([]Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := make(map[string]struct{}, len(resources))
	providers := make([]Provider, 0, len(resources))
	for i := range resources {
		res := resources[i]
		if err := res.Validate(); err != nil {
			return nil, fmt.Errorf("provider %d (%s): %w", i, res.Name, err)
		}
		if _, ok := seen[res.Name]; ok {
			return nil, fmt.Errorf("provider %q is defined twice", res.Name)
		}
		seen[res.Name] = struct{}{}

		if !res.Enabled {
			logger.Info("provider disabled", zap.String("name", res.Name))
			continue
		}

		p, err := build(res, search, logger)
		if errors.Is(err, errNoToken) {
			logger.Warn("provider skipped", zap.String("name", res.Name), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", res.Name, err)
		}
		providers = append(providers, p)
	}

	return providers, nil
}

func build(res Resource, search *headhunter.SearchParams, logger *zap.Logger) (Provider, error) {
	switch res.Kind {
	case KindFile:
		return NewFile(res.Name, res.Path), nil
	case KindHH:
		token := ""
		if res.APIKeyRequired || strings.TrimSpace(res.TokenFile) != "" {
			var err error
			token, err = secrets.Load(secrets.Source{Name: res.Name + " token", File: res.TokenFile, Env: res.TokenEnv})
			if err != nil {
				return nil, fmt.Errorf("%w: %w", errNoToken, err)
			}
		}

		client := headhunter.New(token, logger.With(zap.String("provider", res.Name)))
		if res.BaseURL != "" {
			client.APIURL = strings.TrimRight(res.BaseURL, "/")
		}
		if res.UserAgent != "" {
			client.UserAgent = res.UserAgent
		}
		if res.RateLimit > 0 {
			client.SetRateLimit(res.RateLimit)
		}
		return NewHH(res.Name, client, search, res.Concurrency, logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind %q", res.Kind)
	}
}

// ErrNoPostings is returned by FetchAll when every provider failed.
var ErrNoPostings = errors.New("all providers failed")

// FetchAll queries all providers concurrently. A failing provider is logged
// and skipped. Results are merged in provider order; postings with an ID seen
// earlier are dropped.
func FetchAll(ctx context.Context, providers []Provider, logger *zap.Logger) (*jobs.Postings, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]*jobs.Postings, len(providers))
	errs := make([]error, len(providers))

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			postings, err := p.Fetch(ctx)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = postings
			return nil
		})
	}
	_ = g.Wait()

	merged := &jobs.Postings{}
	failed := 0
	for i, p := range providers {
		if errs[i] != nil {
			failed++
			logger.Warn("provider failed", zap.String("provider", p.Name()), zap.Error(errs[i]))
			continue
		}
		logger.Info("provider fetched", zap.String("provider", p.Name()), zap.Int("count", results[i].Len()))
		merged.Append(results[i])
	}

	if len(providers) > 0 && failed == len(providers) {
		return nil, fmt.Errorf("%w: %w", ErrNoPostings, errors.Join(errs...))
	}

	return merged, nil
}
