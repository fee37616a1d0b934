package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/spigell/hh-matcher/internal/jobs"
	"github.com/spigell/hh-matcher/internal/relevance"
)

// File reads a JSON array of postings from disk.
type File struct {
	name string
	path string
}

func NewFile(name, path string) *File {
	return &File{name: name, path: path}
}

func (f *File) Name() string {
	return f.name
}

func (f *File) Fetch(_ context.Context) (*jobs.Postings, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading postings file: %w", err)
	}

	items, err := relevance.DecodePostings(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}

	for i := range items {
		if items[i].Source == "" {
			items[i].Source = f.name
		}
	}

	return jobs.FromJobPostings(items), nil
}
