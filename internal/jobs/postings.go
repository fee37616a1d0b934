// Package jobs holds the posting list that flows through fetching, filtering
// and reporting.
package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spigell/hh-matcher/internal/relevance"
)

const (
	FieldID        = "ID"
	FieldCompanyID = "CompanyID"
)

// Postings is an ordered posting list. Every exclusion keeps the order of the
// remaining items.
type Postings struct {
	Items []*Posting
}

// Posting is a provider posting with everything later pipeline steps learn
// about it.
type Posting struct {
	relevance.JobPosting

	CompanyID string `json:"company_id,omitempty"`
	HasTest   bool   `json:"has_test,omitempty"`

	RelevanceScore    float64       `json:"relevance_score"`
	RawScore          float64       `json:"raw_score,omitempty"`
	Penalty           int           `json:"penalty,omitempty"`
	MatchedExclusions []string      `json:"matched_exclusions,omitempty"`
	AI                *AIAssessment `json:"ai,omitempty"`
}

// AIAssessment is the verdict of an AI fit check. Error is set when the
// check itself failed.
type AIAssessment struct {
	Fit    bool    `json:"fit"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
	Raw    string  `json:"raw,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// FromJobPostings wraps engine postings.
func FromJobPostings(items []relevance.JobPosting) *Postings {
	postings := &Postings{Items: make([]*Posting, 0, len(items))}
	for _, item := range items {
		postings.Items = append(postings.Items, &Posting{JobPosting: item})
	}
	return postings
}

func (p *Postings) Len() int {
	return len(p.Items)
}

func (p *Postings) IDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, posting := range p.Items {
		ids = append(ids, posting.ID)
	}
	return ids
}

// Append adds postings, skipping IDs already present.
func (p *Postings) Append(other *Postings) {
	seen := make(map[string]struct{}, len(p.Items))
	for _, posting := range p.Items {
		seen[posting.ID] = struct{}{}
	}
	for _, posting := range other.Items {
		if _, ok := seen[posting.ID]; ok && posting.ID != "" {
			continue
		}
		seen[posting.ID] = struct{}{}
		p.Items = append(p.Items, posting)
	}
}

func (pp *Posting) stringField(name string) string {
	switch name {
	case FieldID:
		return pp.ID
	case FieldCompanyID:
		return pp.CompanyID
	default:
		return ""
	}
}

// Exclude drops postings whose field matches one of targets and returns the
// dropped IDs. Blank targets match nothing.
func (p *Postings) Exclude(field string, targets []string) []string {
	set := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		if target == "" {
			continue
		}
		set[target] = struct{}{}
	}
	return p.ExcludeFunc(func(posting *Posting) bool {
		_, ok := set[posting.stringField(field)]
		return ok
	})
}

// ExcludeFunc drops postings for which drop returns true and returns the
// dropped IDs.
func (p *Postings) ExcludeFunc(drop func(*Posting) bool) []string {
	var excluded []string
	kept := p.Items[:0]
	for _, posting := range p.Items {
		if drop(posting) {
			excluded = append(excluded, posting.ID)
			continue
		}
		kept = append(kept, posting)
	}
	for i := len(kept); i < len(p.Items); i++ {
		p.Items[i] = nil
	}
	p.Items = kept
	return excluded
}

// ExcludeWithTest drops postings that require a test task.
func (p *Postings) ExcludeWithTest() []string {
	return p.ExcludeFunc(func(posting *Posting) bool {
		return posting.HasTest
	})
}

// JobPostings returns the engine view of the list.
func (p *Postings) JobPostings() []relevance.JobPosting {
	result := make([]relevance.JobPosting, 0, len(p.Items))
	for _, posting := range p.Items {
		result = append(result, posting.JobPosting)
	}
	return result
}

// ApplyRanking replaces the list with the ranked postings, attaching their
// scores. ranked must come from JobPostings of this list.
func (p *Postings) ApplyRanking(ranked []relevance.ScoredPosting) {
	items := make([]*Posting, 0, len(ranked))
	for _, scored := range ranked {
		if scored.Position < 0 || scored.Position >= len(p.Items) {
			continue
		}
		posting := p.Items[scored.Position]
		posting.RelevanceScore = scored.RelevanceScore
		posting.RawScore = scored.RawScore
		posting.Penalty = scored.Penalty
		posting.MatchedExclusions = scored.MatchedExclusions
		items = append(items, posting)
	}
	p.Items = items
}

// Scored returns the engine output view of the list.
func (p *Postings) Scored() []relevance.ScoredPosting {
	result := make([]relevance.ScoredPosting, 0, len(p.Items))
	for i, posting := range p.Items {
		result = append(result, relevance.ScoredPosting{
			JobPosting:        posting.JobPosting,
			RelevanceScore:    posting.RelevanceScore,
			Position:          i,
			RawScore:          posting.RawScore,
			Penalty:           posting.Penalty,
			MatchedExclusions: posting.MatchedExclusions,
		})
	}
	return result
}

// ReportByCompany groups postings by company for the interactive report.
func (p *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range p.Items {
		key := posting.Company
		if posting.CompanyID != "" {
			key = fmt.Sprintf("%s (%s)", posting.Company, posting.CompanyID)
		}

		entry := map[string]string{
			"title":           posting.Title,
			"url":             posting.Link,
			"location":        posting.Location,
			"salary":          posting.Salary,
			"relevance_score": strconv.FormatFloat(posting.RelevanceScore, 'f', 2, 64),
		}
		if posting.Penalty > 0 {
			entry["penalty"] = strconv.Itoa(posting.Penalty)
		}
		if ai := posting.AI; ai != nil {
			if ai.Error != "" {
				entry["ai_error"] = ai.Error
			} else {
				entry["ai_fit"] = strconv.FormatBool(ai.Fit)
				entry["ai_score"] = strconv.FormatFloat(ai.Score, 'f', -1, 64)
				if ai.Reason != "" {
					entry["ai_reason"] = ai.Reason
				}
			}
		}

		report[key] = append(report[key], entry)
	}
	return report
}

func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return file.Name(), nil
}
