package jobs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spigell/hh-matcher/internal/relevance"
)

func newPostings(ids ...string) *Postings {
	p := &Postings{}
	for _, id := range ids {
		p.Items = append(p.Items, &Posting{JobPosting: relevance.JobPosting{ID: id, Title: "title " + id}})
	}
	return p
}

func TestExcludeKeepsOrder(t *testing.T) {
	p := newPostings("1", "2", "3", "4", "5")
	p.Items[1].CompanyID = "acme"
	p.Items[3].CompanyID = "acme"

	dropped := p.Exclude(FieldCompanyID, []string{"acme"})
	if !reflect.DeepEqual(dropped, []string{"2", "4"}) {
		t.Fatalf("unexpected dropped ids: %v", dropped)
	}
	if got := p.IDs(); !reflect.DeepEqual(got, []string{"1", "3", "5"}) {
		t.Fatalf("unexpected remaining ids: %v", got)
	}

	dropped = p.Exclude(FieldID, []string{"5", "missing"})
	if !reflect.DeepEqual(dropped, []string{"5"}) {
		t.Fatalf("unexpected dropped ids: %v", dropped)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 postings, got %d", p.Len())
	}
}

func TestExcludeIgnoresBlankTargets(t *testing.T) {
	p := newPostings("1", "", "")

	dropped := p.Exclude(FieldID, []string{""})
	if len(dropped) != 0 {
		t.Fatalf("expected nothing dropped, got %v", dropped)
	}
	if p.Len() != 3 {
		t.Fatalf("expected 3 postings, got %d", p.Len())
	}
}

func TestExcludeWithTestDropsAll(t *testing.T) {
	p := newPostings("1", "2", "3")
	p.Items[0].HasTest = true
	p.Items[2].HasTest = true

	dropped := p.ExcludeWithTest()
	if !reflect.DeepEqual(dropped, []string{"1", "3"}) {
		t.Fatalf("unexpected dropped ids: %v", dropped)
	}
	if got := p.IDs(); !reflect.DeepEqual(got, []string{"2"}) {
		t.Fatalf("unexpected remaining ids: %v", got)
	}
}

func TestAppendSkipsDuplicates(t *testing.T) {
	p := newPostings("1", "2")
	p.Append(newPostings("2", "3"))

	if got := p.IDs(); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Fatalf("unexpected ids: %v", got)
	}
}

func TestApplyRanking(t *testing.T) {
	p := newPostings("a", "b", "c")

	p.ApplyRanking([]relevance.ScoredPosting{
		{Position: 2, RelevanceScore: 80, RawScore: 90, Penalty: 10, MatchedExclusions: []string{"php"}},
		{Position: 0, RelevanceScore: 12.5, RawScore: 12.5},
		{Position: 7},
	})

	if got := p.IDs(); !reflect.DeepEqual(got, []string{"c", "a"}) {
		t.Fatalf("unexpected ids: %v", got)
	}
	if p.Items[0].RelevanceScore != 80 || p.Items[0].Penalty != 10 {
		t.Fatalf("scores not applied: %+v", p.Items[0])
	}

	scored := p.Scored()
	if len(scored) != 2 || scored[0].ID != "c" || scored[1].RelevanceScore != 12.5 {
		t.Fatalf("unexpected scored view: %+v", scored)
	}
}

func TestJobPostingsRoundTrip(t *testing.T) {
	in := []relevance.JobPosting{{ID: "1", Title: "Go"}, {ID: "2", Description: "SQL"}}
	p := FromJobPostings(in)

	if !reflect.DeepEqual(p.JobPostings(), in) {
		t.Fatalf("unexpected engine view: %+v", p.JobPostings())
	}
}

func TestReportByCompanyIncludesAIResults(t *testing.T) {
	p := &Postings{
		Items: []*Posting{
			{
				JobPosting: relevance.JobPosting{
					ID:       "1",
					Title:    "Go Developer",
					Company:  "Acme",
					Location: "Moscow",
					Link:     "https://example.com",
				},
				CompanyID:      "emp1",
				RelevanceScore: 42.5,
				AI: &AIAssessment{
					Fit:    true,
					Score:  0.91,
					Reason: "Matches tech stack",
				},
			},
			{
				JobPosting: relevance.JobPosting{ID: "2", Title: "Python Developer", Company: "Globex"},
				Penalty:    10,
				AI:         &AIAssessment{Error: "quota exceeded"},
			},
		},
	}

	report := p.ReportByCompany()

	entries, ok := report["Acme (emp1)"]
	if !ok {
		t.Fatalf("expected company key in report")
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry["relevance_score"] != "42.50" {
		t.Fatalf("unexpected relevance_score: %q", entry["relevance_score"])
	}
	if entry["ai_fit"] != "true" {
		t.Fatalf("expected ai_fit true, got %q", entry["ai_fit"])
	}
	if entry["ai_score"] != "0.91" {
		t.Fatalf("expected ai_score 0.91, got %q", entry["ai_score"])
	}
	if entry["ai_reason"] != "Matches tech stack" {
		t.Fatalf("unexpected ai_reason: %q", entry["ai_reason"])
	}

	entry = report["Globex"][0]
	if entry["ai_error"] != "quota exceeded" {
		t.Fatalf("unexpected ai_error: %q", entry["ai_error"])
	}
	if _, ok := entry["ai_fit"]; ok {
		t.Fatalf("did not expect ai_fit for error case")
	}
	if entry["penalty"] != "10" {
		t.Fatalf("unexpected penalty: %q", entry["penalty"])
	}
}

func TestDumpToTmpFile(t *testing.T) {
	p := newPostings("1")
	path, err := p.DumpToTmpFile()
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	t.Cleanup(func() { os.Remove(path) })

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}

	var decoded Postings
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if decoded.Len() != 1 || decoded.Items[0].ID != "1" {
		t.Fatalf("unexpected dump content: %s", data)
	}
}

func TestExcludedFile(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	path := filepath.Join(t.TempDir(), "excluded.json")

	excluded, err := LoadExcluded(path)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if len(excluded.Items) != 0 {
		t.Fatalf("expected empty list for missing file")
	}

	p := newPostings("1", "2")
	p.Items[0].Link = "https://hh.ru/vacancy/1"
	excluded.Append(p.ToExcluded("manual"))
	if err := excluded.ToFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	// a shorter list must not leave trailing bytes of the longer one
	short := &ExcludedPostings{Items: excluded.Items[:1]}
	if err := short.ToFile(path); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	loaded, err := LoadExcluded(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(loaded.IDs(), []string{"1"}) {
		t.Fatalf("unexpected ids: %v", loaded.IDs())
	}
	got := loaded.Items[0]
	if got.URL != "https://hh.ru/vacancy/1" || got.Reason != "manual" || !got.ExcludedAt.Equal(fixed) {
		t.Fatalf("unexpected entry: %+v", got)
	}
}
