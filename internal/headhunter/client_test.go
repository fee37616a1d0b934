package headhunter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("token", zap.NewNop())
	c.APIURL = srv.URL
	c.SetRateLimit(0)
	c.Backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestSearchFollowsPages(t *testing.T) {
	var queries []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != SearchPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Fatalf("unexpected auth header %q", got)
		}
		queries = append(queries, r.URL.RawQuery)

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{
				{
					"id":       strconv.Itoa(page + 1),
					"name":     "Go developer",
					"has_test": page == 1,
					"employer": map[string]any{"id": "e1", "name": "Acme"},
					"salary":   map[string]any{"from": 100, "currency": "RUR"},
				},
			},
			"pages":    2,
			"page":     page,
			"per_page": 1,
		})
	})

	vacancies, err := c.Search(context.Background(), &SearchParams{Text: "golang", Areas: []int{1, 2}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if !reflect.DeepEqual(vacancies.IDs(), []string{"1", "2"}) {
		t.Fatalf("unexpected ids: %v", vacancies.IDs())
	}
	if !vacancies.Items[1].HasTest || vacancies.Items[0].HasTest {
		t.Fatalf("has_test not decoded")
	}
	if vacancies.Items[0].Salary.String() != "from 100 RUR" {
		t.Fatalf("unexpected salary: %q", vacancies.Items[0].Salary.String())
	}
	if len(queries) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(queries))
	}
	if queries[0] != "area=1&area=2&per_page=100&text=golang" {
		t.Fatalf("unexpected query %q", queries[0])
	}
}

func TestRetriesThrottledRequests(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, map[string]any{"id": "42", "name": "SRE"})
	})

	vacancy, err := c.GetVacancy(context.Background(), "42")
	if err != nil {
		t.Fatalf("get vacancy: %v", err)
	}
	if vacancy.Name != "SRE" {
		t.Fatalf("unexpected vacancy %+v", vacancy)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.GetVacancy(context.Background(), "1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	c.MaxRetries = 2

	_, err := c.GetVacancy(context.Background(), "1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestResumeDetailsSkillSet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/resumes/r1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		writeJSON(t, w, map[string]any{
			"id":        "r1",
			"title":     "Backend developer",
			"skill_set": []any{"Go", " ", "PostgreSQL", 5},
			"skills":    "I like distributed systems",
		})
	})

	details, err := c.GetResumeDetails(context.Background(), "r1")
	if err != nil {
		t.Fatalf("resume details: %v", err)
	}
	if !reflect.DeepEqual(details.SkillSet, []string{"Go", "PostgreSQL"}) {
		t.Fatalf("unexpected skill set %v", details.SkillSet)
	}
	if details.Title != "Backend developer" || details.Skills != "I like distributed systems" {
		t.Fatalf("unexpected details %+v", details)
	}

	if _, err := c.GetResumeDetails(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestNegotiationsSkipRemovedVacancies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != allStatusesExceptArchived {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{
				{"id": "n1", "vacancy": map[string]any{"id": "v1"}},
				{"id": "n2", "vacancy": nil},
			},
			"pages": 1,
		})
	})

	negotiations, err := c.GetNegotiations(context.Background())
	if err != nil {
		t.Fatalf("negotiations: %v", err)
	}
	if !reflect.DeepEqual(negotiations.VacanciesIDs(), []string{"v1"}) {
		t.Fatalf("unexpected ids %v", negotiations.VacanciesIDs())
	}
}

func TestMineResumes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"items": []map[string]any{{"id": "r1", "title": "Go"}, {"id": "r2", "title": "SRE"}},
			"pages": 1,
		})
	})

	resumes, err := c.GetMineResumes(context.Background())
	if err != nil {
		t.Fatalf("resumes: %v", err)
	}
	if !reflect.DeepEqual(resumes.Titles(), []string{"Go", "SRE"}) {
		t.Fatalf("unexpected titles %v", resumes.Titles())
	}
	if r := resumes.FindByTitle("SRE"); r == nil || r.ID != "r2" {
		t.Fatalf("unexpected resume %+v", r)
	}
}
