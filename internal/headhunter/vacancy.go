package headhunter

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/spigell/hh-matcher/internal/relevance"
)

const Source = "hh.ru"

type Vacancies struct {
	Items []*Vacancy
}

type Vacancy struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Area struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"area,omitempty"`
	HasTest bool    `json:"has_test,omitempty"`
	Salary  *Salary `json:"salary,omitempty"`
	Employer struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employer,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Description  string `json:"description,omitempty"`
	KeySkills    []struct {
		Name string `json:"name,omitempty"`
	} `json:"key_skills,omitempty"`
	Archived bool `json:"archived,omitempty"`
	Snippet  struct {
		Requirement    string `json:"requirement,omitempty"`
		Responsibility string `json:"responsibility,omitempty"`
	} `json:"snippet,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

type Salary struct {
	From     int    `json:"from,omitempty"`
	To       int    `json:"to,omitempty"`
	Currency string `json:"currency,omitempty"`
	Gross    bool   `json:"gross,omitempty"`
}

func (s *Salary) String() string {
	if s == nil {
		return ""
	}
	switch {
	case s.From > 0 && s.To > 0:
		return strings.TrimSpace(fmt.Sprintf("%d-%d %s", s.From, s.To, s.Currency))
	case s.From > 0:
		return strings.TrimSpace(fmt.Sprintf("from %d %s", s.From, s.Currency))
	case s.To > 0:
		return strings.TrimSpace(fmt.Sprintf("up to %d %s", s.To, s.Currency))
	default:
		return ""
	}
}

func (c *Client) GetVacancy(ctx context.Context, id string) (*Vacancy, error) {
	if id == "" {
		return nil, fmt.Errorf("vacancy id is required")
	}

	var vacancy Vacancy
	if err := c.getJSON(ctx, fmt.Sprintf("%s%s/%s", c.APIURL, SearchPath, id), nil, &vacancy); err != nil {
		return nil, fmt.Errorf("getting vacancy %s: %w", id, err)
	}
	return &vacancy, nil
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

func (v *Vacancies) IDs() []string {
	ids := make([]string, 0, len(v.Items))
	for _, vacancy := range v.Items {
		ids = append(ids, vacancy.ID)
	}
	return ids
}

// ToPosting flattens the vacancy to the provider-neutral posting shape. The
// HTML description becomes plain text with key skills appended. Without a
// description the search snippet is used.
func (va *Vacancy) ToPosting() relevance.JobPosting {
	description := htmlToText(va.Description)
	if description == "" {
		description = strings.TrimSpace(htmlToText(va.Snippet.Requirement) + " " + htmlToText(va.Snippet.Responsibility))
	}

	skills := make([]string, 0, len(va.KeySkills))
	for _, skill := range va.KeySkills {
		if name := strings.TrimSpace(skill.Name); name != "" {
			skills = append(skills, name)
		}
	}
	if len(skills) > 0 {
		description = strings.TrimSpace(description + " " + strings.Join(skills, " "))
	}

	return relevance.JobPosting{
		ID:          va.ID,
		Title:       va.Name,
		Description: description,
		Company:     va.Employer.Name,
		Location:    va.Area.Name,
		Salary:      va.Salary.String(),
		Source:      Source,
		Link:        va.AlternateURL,
	}
}

var blockElements = "p, br, li, ul, ol, div, h1, h2, h3, h4, h5, h6, tr, td, th"

func htmlToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}

	// block boundaries must not glue words together
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	return strings.Join(strings.Fields(doc.Text()), " ")
}
