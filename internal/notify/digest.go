// Package notify sends the ranked postings of a run as an e-mail digest.
package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/spigell/hh-matcher/internal/jobs"
)

//go:embed digest.html.tmpl
var digestHTMLTemplate string

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"score": formatScore,
}).Parse(digestHTMLTemplate))

// Message is a rendered e-mail with a plain text fallback.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Digest is the content of one notification.
type Digest struct {
	Skills   []string
	Postings []*jobs.Posting
}

// Render builds the subject and both bodies of the digest.
func Render(d Digest) (*Message, error) {
	var html bytes.Buffer
	if err := digestTmpl.Execute(&html, d); err != nil {
		return nil, fmt.Errorf("render digest template: %w", err)
	}

	return &Message{
		Subject: subject(d),
		Text:    renderText(d),
		HTML:    html.String(),
	}, nil
}

func subject(d Digest) string {
	if len(d.Postings) == 0 {
		return "hh-matcher: no matching postings"
	}
	top := d.Postings[0]
	if len(d.Postings) == 1 {
		return fmt.Sprintf("hh-matcher: 1 matching posting (%s)", top.Title)
	}
	return fmt.Sprintf("hh-matcher: %d matching postings, top: %s", len(d.Postings), top.Title)
}

func renderText(d Digest) string {
	var sb strings.Builder

	if len(d.Skills) > 0 {
		sb.WriteString(fmt.Sprintf("Skills: %s\n", strings.Join(d.Skills, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Postings: %d\n", len(d.Postings)))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	for i, p := range d.Postings {
		sb.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, p.Title, formatScore(p.RelevanceScore)))
		if p.Company != "" {
			sb.WriteString(fmt.Sprintf("   Company: %s\n", p.Company))
		}
		if p.Location != "" {
			sb.WriteString(fmt.Sprintf("   Location: %s\n", p.Location))
		}
		if p.Salary != "" {
			sb.WriteString(fmt.Sprintf("   Salary: %s\n", p.Salary))
		}
		if len(p.MatchedExclusions) > 0 {
			sb.WriteString(fmt.Sprintf("   Penalized for: %s\n", strings.Join(p.MatchedExclusions, ", ")))
		}
		if p.AI != nil && p.AI.Error == "" && p.AI.Reason != "" {
			sb.WriteString(fmt.Sprintf("   AI: %s\n", p.AI.Reason))
		}
		if p.Link != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", p.Link))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.2f", score)
}
