package relevance

import "strings"

// SkillProfile is the applicant's declared skill set.
type SkillProfile []string

// Text concatenates the skills into one document.
func (p SkillProfile) Text() string {
	return strings.Join(p, " ")
}

// ExclusionList holds keywords the applicant wants penalized.
type ExclusionList []string

// JobPosting is a posting as delivered by a job provider. Everything except
// Title and Description is passed through untouched.
type JobPosting struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Salary      string `json:"salary,omitempty"`
	Source      string `json:"source,omitempty"`
	Link        string `json:"link,omitempty"`
}

// Text concatenates title and description into one document.
func (p JobPosting) Text() string {
	return p.Title + " " + p.Description
}

// ScoredPosting is a JobPosting with its relevance score attached.
type ScoredPosting struct {
	JobPosting
	RelevanceScore float64 `json:"relevance_score"`

	// Position is the index of the posting in the input batch.
	Position          int      `json:"-"`
	RawScore          float64  `json:"-"`
	Penalty           int      `json:"-"`
	MatchedExclusions []string `json:"-"`
}

// Breakdown describes how a single posting was scored.
type Breakdown struct {
	RawScore          float64
	Penalty           int
	MatchedExclusions []string
	FinalScore        float64
}
