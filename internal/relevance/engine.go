// Package relevance scores job postings against an applicant's skills.
//
// Every posting is compared with the skill profile in its own two-document
// TF-IDF corpus, so a posting's score never depends on the rest of the batch.
// Excluded keywords found in the posting deduct a flat number of points, and
// postings below the minimum score are dropped.
package relevance

import (
	"math"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/textnorm"
)

// Engine ranks postings. It keeps no state between calls and is safe for
// concurrent use.
type Engine struct {
	normalizer    *textnorm.Normalizer
	logger        *zap.Logger
	minScore      float64
	penaltyPoints int
	similarity    func(profile, job []string) float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger receiving one debug record per posting.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMinScore sets the lowest final score kept by Rank. Values below
// DefaultMinScore are raised to it.
func WithMinScore(score float64) Option {
	return func(e *Engine) {
		e.minScore = math.Max(score, DefaultMinScore)
	}
}

// WithPenaltyPoints sets the deduction per matched excluded keyword.
func WithPenaltyPoints(points int) Option {
	return func(e *Engine) {
		if points >= 0 {
			e.penaltyPoints = points
		}
	}
}

// NewEngine returns an Engine using normalizer. A nil normalizer keeps
// stopwords in place.
func NewEngine(normalizer *textnorm.Normalizer, opts ...Option) *Engine {
	if normalizer == nil {
		normalizer = textnorm.New(nil)
	}
	e := &Engine{
		normalizer:    normalizer,
		logger:        zap.NewNop(),
		minScore:      DefaultMinScore,
		penaltyPoints: DefaultPenaltyPoints,
		similarity:    Similarity,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MinScore returns the configured threshold.
func (e *Engine) MinScore() float64 {
	return e.minScore
}

// Score computes the full breakdown for one posting.
func (e *Engine) Score(profile SkillProfile, posting JobPosting, excluded ExclusionList) (Breakdown, error) {
	if err := validate(profile, excluded); err != nil {
		return Breakdown{}, err
	}
	return e.score(e.normalizer.Normalize(profile.Text()), posting, excluded), nil
}

// Rank scores every posting, drops those below the minimum score and sorts
// the rest by descending score. Ties keep input order. An invalid profile or
// exclusion list fails the whole call.
func (e *Engine) Rank(profile SkillProfile, postings []JobPosting, excluded ExclusionList) ([]ScoredPosting, error) {
	if err := validate(profile, excluded); err != nil {
		return nil, err
	}

	profileTokens := e.normalizer.Normalize(profile.Text())
	ranked := make([]ScoredPosting, 0, len(postings))

	for i, posting := range postings {
		b := e.score(profileTokens, posting, excluded)
		kept := b.FinalScore >= e.minScore

		e.logger.Debug("posting scored", append(logger.PostingFields(posting.ID, posting.Company, posting.Source),
			zap.Float64("raw_score", b.RawScore),
			zap.Int("penalty", b.Penalty),
			zap.Float64("final_score", b.FinalScore),
			zap.Strings("matched_exclusions", b.MatchedExclusions),
			zap.Bool("kept", kept),
		)...)

		if !kept {
			continue
		}

		ranked = append(ranked, ScoredPosting{
			JobPosting:        posting,
			RelevanceScore:    b.FinalScore,
			Position:          i,
			RawScore:          b.RawScore,
			Penalty:           b.Penalty,
			MatchedExclusions: b.MatchedExclusions,
		})
	}

	SortByScore(ranked)
	return ranked, nil
}

// Match ranks the postings of a decoded request.
func (e *Engine) Match(req *Request) ([]ScoredPosting, error) {
	return e.Rank(req.Skills, req.Jobs, req.ExcludedSkills)
}

func (e *Engine) score(profileTokens []string, posting JobPosting, excluded ExclusionList) Breakdown {
	jobTokens := e.normalizer.Normalize(posting.Text())
	raw := e.similarity(profileTokens, jobTokens)
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		e.logger.Warn("non-finite similarity, scoring posting as 0",
			append(logger.PostingFields(posting.ID, posting.Company, posting.Source), zap.Float64("raw_score", raw))...)
		raw = 0
	}
	penalty, matched := Penalty(excluded, textnorm.Join(jobTokens), e.penaltyPoints)

	return Breakdown{
		RawScore:          raw,
		Penalty:           penalty,
		MatchedExclusions: matched,
		FinalScore:        Finalize(raw, penalty),
	}
}

func validate(profile SkillProfile, excluded ExclusionList) error {
	if err := validateEntries("skills", profile); err != nil {
		return err
	}
	return validateEntries("excluded_skills", excluded)
}
