package relevance

import "math"

// Cosine returns the cosine of the angle between a and b, clamped to [0, 1].
// A zero vector on either side yields 0.
func Cosine(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	c := a.Dot(b) / (na * nb)
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// Percent scales a cosine value to a percentage with two decimals.
func Percent(cosine float64) float64 {
	return roundScore(cosine * 100)
}

// Similarity scores a job document against a profile document, both already
// normalized. The pair forms its own two-document corpus. An empty job
// document scores 0 without building vectors.
func Similarity(profile, job []string) float64 {
	if len(job) == 0 {
		return 0
	}
	corpus := NewCorpus(profile, job)
	return Percent(Cosine(corpus.Vector(0), corpus.Vector(1)))
}

func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
