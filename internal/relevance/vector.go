package relevance

import (
	"math"
	"sort"
)

// Vocabulary maps each distinct term of a collection to a vector dimension.
// Terms are kept sorted, so the layout does not depend on document order and
// every sum over dimensions runs in the same order.
type Vocabulary struct {
	terms []string
	index map[string]int
}

func newVocabulary(docs [][]string) *Vocabulary {
	index := make(map[string]int)
	for _, doc := range docs {
		for _, term := range doc {
			index[term] = 0
		}
	}

	terms := make([]string, 0, len(index))
	for term := range index {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	for i, term := range terms {
		index[term] = i
	}

	return &Vocabulary{terms: terms, index: index}
}

func (v *Vocabulary) Len() int {
	return len(v.terms)
}

// Index returns the dimension of term.
func (v *Vocabulary) Index(term string) (int, bool) {
	i, ok := v.index[term]
	return i, ok
}

// Vector is a dense term vector over a Vocabulary.
type Vector []float64

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Dot returns the dot product of two vectors of the same vocabulary.
// Vectors of different length yield 0.
func (v Vector) Dot(o Vector) float64 {
	if len(v) != len(o) {
		return 0
	}
	var sum float64
	for i := range v {
		sum += v[i] * o[i]
	}
	return sum
}

// Corpus is a small document collection weighted with smoothed TF-IDF:
//
//	tf(t, d) = count of t in d
//	idf(t)   = ln((1 + N) / (1 + df(t))) + 1
//
// Every document vector is L2-normalized; an empty document has a zero vector.
type Corpus struct {
	vocab  *Vocabulary
	counts []map[int]int
	df     []int
}

// NewCorpus builds a corpus from tokenized documents.
func NewCorpus(docs ...[]string) *Corpus {
	vocab := newVocabulary(docs)
	c := &Corpus{
		vocab:  vocab,
		counts: make([]map[int]int, len(docs)),
		df:     make([]int, vocab.Len()),
	}

	for i, doc := range docs {
		counts := make(map[int]int, len(doc))
		for _, term := range doc {
			counts[vocab.index[term]]++
		}
		for dim := range counts {
			c.df[dim]++
		}
		c.counts[i] = counts
	}

	return c
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	return len(c.counts)
}

func (c *Corpus) Vocabulary() *Vocabulary {
	return c.vocab
}

// DocumentFrequency returns the number of documents containing term.
func (c *Corpus) DocumentFrequency(term string) int {
	dim, ok := c.vocab.Index(term)
	if !ok {
		return 0
	}
	return c.df[dim]
}

// IDF returns the smoothed inverse document frequency of term. It is always
// at least 1, also for terms outside the vocabulary.
func (c *Corpus) IDF(term string) float64 {
	return idf(c.Len(), c.DocumentFrequency(term))
}

// Vector returns the normalized TF-IDF vector of document i.
// It panics if i is out of range.
func (c *Corpus) Vector(i int) Vector {
	vec := make(Vector, c.vocab.Len())
	for dim, count := range c.counts[i] {
		vec[dim] = float64(count) * idf(c.Len(), c.df[dim])
	}

	norm := vec.Norm()
	if norm == 0 {
		return vec
	}
	for dim := range vec {
		vec[dim] /= norm
	}
	return vec
}

func idf(docs, df int) float64 {
	return math.Log(float64(1+docs)/float64(1+df)) + 1
}
