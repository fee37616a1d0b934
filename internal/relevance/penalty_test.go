package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPenalty(t *testing.T) {
	t.Parallel()

	text := "senior mysql developer php php laravel"

	tests := []struct {
		name     string
		keywords []string
		penalty  int
		matched  []string
	}{
		{name: "no keywords", keywords: nil, penalty: 0},
		{name: "substring of longer token", keywords: []string{"sql"}, penalty: 10, matched: []string{"sql"}},
		{name: "one deduction per keyword", keywords: []string{"php"}, penalty: 10, matched: []string{"php"}},
		{name: "case insensitive", keywords: []string{"PHP", "Laravel"}, penalty: 20, matched: []string{"PHP", "Laravel"}},
		{name: "duplicates count once", keywords: []string{"php", " PHP "}, penalty: 10, matched: []string{"php"}},
		{name: "absent keyword", keywords: []string{"java"}, penalty: 0},
		{name: "blank keyword ignored", keywords: []string{" "}, penalty: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			penalty, matched := Penalty(tt.keywords, text, DefaultPenaltyPoints)
			assert.Equal(t, tt.penalty, penalty)
			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	for _, raw := range []float64{0, 0.5, 9.99, 10, 45.52, 100} {
		for k := 0; k <= 3; k++ {
			want := raw - float64(10*k)
			if want < 0 {
				want = 0
			}
			assert.InDelta(t, want, Finalize(raw, 10*k), 1e-9, "raw=%v k=%d", raw, k)
		}
	}
}
