package textnorm

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Supported stopword languages.
const (
	English = "english"
	Polish  = "polish"
	Russian = "russian"
)

// DefaultLanguages is used when no languages are configured.
// Polish is left out because its list contains "go".
var DefaultLanguages = []string{English, Russian}

//go:embed stopwords/*.txt
var stopwordFiles embed.FS

// Stopwords is an immutable set of common words merged from one or more languages.
// It is built once and shared between goroutines without locking.
type Stopwords struct {
	words     map[string]struct{}
	languages []string
}

// LoadStopwords merges the embedded lists of the given languages.
// Words are stored in the same canonical form the Normalizer produces,
// so "don't" in a list matches the token "dont".
func LoadStopwords(languages ...string) (*Stopwords, error) {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}

	sw := &Stopwords{words: make(map[string]struct{})}
	seen := make(map[string]bool, len(languages))

	for _, lang := range languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true

		data, err := stopwordFiles.ReadFile(path.Join("stopwords", lang+".txt"))
		if err != nil {
			return nil, fmt.Errorf("unknown stopword language %q (available: %s)", lang, strings.Join(Languages(), ", "))
		}

		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			for _, word := range strings.Fields(clean(line)) {
				sw.words[word] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading %s stopwords: %w", lang, err)
		}

		sw.languages = append(sw.languages, lang)
	}

	return sw, nil
}

// MustLoadStopwords is like LoadStopwords but panics on error.
func MustLoadStopwords(languages ...string) *Stopwords {
	sw, err := LoadStopwords(languages...)
	if err != nil {
		panic(err)
	}
	return sw
}

// Contains reports whether word is a stopword. A nil set contains nothing.
func (s *Stopwords) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[word]
	return ok
}

func (s *Stopwords) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// Languages returns the languages merged into the set.
func (s *Stopwords) Languages() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.languages...)
}

// Languages lists the embedded stopword languages.
func Languages() []string {
	entries, err := stopwordFiles.ReadDir("stopwords")
	if err != nil {
		return nil
	}

	langs := make([]string, 0, len(entries))
	for _, entry := range entries {
		langs = append(langs, strings.TrimSuffix(entry.Name(), ".txt"))
	}
	sort.Strings(langs)
	return langs
}
