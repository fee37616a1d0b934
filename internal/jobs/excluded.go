package jobs

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"
)

// ExcludedPostings is the persistent list of postings the user never wants
// to see again.
type ExcludedPostings struct {
	Items []*ExcludedPosting
}

type ExcludedPosting struct {
	ID         string
	URL        string
	Company    string
	Reason     string `json:",omitempty"`
	ExcludedAt time.Time
}

var now = time.Now

func (p *Postings) ToExcluded(reason string) *ExcludedPostings {
	excluded := &ExcludedPostings{}
	for _, posting := range p.Items {
		excluded.Items = append(excluded.Items, &ExcludedPosting{
			ID:         posting.ID,
			URL:        posting.Link,
			Company:    posting.Company,
			Reason:     reason,
			ExcludedAt: now().UTC(),
		})
	}
	return excluded
}

// LoadExcluded reads the exclusion file. A missing or empty file is an empty
// list.
func LoadExcluded(path string) (*ExcludedPostings, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ExcludedPostings{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedPostings{}, nil
	}

	var excluded ExcludedPostings
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

func (e *ExcludedPostings) Append(other *ExcludedPostings) {
	e.Items = append(e.Items, other.Items...)
}

func (e *ExcludedPostings) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, posting := range e.Items {
		ids = append(ids, posting.ID)
	}
	return ids
}

func (e *ExcludedPostings) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
