// Package store keeps the history of ranking runs in a SQL database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/spigell/hh-matcher/internal/relevance"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultListLimit = 20

	// fixed width keeps lexical and chronological order equal
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		skills     TEXT NOT NULL,
		excluded   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS run_results (
		run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		rank            INTEGER NOT NULL,
		posting_id      TEXT NOT NULL,
		title           TEXT NOT NULL,
		company         TEXT NOT NULL,
		link            TEXT NOT NULL,
		source          TEXT NOT NULL,
		raw_score       DOUBLE PRECISION NOT NULL,
		penalty         INTEGER NOT NULL,
		relevance_score DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, rank)
	)`,
	`CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at)`,
}

// Run is one ranking call with its kept postings in rank order.
type Run struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Skills    []string  `json:"skills"`
	Excluded  []string  `json:"excluded_skills"`
	Count     int       `json:"count"`
	Results   []Result  `json:"results,omitempty"`
}

// Result is a ranked posting as stored in the history.
type Result struct {
	Rank           int     `json:"rank"`
	PostingID      string  `json:"posting_id"`
	Title          string  `json:"title"`
	Company        string  `json:"company,omitempty"`
	Link           string  `json:"link,omitempty"`
	Source         string  `json:"source,omitempty"`
	RawScore       float64 `json:"raw_score"`
	Penalty        int     `json:"penalty"`
	RelevanceScore float64 `json:"relevance_score"`
}

// NewRun builds a run with a fresh id from the ranked output of the engine.
func NewRun(skills, excluded []string, ranked []relevance.ScoredPosting) *Run {
	results := make([]Result, 0, len(ranked))
	for i, posting := range ranked {
		results = append(results, Result{
			Rank:           i + 1,
			PostingID:      posting.ID,
			Title:          posting.Title,
			Company:        posting.Company,
			Link:           posting.Link,
			Source:         posting.Source,
			RawScore:       posting.RawScore,
			Penalty:        posting.Penalty,
			RelevanceScore: posting.RelevanceScore,
		})
	}

	return &Run{
		ID:        uuid.New(),
		CreatedAt: now().UTC(),
		Skills:    nonNil(skills),
		Excluded:  nonNil(excluded),
		Count:     len(results),
		Results:   results,
	}
}

var now = time.Now

// Store persists runs.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database and creates the tables if needed.
// The sqlite DSN is a file path; its directory is created.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = DriverSQLite
	}

	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
			}
		}
	case DriverPostgres, "pgx":
		driver = DriverPostgres
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if driver == DriverSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if s.driver == DriverSQLite {
		if _, err := s.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			return err
		}
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores the run and its results in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("store: run is required")
	}

	skills, err := json.Marshal(nonNil(run.Skills))
	if err != nil {
		return fmt.Errorf("store: marshal skills: %w", err)
	}
	excluded, err := json.Marshal(nonNil(run.Excluded))
	if err != nil {
		return fmt.Errorf("store: marshal excluded skills: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO runs (id, created_at, skills, excluded) VALUES (?, ?, ?, ?)`),
		run.ID.String(), run.CreatedAt.UTC().Format(timeLayout), string(skills), string(excluded),
	); err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	insert := s.rebind(`INSERT INTO run_results
		(run_id, rank, posting_id, title, company, link, source, raw_score, penalty, relevance_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, r := range run.Results {
		if _, err := tx.ExecContext(ctx, insert,
			run.ID.String(), r.Rank, r.PostingID, r.Title, r.Company, r.Link, r.Source,
			r.RawScore, r.Penalty, r.RelevanceScore,
		); err != nil {
			return fmt.Errorf("store: insert result %d: %w", r.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first, without their results.
// A non-positive limit means DefaultListLimit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT r.id, r.created_at, r.skills, r.excluded,
			(SELECT COUNT(*) FROM run_results rr WHERE rr.run_id = r.id)
		FROM runs r
		ORDER BY r.created_at DESC, r.id
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}

	return runs, nil
}

// GetRun returns a run with its results in rank order.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT r.id, r.created_at, r.skills, r.excluded,
			(SELECT COUNT(*) FROM run_results rr WHERE rr.run_id = r.id)
		FROM runs r WHERE r.id = ?`), id.String())

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT rank, posting_id, title, company, link, source, raw_score, penalty, relevance_score
		FROM run_results WHERE run_id = ? ORDER BY rank`), id.String())
	if err != nil {
		return nil, fmt.Errorf("store: get results: %w", err)
	}
	defer rows.Close()

	run.Results = make([]Result, 0, run.Count)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Rank, &r.PostingID, &r.Title, &r.Company, &r.Link, &r.Source,
			&r.RawScore, &r.Penalty, &r.RelevanceScore); err != nil {
			return nil, fmt.Errorf("store: scan result: %w", err)
		}
		run.Results = append(run.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: get results: %w", err)
	}

	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                          Run
		id, created, skills, exclude string
	)
	if err := row.Scan(&id, &created, &skills, &exclude, &run.Count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("store: scan run: %w", err)
	}

	var err error
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("store: run id %q: %w", id, err)
	}
	if run.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("store: run %s created_at: %w", id, err)
	}
	if err := json.Unmarshal([]byte(skills), &run.Skills); err != nil {
		return nil, fmt.Errorf("store: run %s skills: %w", id, err)
	}
	if err := json.Unmarshal([]byte(exclude), &run.Excluded); err != nil {
		return nil, fmt.Errorf("store: run %s excluded skills: %w", id, err)
	}

	return &run, nil
}

// rebind turns ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
