// Package history persists benchmark runs keyed by (hostname, branch) so
// later runs can be compared against them. Backends are swappable: GitHub
// gists (shareable, one snapshot plus a rolling window per key), a SQL
// database (sqlite or mysql), or a local Pebble store for runners without
// network access.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfv/continuous-benchmark/gbench"
)

// ErrNotFound is returned when no run is stored for the requested
// (hostname, branch) key.
var ErrNotFound = errors.New("history: run not found")

// Record is one stored benchmark run.
type Record struct {
	ID         string    `json:"id"`
	Hostname   string    `json:"hostname"`
	Branch     string    `json:"branch"`
	Commit     string    `json:"commit"`
	RecordedAt time.Time `json:"recorded_at"`

	Results []gbench.Result `json:"results"`

	// ResultsCSV is the annotated CSV table as uploaded, kept verbatim so
	// the stored artifact matches what humans and other tools read.
	ResultsCSV string `json:"results_csv,omitempty"`

	// MetaReport is the plaintext meta_data.txt companion file.
	MetaReport string `json:"meta_report,omitempty"`
}

// Store persists and retrieves benchmark runs for (hostname, branch) keys.
type Store interface {
	// LatestRun returns the most recent run for the key, or ErrNotFound.
	LatestRun(ctx context.Context, hostname, branch string) (*Record, error)

	// RecentRuns returns up to n runs for the key, newest first. An empty
	// history returns ErrNotFound.
	RecentRuns(ctx context.Context, hostname, branch string, n int) ([]*Record, error)

	// PutRun stores a run.
	PutRun(ctx context.Context, rec *Record) error

	// Prune drops all but the newest keep runs for the key and reports
	// how many were removed.
	Prune(ctx context.Context, hostname, branch string, keep int) (int, error)

	Close() error
}

// Backend selects a Store implementation.
type Backend string

const (
	BackendGist   Backend = "gist"
	BackendSQL    Backend = "sql"
	BackendPebble Backend = "pebble"
)

// Config holds backend selection and per-backend settings.
type Config struct {
	Backend Backend

	// Gist backend
	GistUser  string
	GistToken string

	// SQL backend
	Driver string // "sqlite3" or "mysql"
	DSN    string

	// Pebble backend
	Path string

	// Window caps how many runs a key retains where the backend prunes on
	// write (gist). Zero means the default of 30.
	Window int
}

const defaultWindow = 30

// NewStore creates the configured Store.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}

	switch cfg.Backend {
	case BackendGist:
		return newGistStore(ctx, cfg)
	case BackendSQL:
		return newSQLStore(cfg)
	case BackendPebble:
		return newPebbleStore(cfg)
	case "":
		return nil, errors.New("history: no backend configured")
	default:
		return nil, fmt.Errorf("history: unsupported backend: %s", cfg.Backend)
	}
}
