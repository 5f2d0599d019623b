package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	// Drivers registered for the two DSN flavors the store accepts.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wolfv/continuous-benchmark/gbench"
)

type resultRow struct {
	Name        string
	Iterations  int64
	RealTime    float64
	CPUTime     float64
	TimeUnit    string
	samplesJSON string
}

func (r *resultRow) toResult() (gbench.Result, error) {
	res := gbench.Result{
		Name:       r.Name,
		Iterations: r.Iterations,
		RealTime:   r.RealTime,
		CPUTime:    r.CPUTime,
		TimeUnit:   r.TimeUnit,
	}
	if err := json.Unmarshal([]byte(r.samplesJSON), &res.CPUSamples); err != nil {
		return res, fmt.Errorf("history: decoding samples for %s: %w", r.Name, err)
	}
	if len(res.CPUSamples) == 0 {
		res.CPUSamples = []float64{res.CPUTime}
	}
	return res, nil
}

// sqlStore keeps runs in two tables: one row per run plus one row per
// measured case. Queries only ever filter on (hostname, branch), so that
// pair is the sole index. MySQL DSNs need parseTime=true so recorded_at
// scans back into time.Time.
type sqlStore struct {
	db *sql.DB
}

const sqlSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          VARCHAR(64) PRIMARY KEY,
	hostname    VARCHAR(255) NOT NULL,
	branch      VARCHAR(255) NOT NULL,
	commit_hash VARCHAR(64) NOT NULL,
	recorded_at TIMESTAMP NOT NULL,
	results_csv TEXT,
	meta_report TEXT
);
CREATE TABLE IF NOT EXISTS results (
	run_id      VARCHAR(64) NOT NULL,
	name        VARCHAR(512) NOT NULL,
	iterations  BIGINT NOT NULL,
	real_time   DOUBLE PRECISION NOT NULL,
	cpu_time    DOUBLE PRECISION NOT NULL,
	time_unit   VARCHAR(16) NOT NULL,
	cpu_samples TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_key ON runs (hostname, branch, recorded_at);
CREATE INDEX IF NOT EXISTS results_run ON results (run_id);
`

func newSQLStore(cfg Config) (*sqlStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite3"
	}
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("history: opening %s database: %w", driver, err)
	}
	for _, stmt := range strings.Split(sqlSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			// MySQL predates CREATE INDEX IF NOT EXISTS; a duplicate index
			// on an existing schema is fine.
			if strings.HasPrefix(stmt, "CREATE INDEX") {
				log.Debug().Err(err).Msg("Index creation skipped")
				continue
			}
			db.Close()
			return nil, fmt.Errorf("history: creating schema: %w", err)
		}
	}
	return &sqlStore{db: db}, nil
}

func (s *sqlStore) LatestRun(ctx context.Context, hostname, branch string) (*Record, error) {
	recs, err := s.RecentRuns(ctx, hostname, branch, 1)
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

func (s *sqlStore) RecentRuns(ctx context.Context, hostname, branch string, n int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hostname, branch, commit_hash, recorded_at, results_csv, meta_report
		FROM runs WHERE hostname = ? AND branch = ?
		ORDER BY recorded_at DESC LIMIT ?`, hostname, branch, n)
	if err != nil {
		return nil, fmt.Errorf("history: querying runs: %w", err)
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		rec := &Record{}
		if err := rows.Scan(&rec.ID, &rec.Hostname, &rec.Branch, &rec.Commit,
			&rec.RecordedAt, &rec.ResultsCSV, &rec.MetaReport); err != nil {
			return nil, fmt.Errorf("history: scanning run: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating runs: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}

	for _, rec := range recs {
		if err := s.loadResults(ctx, rec); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func (s *sqlStore) loadResults(ctx context.Context, rec *Record) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, iterations, real_time, cpu_time, time_unit, cpu_samples
		FROM results WHERE run_id = ?`, rec.ID)
	if err != nil {
		return fmt.Errorf("history: querying results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var res resultRow
		if err := rows.Scan(&res.Name, &res.Iterations, &res.RealTime,
			&res.CPUTime, &res.TimeUnit, &res.samplesJSON); err != nil {
			return fmt.Errorf("history: scanning result: %w", err)
		}
		r, err := res.toResult()
		if err != nil {
			return err
		}
		rec.Results = append(rec.Results, r)
	}
	return rows.Err()
}

func (s *sqlStore) PutRun(ctx context.Context, rec *Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: beginning tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, hostname, branch, commit_hash, recorded_at, results_csv, meta_report)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Hostname, rec.Branch, rec.Commit, rec.RecordedAt,
		rec.ResultsCSV, rec.MetaReport); err != nil {
		return fmt.Errorf("history: inserting run: %w", err)
	}

	for _, res := range rec.Results {
		samples, err := json.Marshal(res.CPUSamples)
		if err != nil {
			return fmt.Errorf("history: encoding samples: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO results (run_id, name, iterations, real_time, cpu_time, time_unit, cpu_samples)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, res.Name, res.Iterations, res.RealTime, res.CPUTime,
			res.TimeUnit, string(samples)); err != nil {
			return fmt.Errorf("history: inserting result %s: %w", res.Name, err)
		}
	}

	return tx.Commit()
}

func (s *sqlStore) Prune(ctx context.Context, hostname, branch string, keep int) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM runs WHERE hostname = ? AND branch = ?
		ORDER BY recorded_at DESC`, hostname, branch)
	if err != nil {
		return 0, fmt.Errorf("history: querying runs: %w", err)
	}
	defer rows.Close()

	var stale []string
	i := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("history: scanning run id: %w", err)
		}
		if i >= keep {
			stale = append(stale, id)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE run_id = ?`, id); err != nil {
			return 0, fmt.Errorf("history: deleting results for %s: %w", id, err)
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("history: deleting run %s: %w", id, err)
		}
	}
	return len(stale), nil
}

func (s *sqlStore) Close() error { return s.db.Close() }
