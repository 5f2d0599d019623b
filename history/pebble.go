package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
)

// pebbleStore keeps records in a local Pebble database for runners that
// cannot reach GitHub or a SQL server. Keys sort by recording time:
//
//	run|{hostname}|{branch}|{unix nanos, zero padded}|{run id}
//
// so a prefix scan in reverse yields newest-first history.
type pebbleStore struct {
	db *pebble.DB
}

func newPebbleStore(cfg Config) (*pebbleStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("history: pebble backend requires a path")
	}
	db, err := pebble.Open(cfg.Path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("history: opening pebble store: %w", err)
	}
	return &pebbleStore{db: db}, nil
}

// keySegment escapes the separator, since '|' is legal in git branch
// names and an unescaped one would leak into neighboring prefix scans.
func keySegment(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, "|", "%7C")
}

func runKeyPrefix(hostname, branch string) []byte {
	return []byte(fmt.Sprintf("run|%s|%s|", keySegment(hostname), keySegment(branch)))
}

func runKey(rec *Record) []byte {
	return []byte(fmt.Sprintf("run|%s|%s|%020d|%s",
		keySegment(rec.Hostname), keySegment(rec.Branch), rec.RecordedAt.UnixNano(), rec.ID))
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (s *pebbleStore) scan(hostname, branch string, n int) ([]*Record, error) {
	prefix := runKeyPrefix(hostname, branch)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("history: opening iterator: %w", err)
	}
	defer iter.Close()

	var recs []*Record
	for ok := iter.Last(); ok; ok = iter.Prev() {
		rec := &Record{}
		if err := json.Unmarshal(iter.Value(), rec); err != nil {
			return nil, fmt.Errorf("history: decoding %s: %w", iter.Key(), err)
		}
		recs = append(recs, rec)
		if n > 0 && len(recs) == n {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("history: scanning runs: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs, nil
}

func (s *pebbleStore) LatestRun(ctx context.Context, hostname, branch string) (*Record, error) {
	recs, err := s.scan(hostname, branch, 1)
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

func (s *pebbleStore) RecentRuns(ctx context.Context, hostname, branch string, n int) ([]*Record, error) {
	return s.scan(hostname, branch, n)
}

func (s *pebbleStore) PutRun(ctx context.Context, rec *Record) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: encoding run: %w", err)
	}
	if err := s.db.Set(runKey(rec), buf, pebble.Sync); err != nil {
		return fmt.Errorf("history: storing run: %w", err)
	}
	return nil
}

func (s *pebbleStore) Prune(ctx context.Context, hostname, branch string, keep int) (int, error) {
	prefix := runKeyPrefix(hostname, branch)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("history: opening iterator: %w", err)
	}
	defer iter.Close()

	var stale [][]byte
	i := 0
	for ok := iter.Last(); ok; ok = iter.Prev() {
		if i >= keep {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			stale = append(stale, key)
		}
		i++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("history: scanning runs: %w", err)
	}

	for _, key := range stale {
		if err := s.db.Delete(key, pebble.Sync); err != nil {
			return 0, fmt.Errorf("history: deleting %s: %w", key, err)
		}
	}
	return len(stale), nil
}

func (s *pebbleStore) Close() error { return s.db.Close() }
