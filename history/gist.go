package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-github/v53/github"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/wolfv/continuous-benchmark/gbench"
)

// Gist file names, fixed so graphs and humans always find them.
const (
	gistResultsFile = "bench_results.csv"
	gistMetaFile    = "meta_data.txt"
	gistHistoryFile = "history.json"
)

// gistStore keeps one gist per (hostname, branch) key. The gist's
// description is "{hostname}_{branch}"; bench_results.csv and meta_data.txt
// hold the latest snapshot while history.json carries the rolling window
// the regression analysis reads.
type gistStore struct {
	client *github.Client
	user   string
	window int
}

func newGistStore(ctx context.Context, cfg Config) (*gistStore, error) {
	if cfg.GistToken == "" {
		return nil, errors.New("history: gist backend requires an API token")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GistToken})
	return &gistStore{
		client: github.NewClient(oauth2.NewClient(ctx, ts)),
		user:   cfg.GistUser,
		window: cfg.Window,
	}, nil
}

// findGist scans the user's gists for one whose description starts with
// the key. Prefix match keeps older gists with annotated descriptions
// (for example a trailing date) reachable.
func (s *gistStore) findGist(ctx context.Context, desc string) (*github.Gist, error) {
	opt := &github.GistListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		gists, resp, err := s.client.Gists.List(ctx, s.user, opt)
		if err != nil {
			return nil, fmt.Errorf("history: listing gists: %w", err)
		}
		for _, g := range gists {
			if strings.HasPrefix(g.GetDescription(), desc) {
				return g, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opt.Page = resp.NextPage
	}
}

func (s *gistStore) loadRecords(ctx context.Context, hostname, branch string) ([]*Record, *github.Gist, error) {
	g, err := s.findGist(ctx, hostname+"_"+branch)
	if err != nil {
		return nil, nil, err
	}
	if g == nil {
		return nil, nil, ErrNotFound
	}

	// List responses truncate file contents; fetch the full gist.
	full, _, err := s.client.Gists.Get(ctx, g.GetID())
	if err != nil {
		return nil, nil, fmt.Errorf("history: fetching gist %s: %w", g.GetID(), err)
	}

	f, ok := full.Files[gistHistoryFile]
	if !ok || f.GetContent() == "" {
		// Gist written by an older uploader without a history file: fall
		// back to the CSV snapshot as a single-run history.
		log.Warn().Str("gist", full.GetID()).Msg("Gist has no history file, using CSV snapshot")
		rec, err := recordFromSnapshot(full, hostname, branch)
		if err != nil {
			return nil, full, err
		}
		return []*Record{rec}, full, nil
	}

	var recs []*Record
	if err := json.Unmarshal([]byte(f.GetContent()), &recs); err != nil {
		return nil, nil, fmt.Errorf("history: decoding %s: %w", gistHistoryFile, err)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].RecordedAt.After(recs[j].RecordedAt) })
	return recs, full, nil
}

func recordFromSnapshot(g *github.Gist, hostname, branch string) (*Record, error) {
	f, ok := g.Files[gistResultsFile]
	if !ok || f.GetContent() == "" {
		return nil, fmt.Errorf("history: gist %s has no %s", g.GetID(), gistResultsFile)
	}
	run, err := gbench.ReadRun(strings.NewReader(f.GetContent()))
	if err != nil {
		return nil, fmt.Errorf("history: parsing gist snapshot: %w", err)
	}
	return &Record{
		Hostname:   hostname,
		Branch:     branch,
		RecordedAt: g.GetUpdatedAt().Time,
		Results:    run.Results,
		ResultsCSV: f.GetContent(),
	}, nil
}

func (s *gistStore) LatestRun(ctx context.Context, hostname, branch string) (*Record, error) {
	recs, _, err := s.loadRecords(ctx, hostname, branch)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

func (s *gistStore) RecentRuns(ctx context.Context, hostname, branch string, n int) ([]*Record, error) {
	recs, _, err := s.loadRecords(ctx, hostname, branch)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	if n > 0 && len(recs) > n {
		recs = recs[:n]
	}
	return recs, nil
}

func (s *gistStore) PutRun(ctx context.Context, rec *Record) error {
	recs, existing, err := s.loadRecords(ctx, rec.Hostname, rec.Branch)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	recs = append([]*Record{rec}, recs...)
	if len(recs) > s.window {
		recs = recs[:s.window]
	}

	// The rolling window carries measurements only; the latest snapshot
	// files already hold the big text artifacts.
	trimmed := make([]*Record, len(recs))
	for i, r := range recs {
		cp := *r
		cp.ResultsCSV = ""
		cp.MetaReport = ""
		trimmed[i] = &cp
	}
	historyJSON, err := json.MarshalIndent(trimmed, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encoding %s: %w", gistHistoryFile, err)
	}

	desc := rec.Hostname + "_" + rec.Branch
	payload := &github.Gist{
		Description: github.String(desc),
		Public:      github.Bool(true),
		Files: map[github.GistFilename]github.GistFile{
			gistResultsFile: {Content: github.String(rec.ResultsCSV)},
			gistMetaFile:    {Content: github.String(rec.MetaReport)},
			gistHistoryFile: {Content: github.String(string(historyJSON))},
		},
	}

	if existing != nil {
		if _, _, err := s.client.Gists.Edit(ctx, existing.GetID(), payload); err != nil {
			return fmt.Errorf("history: editing gist %s: %w", existing.GetID(), err)
		}
		log.Info().Str("gist", existing.GetID()).Str("description", desc).Msg("Updated history gist")
		return nil
	}

	created, _, err := s.client.Gists.Create(ctx, payload)
	if err != nil {
		return fmt.Errorf("history: creating gist %s: %w", desc, err)
	}
	log.Info().Str("gist", created.GetID()).Str("description", desc).Msg("Created history gist")
	return nil
}

func (s *gistStore) Prune(ctx context.Context, hostname, branch string, keep int) (int, error) {
	recs, existing, err := s.loadRecords(ctx, hostname, branch)
	if err != nil {
		return 0, err
	}
	if existing == nil || len(recs) <= keep {
		return 0, nil
	}

	dropped := len(recs) - keep
	historyJSON, err := json.MarshalIndent(recs[:keep], "", "  ")
	if err != nil {
		return 0, fmt.Errorf("history: encoding %s: %w", gistHistoryFile, err)
	}
	payload := &github.Gist{
		Files: map[github.GistFilename]github.GistFile{
			gistHistoryFile: {Content: github.String(string(historyJSON))},
		},
	}
	if _, _, err := s.client.Gists.Edit(ctx, existing.GetID(), payload); err != nil {
		return 0, fmt.Errorf("history: editing gist %s: %w", existing.GetID(), err)
	}
	return dropped, nil
}

func (s *gistStore) Close() error { return nil }
