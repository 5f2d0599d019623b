// Package pipeline wires the upload flow together: parse the results
// file, compare against the baseline branch's stored history, persist the
// annotated run, then forward metrics and mail the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wolfv/continuous-benchmark/config"
	"github.com/wolfv/continuous-benchmark/gbench"
	"github.com/wolfv/continuous-benchmark/graphite"
	"github.com/wolfv/continuous-benchmark/history"
	"github.com/wolfv/continuous-benchmark/notify"
	"github.com/wolfv/continuous-benchmark/regress"
	"github.com/wolfv/continuous-benchmark/runmeta"
)

// Mailer sends the report mail. Satisfied by notify.Mailer.
type Mailer interface {
	Send(subject, plain, html string) error
}

// MetricsSink forwards run timings. Satisfied by graphite.Sender.
type MetricsSink interface {
	SendRun(run *gbench.Run) error
	Close() error
}

// Pipeline holds the collaborators for one invocation.
type Pipeline struct {
	cfg     *config.Config
	store   history.Store
	mailer  Mailer
	metrics MetricsSink
	rcfg    regress.Config
}

// New builds a Pipeline from configuration: the history store is
// mandatory, mail and Graphite attach only when configured.
func New(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := history.NewStore(ctx, history.Config{
		Backend:   history.Backend(cfg.History.Backend),
		GistUser:  cfg.Gist.User,
		GistToken: cfg.Gist.Token,
		Driver:    cfg.History.Driver,
		DSN:       cfg.History.DSN,
		Path:      cfg.History.Path,
		Window:    cfg.History.Window,
	})
	if err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, store: store}

	p.rcfg = regress.DefaultConfig()
	if cfg.Regress.Alpha > 0 {
		p.rcfg.Alpha = cfg.Regress.Alpha
	}
	if cfg.Regress.Threshold > 0 {
		p.rcfg.Threshold = cfg.Regress.Threshold
	}
	if cfg.Regress.MinSamples > 0 {
		p.rcfg.MinSamples = cfg.Regress.MinSamples
	}
	if cfg.History.Window > 0 {
		p.rcfg.Window = cfg.History.Window
	}
	if cfg.Regress.ThresholdsFile != "" {
		m, err := regress.LoadManifest(cfg.Regress.ThresholdsFile)
		if err != nil {
			store.Close()
			return nil, err
		}
		p.rcfg.Thresholds = m
	}

	if cfg.MailConfigured() {
		mailer, err := notify.NewMailer(notify.MailConfig{
			Sender:     cfg.Mail.Sender,
			Recipients: cfg.Mail.Recipients,
			SMTPServer: cfg.SMTP.Server,
			SMTPPort:   cfg.SMTP.Port,
			Password:   cfg.SMTP.Password,
		})
		if err != nil {
			store.Close()
			return nil, err
		}
		p.mailer = mailer
	}

	return p, nil
}

// Close releases the store and any metrics connection.
func (p *Pipeline) Close() {
	if p.metrics != nil {
		p.metrics.Close()
	}
	if err := p.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Closing history store")
	}
}

// Analyze parses the results file and compares it against the baseline
// branch's history without writing anything.
func (p *Pipeline) Analyze(ctx context.Context, resultsPath string) (*gbench.Run, *runmeta.Meta, *regress.Analysis, error) {
	f, err := os.Open(resultsPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pipeline: opening results: %w", err)
	}
	defer f.Close()

	run, err := gbench.ReadRun(f)
	if err != nil {
		return nil, nil, nil, err
	}

	meta, err := runmeta.Collect(p.cfg.Hostname)
	if err != nil {
		return nil, nil, nil, err
	}
	meta.CPU = run.CPU
	meta.Date = run.Timestamp

	log.Info().
		Str("hostname", meta.Hostname).
		Str("branch", meta.Branch).
		Str("commit", meta.ShortCommit()).
		Str("baseline", p.cfg.Baseline).
		Int("cases", len(run.Results)).
		Time("run_date", run.Timestamp).
		Msg("Analyzing benchmark run")

	baseline, err := p.store.RecentRuns(ctx, meta.Hostname, p.cfg.Baseline, p.rcfg.Window)
	if errors.Is(err, history.ErrNotFound) {
		log.Warn().
			Str("key", meta.BaselineDescription(p.cfg.Baseline)).
			Msg("No baseline history, every case will report as added")
		baseline = nil
	} else if err != nil {
		return nil, nil, nil, err
	}

	analysis := regress.Compare(run, baseline, p.rcfg)
	log.Info().
		Int("baseline_runs", analysis.BaselineRuns).
		Int("regressions", analysis.Regressions).
		Int("improvements", analysis.Improvements).
		Int("indeterminate", analysis.Indeterminate).
		Msg("Comparison complete")
	return run, meta, analysis, nil
}

// Upload runs the full flow: analyze, store the annotated run under
// {hostname}_{branch}, push metrics (best effort), mail the report.
func (p *Pipeline) Upload(ctx context.Context, resultsPath string) (*regress.Analysis, error) {
	run, meta, analysis, err := p.Analyze(ctx, resultsPath)
	if err != nil {
		return nil, err
	}
	if err := p.publish(ctx, run, meta, analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}

// publish persists the annotated run, then forwards metrics and mails
// the report. The history write comes first: a run that was not stored
// must not be announced.
func (p *Pipeline) publish(ctx context.Context, run *gbench.Run, meta *runmeta.Meta, analysis *regress.Analysis) error {
	var csv strings.Builder
	if err := gbench.WriteResults(&csv, run.Results, analysis.Deltas()); err != nil {
		return err
	}

	rec := &history.Record{
		ID:         uuid.NewString(),
		Hostname:   meta.Hostname,
		Branch:     meta.Branch,
		Commit:     meta.Commit,
		RecordedAt: run.Timestamp,
		Results:    run.Results,
		ResultsCSV: csv.String(),
		MetaReport: meta.Report(run.Preamble),
	}
	if err := p.store.PutRun(ctx, rec); err != nil {
		return err
	}
	log.Info().Str("run_id", rec.ID).Str("key", meta.Description()).Msg("Run stored")

	p.sendMetrics(run, meta)

	if p.mailer != nil {
		html, err := notify.RenderHTML(analysis)
		if err != nil {
			return err
		}
		subject := "benchmark results for " + meta.Description()
		if err := p.mailer.Send(subject, notify.RenderPlain(analysis), html); err != nil {
			return err
		}
	}

	return nil
}

// sendMetrics forwards the run to Graphite when configured. A metrics
// outage never fails an upload; the history write is the source of truth.
func (p *Pipeline) sendMetrics(run *gbench.Run, meta *runmeta.Meta) {
	if p.cfg.Graphite.Server == "" {
		return
	}
	sink := p.metrics
	if sink == nil {
		s, err := graphite.NewSender(p.cfg.Graphite.Server, meta.Hostname, meta.Branch)
		if err != nil {
			log.Warn().Err(err).Msg("Couldn't connect to Graphite")
			return
		}
		p.metrics = s
		sink = s
	}
	log.Info().
		Str("server", p.cfg.Graphite.Server).
		Str("prefix", meta.Hostname+"."+meta.Branch).
		Msg("Uploading metrics to Graphite")
	if err := sink.SendRun(run); err != nil {
		log.Warn().Err(err).Msg("Couldn't send data to Graphite")
	}
}
