package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"icalagenda/internal/agenda"
	"icalagenda/internal/config"
	"icalagenda/internal/ics"
	appLog "icalagenda/internal/log"
	"icalagenda/internal/metrics"
	"icalagenda/internal/web"
)

// pipeline runs conversions for one effective configuration.
type pipeline struct {
	cfg       *config.Config
	converter *agenda.Converter
	fetcher   *ics.Fetcher
	recorder  *metrics.Recorder
	stdin     io.Reader
}

func newPipeline(cfg *config.Config, recorder *metrics.Recorder) (*pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return &pipeline{
		cfg: cfg,
		converter: agenda.NewConverter(agenda.Options{
			Days:            uint(cfg.Days),
			Emails:          cfg.Emails,
			Location:        loc,
			IncludeLocation: cfg.IncludeLocation,
			ContinueOnError: cfg.ContinueOnError,
		}),
		fetcher:  ics.NewFetcher(cfg.CacheDir, 0),
		recorder: recorder,
		stdin:    os.Stdin,
	}, nil
}

// convert writes the agenda for all configured sources to w.
func (p *pipeline) convert(ctx context.Context, w io.Writer) (agenda.Result, error) {
	started := time.Now()

	reader := ics.NewReader(ctx, p.fetcher, p.cfg.Sources)
	reader.Stdin = p.stdin
	defer reader.Close()

	res, err := p.converter.Convert(reader, w)
	if p.recorder != nil {
		p.recorder.Observe(res, err, time.Since(started))
	}

	appLog.Info("conversion finished",
		"documents", res.Documents,
		"events", res.Events,
		"declined", res.Declined,
		"entries", res.Entries,
		"took", time.Since(started).Round(time.Millisecond),
	)
	if res.Skipped != nil {
		appLog.Error("some calendar data was skipped", res.Skipped)
	}
	return res, err
}

// writeOutput converts into the configured output. Files are replaced
// atomically; whatever was converted before an abort is still written.
func (p *pipeline) writeOutput(ctx context.Context) error {
	if p.cfg.Output == "-" {
		_, err := p.convert(ctx, os.Stdout)
		return err
	}

	var buf bytes.Buffer
	_, convErr := p.convert(ctx, &buf)
	if err := config.WriteFileAtomic(p.cfg.Output, buf.Bytes()); err != nil {
		appLog.Error("failed to write agenda file", err, "path", p.cfg.Output)
		if convErr == nil {
			return err
		}
	}
	return convErr
}

func runConvert(ctx context.Context, cfg *config.Config) error {
	p, err := newPipeline(cfg, nil)
	if err != nil {
		return err
	}
	return p.writeOutput(ctx)
}

// runWatch converts immediately and then on every tick of cfg.Refresh until
// ctx is canceled. Failed runs are logged and retried on the next tick.
func runWatch(ctx context.Context, cfg *config.Config) error {
	p, err := newPipeline(cfg, nil)
	if err != nil {
		return err
	}

	if err := p.writeOutput(ctx); err != nil {
		appLog.Error("initial conversion failed", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Refresh, func() {
		if err := p.writeOutput(ctx); err != nil {
			appLog.Error("scheduled conversion failed", err)
		}
	}); err != nil {
		return err
	}

	appLog.Info("watching calendars", "refresh", cfg.Refresh, "output", cfg.Output)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("watch stopped")
	return nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	recorder := metrics.NewRecorder()
	p, err := newPipeline(cfg, recorder)
	if err != nil {
		return err
	}

	render := func(ctx context.Context) ([]byte, error) {
		var buf bytes.Buffer
		if _, err := p.convert(ctx, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	return web.NewServer(cfg, render, recorder.Handler()).ListenAndServe(ctx)
}
