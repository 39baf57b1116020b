package juju

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"gopkg.in/tomb.v2"

	"sunbeam/internal/step"
)

// ReporterConfig configures a [StatusReporter].
type ReporterConfig struct {
	Client       Client
	Clock        clock.Clock
	Interval     time.Duration
	Logger       zerolog.Logger
	Model        string
	Applications []string

	// Queue receives status lines. Nil creates one sized to Applications.
	Queue *StatusQueue

	// Progress displays the queued lines.
	Progress step.Progress
}

// StatusReporter streams application status lines to a progress sink while
// a wait runs.
//
// It runs two goroutines under one tomb: a producer that queries each
// application on an interval and pushes changed statuses into the queue,
// and a renderer that drains the queue into the progress sink. Applications
// that do not exist are skipped. The reporter must be stopped with [Stop]
// once the wait returns.
type StatusReporter struct {
	tomb   tomb.Tomb
	cfg    ReporterConfig
	logger zerolog.Logger
}

// StartStatusReporter starts a reporter. Cancelling ctx stops it as well.
func StartStatusReporter(ctx context.Context, cfg ReporterConfig) *StatusReporter {
	if cfg.Queue == nil {
		cfg.Queue = NewStatusQueue(len(cfg.Applications))
	}
	if cfg.Progress == nil {
		cfg.Progress = step.NopProgress{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	r := &StatusReporter{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "status-reporter").Str("model", cfg.Model).Logger(),
	}
	workCtx := r.tomb.Context(ctx)
	r.tomb.Go(r.render)
	r.tomb.Go(func() error {
		return r.produce(workCtx)
	})
	return r
}

// Queue returns the queue the reporter feeds.
func (r *StatusReporter) Queue() *StatusQueue {
	return r.cfg.Queue
}

func (r *StatusReporter) produce(ctx context.Context) error {
	last := make(map[string]string)
	for {
		for _, name := range r.cfg.Applications {
			app, err := r.cfg.Client.GetApplication(ctx, r.cfg.Model, name)
			if IsApplicationNotFound(err) {
				r.logger.Debug().Str("app", name).Msg("Application not found")
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Debug().Err(err).Str("app", name).Msg("Status query failed")
				continue
			}
			line := fmt.Sprintf("%s: %s", name, app.Status)
			if app.Message != "" {
				line += " (" + app.Message + ")"
			}
			if last[name] != line {
				last[name] = line
				r.cfg.Queue.Push(line)
			}
		}

		select {
		case <-r.tomb.Dying():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-r.cfg.Clock.After(r.cfg.Interval):
		}
	}
}

func (r *StatusReporter) render() error {
	for {
		select {
		case <-r.tomb.Dying():
			return nil
		case line := <-r.cfg.Queue.C():
			r.cfg.Progress.Update(line)
		}
	}
}

// Stop cancels the reporter and waits for its goroutines to exit.
// It never fails and is safe to call more than once.
func (r *StatusReporter) Stop() {
	r.tomb.Kill(nil)
	if err := r.tomb.Wait(); err != nil && err != tomb.ErrDying {
		r.logger.Debug().Err(err).Msg("Status reporter stopped with error")
	}
}

// Done is closed once the reporter has fully stopped.
func (r *StatusReporter) Done() <-chan struct{} {
	return r.tomb.Dead()
}

// WaitWithReporter runs WaitUntilDesiredStatus while a [StatusReporter]
// streams the applications' status into progress. The reporter is stopped
// before returning, whatever the wait's outcome.
//
// The reporter is the only producer of status lines; the wait itself
// pushes nothing, so each change reaches progress once.
func (p *Poller) WaitWithReporter(ctx context.Context, target Target, progress step.Progress) error {
	reporter := StartStatusReporter(ctx, ReporterConfig{
		Client:       p.client,
		Clock:        p.clock,
		Interval:     p.interval,
		Logger:       p.logger,
		Model:        target.Model,
		Applications: target.Applications,
		Progress:     progress,
	})
	defer reporter.Stop()

	return p.WaitUntilDesiredStatus(ctx, target, nil)
}
