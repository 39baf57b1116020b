package juju

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is the delay between two status queries.
const DefaultPollInterval = time.Second

// Target describes what a readiness wait observes.
type Target struct {
	// Model is the model the applications live in.
	Model string

	// Applications are the application names to observe. An empty list is
	// converged immediately.
	Applications []string

	// DesiredStatus is the set of acceptable application statuses.
	DesiredStatus []string

	// Timeout bounds the wait. It must be positive.
	Timeout time.Duration
}

// UnitStatusFilter accepts a unit when its agent status is in Agent and its
// workload status is in Workload. An empty list accepts any value.
type UnitStatusFilter struct {
	Agent    []string
	Workload []string
}

// Accepts reports whether u satisfies the filter.
func (f UnitStatusFilter) Accepts(u Unit) bool {
	if len(f.Agent) > 0 && !set.NewStrings(f.Agent...).Contains(u.AgentStatus) {
		return false
	}
	if len(f.Workload) > 0 && !set.NewStrings(f.Workload...).Contains(u.WorkloadStatus) {
		return false
	}
	return true
}

// WaitTimeoutError is returned when a wait does not converge in time.
// It matches juju/errors Timeout.
type WaitTimeoutError struct {
	Model   string
	Timeout time.Duration

	// Statuses holds the last observed status per application or unit.
	Statuses map[string]string
}

// Error lists the last observed statuses, sorted by name.
func (e *WaitTimeoutError) Error() string {
	keys := make([]string, 0, len(e.Statuses))
	for k := range e.Statuses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Statuses[k])
	}
	return fmt.Sprintf("timed out after %s waiting in model %s (%s)",
		e.Timeout, e.Model, strings.Join(parts, ", "))
}

// Is lets errors.Is(err, errors.Timeout) match.
func (e *WaitTimeoutError) Is(target error) bool {
	return target == errors.Timeout
}

// WaitError is returned when a wait cannot query status.
type WaitError struct {
	Model string
	Err   error
}

// Error implements error.
func (e *WaitError) Error() string {
	return fmt.Sprintf("waiting in model %s: %v", e.Model, e.Err)
}

// Unwrap returns the query error.
func (e *WaitError) Unwrap() error {
	return e.Err
}

// Poller runs readiness waits against a [Client].
//
// Each wait polls on a fixed interval measured by the injected clock.
// Every tick checks, in order: the query failed (WaitError), the timeout
// elapsed (WaitTimeoutError), the observed state converged (success).
//
// The timeout is also armed as a clock timer that cancels the query in
// flight, so a query that never answers still ends the wait with a
// [*WaitTimeoutError] carrying the statuses seen so far. Cancelling the
// caller's context ends the wait with an error matching
// [context.Canceled] or [context.DeadlineExceeded]; it is neither a
// WaitError nor a WaitTimeoutError.
type Poller struct {
	client   Client
	clock    clock.Clock
	interval time.Duration
	logger   zerolog.Logger
}

// NewPoller creates a Poller. A non-positive interval uses [DefaultPollInterval].
func NewPoller(client Client, clk clock.Clock, interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		client:   client,
		clock:    clk,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Client returns the client the poller queries.
func (p *Poller) Client() Client {
	return p.client
}

// Clock returns the poller's clock.
func (p *Poller) Clock() clock.Clock {
	return p.clock
}

// Interval returns the delay between two queries.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// tickFunc queries once and reports convergence along with the observed
// statuses.
type tickFunc func(ctx context.Context) (converged bool, statuses map[string]string, err error)

// errWaitDeadline is the cancel cause set when the wait timeout fires.
var errWaitDeadline = errors.New("wait deadline reached")

func (p *Poller) poll(parent context.Context, model string, timeout time.Duration, queue *StatusQueue, tick tickFunc) error {
	if timeout <= 0 {
		return errors.NotValidf("wait timeout %s", timeout)
	}
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)
	deadline := p.clock.Now().Add(timeout)
	timer := p.clock.AfterFunc(timeout, func() { cancel(errWaitDeadline) })
	defer timer.Stop()

	last := make(map[string]string)
	stopped := func(err error) error {
		if parent.Err() != nil {
			return errors.Annotatef(parent.Err(), "waiting in model %s", model)
		}
		if context.Cause(ctx) == errWaitDeadline {
			return &WaitTimeoutError{Model: model, Timeout: timeout, Statuses: last}
		}
		return &WaitError{Model: model, Err: err}
	}
	expired := func() bool {
		return !p.clock.Now().Before(deadline)
	}

	for {
		converged, statuses, err := tick(ctx)
		if err != nil {
			return stopped(err)
		}
		if queue != nil {
			for name, status := range statuses {
				if last[name] != status {
					queue.Push(fmt.Sprintf("%s: %s", name, status))
				}
			}
		}
		last = statuses
		if last == nil {
			last = make(map[string]string)
		}

		if expired() {
			return &WaitTimeoutError{Model: model, Timeout: timeout, Statuses: last}
		}
		if converged {
			return nil
		}

		select {
		case <-ctx.Done():
			return stopped(ctx.Err())
		case <-p.clock.After(p.interval):
		}
		if expired() {
			return &WaitTimeoutError{Model: model, Timeout: timeout, Statuses: last}
		}
	}
}

// WaitUntilDesiredStatus blocks until every application of target reports a
// status in target.DesiredStatus at the same tick.
//
// Every application must exist: a missing application fails the wait with a
// [*WaitError] wrapping [*ApplicationNotFoundError]. Status changes are
// pushed to queue when it is not nil.
func (p *Poller) WaitUntilDesiredStatus(ctx context.Context, target Target, queue *StatusQueue) error {
	desired := set.NewStrings(target.DesiredStatus...)
	logger := p.logger.With().Str("model", target.Model).Strs("apps", target.Applications).Logger()
	logger.Debug().Strs("desired", target.DesiredStatus).Dur("timeout", target.Timeout).Msg("Waiting for applications")

	err := p.poll(ctx, target.Model, target.Timeout, queue, func(ctx context.Context) (bool, map[string]string, error) {
		if len(target.Applications) == 0 {
			return true, nil, nil
		}
		snapshot, err := p.client.GetApplications(ctx, target.Model)
		if err != nil {
			return false, nil, err
		}
		statuses := make(map[string]string, len(target.Applications))
		converged := true
		for _, name := range target.Applications {
			app, ok := snapshot[name]
			if !ok {
				return false, nil, &ApplicationNotFoundError{Application: name, Model: target.Model}
			}
			statuses[name] = app.Status
			if !desired.Contains(app.Status) {
				converged = false
			}
		}
		return converged, statuses, nil
	})
	if err != nil {
		logger.Debug().Err(err).Msg("Wait failed")
	}
	return err
}

// WaitApplicationReady is WaitUntilDesiredStatus for a single application.
func (p *Poller) WaitApplicationReady(ctx context.Context, model, app string, accepted []string, timeout time.Duration) error {
	return p.WaitUntilDesiredStatus(ctx, Target{
		Model:         model,
		Applications:  []string{app},
		DesiredStatus: accepted,
		Timeout:       timeout,
	}, nil)
}

// WaitApplicationGone blocks until none of apps exists in model.
func (p *Poller) WaitApplicationGone(ctx context.Context, model string, apps []string, timeout time.Duration) error {
	p.logger.Debug().Str("model", model).Strs("apps", apps).Msg("Waiting for applications to be removed")

	return p.poll(ctx, model, timeout, nil, func(ctx context.Context) (bool, map[string]string, error) {
		if len(apps) == 0 {
			return true, nil, nil
		}
		snapshot, err := p.client.GetApplications(ctx, model)
		if err != nil {
			return false, nil, err
		}
		statuses := make(map[string]string)
		for _, name := range apps {
			if app, ok := snapshot[name]; ok {
				statuses[name] = app.Status
			}
		}
		return len(statuses) == 0, statuses, nil
	})
}

// WaitUnitsReady blocks until every unit in units is accepted by filter.
// A unit missing from the model counts as not ready.
func (p *Poller) WaitUnitsReady(ctx context.Context, model string, units []string, filter UnitStatusFilter, timeout time.Duration) error {
	p.logger.Debug().Str("model", model).Strs("units", units).Msg("Waiting for units")

	return p.poll(ctx, model, timeout, nil, func(ctx context.Context) (bool, map[string]string, error) {
		if len(units) == 0 {
			return true, nil, nil
		}
		snapshot, err := p.client.GetApplications(ctx, model)
		if err != nil {
			return false, nil, err
		}
		byName := make(map[string]Unit)
		for _, app := range snapshot {
			for name, u := range app.Units {
				byName[name] = u
			}
		}
		statuses := make(map[string]string, len(units))
		converged := true
		for _, name := range units {
			u, ok := byName[name]
			if !ok {
				statuses[name] = "missing"
				converged = false
				continue
			}
			statuses[name] = u.AgentStatus + "/" + u.WorkloadStatus
			if !filter.Accepts(u) {
				converged = false
			}
		}
		return converged, statuses, nil
	})
}
