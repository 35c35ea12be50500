// Package poller runs a check function on a fixed interval until it reports
// a terminal state or is stopped. It never interprets what is being checked.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/geoai-console/internal/metrics"
)

// ErrDone is returned by a check to end polling successfully.
var ErrDone = errors.New("poller: done")

type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal wraps err so that returning it from a check stops polling and
// makes err the poller's result.
func Terminal(err error) error {
	if err == nil {
		return ErrDone
	}
	return &terminalError{err: err}
}

// CheckFunc performs one poll. ctx is cancelled when the poller stops.
type CheckFunc func(ctx context.Context) error

// Options configures a Poller.
type Options struct {
	Name     string
	Interval time.Duration
	// Immediate runs the first check without waiting one interval.
	Immediate bool
	// OnError is called with non-terminal check errors. Polling continues.
	OnError func(error)
	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

// Poller is the handle of a running poll loop.
type Poller struct {
	name    string
	cancel  context.CancelFunc
	done    chan struct{}
	stop    sync.Once
	err     error
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// Start begins polling check every opts.Interval. At most one check is in
// flight; the next interval starts counting when the previous check returns.
func Start(ctx context.Context, check CheckFunc, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Name == "" {
		opts.Name = "poll"
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{
		name:    opts.Name,
		cancel:  cancel,
		done:    make(chan struct{}),
		metrics: opts.Metrics,
		logger:  opts.Logger.With().Str("component", "poller").Str("poller", opts.Name).Logger(),
	}

	p.metrics.PollerStarted()
	go p.run(ctx, check, opts)
	return p
}

func (p *Poller) run(ctx context.Context, check CheckFunc, opts Options) {
	defer close(p.done)
	defer p.metrics.PollerStopped()
	defer p.cancel()

	delay := opts.Interval
	if opts.Immediate {
		delay = 0
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	p.logger.Debug().Dur("interval", opts.Interval).Msg("Polling started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Msg("Polling stopped")
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}

		err := check(ctx)
		if ctx.Err() != nil {
			// Stopped while the check was in flight; its result is ignored.
			p.metrics.RecordPollTick(p.name, "cancelled")
			return
		}

		var term *terminalError
		switch {
		case err == nil:
			p.metrics.RecordPollTick(p.name, "pending")
		case errors.Is(err, ErrDone):
			p.metrics.RecordPollTick(p.name, "done")
			p.logger.Debug().Msg("Polling finished")
			return
		case errors.As(err, &term):
			p.metrics.RecordPollTick(p.name, "terminal")
			p.err = term.err
			p.logger.Debug().Err(term.err).Msg("Polling finished with error")
			return
		default:
			p.metrics.RecordPollTick(p.name, "error")
			p.logger.Warn().Err(err).Msg("Poll check failed")
			if opts.OnError != nil {
				opts.OnError(err)
			}
		}

		timer.Reset(opts.Interval)
	}
}

// Stop cancels polling, including a tick already scheduled. A check in
// flight sees its context cancelled and its result is discarded. Stop is
// safe to call from inside the check and more than once.
func (p *Poller) Stop() {
	p.stop.Do(p.cancel)
}

// Done is closed when the loop has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Err returns the terminal error once Done is closed, or nil.
func (p *Poller) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until polling ends or ctx is cancelled. It returns the
// terminal error, nil, or ctx's error.
func (p *Poller) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
