package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/geoai-console/internal/alert"
	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/errtext"
	"github.com/p-blackswan/geoai-console/internal/metrics"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/poller"
	"github.com/p-blackswan/geoai-console/internal/store"
)

// JobStore records watched jobs so watching can resume after a restart.
type JobStore interface {
	SaveJob(ctx context.Context, j *store.Job) error
	RecordAttempt(ctx context.Context, id string) error
	FinishJob(ctx context.Context, id string, status store.JobStatus, target, errMsg string) error
	ListJobs(ctx context.Context, f store.JobFilter) ([]*store.Job, error)
}

// StatusAPI is what the tracker polls.
type StatusAPI interface {
	TaskStatus(ctx context.Context, taskID string) (*models.Task, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	GetComparison(ctx context.Context, id int64) (*models.Comparison, error)
	GetModel(ctx context.Context, id int64) (*models.MLModel, error)
}

// Intervals are the poll periods per job kind.
type Intervals struct {
	Create time.Duration
	Task   time.Duration
}

// DefaultIntervals poll project creation every 5s and everything else
// every 10s.
func DefaultIntervals() Intervals {
	return Intervals{Create: 5 * time.Second, Task: 10 * time.Second}
}

// Navigator receives the route to show when a job finishes.
type Navigator func(path string)

// outcome is one status check's verdict.
type outcome struct {
	status store.JobStatus
	target string
	reason string
}

var pending = outcome{status: store.JobPending}

// Watch follows one job until it succeeds or fails.
type Watch struct {
	*poller.Poller
	Job store.Job

	mu     sync.Mutex
	target string
}

// Target returns the route to show once the job succeeded.
func (w *Watch) Target() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

// Tracker starts and resumes job watches.
type Tracker struct {
	api       StatusAPI
	jobs      JobStore
	alerts    *alert.Center
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	intervals Intervals
	navigate  Navigator
}

// NewTracker creates a tracker. jobs and navigate may be nil.
func NewTracker(api StatusAPI, jobs JobStore, intervals Intervals, navigate Navigator, deps Deps) *Tracker {
	if intervals.Create <= 0 {
		intervals.Create = DefaultIntervals().Create
	}
	if intervals.Task <= 0 {
		intervals.Task = DefaultIntervals().Task
	}
	return &Tracker{
		api:       api,
		jobs:      jobs,
		alerts:    deps.Alerts,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With().Str("component", "tracker").Logger(),
		intervals: intervals,
		navigate:  navigate,
	}
}

// Track records job and starts watching it.
func (t *Tracker) Track(ctx context.Context, job store.Job) (*Watch, error) {
	if job.ID == "" {
		return nil, fmt.Errorf("job without task id: %w", perrors.ErrInvalidInput)
	}
	if t.jobs != nil {
		if err := t.jobs.SaveJob(ctx, &job); err != nil {
			return nil, err
		}
	}
	return t.watch(ctx, job), nil
}

// Resume restarts watches for every unfinished recorded job.
func (t *Tracker) Resume(ctx context.Context) ([]*Watch, error) {
	if t.jobs == nil {
		return nil, nil
	}
	active, err := t.jobs.ListJobs(ctx, store.JobFilter{Active: true})
	if err != nil {
		return nil, err
	}
	watches := make([]*Watch, 0, len(active))
	for _, j := range active {
		watches = append(watches, t.watch(ctx, *j))
	}
	t.logger.Info().Int("jobs", len(watches)).Msg("Resumed job watches")
	return watches, nil
}

// Navigate hands path to the navigator, if any.
func (t *Tracker) Navigate(path string) {
	if t != nil && t.navigate != nil {
		t.navigate(path)
	}
}

func (t *Tracker) interval(kind store.JobKind) time.Duration {
	if kind == store.JobProjectCreate {
		return t.intervals.Create
	}
	return t.intervals.Task
}

func (t *Tracker) watch(ctx context.Context, job store.Job) *Watch {
	w := &Watch{Job: job}
	check := t.checkFor(job)

	w.Poller = poller.Start(ctx, func(ctx context.Context) error {
		if t.jobs != nil {
			if err := t.jobs.RecordAttempt(ctx, job.ID); err != nil {
				t.logger.Debug().Err(err).Str("job", job.ID).Msg("Failed to record attempt")
			}
		}

		out, err := check(ctx)
		if err != nil {
			return err
		}

		switch out.status {
		case store.JobSucceeded:
			w.mu.Lock()
			w.target = out.target
			w.mu.Unlock()
			t.finish(ctx, job, out)
			if out.target != "" {
				t.Navigate(out.target)
			}
			return poller.ErrDone
		case store.JobFailed:
			t.finish(ctx, job, out)
			t.alerts.Raise(models.SeverityError, out.reason)
			return poller.Terminal(fmt.Errorf("%s %s: %w: %s", job.Kind, job.ID, perrors.ErrTaskFailed, out.reason))
		}
		return nil
	}, poller.Options{
		Name:     string(job.Kind),
		Interval: t.interval(job.Kind),
		OnError: func(err error) {
			if errors.Is(err, perrors.ErrUnauthorized) {
				t.alerts.Error(err)
			}
		},
		Metrics: t.metrics,
		Logger:  t.logger,
	})
	return w
}

func (t *Tracker) finish(ctx context.Context, job store.Job, out outcome) {
	if t.jobs == nil {
		return
	}
	// The poll context is about to be cancelled; record the result anyway.
	ctx = context.WithoutCancel(ctx)
	if err := t.jobs.FinishJob(ctx, job.ID, out.status, out.target, out.reason); err != nil {
		t.logger.Warn().Err(err).Str("job", job.ID).Msg("Failed to record job result")
	}
}

func (t *Tracker) checkFor(job store.Job) func(context.Context) (outcome, error) {
	switch job.Kind {
	case store.JobProjectCreate:
		return func(ctx context.Context) (outcome, error) {
			task, err := t.api.TaskStatus(ctx, job.ID)
			if err != nil {
				return pending, err
			}
			switch task.Status {
			case models.TaskSuccess:
				return outcome{status: store.JobSucceeded, target: ProjectPath(job.EntityID)}, nil
			case models.TaskFailure:
				return outcome{status: store.JobFailed, reason: errtext.GeneralError}, nil
			}
			return pending, nil
		}

	case store.JobDetection:
		return func(ctx context.Context) (outcome, error) {
			p, err := t.api.GetProject(ctx, job.EntityID)
			if err != nil {
				return pending, err
			}
			switch p.Status {
			case models.StatusFinished:
				return outcome{status: store.JobSucceeded, target: ProjectPath(p.ID)}, nil
			case models.StatusError:
				return outcome{status: store.JobFailed, reason: errtext.Describe(p.ErrorCode, p.Description)}, nil
			}
			return pending, nil
		}

	case store.JobComparison:
		return func(ctx context.Context) (outcome, error) {
			c, err := t.api.GetComparison(ctx, job.EntityID)
			if err != nil {
				return pending, err
			}
			switch c.Status {
			case models.StatusFinished:
				return outcome{status: store.JobSucceeded, target: ComparisonPath(c.ID)}, nil
			case models.StatusError:
				return outcome{status: store.JobFailed, reason: errtext.Describe(c.ErrorCode, c.Description)}, nil
			}
			return pending, nil
		}

	case store.JobTraining:
		return func(ctx context.Context) (outcome, error) {
			m, err := t.api.GetModel(ctx, job.EntityID)
			if err != nil {
				return pending, err
			}
			switch {
			case m.Status == models.MLError:
				return outcome{status: store.JobFailed, reason: errtext.Describe(m.ErrorCode, m.Description)}, nil
			case m.Status.Settled():
				return outcome{status: store.JobSucceeded, target: ModelPath(m.ID)}, nil
			}
			return pending, nil
		}
	}

	return func(context.Context) (outcome, error) {
		return pending, poller.Terminal(fmt.Errorf("unknown job kind %q: %w", job.Kind, perrors.ErrInvalidInput))
	}
}
