package state

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/geoai-console/internal/alert"
	"github.com/p-blackswan/geoai-console/internal/api"
	"github.com/p-blackswan/geoai-console/internal/mapsession"
	"github.com/p-blackswan/geoai-console/internal/metrics"
	"github.com/p-blackswan/geoai-console/internal/store"
)

// Options configures an App.
type Options struct {
	Client *api.Client
	// Store persists preferences and watched jobs. Nil keeps both in
	// memory for the life of the process.
	Store     *store.Store
	Intervals Intervals
	AlertTTL  time.Duration
	PageLimit int
	Navigate  Navigator
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// App is the whole console state. Stores are created once and share one
// alert slot, one map session and one job tracker.
type App struct {
	Client  *api.Client
	Alerts  *alert.Center
	Session *mapsession.Session
	Tracker *Tracker
	Prefs   *Preferences

	User        *UserStore
	Projects    *ProjectList
	Project     *ProjectDetail
	Comparisons *Comparisons
	ML          *MLModels
	Admin       *Admin
	History     *History

	logger zerolog.Logger
}

// New builds the application state.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.AlertTTL <= 0 {
		opts.AlertTTL = alert.DefaultTTL
	}

	var (
		prefStore PreferenceStore
		jobs      JobStore
	)
	if opts.Store != nil {
		prefStore = opts.Store
		jobs = opts.Store
	}
	prefs, err := LoadPreferences(ctx, prefStore)
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Alerts:    alert.NewCenter(opts.AlertTTL, opts.Metrics, opts.Logger),
		Metrics:   opts.Metrics,
		Logger:    opts.Logger,
		PageLimit: opts.PageLimit,
	}
	session := mapsession.New(opts.Logger)
	tracker := NewTracker(opts.Client, jobs, opts.Intervals, opts.Navigate, deps)

	return &App{
		Client:      opts.Client,
		Alerts:      deps.Alerts,
		Session:     session,
		Tracker:     tracker,
		Prefs:       prefs,
		User:        NewUserStore(opts.Client, prefs, deps),
		Projects:    NewProjectList(opts.Client, tracker, deps),
		Project:     NewProjectDetail(opts.Client, session, tracker, deps),
		Comparisons: NewComparisons(opts.Client, tracker, deps),
		ML:          NewMLModels(opts.Client, prefs, tracker, deps),
		Admin:       NewAdmin(opts.Client, deps),
		History:     NewHistory(opts.Client, deps),
		logger:      opts.Logger.With().Str("component", "app").Logger(),
	}, nil
}

// Close releases the map session and silences alerts.
func (a *App) Close() {
	a.Session.Close()
	a.Alerts.Close()
	a.logger.Debug().Msg("Application state closed")
}
