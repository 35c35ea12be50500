package main

import (
	"context"
	"strings"

	"github.com/p-blackswan/geoai-console/internal/console"
	"github.com/p-blackswan/geoai-console/internal/health"
)

// dbPinger adapts the state store to health.Pinger.
type dbPinger struct{ ping func() error }

func (p dbPinger) Ping(context.Context) error { return p.ping() }

// runConsole serves the console API until interrupted. Unfinished jobs
// are resumed so the API reports them as they settle.
func runConsole(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("console")
	addr := fs.String("listen", c.cfg.ConsoleListenAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	checker := health.NewChecker(c.logger)
	checker.Register("state_db", health.PingCheck(dbPinger{ping: c.db.Ping}, false))
	checker.Register("geoai_api", health.PingCheck(c.client, true))

	srv := console.NewServer(console.ServerConfig{
		ListenAddr:  *addr,
		AuthConfig:  console.AuthConfig{Mode: c.cfg.ConsoleAuthMode, APIKey: c.cfg.ConsoleAPIKey},
		RateLimit:   console.RateLimitConfig{RPS: c.cfg.ConsoleRateRPS, Burst: c.cfg.ConsoleRateBurst},
		CORSOrigins: strings.Join(c.cfg.CORSOriginList(), ","),
	}, c.app, c.db, checker, c.metrics, c.logger)

	if version, err := c.db.SchemaVersion(); err == nil {
		size, _ := c.db.DBSizeBytes()
		c.logger.Info().Str("schema", version).Int64("size_bytes", size).Msg("State database open")
	}
	if _, err := c.app.Tracker.Resume(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to resume jobs")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := srv.Shutdown(); err != nil {
			c.logger.Error().Err(err).Msg("Console shutdown failed")
		}
		return nil
	}
}
