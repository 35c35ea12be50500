package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestChecker_AllHealthy(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("state_db", PingCheck(fakePinger{}, false))
	c.Register("geoai_api", PingCheck(fakePinger{}, true))

	assert.True(t, c.IsReady(context.Background()))
	assert.Equal(t, map[string]Status{"state_db": StatusOK, "geoai_api": StatusOK}, c.Last())
}

func TestChecker_OneDown(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("geoai_api", PingCheck(fakePinger{}, true))
	c.Register("state_db", PingCheck(fakePinger{err: errors.New("locked")}, false))

	report := c.Report(context.Background())
	assert.False(t, report.Ready())
	assert.Equal(t, StatusDown, report.Checks["state_db"])
}

func TestChecker_Degraded_StillReady(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Register("geoai_api", PingCheck(fakePinger{err: errors.New("refused")}, true))

	assert.True(t, c.IsReady(context.Background()))
	assert.Equal(t, StatusDegraded, c.Last()["geoai_api"])
}

func TestChecker_NoChecks(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	assert.True(t, c.IsReady(context.Background()))
}

func TestChecker_SlowCheckTimesOut(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.timeout = 10 * time.Millisecond
	c.Register("geoai_api", func(ctx context.Context) Status {
		<-ctx.Done()
		return StatusDown
	})

	report := c.Report(context.Background())
	assert.Equal(t, "not_ready", report.Status)
	assert.Equal(t, StatusDown, report.Checks["geoai_api"])
}
