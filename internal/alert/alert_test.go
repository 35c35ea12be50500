package alert

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/errtext"
	"github.com/p-blackswan/geoai-console/internal/metrics"
	"github.com/p-blackswan/geoai-console/internal/models"
)

func TestCenter_NewestWins(t *testing.T) {
	c := NewCenter(time.Minute, nil, zerolog.Nop())
	defer c.Close()

	c.Success(DeleteProjectSuccess)
	c.Raise(models.SeverityWarning, "second")

	a, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "second", a.Message)
	assert.Equal(t, models.SeverityWarning, a.Severity)
	assert.Equal(t, uint64(2), a.ID)
}

func TestCenter_AutoDismiss(t *testing.T) {
	c := NewCenter(20*time.Millisecond, nil, zerolog.Nop())
	defer c.Close()

	c.Success("done")
	require.Eventually(t, func() bool {
		_, ok := c.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestCenter_ReplacedAlertKeepsItsOwnTimer(t *testing.T) {
	c := NewCenter(100*time.Millisecond, nil, zerolog.Nop())
	defer c.Close()

	c.Success("first")
	time.Sleep(60 * time.Millisecond)
	c.Success("second")
	time.Sleep(60 * time.Millisecond)

	// The first alert's deadline has passed but the second is still visible.
	a, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "second", a.Message)
}

func TestCenter_Subscribe(t *testing.T) {
	c := NewCenter(time.Minute, nil, zerolog.Nop())
	defer c.Close()

	var mu sync.Mutex
	var got []string
	unsub := c.Subscribe(func(a Alert, ok bool) {
		mu.Lock()
		defer mu.Unlock()
		if ok {
			got = append(got, a.Message)
		} else {
			got = append(got, "<cleared>")
		}
	})

	c.Success("one")
	c.Dismiss()
	c.Dismiss()
	unsub()
	c.Success("two")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"one", "<cleared>"}, got)
}

func TestText(t *testing.T) {
	known := fmt.Errorf("wrapped: %w", perrors.NewAPIError("geoai", 400, "SAME_PROJECTS", "raw"))
	unknown := perrors.NewAPIError("geoai", 400, "NEW_CODE", "server says no")
	bare := perrors.NewAPIError("geoai", 500, "", "")

	msg, _ := errtext.Lookup("SAME_PROJECTS")
	assert.Equal(t, msg, Text(known))
	assert.Equal(t, "server says no", Text(unknown))
	assert.Equal(t, errtext.GeneralError, Text(bare))
	assert.Equal(t, errtext.GeneralError, Text(errors.New("dial tcp: refused")))
}

func TestCenter_Metrics(t *testing.T) {
	m := metrics.New()
	c := NewCenter(time.Minute, m, zerolog.Nop())
	defer c.Close()

	c.Error(errors.New("boom"))
	c.Success("ok")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AlertsTotal.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AlertsTotal.WithLabelValues("success")))
}

func TestCenter_NilDiscards(t *testing.T) {
	var c *Center
	a := c.Success("ignored")
	assert.Equal(t, "ignored", a.Message)
	_, ok := c.Current()
	assert.False(t, ok)
}
