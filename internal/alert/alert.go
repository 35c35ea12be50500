// Package alert holds the console's single global notification slot.
// A newer alert replaces the current one; each alert dismisses itself after
// a fixed time unless replaced first.
package alert

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/errtext"
	"github.com/p-blackswan/geoai-console/internal/metrics"
	"github.com/p-blackswan/geoai-console/internal/models"
)

// DefaultTTL is how long an alert stays visible.
const DefaultTTL = 6 * time.Second

// Messages for successful mutations.
const (
	DeleteProjectSuccess    = "Project deleted"
	StartComparisonSuccess  = "Comparison started"
	DeleteComparisonSuccess = "Comparison deleted"
	CreateModelSuccess      = "Model created"
	DeleteModelSuccess      = "Model deleted"
	CreateUserSuccess       = "User created"
	UpdateUserSuccess       = "User updated"
	SendInvitationSuccess   = "Invitation sent"
	CreateGroupSuccess      = "Group created"
	ChangePasswordSuccess   = "Password changed"
)

// Alert is one notification.
type Alert struct {
	ID       uint64          `json:"id"`
	Severity models.Severity `json:"severity"`
	Message  string          `json:"message"`
	RaisedAt time.Time       `json:"raised_at"`
}

// Listener is notified on every change. ok is false when the slot was
// cleared.
type Listener func(a Alert, ok bool)

// Center owns the alert slot.
type Center struct {
	mu        sync.Mutex
	current   *Alert
	seq       uint64
	timer     *time.Timer
	ttl       time.Duration
	listeners map[int]Listener
	nextSub   int

	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewCenter creates an alert center. A ttl <= 0 uses DefaultTTL.
func NewCenter(ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{
		ttl:       ttl,
		listeners: make(map[int]Listener),
		metrics:   m,
		logger:    logger.With().Str("component", "alert").Logger(),
		now:       time.Now,
	}
}

// Raise replaces the current alert. A nil Center discards alerts.
func (c *Center) Raise(sev models.Severity, message string) Alert {
	if c == nil {
		return Alert{Severity: sev, Message: message}
	}
	c.mu.Lock()
	c.seq++
	a := Alert{ID: c.seq, Severity: sev, Message: message, RaisedAt: c.now()}
	c.current = &a
	if c.timer != nil {
		c.timer.Stop()
	}
	id := a.ID
	c.timer = time.AfterFunc(c.ttl, func() { c.expire(id) })
	listeners := c.snapshot()
	c.mu.Unlock()

	c.metrics.RecordAlert(string(sev))
	c.logger.Debug().Str("severity", string(sev)).Str("message", message).Msg("Alert raised")
	for _, l := range listeners {
		l(a, true)
	}
	return a
}

// Success raises a success alert.
func (c *Center) Success(message string) Alert {
	return c.Raise(models.SeveritySuccess, message)
}

// Error raises an error alert describing err.
func (c *Center) Error(err error) Alert {
	return c.Raise(models.SeverityError, Text(err))
}

// Text renders err for display: a known server code first, then the
// server's message, then the generic error text.
func Text(err error) string {
	code := perrors.CodeOf(err)
	if msg, ok := errtext.Lookup(code); ok && code != "" {
		return msg
	}
	if msg := perrors.MessageOf(err); msg != "" {
		return msg
	}
	return errtext.GeneralError
}

// Current returns the visible alert.
func (c *Center) Current() (Alert, bool) {
	if c == nil {
		return Alert{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Alert{}, false
	}
	return *c.current, true
}

// Dismiss clears the slot.
func (c *Center) Dismiss() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	c.clearLocked()
	listeners := c.snapshot()
	c.mu.Unlock()

	for _, l := range listeners {
		l(Alert{}, false)
	}
}

func (c *Center) expire(id uint64) {
	c.mu.Lock()
	if c.current == nil || c.current.ID != id {
		c.mu.Unlock()
		return
	}
	c.clearLocked()
	listeners := c.snapshot()
	c.mu.Unlock()

	for _, l := range listeners {
		l(Alert{}, false)
	}
}

func (c *Center) clearLocked() {
	c.current = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Subscribe registers l and returns a function that removes it.
func (c *Center) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = l
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Center) snapshot() []Listener {
	out := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		out = append(out, l)
	}
	return out
}

// Close stops the pending dismissal timer.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
