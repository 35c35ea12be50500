package store

import (
	"context"
	"fmt"
	"time"
)

// RetentionPolicy bounds how long finished state is kept.
type RetentionPolicy struct {
	FinishedJobs time.Duration
}

// DefaultRetention keeps finished jobs for a week.
var DefaultRetention = RetentionPolicy{FinishedJobs: 7 * 24 * time.Hour}

// RunRetention drops finished jobs past the policy and expired tokens.
func (s *Store) RunRetention(ctx context.Context, p RetentionPolicy) (jobs, tokens int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM jobs WHERE completed_at > 0 AND completed_at < ?",
		now.Add(-p.FinishedJobs).UnixMilli(),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete old jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	jobs = int(n)

	res, err = s.db.ExecContext(ctx,
		"DELETE FROM tokens WHERE expires_at > 0 AND expires_at <= ?",
		now.UnixMilli(),
	)
	if err != nil {
		return jobs, 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	n, _ = res.RowsAffected()
	tokens = int(n)

	if jobs > 0 || tokens > 0 {
		s.logger.Debug().Int("jobs", jobs).Int("tokens", tokens).Msg("Retention removed stale rows")
	}
	return jobs, tokens, nil
}

// DBSizeBytes returns the database size in bytes
func (s *Store) DBSizeBytes() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pageCount, pageSize int64
	if err := s.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("failed to get page size: %w", err)
	}
	return pageCount * pageSize, nil
}
