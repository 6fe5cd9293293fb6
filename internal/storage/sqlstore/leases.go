package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/timeblock/internal/models"
)

// AcquireLease inserts the user's lease row, or takes it over when the
// current holder's lease expired at or before now.
func (s *Store) AcquireLease(ctx context.Context, lease models.SchedulerLease, now time.Time) (bool, error) {
	res, err := s.exec(ctx, s.db, `
INSERT INTO scheduler_leases (user_id, token, holder, acquired_at, expires_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    token = excluded.token,
    holder = excluded.holder,
    acquired_at = excluded.acquired_at,
    expires_at = excluded.expires_at
WHERE scheduler_leases.expires_at <= ?`,
		lease.UserID, lease.Token, lease.Holder, formatTime(lease.AcquiredAt), formatTime(lease.ExpiresAt),
		formatTime(now))
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease: %w", err)
	}
	return n == 1, nil
}

// ReleaseLease drops the lease only if token still owns it.
func (s *Store) ReleaseLease(ctx context.Context, userID, token string) error {
	if _, err := s.exec(ctx, s.db, `DELETE FROM scheduler_leases WHERE user_id = ? AND token = ?`, userID, token); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}
