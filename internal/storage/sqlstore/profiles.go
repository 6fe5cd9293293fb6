package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/models"
)

func (s *Store) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	var p models.Profile
	err := s.queryRow(ctx, s.db, `SELECT user_id, time_zone FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.TimeZone)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, fmt.Errorf("profile %s: %w", userID, apperrors.ErrNotFound)
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p models.Profile) error {
	_, err := s.exec(ctx, s.db, `
INSERT INTO profiles (user_id, time_zone, created_at) VALUES (?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET time_zone = excluded.time_zone`,
		p.UserID, p.TimeZone, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// ListUserIDs returns every user with a profile, ordered by id.
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, s.db, `SELECT user_id FROM profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
