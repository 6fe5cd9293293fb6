package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/models"
)

const instanceColumns = `id, user_id, source_type, source_id, start_utc, end_utc, duration_min, status,
       weight_snapshot, energy_resolved, locked, window_id, day_key, created_at, updated_at`

// ListInstances returns the user's instances intersecting [from, to) ordered
// by start. A zero bound is open.
func (s *Store) ListInstances(ctx context.Context, userID string, from, to time.Time) ([]models.ScheduleInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM schedule_instances WHERE user_id = ?`
	args := []any{userID}
	if !from.IsZero() {
		query += ` AND end_utc > ?`
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += ` AND start_utc < ?`
		args = append(args, formatTime(to))
	}
	query += ` ORDER BY start_utc, id`

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()
	return scanInstances(rows)
}

// InsertInstance writes a new instance. It reports false without error when
// a non-canceled instance for the same source and start already exists.
func (s *Store) InsertInstance(ctx context.Context, inst models.ScheduleInstance) (bool, error) {
	created := inst.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := inst.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	res, err := s.exec(ctx, s.db, `
INSERT INTO schedule_instances (`+instanceColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`,
		inst.ID, inst.UserID, string(inst.SourceType), inst.SourceID,
		formatTime(inst.StartUTC), formatTime(inst.EndUTC), inst.DurationMin, nullableStatus(inst.Status),
		inst.WeightSnapshot, inst.EnergyResolved, inst.Locked, inst.WindowID, inst.DayKey,
		formatTime(created), formatTime(updated))
	if err != nil {
		return false, fmt.Errorf("failed to insert instance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert instance: %w", err)
	}
	return n == 1, nil
}

// UpdateInstanceStatus moves one instance to a new status.
func (s *Store) UpdateInstanceStatus(ctx context.Context, userID, id string, status constants.InstanceStatus, now time.Time) error {
	res, err := s.exec(ctx, s.db, `UPDATE schedule_instances SET status = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		nullableStatus(status), formatTime(now), userID, id)
	if err != nil {
		return fmt.Errorf("failed to update instance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update instance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("instance %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// MarkMissed moves every scheduled instance of the user that ended before now
// to missed and returns the changed rows. Select and update share one
// transaction so a concurrent pass never sees half the change.
func (s *Store) MarkMissed(ctx context.Context, userID string, now time.Time) ([]models.ScheduleInstance, error) {
	var marked []models.ScheduleInstance
	cutoff := formatTime(now)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := s.query(ctx, tx, `SELECT `+instanceColumns+` FROM schedule_instances
WHERE user_id = ? AND status = ? AND end_utc < ? ORDER BY start_utc, id`,
			userID, string(constants.StatusScheduled), cutoff)
		if err != nil {
			return err
		}
		marked, err = scanInstances(rows)
		rows.Close()
		if err != nil {
			return err
		}
		for i := range marked {
			if _, err := s.exec(ctx, tx, `UPDATE schedule_instances SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
				string(constants.StatusMissed), cutoff, marked[i].ID, string(constants.StatusScheduled)); err != nil {
				return err
			}
			marked[i].Status = constants.StatusMissed
			marked[i].UpdatedAt = now.UTC().Truncate(time.Second)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark missed instances: %w", err)
	}
	return marked, nil
}

func nullableStatus(status constants.InstanceStatus) sql.NullString {
	if status == constants.StatusNone {
		return sql.NullString{}
	}
	return sql.NullString{String: string(status), Valid: true}
}

func scanInstances(rows *sql.Rows) ([]models.ScheduleInstance, error) {
	var out []models.ScheduleInstance
	for rows.Next() {
		var inst models.ScheduleInstance
		var source, start, end, created, updated string
		var status sql.NullString
		if err := rows.Scan(&inst.ID, &inst.UserID, &source, &inst.SourceID, &start, &end, &inst.DurationMin, &status,
			&inst.WeightSnapshot, &inst.EnergyResolved, &inst.Locked, &inst.WindowID, &inst.DayKey, &created, &updated); err != nil {
			return nil, err
		}
		inst.SourceType = constants.SourceType(source)
		inst.Status = constants.InstanceStatus(status.String)

		var err error
		if inst.StartUTC, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("instance %s: bad start_utc: %w", inst.ID, err)
		}
		if inst.EndUTC, err = parseTime(end); err != nil {
			return nil, fmt.Errorf("instance %s: bad end_utc: %w", inst.ID, err)
		}
		if inst.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("instance %s: bad created_at: %w", inst.ID, err)
		}
		if inst.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, fmt.Errorf("instance %s: bad updated_at: %w", inst.ID, err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}
