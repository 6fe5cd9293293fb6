package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/models"
)

// AddDayType stores a day type with its windows. Marking it default clears
// the flag on the user's other day types.
func (s *Store) AddDayType(ctx context.Context, dt models.DayType) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if dt.IsDefault {
			if _, err := s.exec(ctx, tx, `UPDATE day_types SET is_default = ? WHERE user_id = ?`, false, dt.UserID); err != nil {
				return fmt.Errorf("failed to clear default day type: %w", err)
			}
		}
		if _, err := s.exec(ctx, tx, `INSERT INTO day_types (id, user_id, name, is_default) VALUES (?, ?, ?, ?)`,
			dt.ID, dt.UserID, dt.Name, dt.IsDefault); err != nil {
			return fmt.Errorf("failed to add day type: %w", err)
		}
		for i, w := range dt.Windows {
			if _, err := s.exec(ctx, tx, `
INSERT INTO windows (id, day_type_id, label, start_local, end_local, energy, sort_order)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				w.ID, dt.ID, w.Label, w.StartLocal, w.EndLocal, string(w.Energy), i); err != nil {
				return fmt.Errorf("failed to add window %s: %w", w.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) AssignDayType(ctx context.Context, a models.DayTypeAssignment) error {
	_, err := s.exec(ctx, s.db, `
INSERT INTO day_type_assignments (user_id, date_key, day_type_id) VALUES (?, ?, ?)
ON CONFLICT (user_id, date_key) DO UPDATE SET day_type_id = excluded.day_type_id`,
		a.UserID, a.DateKey, a.DayTypeID)
	if err != nil {
		return fmt.Errorf("failed to assign day type: %w", err)
	}
	return nil
}

func (s *Store) GetDayTypeAssignment(ctx context.Context, userID, dateKey string) (models.DayTypeAssignment, error) {
	a := models.DayTypeAssignment{UserID: userID, DateKey: dateKey}
	err := s.queryRow(ctx, s.db, `SELECT day_type_id FROM day_type_assignments WHERE user_id = ? AND date_key = ?`,
		userID, dateKey).Scan(&a.DayTypeID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DayTypeAssignment{}, fmt.Errorf("assignment %s: %w", dateKey, apperrors.ErrNotFound)
	}
	if err != nil {
		return models.DayTypeAssignment{}, fmt.Errorf("failed to get day type assignment: %w", err)
	}
	return a, nil
}

func (s *Store) GetDayType(ctx context.Context, userID, id string) (models.DayType, error) {
	return s.getDayType(ctx, `SELECT id, user_id, name, is_default FROM day_types WHERE user_id = ? AND id = ?`, userID, id)
}

func (s *Store) GetDefaultDayType(ctx context.Context, userID string) (models.DayType, error) {
	return s.getDayType(ctx, `SELECT id, user_id, name, is_default FROM day_types WHERE user_id = ? AND is_default = ? ORDER BY id LIMIT 1`, userID, true)
}

func (s *Store) getDayType(ctx context.Context, query string, args ...any) (models.DayType, error) {
	var dt models.DayType
	err := s.queryRow(ctx, s.db, query, args...).Scan(&dt.ID, &dt.UserID, &dt.Name, &dt.IsDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DayType{}, fmt.Errorf("day type: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return models.DayType{}, fmt.Errorf("failed to get day type: %w", err)
	}

	rows, err := s.query(ctx, s.db, `
SELECT id, day_type_id, label, start_local, end_local, energy
FROM windows WHERE day_type_id = ? ORDER BY sort_order, id`, dt.ID)
	if err != nil {
		return models.DayType{}, fmt.Errorf("failed to get windows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w models.Window
		var energy string
		if err := rows.Scan(&w.ID, &w.DayTypeID, &w.Label, &w.StartLocal, &w.EndLocal, &energy); err != nil {
			return models.DayType{}, err
		}
		w.Energy = constants.EnergyLevel(energy)
		dt.Windows = append(dt.Windows, w)
	}
	return dt, rows.Err()
}
