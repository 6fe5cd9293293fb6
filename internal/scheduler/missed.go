package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/logger"
)

// MissedResult lists what a reconciliation changed. Task and project sources
// are back in the backlog; habit sources are only recorded, their rule
// decides when the next occurrence is due.
type MissedResult struct {
	MarkedMissedIDs   []string `json:"markedMissedIds"`
	RequeuedSourceIDs []string `json:"requeuedSourceIds"`
	MissedHabitIDs    []string `json:"missedHabitIds"`
}

// MarkMissedAndQueue marks every scheduled instance that ended before now as
// missed. Instances already missed are untouched, so a second call with the
// same now returns an empty result.
func (s *Scheduler) MarkMissedAndQueue(ctx context.Context, userID string, now time.Time) (MissedResult, error) {
	result := MissedResult{
		MarkedMissedIDs:   []string{},
		RequeuedSourceIDs: []string{},
		MissedHabitIDs:    []string{},
	}
	if strings.TrimSpace(userID) == "" {
		return result, apperrors.Validation("mark missed", "user id is required")
	}

	marked, err := s.store.MarkMissed(ctx, userID, now)
	if err != nil {
		logger.Error("Failed to mark missed instances", "user_id", userID, "error", err)
		return result, apperrors.Persistence("mark missed", err)
	}

	seen := make(map[string]bool)
	for _, inst := range marked {
		result.MarkedMissedIDs = append(result.MarkedMissedIDs, inst.ID)
		key := sourceKey(inst.SourceType, inst.SourceID)
		if seen[key] {
			continue
		}
		seen[key] = true
		if inst.SourceType == constants.SourceHabit {
			result.MissedHabitIDs = append(result.MissedHabitIDs, inst.SourceID)
		} else {
			result.RequeuedSourceIDs = append(result.RequeuedSourceIDs, inst.SourceID)
		}
	}

	if len(marked) > 0 {
		logger.Info("Marked instances missed", "user_id", userID, "count", len(marked), "requeued", len(result.RequeuedSourceIDs))
	}
	return result, nil
}
