package runner

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/logger"
	"github.com/julianstephens/timeblock/internal/scheduler"
)

// BatchResult partitions users by how their pass ended.
type BatchResult struct {
	Succeeded []string          `json:"succeeded"`
	Contended []string          `json:"contended"`
	Failed    map[string]string `json:"failed"`
}

// RunAll runs a pass for every user with at most concurrency passes in
// flight. A failing user does not stop the others; only failing to list
// users is an error.
func (r *Runner) RunAll(ctx context.Context, trigger string, concurrency int, opts scheduler.Options) (BatchResult, error) {
	result := BatchResult{Succeeded: []string{}, Contended: []string{}, Failed: map[string]string{}}

	users, err := r.store.ListUserIDs(ctx)
	if err != nil {
		return result, apperrors.Persistence("list users", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(concurrency)
	for _, userID := range users {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			_, err := r.Pass(ctx, trigger, userID, opts)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Succeeded = append(result.Succeeded, userID)
			case apperrors.Is(err, apperrors.KindLockContention):
				result.Contended = append(result.Contended, userID)
			default:
				logger.Error("Scheduling pass failed", "user_id", userID, "trigger", trigger, "error", err)
				result.Failed[userID] = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(result.Succeeded)
	sort.Strings(result.Contended)
	logger.Info("Batch pass finished", "trigger", trigger, "users", len(users),
		"succeeded", len(result.Succeeded), "contended", len(result.Contended), "failed", len(result.Failed))
	return result, ctx.Err()
}
