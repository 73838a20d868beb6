package usecase

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
)

// Default spacing between upstream calls in batch operations
const (
	TemplateSendInterval = 50 * time.Millisecond
	UserSyncInterval     = 100 * time.Millisecond
)

// ItemFunc processes one batch item
type ItemFunc func(ctx context.Context, item string) error

// Executor runs batch items strictly in order, spacing calls with a rate limiter.
// A failed item is recorded and the batch moves on.
type Executor struct {
	limiter *rate.Limiter
}

// NewExecutor creates an executor that starts at most one item per interval
func NewExecutor(interval time.Duration) *Executor {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Executor{limiter: rate.NewLimiter(limit, 1)}
}

// Run processes items in order. It stops early only when ctx is done, in which
// case the result covers the items processed so far and ctx.Err() is returned.
func (e *Executor) Run(ctx context.Context, items []string, fn ItemFunc) (domain.BatchResult, error) {
	result := domain.BatchResult{
		Success: make([]string, 0, len(items)),
		Failed:  make([]string, 0),
	}

	for _, item := range items {
		if err := e.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			return result, err
		}

		if err := fn(ctx, item); err != nil {
			result.Failed = append(result.Failed, item)
			continue
		}
		result.Success = append(result.Success, item)
	}

	return result, nil
}
