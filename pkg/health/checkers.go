package health

import (
	"context"
	"runtime"
	"time"

	"github.com/go-faster/errors"
)

// Pinger is anything with a Ping method, such as a pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseCheck returns a readiness CheckFunc that pings the database.
func DatabaseCheck(db Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping database")
		}
		return nil
	}
}

// GoroutineCountCheck returns a liveness CheckFunc that fails when the
// goroutine count exceeds threshold. Useful for catching goroutine leaks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if count := runtime.NumGoroutine(); count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}

// OutboxLagCheck returns a readiness CheckFunc that fails when the oldest
// pending outbox event is older than maxLag, indicating the event dispatcher
// has stalled.
func OutboxLagCheck(oldestPending func(ctx context.Context) (time.Time, bool, error), maxLag time.Duration) CheckFunc {
	return func(ctx context.Context) error {
		oldest, any, err := oldestPending(ctx)
		if err != nil {
			return errors.Wrap(err, "read outbox lag")
		}
		if !any {
			return nil
		}
		if lag := time.Since(oldest); lag > maxLag {
			return errors.Errorf("oldest pending event is %s old, max %s", lag, maxLag)
		}
		return nil
	}
}
