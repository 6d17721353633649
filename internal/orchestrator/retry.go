package orchestrator

import (
	"context"
	"errors"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy controls how transient store errors are retried.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
}

var transientMessages = []string{"database is locked", "sqlite_busy", "database table is locked"}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EBUSY) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Do runs op, retrying transient failures with exponential backoff.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	if p.MaxRetries <= 0 {
		return op()
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	b := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.MaxRetries)), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
