package fixtures

import (
	"time"

	"github.com/cenkalti/backoff/v3"
)

// Retry calls op with exponential backoff until it succeeds or d has elapsed.
func Retry(d time.Duration, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = d
	return backoff.Retry(op, b)
}
