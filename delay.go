package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Delay is the window a reply is held back for, so answers do not arrive
// faster than a person could type them.
type Delay struct {
	Min time.Duration
	Max time.Duration
}

func (d Delay) Validate() error {
	if d.Min < 0 {
		return fmt.Errorf("reply delay minimum %s is negative", d.Min)
	}
	if d.Max < d.Min {
		return fmt.Errorf("reply delay maximum %s is below minimum %s", d.Max, d.Min)
	}
	return nil
}

// Draw returns a duration uniformly distributed in [Min, Max].
func (d Delay) Draw() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int64N(int64(d.Max-d.Min)+1))
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
