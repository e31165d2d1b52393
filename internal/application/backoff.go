package application

import "time"

// Backoff counts consecutive failed cycles. From the threshold on, the wait
// grows linearly with the failure count and is capped.
type Backoff struct {
	threshold int
	ceiling   time.Duration
	failures  int
}

func NewBackoff(threshold int, ceiling time.Duration) *Backoff {
	if threshold < 1 {
		threshold = 1
	}
	return &Backoff{threshold: threshold, ceiling: ceiling}
}

// Failure records a failed cycle and returns how long to wait before the next one.
func (b *Backoff) Failure(interval time.Duration) time.Duration {
	b.failures++
	if b.failures < b.threshold {
		return interval
	}
	return min(b.ceiling, interval*time.Duration(b.failures))
}

func (b *Backoff) Reset() {
	b.failures = 0
}

func (b *Backoff) Failures() int {
	return b.failures
}

func (b *Backoff) Reconfigure(threshold int, ceiling time.Duration) {
	if threshold < 1 {
		threshold = 1
	}
	b.threshold = threshold
	b.ceiling = ceiling
}
