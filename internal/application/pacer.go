package application

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/bnema/greetreply/internal/ports"
)

// Pacer owns every wait the engine performs: jittered pauses between UI
// steps, the minimum gap before UI-mutating actions, and the per-cycle check
// interval. All waits go through the injected clock.
type Pacer struct {
	clock                ports.Clock
	rng                  *rand.Rand
	minOperationInterval time.Duration
	lastOperation        time.Time
}

func NewPacer(clock ports.Clock, rng *rand.Rand, minOperationInterval time.Duration) *Pacer {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}

	return &Pacer{clock: clock, rng: rng, minOperationInterval: minOperationInterval}
}

func (p *Pacer) Clock() ports.Clock {
	return p.clock
}

func (p *Pacer) SetMinOperationInterval(d time.Duration) {
	p.minOperationInterval = d
}

// Between returns a uniformly distributed duration in [lo, hi].
func (p *Pacer) Between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(p.rng.Int64N(int64(hi-lo)+1))
}

// Pause sleeps for a random duration in [lo, hi].
func (p *Pacer) Pause(ctx context.Context, lo, hi time.Duration) error {
	return p.clock.Sleep(ctx, p.Between(lo, hi))
}

// CheckInterval rolls the next inter-cycle interval in whole seconds within [lo, hi].
func (p *Pacer) CheckInterval(lo, hi time.Duration) time.Duration {
	loSec := int64(lo / time.Second)
	hiSec := int64(hi / time.Second)
	if hiSec <= loSec {
		return lo
	}
	return time.Duration(loSec+p.rng.Int64N(hiSec-loSec+1)) * time.Second
}

// Jitter scales d by a random factor in [lo, hi].
func (p *Pacer) Jitter(d time.Duration, lo, hi float64) time.Duration {
	factor := lo + p.rng.Float64()*(hi-lo)
	return time.Duration(float64(d) * factor)
}

// AwaitOperationSlot blocks until at least the minimum operation interval
// has passed since the previous UI-mutating action, then claims the slot.
func (p *Pacer) AwaitOperationSlot(ctx context.Context) error {
	if !p.lastOperation.IsZero() {
		elapsed := p.clock.Now().Sub(p.lastOperation)
		if wait := p.minOperationInterval - elapsed; wait > 0 {
			if err := p.clock.Sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	p.lastOperation = p.clock.Now()
	return nil
}
