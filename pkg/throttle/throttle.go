// Package throttle holds channel stages used to pace datagram traffic: a token
// bucket for send rates, a rate meter for receive loops and a fixed-gap
// smoother.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type TokenBasedThrottleConfig struct {
	RefreshInterval       time.Duration
	TokenQuotaPerInterval int
}

type TokenBasedThrottle[T any] struct {
	config TokenBasedThrottleConfig
}

func NewTokenBasedThrottle[T any](config TokenBasedThrottleConfig) *TokenBasedThrottle[T] {
	return &TokenBasedThrottle[T]{
		config: config,
	}
}

// Run forwards items from inChan at most TokenQuotaPerInterval per
// RefreshInterval. The output closes once inChan is drained or ctx is done.
func (tbThrottle *TokenBasedThrottle[T]) Run(ctx context.Context, inChan <-chan T) <-chan T {
	outChan := make(chan T)

	ctx, cancel := context.WithCancel(ctx)

	tokensChan := make(chan int, 1)
	tokensChan <- tbThrottle.config.TokenQuotaPerInterval

	// token generator goroutine
	go func() {
		ticker := time.NewTicker(tbThrottle.config.RefreshInterval)
		defer ticker.Stop()
		defer close(tokensChan)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case tokensChan <- tbThrottle.config.TokenQuotaPerInterval:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	// copying goroutine
	go func() {
		defer close(outChan)
		defer cancel()

		quota := 0
		for item := range inChan {
			if quota == 0 {
				quotaInc, ok := <-tokensChan
				if !ok {
					return
				}
				quota += quotaInc
				if quota > tbThrottle.config.TokenQuotaPerInterval {
					quota = tbThrottle.config.TokenQuotaPerInterval
				}
			}
			select {
			case outChan <- item:
			case <-ctx.Done():
				return
			}
			quota--
		}
		logrus.Debug("token throttle drained")
	}()

	return outChan
}

type SpeedMeasurer[T any] struct {
	RefreshInterval time.Duration
	MinTimeDelta    time.Duration
}

type SpeedRecord struct {
	Timestamp        time.Time
	Counter          int
	CounterIncrement int
	TimeDelta        time.Duration
}

func (sr *SpeedRecord) String() string {
	if sr.Value() == nil {
		return "<N/A>"
	}
	return fmt.Sprintf("%f pps", *sr.Value())
}

// the unit is pps (packets per second)
func (sr *SpeedRecord) Value() *float64 {
	if sr == nil || sr.TimeDelta == 0 {
		return nil
	}

	var v float64 = float64(sr.CounterIncrement) / sr.TimeDelta.Seconds()
	return &v
}

// Run passes items through unchanged and emits a SpeedRecord every
// RefreshInterval. Records are dropped when the reader falls behind.
func (sm *SpeedMeasurer[T]) Run(ctx context.Context, inChan <-chan T) (<-chan T, <-chan SpeedRecord) {
	outChan := make(chan T)
	speedRecordChan := make(chan SpeedRecord, 1)
	countChan := make(chan struct{})

	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(speedRecordChan)
		ticker := time.NewTicker(sm.RefreshInterval)
		defer ticker.Stop()

		counter := 0
		previousCounter := 0
		previousTimestamp := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case <-countChan:
				counter++
			case <-ticker.C:
				timeDelta := time.Since(previousTimestamp)
				if timeDelta >= sm.MinTimeDelta {
					speedRecord := SpeedRecord{
						Timestamp:        time.Now(),
						Counter:          counter,
						CounterIncrement: counter - previousCounter,
						TimeDelta:        timeDelta,
					}
					select {
					case speedRecordChan <- speedRecord:
					default:
					}
				}
				previousCounter = counter
				previousTimestamp = time.Now()
			}
		}
	}()

	go func() {
		defer close(outChan)
		defer cancel()

		for item := range inChan {
			select {
			case outChan <- item:
			case <-ctx.Done():
				return
			}
			select {
			case countChan <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return outChan, speedRecordChan
}

type BurstSmoother[T any] struct {
	LeastSampleInterval time.Duration
}

// Run delays every item by LeastSampleInterval.
func (bf *BurstSmoother[T]) Run(ctx context.Context, inChan <-chan T) <-chan T {
	outChan := make(chan T)

	go func() {
		defer close(outChan)
		for item := range inChan {
			select {
			case <-time.After(bf.LeastSampleInterval):
			case <-ctx.Done():
				return
			}
			select {
			case outChan <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	return outChan
}

// FromSlice feeds items into a channel that closes after the last one.
func FromSlice[T any](ctx context.Context, items []T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for _, item := range items {
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
