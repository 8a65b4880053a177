package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	Name             string
	MaxFailures      uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// BreakerStore fails fast while a remote substrate keeps erroring. Absent
// keys are not failures.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[string]
}

func WithBreaker(next Store, s BreakerSettings) *BreakerStore {
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})
	return &BreakerStore{next: next, cb: cb}
}

func (b *BreakerStore) Get(ctx context.Context, key string) (string, error) {
	return b.cb.Execute(func() (string, error) {
		return b.next.Get(ctx, key)
	})
}

func (b *BreakerStore) Set(ctx context.Context, key, value string) error {
	_, err := b.cb.Execute(func() (string, error) {
		return "", b.next.Set(ctx, key, value)
	})
	return err
}

func (b *BreakerStore) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (string, error) {
		return "", b.next.Delete(ctx, key)
	})
	return err
}

func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}
