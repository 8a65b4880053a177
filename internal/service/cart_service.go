package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/etrshop/etr-brand/internal/cart"
	"github.com/etrshop/etr-brand/internal/catalog"
	"github.com/etrshop/etr-brand/internal/domain"
	"github.com/etrshop/etr-brand/internal/logger"
	"github.com/etrshop/etr-brand/internal/repository"
	"golang.org/x/sync/singleflight"
)

// snapshotTimeout bounds a shared snapshot read, which outlives the request
// that started it.
const snapshotTimeout = 5 * time.Second

const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpClear  = "clear"
)

// Recorder receives mutation outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	Mutation(op, result string)
	CartSize(count int)
}

type noopRecorder struct{}

func (noopRecorder) Mutation(string, string) {}
func (noopRecorder) CartSize(int)            {}

// CartService runs every user action as one load → mutate → save cycle.
// Cycles for the same key never interleave; different keys are independent
// and, across processes, the last save wins.
type CartService struct {
	repo    repository.CartRepository
	log     *logger.Logger
	metrics Recorder
	sfg     singleflight.Group // collapses concurrent snapshot reads

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewCartService(repo repository.CartRepository, log *logger.Logger, metrics Recorder) *CartService {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &CartService{
		repo:    repo,
		log:     log,
		metrics: metrics,
		locks:   make(map[string]*keyLock),
	}
}

func (s *CartService) Snapshot(ctx context.Context, key string) domain.Cart {
	v, _, _ := s.sfg.Do(key, func() (interface{}, error) {
		// one caller going away must not empty the cart for the others
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotTimeout)
		defer cancel()
		return s.repo.Load(flightCtx, key), nil
	})
	// callers sharing a flight must not share a backing array
	return v.(domain.Cart).Clone()
}

func (s *CartService) Add(ctx context.Context, key string, item domain.CartItem) (domain.Cart, error) {
	return s.mutate(ctx, key, OpAdd, func(c domain.Cart) (domain.Cart, error) {
		return cart.AddItem(c, item)
	})
}

// AddFromSelection is the add-to-cart handler of a product page. Without a
// required size it returns ErrMissingSizeSelection and touches nothing.
func (s *CartService) AddFromSelection(ctx context.Context, key string, p catalog.Product, sel cart.Selection) (domain.Cart, error) {
	item, err := cart.NewLineItem(p, sel)
	if err != nil {
		s.metrics.Mutation(OpAdd, "rejected")
		return nil, err
	}
	return s.Add(ctx, key, item)
}

// Remove drops the line at index. An out-of-range index is logged and the
// cart comes back unchanged without a save.
func (s *CartService) Remove(ctx context.Context, key string, index int) (domain.Cart, error) {
	return s.mutate(ctx, key, OpRemove, func(c domain.Cart) (domain.Cart, error) {
		return cart.RemoveItem(c, index)
	})
}

func (s *CartService) Clear(ctx context.Context, key string) (domain.Cart, error) {
	return s.mutate(ctx, key, OpClear, func(c domain.Cart) (domain.Cart, error) {
		return cart.Clear(c), nil
	})
}

func (s *CartService) mutate(ctx context.Context, key, op string, fn func(domain.Cart) (domain.Cart, error)) (domain.Cart, error) {
	unlock := s.lock(key)
	defer unlock()

	ctx = s.log.WithCartKey(ctx, key)
	current := s.repo.Load(ctx, key)

	next, err := fn(current)
	if errors.Is(err, domain.ErrIndexOutOfRange) {
		s.metrics.Mutation(op, "noop")
		s.log.Warn(ctx, "ignoring remove outside the cart", err)
		return current, nil
	}
	if err != nil {
		s.metrics.Mutation(op, "rejected")
		return current, err
	}

	if err := s.repo.Save(ctx, key, next); err != nil {
		s.metrics.Mutation(op, "error")
		s.log.Error(ctx, "cart save failed", err)
		return current, err
	}
	s.metrics.Mutation(op, "ok")
	s.metrics.CartSize(cart.Count(next))
	s.log.Debug(ctx, "cart "+op)
	return next, nil
}

// lock serializes cycles per key and drops idle entries.
func (s *CartService) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
