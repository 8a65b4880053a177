package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/etrshop/etr-brand/internal/domain"
	"github.com/etrshop/etr-brand/internal/logger"
	"github.com/etrshop/etr-brand/internal/storage"
)

// DefaultKeyPrefix is the storage key the legacy storefront used for its
// single cart; per-visitor keys hang off it.
const DefaultKeyPrefix = "etr_cart_v1"

// CartRepository is the only way to reach persisted cart state.
// Consumers define this interface, not the storage backends.
type CartRepository interface {
	// Load never fails: absent or unreadable state is an empty cart.
	Load(ctx context.Context, key string) domain.Cart
	// Save overwrites the whole persisted cart under key.
	Save(ctx context.Context, key string, cart domain.Cart) error
}

// FailureRecorder receives the reason a load fell back to an empty cart.
type FailureRecorder interface {
	LoadFailure(reason string)
}

type noopRecorder struct{}

func (noopRecorder) LoadFailure(string) {}

type storeRepository struct {
	store    storage.Store
	log      *logger.Logger
	failures FailureRecorder
}

func NewCartRepository(store storage.Store, log *logger.Logger, failures FailureRecorder) CartRepository {
	if failures == nil {
		failures = noopRecorder{}
	}
	return &storeRepository{
		store:    store,
		log:      log,
		failures: failures,
	}
}

// Key returns the storage key of one browsing context.
func Key(prefix, contextID string) string {
	if contextID == "" {
		return prefix
	}
	return fmt.Sprintf("%s:%s", prefix, contextID)
}

func (r *storeRepository) Load(ctx context.Context, key string) domain.Cart {
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Cart{}
	}
	if err != nil {
		r.failures.LoadFailure("unavailable")
		r.log.Warn(ctx, "cart storage unavailable, using empty cart", fmt.Errorf("%w: %v", domain.ErrStorageRead, err))
		return domain.Cart{}
	}

	res, err := Decode(raw)
	if err != nil {
		r.failures.LoadFailure("malformed")
		r.log.Warn(ctx, "persisted cart is malformed, using empty cart", err)
		return domain.Cart{}
	}
	for _, dropped := range res.Dropped {
		r.failures.LoadFailure("invalid_item")
		r.log.Warn(ctx, "dropped unreadable cart line", dropped)
	}
	return res.Cart
}

func (r *storeRepository) Save(ctx context.Context, key string, cart domain.Cart) error {
	value, err := Encode(cart)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}
