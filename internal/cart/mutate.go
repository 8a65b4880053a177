package cart

import (
	"fmt"

	"github.com/etrshop/etr-brand/internal/domain"
)

// AddItem appends item to the end of c. Repeated adds of the same sku and
// size produce separate lines; quantities are never merged.
func AddItem(c domain.Cart, item domain.CartItem) (domain.Cart, error) {
	if err := item.Validate(); err != nil {
		return c, err
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	next := make(domain.Cart, len(c), len(c)+1)
	copy(next, c)
	return append(next, item), nil
}

// RemoveItem drops the line at index. An index outside [0, len) leaves the
// cart as it was and returns ErrIndexOutOfRange.
func RemoveItem(c domain.Cart, index int) (domain.Cart, error) {
	if index < 0 || index >= len(c) {
		return c, fmt.Errorf("%w: index %d, length %d", domain.ErrIndexOutOfRange, index, len(c))
	}
	next := make(domain.Cart, 0, len(c)-1)
	next = append(next, c[:index]...)
	return append(next, c[index+1:]...), nil
}

func Clear(domain.Cart) domain.Cart {
	return domain.Cart{}
}
