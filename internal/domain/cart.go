package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingSizeSelection = errors.New("missing size selection")
	ErrUnknownSize          = errors.New("size not offered for this product")
	ErrIndexOutOfRange      = errors.New("cart index out of range")
	ErrInvalidItem          = errors.New("invalid cart item")
	ErrStorageRead          = errors.New("cart storage read failure")
)

// CartItem is one selected product variant. Items have no identity beyond
// their position in the Cart.
type CartItem struct {
	SKU         string          `json:"sku" validate:"required"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Image       string          `json:"image"`
	Size        string          `json:"size,omitempty"`
	Quantity    int             `json:"quantity" validate:"gte=0,lte=999"`
	PaymentLink string          `json:"paymentLink"`
}

// Qty returns the effective quantity; an unset quantity counts as 1.
func (i CartItem) Qty() int {
	if i.Quantity < 1 {
		return 1
	}
	return i.Quantity
}

// Subtotal is price * quantity for this line.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty())))
}

// Cart is an ordered sequence of line items. Order drives both display and
// the index used for removal.
type Cart []CartItem

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

func (c Cart) IsEmpty() bool {
	return len(c) == 0
}
