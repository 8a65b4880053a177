package domain

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// NewValidator returns a validator that understands decimal.Decimal fields,
// so numeric tags like gte=0 apply to prices.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

var itemValidator = NewValidator()

// Validate checks the CartItem invariants: non-empty sku, a price >= 0 in
// whole cents and a quantity in [0, 999] (0 meaning "defaults to 1").
func (i CartItem) Validate() error {
	if err := itemValidator.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	if !IsWholeCents(i.Price) {
		return fmt.Errorf("%w: price %s has more than two decimals", ErrInvalidItem, i.Price)
	}
	return nil
}

// IsWholeCents reports whether d has at most two decimal places.
func IsWholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
