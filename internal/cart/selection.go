package cart

import (
	"fmt"

	"github.com/etrshop/etr-brand/internal/catalog"
	"github.com/etrshop/etr-brand/internal/domain"
)

// Selection is the size-selection state of one product page instance:
// either NoSizeSelected or SizeSelected(size). There is no terminal state.
type Selection struct {
	size string
}

func NoSizeSelected() Selection {
	return Selection{}
}

// Select moves to SizeSelected(size). Only sizes the product offers are
// accepted; on error the receiver's state is returned unchanged.
func (s Selection) Select(p catalog.Product, size string) (Selection, error) {
	if !p.OffersSize(size) {
		return s, fmt.Errorf("%w: %q for %s", domain.ErrUnknownSize, size, p.SKU)
	}
	return Selection{size: size}, nil
}

func (s Selection) Size() (string, bool) {
	return s.size, s.size != ""
}

func (s Selection) String() string {
	if s.size == "" {
		return "NoSizeSelected"
	}
	return "SizeSelected(" + s.size + ")"
}

// NewLineItem builds the CartItem an add-to-cart on product p would append.
// Products with sizes need a SizeSelected state.
func NewLineItem(p catalog.Product, sel Selection) (domain.CartItem, error) {
	size, ok := sel.Size()
	if p.HasSizes() && !ok {
		return domain.CartItem{}, domain.ErrMissingSizeSelection
	}
	if !p.HasSizes() {
		size = ""
	}
	return domain.CartItem{
		SKU:         p.SKU,
		Name:        p.Name,
		Price:       p.Price,
		Image:       p.Image,
		Size:        size,
		Quantity:    1,
		PaymentLink: p.PaymentLink,
	}, nil
}
