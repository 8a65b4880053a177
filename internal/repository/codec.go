package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/etrshop/etr-brand/internal/domain"
	"github.com/shopspring/decimal"
)

// SchemaVersion is written into every saved envelope. Version 1 is the
// unversioned bare array written by the legacy storefront script.
const SchemaVersion = 2

type envelope struct {
	Version int             `json:"version"`
	Items   json.RawMessage `json:"items"`
}

type savedEnvelope struct {
	Version int          `json:"version"`
	Items   []itemRecord `json:"items"`
}

// itemRecord is the persisted shape of a line. The legacy layout used qty and
// stripeLink; both spellings are read, only the current one is written.
type itemRecord struct {
	SKU         string      `json:"sku"`
	Name        string      `json:"name"`
	Price       json.Number `json:"price"`
	Image       string      `json:"image"`
	Size        string      `json:"size,omitempty"`
	Quantity    *int        `json:"quantity,omitempty"`
	Qty         *int        `json:"qty,omitempty"`
	PaymentLink string      `json:"paymentLink,omitempty"`
	StripeLink  string      `json:"stripeLink,omitempty"`
}

var errNotAnItem = errors.New("element is not a cart item")

func (r itemRecord) toItem() (domain.CartItem, error) {
	if r.Price == "" {
		return domain.CartItem{}, fmt.Errorf("%w: missing price", errNotAnItem)
	}
	price, err := decimal.NewFromString(r.Price.String())
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("%w: price %q", errNotAnItem, r.Price)
	}

	it := domain.CartItem{
		SKU:         r.SKU,
		Name:        r.Name,
		Price:       price,
		Image:       r.Image,
		Size:        r.Size,
		PaymentLink: r.PaymentLink,
	}
	switch {
	case r.Quantity != nil:
		it.Quantity = *r.Quantity
	case r.Qty != nil:
		it.Quantity = *r.Qty
	}
	if it.PaymentLink == "" {
		it.PaymentLink = r.StripeLink
	}
	if err := it.Validate(); err != nil {
		return domain.CartItem{}, err
	}
	if it.Quantity == 0 {
		it.Quantity = 1
	}
	return it, nil
}

func fromItem(it domain.CartItem) itemRecord {
	q := it.Qty()
	return itemRecord{
		SKU:         it.SKU,
		Name:        it.Name,
		Price:       json.Number(it.Price.String()),
		Image:       it.Image,
		Size:        it.Size,
		Quantity:    &q,
		PaymentLink: it.PaymentLink,
	}
}

// Encode serializes the whole cart as a versioned envelope.
func Encode(c domain.Cart) (string, error) {
	env := savedEnvelope{Version: SchemaVersion, Items: make([]itemRecord, 0, len(c))}
	for _, it := range c {
		env.Items = append(env.Items, fromItem(it))
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal cart failed: %w", err)
	}
	return string(b), nil
}

// DecodeResult carries the decoded cart plus the elements that were skipped.
type DecodeResult struct {
	Cart    domain.Cart
	Dropped []error
}

// Decode parses either the versioned envelope or the legacy bare array.
// Anything that is not a sequence yields ErrStorageRead. Elements that are
// not valid items are dropped and reported in Dropped.
func Decode(raw string) (DecodeResult, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		return DecodeResult{}, fmt.Errorf("%w: empty value", domain.ErrStorageRead)
	}

	var list json.RawMessage
	switch data[0] {
	case '[':
		list = data
	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return DecodeResult{}, fmt.Errorf("%w: %v", domain.ErrStorageRead, err)
		}
		if env.Version > SchemaVersion {
			return DecodeResult{}, fmt.Errorf("%w: unsupported version %d", domain.ErrStorageRead, env.Version)
		}
		list = bytes.TrimSpace(env.Items)
		if len(list) == 0 || list[0] != '[' {
			return DecodeResult{}, fmt.Errorf("%w: object without an items sequence", domain.ErrStorageRead)
		}
	default:
		return DecodeResult{}, fmt.Errorf("%w: value is not a sequence", domain.ErrStorageRead)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(list, &elems); err != nil {
		return DecodeResult{}, fmt.Errorf("%w: %v", domain.ErrStorageRead, err)
	}

	res := DecodeResult{Cart: make(domain.Cart, 0, len(elems))}
	for i, el := range elems {
		el = bytes.TrimSpace(el)
		if len(el) == 0 || el[0] != '{' {
			res.Dropped = append(res.Dropped, fmt.Errorf("element %d: %w", i, errNotAnItem))
			continue
		}
		var rec itemRecord
		if err := json.Unmarshal(el, &rec); err != nil {
			res.Dropped = append(res.Dropped, fmt.Errorf("element %d: %w: %v", i, errNotAnItem, err))
			continue
		}
		it, err := rec.toItem()
		if err != nil {
			res.Dropped = append(res.Dropped, fmt.Errorf("element %d: %w", i, err))
			continue
		}
		res.Cart = append(res.Cart, it)
	}
	return res, nil
}
