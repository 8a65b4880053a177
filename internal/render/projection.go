package render

import (
	"fmt"

	"github.com/etrshop/etr-brand/internal/cart"
	"github.com/etrshop/etr-brand/internal/domain"
)

const (
	// EmptyCartMessage is shown in the drawer when the cart has no lines.
	EmptyCartMessage = "Carrinho vazio."
	// NoSizeLabel stands in for the size of sizeless lines.
	NoSizeLabel = "—"
)

// Line is one cart line as every surface displays it.
type Line struct {
	Index     int    `json:"index"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	SizeLabel string `json:"size"`
	Price     string `json:"price"`
}

type Badge struct {
	Count int `json:"count"`
}

// Drawer lists lines with a remove affordance bound to each Line.Index.
type Drawer struct {
	Lines        []Line `json:"lines"`
	Empty        bool   `json:"empty"`
	EmptyMessage string `json:"empty_message,omitempty"`
	Total        string `json:"total"`
}

type Payment struct {
	Index int    `json:"index"`
	Href  string `json:"href"`
	Label string `json:"label"`
}

// Checkout is either the empty view (Empty, no lines, no payments) or the
// summary with exactly one Payment per line. Never both.
type Checkout struct {
	Empty    bool      `json:"empty"`
	Lines    []Line    `json:"lines"`
	Total    string    `json:"total"`
	Payments []Payment `json:"payments"`
}

type Projection struct {
	Badge    Badge    `json:"badge"`
	Drawer   Drawer   `json:"drawer"`
	Checkout Checkout `json:"checkout"`
}

// Project computes the view models for every surface from one snapshot.
// It is pure; applying the result is the Surface's job.
func Project(c domain.Cart) Projection {
	total := cart.FormatMoney(cart.Total(c))
	lines := make([]Line, 0, len(c))
	for i, it := range c {
		size := it.Size
		if size == "" {
			size = NoSizeLabel
		}
		lines = append(lines, Line{
			Index:     i,
			SKU:       it.SKU,
			Name:      it.Name,
			Image:     it.Image,
			SizeLabel: size,
			Price:     cart.FormatMoney(it.Price),
		})
	}

	p := Projection{
		Badge: Badge{Count: cart.Count(c)},
		Drawer: Drawer{
			Lines: lines,
			Total: total,
		},
	}
	if len(c) == 0 {
		p.Drawer.Empty = true
		p.Drawer.EmptyMessage = EmptyCartMessage
		p.Checkout = Checkout{Empty: true, Lines: []Line{}, Payments: []Payment{}, Total: total}
		return p
	}

	payments := make([]Payment, 0, len(c))
	for i, it := range c {
		payments = append(payments, Payment{
			Index: i,
			Href:  it.PaymentLink,
			Label: fmt.Sprintf("Pay %s (%s)", it.Name, lines[i].Price),
		})
	}
	p.Checkout = Checkout{
		Lines:    lines,
		Total:    total,
		Payments: payments,
	}
	return p
}
