package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/etrshop/etr-brand/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

var ErrProductNotFound = errors.New("product not found")

// Product is the fixed configuration a product page supplies at
// initialization. SelectedSizeID and HintID name the page elements that show
// the current selection and the validation hint.
type Product struct {
	SKU            string          `yaml:"sku" validate:"required"`
	Name           string          `yaml:"name" validate:"required"`
	Price          decimal.Decimal `yaml:"-" validate:"gte=0"`
	RawPrice       string          `yaml:"price" validate:"required,numeric"`
	Image          string          `yaml:"image"`
	PaymentLink    string          `yaml:"payment_link" validate:"required,url"`
	Sizes          []string        `yaml:"sizes" validate:"unique,dive,required"`
	SelectedSizeID string          `yaml:"selected_size_id"`
	HintID         string          `yaml:"hint_id"`
}

// HasSizes reports whether the product requires a size selection before add.
func (p Product) HasSizes() bool {
	return len(p.Sizes) > 0
}

func (p Product) OffersSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

type Catalog struct {
	products []Product
	bySKU    map[string]int
}

type file struct {
	Products []Product `yaml:"products"`
}

// Load reads a catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %q: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	v := domain.NewValidator()
	c := &Catalog{bySKU: make(map[string]int, len(f.Products))}
	for _, p := range f.Products {
		price, err := decimal.NewFromString(p.RawPrice)
		if err != nil {
			return nil, fmt.Errorf("product %q: invalid price %q: %w", p.SKU, p.RawPrice, err)
		}
		if !domain.IsWholeCents(price) {
			return nil, fmt.Errorf("product %q: price %q has more than two decimals", p.SKU, p.RawPrice)
		}
		p.Price = price
		if p.SelectedSizeID == "" {
			p.SelectedSizeID = p.SKU + "SelectedSize"
		}
		if p.HintID == "" {
			p.HintID = p.SKU + "Hint"
		}
		if err := v.Struct(p); err != nil {
			return nil, fmt.Errorf("product %q: %w", p.SKU, err)
		}
		if _, dup := c.bySKU[p.SKU]; dup {
			return nil, fmt.Errorf("product %q: duplicate sku", p.SKU)
		}
		c.bySKU[p.SKU] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

func (c *Catalog) Get(sku string) (Product, error) {
	i, ok := c.bySKU[sku]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return c.products[i], nil
}

// All returns the products in catalog order.
func (c *Catalog) All() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}
