package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/etrshop/etr-brand/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCart() domain.Cart {
	return domain.Cart{
		{SKU: "jacket", Name: "Jacket — Black Chrome", Price: decimal.NewFromInt(80), Image: "assets/product-jacket.png", Size: "M", Quantity: 1, PaymentLink: "https://buy.stripe.com/jacket"},
		{SKU: "pants", Name: "Pants — Black Chrome", Price: decimal.NewFromInt(90), Image: "assets/product-pants.png", Size: "32", Quantity: 1, PaymentLink: "https://buy.stripe.com/pants"},
		{SKU: "cap", Name: "Cap", Price: decimal.RequireFromString("12.5"), Quantity: 2, PaymentLink: "https://buy.stripe.com/cap"},
	}
}

func TestProject_NonEmpty(t *testing.T) {
	p := Project(testCart())

	assert.Equal(t, 4, p.Badge.Count)

	assert.False(t, p.Drawer.Empty)
	assert.Empty(t, p.Drawer.EmptyMessage)
	assert.Equal(t, "$195.00", p.Drawer.Total)
	require.Len(t, p.Drawer.Lines, 3)
	for i, l := range p.Drawer.Lines {
		assert.Equal(t, i, l.Index)
	}
	assert.Equal(t, "M", p.Drawer.Lines[0].SizeLabel)
	assert.Equal(t, NoSizeLabel, p.Drawer.Lines[2].SizeLabel)
	assert.Equal(t, "$12.50", p.Drawer.Lines[2].Price)

	assert.False(t, p.Checkout.Empty)
	assert.Equal(t, "$195.00", p.Checkout.Total)
	require.Len(t, p.Checkout.Payments, 3)
	for i, pay := range p.Checkout.Payments {
		assert.Equal(t, testCart()[i].PaymentLink, pay.Href)
	}
	assert.Equal(t, "Pay Jacket — Black Chrome ($80.00)", p.Checkout.Payments[0].Label)
}

func TestProject_Empty(t *testing.T) {
	p := Project(domain.Cart{})

	assert.Equal(t, 0, p.Badge.Count)
	assert.True(t, p.Drawer.Empty)
	assert.Equal(t, EmptyCartMessage, p.Drawer.EmptyMessage)
	assert.Equal(t, "$0.00", p.Drawer.Total)
	assert.True(t, p.Checkout.Empty)
	assert.Empty(t, p.Checkout.Payments)
	assert.Empty(t, p.Checkout.Lines)
}

func mountAll(t *testing.T) (*Renderer, map[string]*TemplateSurface) {
	t.Helper()
	tmpl, err := Templates()
	require.NoError(t, err)

	r := NewRenderer()
	surfaces := map[string]*TemplateSurface{}
	for _, id := range []string{SurfaceBadge, SurfaceDrawer, SurfaceCheckout} {
		s, err := NewTemplateSurface(id, tmpl)
		require.NoError(t, err)
		require.True(t, r.Mount(s))
		surfaces[id] = s
	}
	return r, surfaces
}

func TestRender_CheckoutEmptyAndSummaryAreExclusive(t *testing.T) {
	r, s := mountAll(t)

	_, err := r.Render(domain.Cart{})
	require.NoError(t, err)
	html := string(s[SurfaceCheckout].Content())
	assert.Contains(t, html, `id="checkoutEmpty"`)
	assert.NotContains(t, html, `id="checkoutContent"`)
	assert.Equal(t, 0, strings.Count(html, `class="ctaBtn"`))

	_, err = r.Render(testCart())
	require.NoError(t, err)
	html = string(s[SurfaceCheckout].Content())
	assert.NotContains(t, html, `id="checkoutEmpty"`)
	assert.Contains(t, html, `id="checkoutContent"`)
	assert.Equal(t, 3, strings.Count(html, `class="ctaBtn"`))
	for _, it := range testCart() {
		assert.Contains(t, html, `href="`+it.PaymentLink+`" target="_blank" rel="noopener"`)
	}
	assert.NotContains(t, html, "cartItem__remove", "checkout has no remove affordance")
}

func TestRender_DrawerAndBadge(t *testing.T) {
	r, s := mountAll(t)

	_, err := r.Render(testCart())
	require.NoError(t, err)
	assert.Equal(t, `<span class="cartCount">4</span>`, string(s[SurfaceBadge].Content()))

	drawer := string(s[SurfaceDrawer].Content())
	assert.Equal(t, 3, strings.Count(drawer, "cartItem__remove"))
	assert.Contains(t, drawer, `action="/cart/items/0/delete"`)
	assert.Contains(t, drawer, `action="/cart/items/2/delete"`)
	assert.Contains(t, drawer, "Size: — · $12.50")
	assert.Contains(t, drawer, "$195.00")

	_, err = r.Render(domain.Cart{})
	require.NoError(t, err)
	drawer = string(s[SurfaceDrawer].Content())
	assert.Contains(t, drawer, EmptyCartMessage)
	assert.NotContains(t, drawer, "cartItem__remove")
}

func TestRender_IsIdempotent(t *testing.T) {
	r, s := mountAll(t)

	_, err := r.Render(testCart())
	require.NoError(t, err)
	first := map[string]string{}
	for id, surf := range s {
		first[id] = string(surf.Content())
	}

	for i := 0; i < 3; i++ {
		_, err = r.Render(testCart())
		require.NoError(t, err)
	}
	for id, surf := range s {
		assert.Equal(t, first[id], string(surf.Content()), id)
	}
}

func TestRender_EscapesItemFields(t *testing.T) {
	r, s := mountAll(t)
	c := domain.Cart{{SKU: "x", Name: `<script>alert(1)</script>`, Price: decimal.NewFromInt(1), PaymentLink: "javascript:alert(1)"}}

	_, err := r.Render(c)
	require.NoError(t, err)
	assert.NotContains(t, string(s[SurfaceDrawer].Content()), "<script>")
	assert.NotContains(t, string(s[SurfaceCheckout].Content()), `href="javascript:`)
}

type countingSurface struct {
	id    string
	calls int
	err   error
}

func (c *countingSurface) ID() string { return c.id }

func (c *countingSurface) Apply(Projection) error {
	c.calls++
	return c.err
}

func TestRenderer_MountIsIdempotent(t *testing.T) {
	r := NewRenderer()
	a := &countingSurface{id: "badge"}

	assert.True(t, r.Mount(a))
	assert.False(t, r.Mount(a))
	assert.False(t, r.Mount(&countingSurface{id: "badge"}))

	_, err := r.Render(testCart())
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, []string{"badge"}, r.Mounted())
}

func TestRenderer_Unmount(t *testing.T) {
	r := NewRenderer()
	a := &countingSurface{id: "a"}
	b := &countingSurface{id: "b"}
	r.Mount(a)
	r.Mount(b)

	r.Unmount("a")
	r.Unmount("missing")

	_, err := r.Render(domain.Cart{})
	require.NoError(t, err)
	assert.Equal(t, 0, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, []string{"b"}, r.Mounted())
}

func TestRenderer_ContinuesPastFailingSurface(t *testing.T) {
	r := NewRenderer()
	bad := &countingSurface{id: "bad", err: errors.New("detached")}
	good := &countingSurface{id: "good"}
	r.Mount(bad)
	r.Mount(good)

	_, err := r.Render(testCart())
	assert.ErrorContains(t, err, "detached")
	assert.Equal(t, 1, good.calls)
}

func TestNewTemplateSurface_UnknownTemplate(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)
	_, err = NewTemplateSurface("nope", tmpl)
	assert.Error(t, err)
}
