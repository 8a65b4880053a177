package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/etrshop/etr-brand/internal/cart"
	"github.com/etrshop/etr-brand/internal/catalog"
	"github.com/etrshop/etr-brand/internal/domain"
	"github.com/etrshop/etr-brand/internal/logger"
	"github.com/etrshop/etr-brand/internal/render"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var pageFS embed.FS

const (
	HintSelectSize = "Please select a size."
	hintAdded      = "Added (Size %s)."
	hintAddedPlain = "Added."
)

// CartService is the part of service.CartService the storefront drives.
type CartService interface {
	Snapshot(ctx context.Context, key string) domain.Cart
	AddFromSelection(ctx context.Context, key string, p catalog.Product, sel cart.Selection) (domain.Cart, error)
	Remove(ctx context.Context, key string, index int) (domain.Cart, error)
	Clear(ctx context.Context, key string) (domain.Cart, error)
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type StoreHandler struct {
	carts    CartService
	catalog  *catalog.Catalog
	pages    *template.Template
	surfaces *template.Template
	log      *logger.Logger
	timeout  time.Duration
}

func NewStoreHandler(carts CartService, cat *catalog.Catalog, log *logger.Logger, timeout time.Duration) (*StoreHandler, error) {
	pages, err := template.ParseFS(pageFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	surfaces, err := render.Templates()
	if err != nil {
		return nil, err
	}
	return &StoreHandler{
		carts:    carts,
		catalog:  cat,
		pages:    pages,
		surfaces: surfaces,
		log:      log,
		timeout:  timeout,
	}, nil
}

type sizeOption struct {
	Value string
}

type productView struct {
	SKU            string
	Name           string
	Image          string
	Price          string
	Sizes          []sizeOption
	Selected       string
	SelectedLabel  string
	SelectedSizeID string
	HintID         string
}

type pageData struct {
	Title      string
	Badge      template.HTML
	Drawer     template.HTML
	Checkout   template.HTML
	DrawerOpen bool
	Hint       string
	Products   []catalog.Product
	Product    *productView
}

func newProductView(p catalog.Product, sel cart.Selection) *productView {
	v := &productView{
		SKU:            p.SKU,
		Name:           p.Name,
		Image:          p.Image,
		Price:          cart.FormatMoney(p.Price),
		SelectedLabel:  render.NoSizeLabel,
		SelectedSizeID: p.SelectedSizeID,
		HintID:         p.HintID,
	}
	for _, s := range p.Sizes {
		v.Sizes = append(v.Sizes, sizeOption{Value: s})
	}
	if size, ok := sel.Size(); ok {
		v.Selected = size
		v.SelectedLabel = size
	}
	return v
}

func (h *StoreHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c := h.carts.Snapshot(ctx, cartKeyFromContext(ctx))
	h.renderPage(ctx, w, http.StatusOK, "index", c, pageData{
		Title:    "ETR",
		Products: h.catalog.All(),
	})
}

// Product renders a product page. An optional ?size= preselects a size the
// product offers; anything else leaves the page in NoSizeSelected.
func (h *StoreHandler) Product(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := h.product(w, r)
	if !ok {
		return
	}
	sel := cart.NoSizeSelected()
	if size := r.URL.Query().Get("size"); size != "" {
		sel, _ = sel.Select(p, size)
	}

	c := h.carts.Snapshot(ctx, cartKeyFromContext(ctx))
	h.renderPage(ctx, w, http.StatusOK, "product", c, pageData{
		Title:   p.Name,
		Product: newProductView(p, sel),
	})
}

func (h *StoreHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := h.product(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
		return
	}

	sel := cart.NoSizeSelected()
	if size := r.PostForm.Get("size"); size != "" {
		next, err := sel.Select(p, size)
		if err != nil {
			h.log.Warn(ctx, "unknown size submitted", err)
		}
		sel = next
	}

	key := cartKeyFromContext(ctx)
	c, err := h.carts.AddFromSelection(ctx, key, p, sel)
	switch {
	case errors.Is(err, domain.ErrMissingSizeSelection):
		h.renderPage(ctx, w, http.StatusUnprocessableEntity, "product", h.carts.Snapshot(ctx, key), pageData{
			Title:   p.Name,
			Product: newProductView(p, sel),
			Hint:    HintSelectSize,
		})
		return
	case err != nil:
		h.log.Error(ctx, "add to cart failed", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not update cart")
		return
	}

	hint := hintAddedPlain
	if size, ok := sel.Size(); ok {
		hint = fmt.Sprintf(hintAdded, size)
	}
	h.renderPage(ctx, w, http.StatusOK, "product", c, pageData{
		Title:      p.Name,
		Product:    newProductView(p, sel),
		Hint:       hint,
		DrawerOpen: true,
	})
}

// RemoveItem deletes the line at {index} and sends the browser back to the
// page it came from. Out-of-range indexes leave the cart as it was.
func (h *StoreHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_index", "index must be an integer")
		return
	}
	if _, err := h.carts.Remove(ctx, cartKeyFromContext(ctx), index); err != nil {
		h.log.Error(ctx, "remove from cart failed", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not update cart")
		return
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

func (h *StoreHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if _, err := h.carts.Clear(ctx, cartKeyFromContext(ctx)); err != nil {
		h.log.Error(ctx, "clear cart failed", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "could not update cart")
		return
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

func (h *StoreHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c := h.carts.Snapshot(ctx, cartKeyFromContext(ctx))
	h.renderPage(ctx, w, http.StatusOK, "checkout", c, pageData{Title: "Checkout"})
}

// GetCart returns the same projection the page surfaces are rendered from.
func (h *StoreHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c := h.carts.Snapshot(ctx, cartKeyFromContext(ctx))
	respondJSON(w, http.StatusOK, render.Project(c))
}

func (h *StoreHandler) product(w http.ResponseWriter, r *http.Request) (catalog.Product, bool) {
	p, err := h.catalog.Get(chi.URLParam(r, "sku"))
	if err != nil {
		respondError(w, http.StatusNotFound, "not_found", err.Error())
		return catalog.Product{}, false
	}
	return p, true
}

// renderPage mounts the surfaces the page shows, renders c onto them once and
// executes the page around their output.
func (h *StoreHandler) renderPage(ctx context.Context, w http.ResponseWriter, status int, page string, c domain.Cart, data pageData) {
	ids := []string{render.SurfaceBadge, render.SurfaceDrawer}
	if page == "checkout" {
		ids = append(ids, render.SurfaceCheckout)
	}

	renderer := render.NewRenderer()
	mounted := make(map[string]*render.TemplateSurface, len(ids))
	for _, id := range ids {
		s, err := render.NewTemplateSurface(id, h.surfaces)
		if err != nil {
			h.fail(ctx, w, err)
			return
		}
		renderer.Mount(s)
		mounted[id] = s
	}
	if _, err := renderer.Render(c); err != nil {
		h.fail(ctx, w, err)
		return
	}

	data.Badge = mounted[render.SurfaceBadge].Content()
	data.Drawer = mounted[render.SurfaceDrawer].Content()
	if s, ok := mounted[render.SurfaceCheckout]; ok {
		data.Checkout = s.Content()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.pages.ExecuteTemplate(w, page, data); err != nil {
		h.log.Error(ctx, "page render failed", err)
	}
}

func (h *StoreHandler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	h.log.Error(ctx, "surface render failed", err)
	respondError(w, http.StatusInternalServerError, "internal_error", "could not render page")
}

// backTo returns the local path of the Referer, or "/".
func backTo(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
