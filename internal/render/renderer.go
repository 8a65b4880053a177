package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"

	"github.com/etrshop/etr-brand/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	SurfaceBadge    = "badge"
	SurfaceDrawer   = "drawer"
	SurfaceCheckout = "checkout"
)

// Surface is one mounted display target. Apply must fully replace whatever
// the surface showed before.
type Surface interface {
	ID() string
	Apply(p Projection) error
}

// Templates parses the embedded surface templates.
func Templates() (*template.Template, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse surface templates: %w", err)
	}
	return t, nil
}

// TemplateSurface renders one named template and keeps the last output.
type TemplateSurface struct {
	id   string
	tmpl *template.Template

	mu      sync.RWMutex
	content template.HTML
}

func NewTemplateSurface(id string, tmpl *template.Template) (*TemplateSurface, error) {
	if tmpl.Lookup(id) == nil {
		return nil, fmt.Errorf("no template for surface %q", id)
	}
	return &TemplateSurface{id: id, tmpl: tmpl}, nil
}

func (s *TemplateSurface) ID() string {
	return s.id
}

func (s *TemplateSurface) Apply(p Projection) error {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, s.id, p); err != nil {
		return fmt.Errorf("render %s: %w", s.id, err)
	}
	s.mu.Lock()
	// output comes from html/template, so it is already escaped
	s.content = template.HTML(buf.String())
	s.mu.Unlock()
	return nil
}

func (s *TemplateSurface) Content() template.HTML {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

// Renderer projects a cart onto every mounted surface.
type Renderer struct {
	mu       sync.Mutex
	order    []string
	surfaces map[string]Surface
}

func NewRenderer() *Renderer {
	return &Renderer{surfaces: make(map[string]Surface)}
}

// Mount registers s. Mounting an ID that is already mounted is a no-op and
// reports false, so a surface is never rendered twice per pass.
func (r *Renderer) Mount(s Surface) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.surfaces[s.ID()]; ok {
		return false
	}
	r.surfaces[s.ID()] = s
	r.order = append(r.order, s.ID())
	return true
}

func (r *Renderer) Unmount(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.surfaces[id]; !ok {
		return
	}
	delete(r.surfaces, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Renderer) Mounted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Render projects c once and applies it to all mounted surfaces in mount
// order. Every surface is attempted; the first error is returned.
func (r *Renderer) Render(c domain.Cart) (Projection, error) {
	p := Project(c)

	r.mu.Lock()
	targets := make([]Surface, 0, len(r.order))
	for _, id := range r.order {
		targets = append(targets, r.surfaces[id])
	}
	r.mu.Unlock()

	var firstErr error
	for _, s := range targets {
		if err := s.Apply(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return p, firstErr
}
