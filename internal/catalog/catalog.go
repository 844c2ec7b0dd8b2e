package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/steammaster-scheduling/internal/appointment"
	"github.com/hackgods/steammaster-scheduling/internal/metrics"
)

// Category forms a two-level tree: parents have no Parent.
type Category struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

func (c Category) IsTopLevel() bool { return c.Parent == "" }

type Service struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
}

// Source is the read-only reference data endpoint of the booking API.
type Source interface {
	ListCategories(ctx context.Context) ([]Category, error)
	ListServices(ctx context.Context) ([]Service, error)
}

// Snapshot is one consistent read of categories and services.
type Snapshot struct {
	Categories []Category `json:"categories"`
	Services   []Service  `json:"services"`
}

type Catalog struct {
	src     Source
	metrics *metrics.Metrics
}

func New(src Source, m *metrics.Metrics) *Catalog {
	return &Catalog{src: src, metrics: m}
}

// Load fetches both lists. A failure of either yields FetchFailed and an
// empty snapshot so the caller can keep rendering.
func (c *Catalog) Load(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	cats, err := c.src.ListCategories(ctx)
	c.metrics.ObserveRemote("list_categories", err, time.Since(start).Seconds())
	if err != nil {
		return Snapshot{}, appointment.FetchFailed("list categories", err)
	}

	start = time.Now()
	svcs, err := c.src.ListServices(ctx)
	c.metrics.ObserveRemote("list_services", err, time.Since(start).Seconds())
	if err != nil {
		return Snapshot{}, appointment.FetchFailed("list services", err)
	}
	return Snapshot{Categories: cats, Services: svcs}, nil
}

func ParentCategories(cats []Category) []Category {
	out := make([]Category, 0, len(cats))
	for _, c := range cats {
		if c.IsTopLevel() {
			out = append(out, c)
		}
	}
	return out
}

// ServicesForParent returns services filed directly under parentID or under
// one of its subcategories, in catalog order.
func ServicesForParent(parentID string, cats []Category, svcs []Service) []Service {
	if parentID == "" {
		return []Service{}
	}
	ids := map[string]struct{}{parentID: {}}
	for _, c := range cats {
		if c.Parent == parentID {
			ids[c.ID] = struct{}{}
		}
	}
	out := make([]Service, 0)
	for _, s := range svcs {
		if _, ok := ids[s.Category]; ok {
			out = append(out, s)
		}
	}
	return out
}

func FindService(svcs []Service, id string) (Service, bool) {
	for _, s := range svcs {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

func TotalPrice(svcs []Service) decimal.Decimal {
	total := decimal.Zero
	for _, s := range svcs {
		total = total.Add(s.Price)
	}
	return total
}
