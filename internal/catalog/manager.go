package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	pkgerrors "github.com/s6ptember/shopfront/pkg/errors"
	"github.com/s6ptember/shopfront/pkg/logger"
	"github.com/s6ptember/shopfront/pkg/pagination"
)

// API is the slice of the transport client the catalog needs. The whole
// catalog surface is anonymous reads.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Manager holds the loaded product page, the category list, the current
// product slot and the active filter and pagination state.
type Manager struct {
	mu         sync.Mutex
	products   []Product
	categories []Category
	current    *Product
	filters    FilterState
	page       pagination.State

	api  API
	logg *logger.Logger
}

func NewManager(api API, logg *logger.Logger, pageSize int) *Manager {
	return &Manager{
		filters: DefaultFilters(),
		page:    pagination.NewState(pageSize),
		api:     api,
		logg:    logg,
	}
}

// FetchProducts loads one page of products. The request merges the active
// filters, the pagination state and any per-call overrides, overrides
// winning. The loaded page replaces the previous one wholesale and the
// pagination totals are recomputed from the envelope count.
func (m *Manager) FetchProducts(ctx context.Context, overrides url.Values) error {
	m.mu.Lock()
	q := m.filters.Query()
	q.Set("page", strconv.Itoa(m.page.CurrentPage))
	q.Set("page_size", strconv.Itoa(m.page.PageSize))
	m.mu.Unlock()
	for key, vals := range overrides {
		q[key] = vals
	}

	var raw json.RawMessage
	if err := m.api.Get(ctx, "/products/", q, &raw); err != nil {
		return failure(err, "Failed to fetch products")
	}
	items, count, err := decodeList[Product](raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to fetch products")
	}

	m.mu.Lock()
	m.products = items
	if count >= 0 {
		m.page.Recompute(count)
	}
	m.mu.Unlock()
	m.logg.Debug(ctx, fmt.Sprintf("products fetched: %d of %d", len(items), count))
	return nil
}

// FetchCategories loads the full category list.
func (m *Manager) FetchCategories(ctx context.Context) error {
	var raw json.RawMessage
	if err := m.api.Get(ctx, "/categories/", nil, &raw); err != nil {
		return failure(err, "Failed to fetch categories")
	}
	items, _, err := decodeList[Category](raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to fetch categories")
	}

	m.mu.Lock()
	m.categories = items
	m.mu.Unlock()
	return nil
}

// FetchProduct loads a single product and installs it as the current one.
func (m *Manager) FetchProduct(ctx context.Context, id int64) (*Product, error) {
	var product Product
	path := fmt.Sprintf("/products/%d/", id)
	if err := m.api.Get(ctx, path, nil, &product); err != nil {
		return nil, failure(err, "Failed to fetch product")
	}

	m.mu.Lock()
	m.current = &product
	m.mu.Unlock()
	out := product
	return &out, nil
}

// FetchCategory loads one category by its slug.
func (m *Manager) FetchCategory(ctx context.Context, slug string) (*Category, error) {
	var category Category
	path := fmt.Sprintf("/categories/%s/", url.PathEscape(slug))
	if err := m.api.Get(ctx, path, nil, &category); err != nil {
		return nil, failure(err, "Failed to fetch category")
	}
	return &category, nil
}

// CheckAvailability asks whether the requested quantity of a product is in
// stock right now. It never touches local state.
func (m *Manager) CheckAvailability(ctx context.Context, productID int64, quantity int) (*Availability, error) {
	q := url.Values{}
	q.Set("quantity", strconv.Itoa(quantity))
	var avail Availability
	path := fmt.Sprintf("/products/%d/check-availability/", productID)
	if err := m.api.Get(ctx, path, q, &avail); err != nil {
		return nil, failure(err, "Failed to check availability")
	}
	return &avail, nil
}

// SetFilters applies the given changes on top of the active filter state
// and resets pagination to the first page.
func (m *Manager) SetFilters(opts ...FilterOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, opt := range opts {
		opt(&m.filters)
	}
	m.page.Reset()
}

// ClearFilters restores the defaults and resets to the first page.
func (m *Manager) ClearFilters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = DefaultFilters()
	m.page.Reset()
}

// SetPage moves the pagination cursor. The next FetchProducts uses it.
func (m *Manager) SetPage(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.page.SetPage(page)
}

// ClearCurrentProduct empties the current product slot.
func (m *Manager) ClearCurrentProduct() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
}

// CurrentProduct returns a copy of the current product, or nil.
func (m *Manager) CurrentProduct() *Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	out := *m.current
	return &out
}

// Products returns a copy of the loaded page.
func (m *Manager) Products() []Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Product, len(m.products))
	copy(out, m.products)
	return out
}

// Categories returns a copy of the loaded category list.
func (m *Manager) Categories() []Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Category, len(m.categories))
	copy(out, m.categories)
	return out
}

// FilteredProducts applies the active filters to the loaded page. It is a
// pure read over already-fetched data, no request is made.
func (m *Manager) FilteredProducts() []Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		if m.filters.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// AvailableCategories returns the categories that have at least one active
// product.
func (m *Manager) AvailableCategories() []Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Category, 0, len(m.categories))
	for _, c := range m.categories {
		if c.ProductsCount > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Filters returns the active filter state.
func (m *Manager) Filters() FilterState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filters
}

// Pagination returns the current pagination state.
func (m *Manager) Pagination() pagination.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.page
}

func failure(err error, fallback string) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fallback)
	}
	if typed.Status() != 0 {
		return typed
	}
	return pkgerrors.Wrap(typed.Code(), err, fallback)
}
