package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const defaultSort = "-created_at"

// FilterState is the active product filter set. Zero fields mean "not
// filtering on this axis"; SortBy always holds a concrete ordering.
type FilterState struct {
	Category *int64
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
	InStock  bool
	SortBy   string
}

func DefaultFilters() FilterState {
	return FilterState{SortBy: defaultSort}
}

// FilterOption mutates one axis of the filter state.
type FilterOption func(*FilterState)

func WithCategory(id int64) FilterOption {
	return func(f *FilterState) { f.Category = &id }
}

func WithoutCategory() FilterOption {
	return func(f *FilterState) { f.Category = nil }
}

func WithSearch(term string) FilterOption {
	return func(f *FilterState) { f.Search = term }
}

func WithMinPrice(min decimal.Decimal) FilterOption {
	return func(f *FilterState) { f.MinPrice = &min }
}

func WithMaxPrice(max decimal.Decimal) FilterOption {
	return func(f *FilterState) { f.MaxPrice = &max }
}

func WithInStockOnly(only bool) FilterOption {
	return func(f *FilterState) { f.InStock = only }
}

func WithSort(ordering string) FilterOption {
	return func(f *FilterState) { f.SortBy = ordering }
}

// Query renders the state as product-service list parameters. Axes that are
// not filtering are omitted entirely.
func (f FilterState) Query() url.Values {
	q := url.Values{}
	if f.Category != nil {
		q.Set("category", strconv.FormatInt(*f.Category, 10))
	}
	if f.MinPrice != nil {
		q.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		q.Set("max_price", f.MaxPrice.String())
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.InStock {
		q.Set("in_stock", "true")
	}
	if f.SortBy != "" {
		q.Set("ordering", f.SortBy)
	}
	return q
}

// Matches applies every active axis as an AND-composed predicate. Search is
// a case-insensitive substring match over name and description.
func (f FilterState) Matches(p Product) bool {
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			return false
		}
	}
	if f.Category != nil && p.Category != *f.Category {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock && p.StockQuantity <= 0 {
		return false
	}
	return true
}
