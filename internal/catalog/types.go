package catalog

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product mirrors the product-service serializer.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Category      int64           `json:"category"`
	CategoryName  string          `json:"category_name"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      string          `json:"image_url"`
	IsActive      bool            `json:"is_active"`
	IsInStock     bool            `json:"is_in_stock"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Category struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	ProductsCount int       `json:"products_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Availability is the check-availability endpoint's answer.
type Availability struct {
	ProductID         int64           `json:"product_id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Available         bool            `json:"available"`
	StockQuantity     int             `json:"stock_quantity"`
	RequestedQuantity int             `json:"requested_quantity"`
}

// page is the DRF envelope. List endpoints answer either this or a bare
// array depending on server pagination settings, so callers decode through
// decodeList.
type page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// decodeList accepts both a paginated envelope and a bare array. The second
// return is the envelope count, or -1 when the answer carried no envelope.
func decodeList[T any](raw json.RawMessage) ([]T, int, error) {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			var items []T
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, 0, err
			}
			return items, -1, nil
		}
		break
	}
	var env page[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, err
	}
	return env.Results, env.Count, nil
}
