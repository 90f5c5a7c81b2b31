package cart

import (
	"github.com/shopspring/decimal"
)

// Line is one cart line as the cart-service serializes it. Price is the
// unit price captured when the item was added.
type Line struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	CreatedAt   string          `json:"created_at"`
}

// Summary is the GET /cart/summary/ payload.
type Summary struct {
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemsCount  int             `json:"items_count"`
}

type cartResponse struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Items       []Line          `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalItems  int             `json:"total_items"`
}

type addRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type updateRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}
