package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state as the order service reports it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Item is one order line, priced at the moment the order was placed.
type Item struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Order mirrors the order-service serializer.
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	Status          Status          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address"`
	UserEmail       string          `json:"user_email"`
	UserName        string          `json:"user_name"`
	Items           []Item          `json:"items"`
	ItemsCount      int             `json:"items_count"`
	TotalQuantity   int             `json:"total_quantity"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Statistics are the per-user order counts by status. TotalSpent excludes
// cancelled orders.
type Statistics struct {
	TotalOrders     int             `json:"total_orders"`
	PendingOrders   int             `json:"pending_orders"`
	ConfirmedOrders int             `json:"confirmed_orders"`
	ShippedOrders   int             `json:"shipped_orders"`
	DeliveredOrders int             `json:"delivered_orders"`
	CancelledOrders int             `json:"cancelled_orders"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
}

// CreateInput is the create-order payload. The address must still be at
// least 10 characters after trimming, matching the service-side check.
type CreateInput struct {
	ShippingAddress     string `json:"shipping_address" validate:"required,min=10"`
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

type statusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending confirmed shipped delivered cancelled"`
}

type listPage struct {
	Count   int     `json:"count"`
	Results []Order `json:"results"`
}

// decodeOrders accepts both the DRF envelope and a bare array.
func decodeOrders(raw json.RawMessage) ([]Order, error) {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			var items []Order
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, err
			}
			return items, nil
		}
		break
	}
	var env listPage
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}
