package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	pkgerrors "github.com/s6ptember/shopfront/pkg/errors"
	"github.com/s6ptember/shopfront/pkg/logger"
	"github.com/s6ptember/shopfront/pkg/validate"
)

// Auth answers whether a user is signed in. Every orders operation
// requires one.
type Auth interface {
	IsAuthenticated() bool
}

// API is the slice of the transport client the orders manager needs.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
}

// Manager talks to the order service. Unlike the cart it keeps no local
// snapshot, every read goes to the server.
type Manager struct {
	auth Auth
	api  API
	logg *logger.Logger
}

func NewManager(auth Auth, api API, logg *logger.Logger) *Manager {
	return &Manager{auth: auth, api: api, logg: logg}
}

// List returns the caller's orders. Query params pass through to the order
// service untouched.
func (m *Manager) List(ctx context.Context, query url.Values) ([]Order, error) {
	if err := m.requireAuth(); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := m.api.Get(ctx, "/orders/", query, &raw); err != nil {
		return nil, failure(err, "Failed to fetch orders")
	}
	items, err := decodeOrders(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to fetch orders")
	}
	return items, nil
}

// Get returns one order by id. The service scopes lookups to the caller,
// another user's order comes back as not found.
func (m *Manager) Get(ctx context.Context, id int64) (*Order, error) {
	if err := m.requireAuth(); err != nil {
		return nil, err
	}
	var order Order
	path := fmt.Sprintf("/orders/%d/", id)
	if err := m.api.Get(ctx, path, nil, &order); err != nil {
		return nil, failure(err, "Failed to fetch order")
	}
	return &order, nil
}

// Create places an order from the server-side cart contents.
func (m *Manager) Create(ctx context.Context, input CreateInput) (*Order, error) {
	if err := m.requireAuth(); err != nil {
		return nil, err
	}
	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var order Order
	if err := m.api.Post(ctx, "/orders/create/", input, &order); err != nil {
		return nil, failure(err, "Failed to create order")
	}
	m.logg.Info(ctx, fmt.Sprintf("order %d created", order.ID))
	return &order, nil
}

// Statistics returns the caller's order counts by status.
func (m *Manager) Statistics(ctx context.Context) (*Statistics, error) {
	if err := m.requireAuth(); err != nil {
		return nil, err
	}
	var stats Statistics
	if err := m.api.Get(ctx, "/orders/statistics/", nil, &stats); err != nil {
		return nil, failure(err, "Failed to fetch order statistics")
	}
	return &stats, nil
}

// UpdateStatus moves an order to a new lifecycle state.
func (m *Manager) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	if err := m.requireAuth(); err != nil {
		return nil, err
	}
	req := statusRequest{Status: status}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var order Order
	path := fmt.Sprintf("/orders/%d/status/", id)
	if err := m.api.Put(ctx, path, req, &order); err != nil {
		return nil, failure(err, "Failed to update order status")
	}
	return &order, nil
}

func (m *Manager) requireAuth() error {
	if m.auth.IsAuthenticated() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "Please sign in to view orders")
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
