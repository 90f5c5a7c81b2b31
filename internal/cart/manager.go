// Package cart owns the client-side cart snapshot. The server stays
// authoritative: mutations post first, then the local state follows the
// server's answer.
package cart

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/s6ptember/shopfront/pkg/errors"
	"github.com/s6ptember/shopfront/pkg/logger"
	"github.com/s6ptember/shopfront/pkg/validate"
)

const signInMessage = "Please sign in to add items to cart"

// Auth is the slice of the session the cart needs.
type Auth interface {
	IsAuthenticated() bool
}

// API is the subset of the transport client the manager calls.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Manager holds the cart snapshot last confirmed by the backend.
type Manager struct {
	mu          sync.Mutex
	items       []Line
	lastUpdated time.Time

	auth Auth
	api  API
	logg *logger.Logger
}

func NewManager(auth Auth, api API, logg *logger.Logger) *Manager {
	return &Manager{auth: auth, api: api, logg: logg}
}

// FetchCart replaces the snapshot wholesale with the server's cart. An
// anonymous session short-circuits to an empty cart, success. An auth
// rejection is also "no cart", not an error; everything else surfaces.
func (m *Manager) FetchCart(ctx context.Context) error {
	if !m.auth.IsAuthenticated() {
		m.replace(nil, time.Time{})
		return nil
	}

	var resp cartResponse
	if err := m.api.Get(ctx, "/cart/", nil, &resp); err != nil {
		if pkgerrors.IsAuthExpiry(err) {
			m.replace(nil, time.Time{})
			return nil
		}
		return failure(err, "Failed to fetch cart")
	}

	m.replace(resp.Items, time.Now())
	m.logg.Debug(ctx, fmt.Sprintf("cart fetched: %d lines", len(resp.Items)))
	return nil
}

// AddToCart posts the mutation and then resynchronizes from the server. The
// local snapshot is never speculatively updated before that round trip.
func (m *Manager) AddToCart(ctx context.Context, productID int64, quantity int) error {
	if !m.auth.IsAuthenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, signInMessage)
	}
	req := addRequest{ProductID: productID, Quantity: quantity}
	if err := validate.Struct(req); err != nil {
		return err
	}

	if err := m.api.Post(ctx, "/cart/add/", req, nil); err != nil {
		return failure(err, "Failed to add item to cart")
	}
	return m.FetchCart(ctx)
}

// UpdateItem posts the new quantity and patches only the matching local
// line in place. This is the one mutation that skips the follow-up fetch.
func (m *Manager) UpdateItem(ctx context.Context, itemID int64, quantity int) error {
	req := updateRequest{Quantity: quantity}
	if err := validate.Struct(req); err != nil {
		return err
	}

	path := fmt.Sprintf("/cart/update/%d/", itemID)
	if err := m.api.Put(ctx, path, req, nil); err != nil {
		return failure(err, "Failed to update cart item")
	}

	m.mu.Lock()
	for i := range m.items {
		if m.items[i].ID == itemID {
			m.items[i].Quantity = quantity
			break
		}
	}
	m.mu.Unlock()
	return nil
}

// RemoveItem posts the deletion and drops the matching local line.
func (m *Manager) RemoveItem(ctx context.Context, itemID int64) error {
	path := fmt.Sprintf("/cart/remove/%d/", itemID)
	if err := m.api.Delete(ctx, path, nil); err != nil {
		return failure(err, "Failed to remove cart item")
	}

	m.mu.Lock()
	kept := m.items[:0]
	for _, line := range m.items {
		if line.ID != itemID {
			kept = append(kept, line)
		}
	}
	m.items = kept
	m.mu.Unlock()
	return nil
}

// Clear posts the wipe and empties the local snapshot.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.api.Delete(ctx, "/cart/clear/", nil); err != nil {
		return failure(err, "Failed to clear cart")
	}

	m.mu.Lock()
	m.items = nil
	m.mu.Unlock()
	return nil
}

// FetchSummary returns the server-computed totals without touching the
// snapshot.
func (m *Manager) FetchSummary(ctx context.Context) (*Summary, error) {
	var summary Summary
	if err := m.api.Get(ctx, "/cart/summary/", nil, &summary); err != nil {
		return nil, failure(err, "Failed to get cart summary")
	}
	return &summary, nil
}

// Reset clears all in-memory cart state without any server interaction.
// Used on logout.
func (m *Manager) Reset() {
	m.replace(nil, time.Time{})
}

// Items returns a copy of the snapshot.
func (m *Manager) Items() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Line, len(m.items))
	copy(out, m.items)
	return out
}

// LastUpdated reports when the snapshot was last confirmed by the server.
func (m *Manager) LastUpdated() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdated
}

// TotalItems sums the quantities across all lines.
func (m *Manager) TotalItems() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, line := range m.items {
		total += line.Quantity
	}
	return total
}

// TotalAmount sums price times quantity across all lines.
func (m *Manager) TotalAmount() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, line := range m.items {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// ItemsCount returns the number of lines.
func (m *Manager) ItemsCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// IsEmpty reports whether the snapshot has no lines.
func (m *Manager) IsEmpty() bool {
	return m.ItemsCount() == 0
}

// ItemFor returns the line holding the given product, if any.
func (m *Manager) ItemFor(productID int64) (Line, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range m.items {
		if line.ProductID == productID {
			return line, true
		}
	}
	return Line{}, false
}

// Contains reports whether the product has a line in the cart.
func (m *Manager) Contains(productID int64) bool {
	_, ok := m.ItemFor(productID)
	return ok
}

func (m *Manager) replace(items []Line, updated time.Time) {
	m.mu.Lock()
	m.items = items
	m.lastUpdated = updated
	m.mu.Unlock()
}

// failure keeps the server-supplied message when the backend answered and
// falls back to a generic message otherwise, preserving the error code.
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
