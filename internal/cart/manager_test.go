package cart

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/s6ptember/shopfront/pkg/errors"
	"github.com/s6ptember/shopfront/pkg/logger"
)

type fakeAuth struct{ authed bool }

func (f fakeAuth) IsAuthenticated() bool { return f.authed }

// fakeAPI scripts responses per path and records every call in order.
type fakeAPI struct {
	calls   []string
	cart    cartResponse
	summary Summary
	getErr  error
	postErr error
	putErr  error
	delErr  error
}

func (f *fakeAPI) Get(_ context.Context, path string, _ url.Values, out any) error {
	f.calls = append(f.calls, "GET "+path)
	if f.getErr != nil {
		return f.getErr
	}
	switch v := out.(type) {
	case *cartResponse:
		*v = f.cart
	case *Summary:
		*v = f.summary
	}
	return nil
}

func (f *fakeAPI) Post(_ context.Context, path string, _, _ any) error {
	f.calls = append(f.calls, "POST "+path)
	return f.postErr
}

func (f *fakeAPI) Put(_ context.Context, path string, _, _ any) error {
	f.calls = append(f.calls, "PUT "+path)
	return f.putErr
}

func (f *fakeAPI) Delete(_ context.Context, path string, _ any) error {
	f.calls = append(f.calls, "DELETE "+path)
	return f.delErr
}

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newManagerWith(api *fakeAPI, authed bool) *Manager {
	return NewManager(fakeAuth{authed: authed}, api, testLogger())
}

func serverCart(lines ...Line) cartResponse {
	return cartResponse{ID: 1, UserID: 1, Items: lines}
}

func TestFetchCartUnauthenticatedShortCircuits(t *testing.T) {
	api := &fakeAPI{}
	m := newManagerWith(api, false)

	if err := m.FetchCart(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !m.IsEmpty() {
		t.Fatalf("expected empty cart")
	}
	if len(api.calls) != 0 {
		t.Fatalf("anonymous fetch must not hit the network, got %v", api.calls)
	}
}

func TestFetchCartReplacesSnapshotWholesale(t *testing.T) {
	api := &fakeAPI{cart: serverCart(
		Line{ID: 1, ProductID: 7, Quantity: 2, Price: price("12.50")},
	)}
	m := newManagerWith(api, true)

	if err := m.FetchCart(context.Background()); err != nil {
		t.Fatalf("FetchCart: %v", err)
	}
	if m.ItemsCount() != 1 {
		t.Fatalf("expected 1 line, got %d", m.ItemsCount())
	}
	if m.LastUpdated().IsZero() {
		t.Fatalf("expected fetch timestamp recorded")
	}

	// The server's next answer fully replaces the snapshot, stale local
	// lines do not survive.
	api.cart = serverCart(
		Line{ID: 2, ProductID: 9, Quantity: 1, Price: price("3.00")},
	)
	if err := m.FetchCart(context.Background()); err != nil {
		t.Fatalf("FetchCart: %v", err)
	}
	items := m.Items()
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("expected wholesale replacement, got %+v", items)
	}
}

func TestFetchCartAuthRejectionIsNoCartNotError(t *testing.T) {
	api := &fakeAPI{getErr: pkgerrors.New(pkgerrors.CodeForbidden, "").WithStatus(http.StatusForbidden)}
	m := newManagerWith(api, true)

	if err := m.FetchCart(context.Background()); err != nil {
		t.Fatalf("auth rejection should yield an empty cart, got %v", err)
	}
	if !m.IsEmpty() {
		t.Fatalf("expected empty cart after auth rejection")
	}
}

func TestFetchCartOtherFailuresSurface(t *testing.T) {
	api := &fakeAPI{getErr: pkgerrors.New(pkgerrors.CodeDependency, "").WithStatus(http.StatusInternalServerError)}
	m := newManagerWith(api, true)

	if err := m.FetchCart(context.Background()); err == nil {
		t.Fatalf("expected server failure to surface")
	}
}

func TestAddToCartUnauthenticatedIsLocalError(t *testing.T) {
	api := &fakeAPI{}
	m := newManagerWith(api, false)

	err := m.AddToCart(context.Background(), 7, 2)
	if err == nil {
		t.Fatalf("expected permission error")
	}
	if got := pkgerrors.MessageOr(err, ""); got != "Please sign in to add items to cart" {
		t.Fatalf("unexpected message %q", got)
	}
	if len(api.calls) != 0 {
		t.Fatalf("unauthenticated add must not hit the network, got %v", api.calls)
	}
}

func TestAddToCartResyncsFromServer(t *testing.T) {
	api := &fakeAPI{cart: serverCart(
		Line{ID: 1, ProductID: 7, Quantity: 2, Price: price("12.50")},
	)}
	m := newManagerWith(api, true)

	if err := m.AddToCart(context.Background(), 7, 2); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	want := []string{"POST /cart/add/", "GET /cart/"}
	if len(api.calls) != len(want) || api.calls[0] != want[0] || api.calls[1] != want[1] {
		t.Fatalf("expected post-then-resync, got %v", api.calls)
	}

	// The snapshot is exactly the server's cart, never a local guess.
	items := m.Items()
	if len(items) != 1 || items[0].ID != 1 || items[0].Quantity != 2 {
		t.Fatalf("snapshot must equal the server cart, got %+v", items)
	}
}

func TestAddToCartRejectsNonPositiveQuantity(t *testing.T) {
	api := &fakeAPI{}
	m := newManagerWith(api, true)

	if err := m.AddToCart(context.Background(), 7, 0); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(api.calls) != 0 {
		t.Fatalf("invalid quantity must not hit the network")
	}
}

func TestUpdateItemPatchesOnlyTargetLine(t *testing.T) {
	api := &fakeAPI{cart: serverCart(
		Line{ID: 1, ProductID: 7, Quantity: 2, Price: price("12.50")},
		Line{ID: 2, ProductID: 9, Quantity: 1, Price: price("3.00")},
	)}
	m := newManagerWith(api, true)
	if err := m.FetchCart(context.Background()); err != nil {
		t.Fatalf("FetchCart: %v", err)
	}
	api.calls = nil

	if err := m.UpdateItem(context.Background(), 1, 5); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	if len(api.calls) != 1 || api.calls[0] != "PUT /cart/update/1/" {
		t.Fatalf("update must not refetch, got %v", api.calls)
	}
	items := m.Items()
	if len(items) != 2 {
		t.Fatalf("line count must not change, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("target line quantity should be patched, got %d", items[0].Quantity)
	}
	if items[1].Quantity != 1 {
		t.Fatalf("other lines must be untouched, got %d", items[1].Quantity)
	}
}

func TestRemoveItemDropsMatchingLine(t *testing.T) {
	api := &fakeAPI{cart: serverCart(
		Line{ID: 1, ProductID: 7, Quantity: 2, Price: price("12.50")},
		Line{ID: 2, ProductID: 9, Quantity: 1, Price: price("3.00")},
	)}
	m := newManagerWith(api, true)
	if err := m.FetchCart(context.Background()); err != nil {
		t.Fatalf("FetchCart: %v", err)
	}

	if err := m.RemoveItem(context.Background(), 1); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	items := m.Items()
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("expected line 1 dropped, got %+v", items)
	}
}

func TestClearEmptiesSnapshot(t *testing.T) {
	api := &fakeAPI{cart: serverCart(
		Line{ID: 1, ProductID: 7, Quantity: 2, Price: price("12.50")},
	)}
	m := newManagerWith(api, true)
	if err := m.FetchCart(context.Background()); err != nil {
		t.Fatalf("FetchCart: %v", err)
	}

	if err := m.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if !m.IsEmpty() {
		t.Fatalf("expected empty cart after clear")
	}
}

func TestDerivedTotals(t *testing.T) {
	api := &fakeAPI{cart: serverCart(
		Line{ID: 1, ProductID: 7, Quantity: 2, Price: price("12.50")},
		Line{ID: 2, ProductID: 9, Quantity: 1, Price: price("3.00")},
	)}
	m := newManagerWith(api, true)
	if err := m.FetchCart(context.Background()); err != nil {
		t.Fatalf("FetchCart: %v", err)
	}

	if got := m.TotalItems(); got != 3 {
		t.Fatalf("TotalItems = %d, want 3", got)
	}
	if got := m.ItemsCount(); got != 2 {
		t.Fatalf("ItemsCount = %d, want 2", got)
	}
	if got := m.TotalAmount(); !got.Equal(price("28.00")) {
		t.Fatalf("TotalAmount = %s, want 28.00", got)
	}
	if m.IsEmpty() {
		t.Fatalf("cart should not be empty")
	}

	line, ok := m.ItemFor(9)
	if !ok || line.ID != 2 {
		t.Fatalf("ItemFor(9) = %+v, %v", line, ok)
	}
	if !m.Contains(7) || m.Contains(999) {
		t.Fatalf("Contains gave wrong answers")
	}
}

func TestResetClearsWithoutNetwork(t *testing.T) {
	api := &fakeAPI{cart: serverCart(
		Line{ID: 1, ProductID: 7, Quantity: 2, Price: price("12.50")},
	)}
	m := newManagerWith(api, true)
	if err := m.FetchCart(context.Background()); err != nil {
		t.Fatalf("FetchCart: %v", err)
	}
	api.calls = nil

	m.Reset()
	if !m.IsEmpty() {
		t.Fatalf("expected empty cart after reset")
	}
	if !m.LastUpdated().IsZero() {
		t.Fatalf("reset should drop the fetch timestamp")
	}
	if len(api.calls) != 0 {
		t.Fatalf("reset must not hit the network, got %v", api.calls)
	}
}

func TestFetchSummary(t *testing.T) {
	api := &fakeAPI{summary: Summary{TotalItems: 3, TotalAmount: price("28.00"), ItemsCount: 2}}
	m := newManagerWith(api, true)

	summary, err := m.FetchSummary(context.Background())
	if err != nil {
		t.Fatalf("FetchSummary: %v", err)
	}
	if summary.TotalItems != 3 || summary.ItemsCount != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
