// Package storefront assembles the full client: configuration, logging,
// the credential store, the session, the transport and the per-domain
// managers, wired together in the right order.
package storefront

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/s6ptember/shopfront/internal/cart"
	"github.com/s6ptember/shopfront/internal/catalog"
	"github.com/s6ptember/shopfront/internal/orders"
	"github.com/s6ptember/shopfront/internal/session"
	"github.com/s6ptember/shopfront/pkg/config"
	"github.com/s6ptember/shopfront/pkg/credstore"
	"github.com/s6ptember/shopfront/pkg/logger"
	"github.com/s6ptember/shopfront/pkg/metrics"
	"github.com/s6ptember/shopfront/pkg/nav"
	"github.com/s6ptember/shopfront/pkg/transport"
)

// Client is the assembled storefront.
type Client struct {
	Session *session.Manager
	Cart    *cart.Manager
	Catalog *catalog.Manager
	Orders  *orders.Manager

	cfg     *config.Config
	logg    *logger.Logger
	store   credstore.Store
	api     *transport.Client
	tracker *nav.Tracker
}

// Option overrides a default collaborator.
type Option func(*options)

type options struct {
	logg     *logger.Logger
	store    credstore.Store
	registry prometheus.Registerer
}

// WithLogger replaces the logger built from the config.
func WithLogger(logg *logger.Logger) Option {
	return func(o *options) { o.logg = logg }
}

// WithCredentialStore replaces the bbolt-backed store. Useful for tests
// and for hosts that manage credentials themselves.
func WithCredentialStore(store credstore.Store) Option {
	return func(o *options) { o.store = store }
}

// WithMetricsRegistry sets where client metrics register when enabled.
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// New wires a client from the config. Call Initialize before first use and
// Close when done.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logg := o.logg
	if logg == nil {
		logg = logger.New(logger.Options{
			ServiceName: "shopfront",
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		})
	}

	store := o.store
	if store == nil {
		bolt, err := credstore.NewBoltStoreFromFile(cfg.Store.Path, nil)
		if err != nil {
			return nil, err
		}
		store = bolt
	}

	sess := session.NewManager(store, logg)
	tracker := nav.NewTracker(nav.NewGuard(nav.DefaultRoutes(), sess))

	transportOpts := []transport.Option{
		transport.WithTimeout(cfg.API.Timeout),
		transport.WithNavigator(tracker),
		transport.WithLoginPath(cfg.API.LoginPath),
		transport.WithLogger(logg),
	}
	if cfg.Metrics.Enabled {
		reg := o.registry
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		transportOpts = append(transportOpts, transport.WithMetrics(metrics.NewClientMetrics(reg)))
	}
	if cfg.API.Tracing {
		transportOpts = append(transportOpts, transport.WithTracing())
	}

	api, err := transport.NewClient(cfg.API.BaseURL, sess, transportOpts...)
	if err != nil {
		return nil, err
	}
	sess.Bind(api)

	return &Client{
		Session: sess,
		Cart:    cart.NewManager(sess, api, logg),
		Catalog: catalog.NewManager(api, logg, cfg.Catalog.PageSize),
		Orders:  orders.NewManager(sess, api, logg),
		cfg:     cfg,
		logg:    logg,
		store:   store,
		api:     api,
		tracker: tracker,
	}, nil
}

// Initialize hydrates the session from the credential store and, when a
// user comes back signed in, loads their cart.
func (c *Client) Initialize(ctx context.Context) error {
	if err := c.Session.Initialize(ctx); err != nil {
		return err
	}
	if c.Session.IsAuthenticated() {
		if err := c.Cart.FetchCart(ctx); err != nil {
			c.logg.Warn(ctx, "loading cart on startup: "+err.Error())
		}
	}
	return nil
}

// Logout ends the session and drops all cart state.
func (c *Client) Logout(ctx context.Context) {
	c.Session.Logout(ctx)
	c.Cart.Reset()
}

// Navigate moves the client to a path, subject to the route guard.
func (c *Client) Navigate(path string) {
	c.tracker.NavigateTo(path)
}

// CurrentPath reports where the client currently is.
func (c *Client) CurrentPath() string {
	return c.tracker.CurrentPath()
}

// Logger exposes the shared logger.
func (c *Client) Logger() *logger.Logger {
	return c.logg
}

// Close releases the credential store.
func (c *Client) Close() error {
	if closer, ok := c.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
