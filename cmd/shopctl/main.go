package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"

	"github.com/s6ptember/shopfront/internal/catalog"
	"github.com/s6ptember/shopfront/internal/orders"
	"github.com/s6ptember/shopfront/internal/session"
	"github.com/s6ptember/shopfront/pkg/config"
	"github.com/s6ptember/shopfront/pkg/logger"
	"github.com/s6ptember/shopfront/pkg/storefront"
)

const usage = `usage: shopctl <command> [flags]

commands:
  login      -email -password        sign in and persist the session
  logout                             end the session
  profile                            show the signed-in user
  profile-update [-first] [-last] [-phone] [-address]
  products   [-search] [-category] [-page]
  product    -id                     show one product
  cart                               show the cart
  cart-add   -product -qty           add an item to the cart
  orders                             list orders
  order      -id                     show one order
  order-new  -address                place an order from the cart
  stats                              order statistics
`

func main() {
	logg := logger.New(logger.Options{ServiceName: "shopctl"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Debug(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	client, err := storefront.New(cfg)
	if err != nil {
		logg.Error(ctx, "failed to build client", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing credential store", err)
		}
	}()

	if err := client.Initialize(ctx); err != nil {
		logg.Error(ctx, "failed to initialize session", err)
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(ctx, client, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *storefront.Client, command string, args []string) error {
	switch command {
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		_ = fs.Parse(args)
		creds := session.Credentials{Email: *email, Password: *password}
		if err := client.Session.Login(ctx, creds); err != nil {
			return err
		}
		fmt.Printf("signed in as %s\n", client.Session.UserName())
		return nil

	case "logout":
		client.Logout(ctx)
		fmt.Println("signed out")
		return nil

	case "profile":
		if err := client.Session.FetchProfile(ctx); err != nil {
			return err
		}
		user := client.Session.User()
		if user == nil {
			return fmt.Errorf("not signed in")
		}
		fmt.Printf("%s <%s>\n", client.Session.UserName(), user.Email)
		return nil

	case "profile-update":
		fs := flag.NewFlagSet("profile-update", flag.ExitOnError)
		first := fs.String("first", "", "first name")
		last := fs.String("last", "", "last name")
		phone := fs.String("phone", "", "phone number")
		address := fs.String("address", "", "address")
		_ = fs.Parse(args)
		update := session.ProfileUpdate{
			FirstName: *first,
			LastName:  *last,
			Phone:     *phone,
			Address:   *address,
		}
		if err := client.Session.UpdateProfile(ctx, update); err != nil {
			return err
		}
		fmt.Printf("profile saved for %s\n", client.Session.UserName())
		return nil

	case "products":
		fs := flag.NewFlagSet("products", flag.ExitOnError)
		search := fs.String("search", "", "search term")
		category := fs.Int64("category", 0, "category id")
		page := fs.Int("page", 1, "page number")
		_ = fs.Parse(args)
		var filters []catalog.FilterOption
		if *search != "" {
			filters = append(filters, catalog.WithSearch(*search))
		}
		if *category > 0 {
			filters = append(filters, catalog.WithCategory(*category))
		}
		if len(filters) > 0 {
			client.Catalog.SetFilters(filters...)
		}
		client.Catalog.SetPage(*page)
		if err := client.Catalog.FetchProducts(ctx, nil); err != nil {
			return err
		}
		for _, p := range client.Catalog.Products() {
			fmt.Printf("%6d  %-40s %10s  stock %d\n", p.ID, p.Name, p.Price.StringFixed(2), p.StockQuantity)
		}
		pg := client.Catalog.Pagination()
		fmt.Printf("page %d of %d (%d products)\n", pg.CurrentPage, pg.TotalPages, pg.TotalCount)
		return nil

	case "product":
		fs := flag.NewFlagSet("product", flag.ExitOnError)
		id := fs.Int64("id", 0, "product id")
		_ = fs.Parse(args)
		p, err := client.Catalog.FetchProduct(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n%s\nprice %s, stock %d\n",
			p.Name, p.CategoryName, p.Description, p.Price.StringFixed(2), p.StockQuantity)
		return nil

	case "cart":
		if err := client.Cart.FetchCart(ctx); err != nil {
			return err
		}
		for _, line := range client.Cart.Items() {
			fmt.Printf("%6d  %-40s x%d %10s\n", line.ProductID, line.ProductName, line.Quantity, line.Price.StringFixed(2))
		}
		fmt.Printf("total %s for %d items\n", client.Cart.TotalAmount().StringFixed(2), client.Cart.TotalItems())
		return nil

	case "cart-add":
		fs := flag.NewFlagSet("cart-add", flag.ExitOnError)
		product := fs.Int64("product", 0, "product id")
		qty := fs.Int("qty", 1, "quantity")
		_ = fs.Parse(args)
		if err := client.Cart.AddToCart(ctx, *product, *qty); err != nil {
			return err
		}
		fmt.Printf("cart now holds %d items\n", client.Cart.TotalItems())
		return nil

	case "orders":
		list, err := client.Orders.List(ctx, url.Values{})
		if err != nil {
			return err
		}
		for _, o := range list {
			fmt.Printf("%6d  %-10s %10s  %s\n", o.ID, o.Status, o.TotalAmount.StringFixed(2), o.CreatedAt.Format("2006-01-02"))
		}
		return nil

	case "order":
		fs := flag.NewFlagSet("order", flag.ExitOnError)
		id := fs.Int64("id", 0, "order id")
		_ = fs.Parse(args)
		o, err := client.Orders.Get(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("order %d (%s), total %s\nship to: %s\n", o.ID, o.Status, o.TotalAmount.StringFixed(2), o.ShippingAddress)
		for _, item := range o.Items {
			fmt.Printf("  %-40s x%d %10s\n", item.ProductName, item.Quantity, item.Subtotal.StringFixed(2))
		}
		return nil

	case "order-new":
		fs := flag.NewFlagSet("order-new", flag.ExitOnError)
		address := fs.String("address", "", "shipping address")
		_ = fs.Parse(args)
		o, err := client.Orders.Create(ctx, orders.CreateInput{ShippingAddress: *address})
		if err != nil {
			return err
		}
		fmt.Printf("order %d placed, total %s\n", o.ID, o.TotalAmount.StringFixed(2))
		return nil

	case "stats":
		stats, err := client.Orders.Statistics(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("orders: %d total, %d pending, %d delivered, %d cancelled\nspent: %s\n",
			stats.TotalOrders, stats.PendingOrders, stats.DeliveredOrders,
			stats.CancelledOrders, stats.TotalSpent.StringFixed(2))
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
