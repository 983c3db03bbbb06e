package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promo"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/postgres"
)

type options struct {
	databaseURL  string
	productsFile string
	userKey      string
	adminKey     string
	pepper       string
	timezone     string
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&opts.userKey, "api-key", "", "API key of the demo shopper (or STORE_SEED_API_KEY env)")
	flag.StringVar(&opts.adminKey, "admin-key", "", "API key with the admin scope (or STORE_SEED_ADMIN_KEY env)")
	flag.StringVar(&opts.pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.StringVar(&opts.timezone, "timezone", "Asia/Ho_Chi_Minh", "time zone of discount-code dates")
	flag.Parse()

	opts.databaseURL = orEnv(opts.databaseURL, "DATABASE_URL")
	opts.userKey = orEnv(opts.userKey, "STORE_SEED_API_KEY")
	opts.adminKey = orEnv(opts.adminKey, "STORE_SEED_ADMIN_KEY")
	opts.pepper = orEnv(opts.pepper, "STORE_API_KEY_PEPPER")

	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.userKey == "" {
		slog.Error("API key is required: set --api-key or STORE_SEED_API_KEY")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func orEnv(v, env string) string {
	if v != "" {
		return v
	}
	return os.Getenv(env)
}

func run(ctx context.Context, opts options) error {
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return errors.Wrapf(err, "load timezone %q", opts.timezone)
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), opts.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedPromos(ctx, postgres.NewPromoRegistry(pool, loc), time.Now().In(loc)); err != nil {
		return errors.Wrap(err, "seed promos")
	}
	if err := seedAPIKeys(ctx, postgres.NewAPIKeyRepository(pool), opts); err != nil {
		return errors.Wrap(err, "seed api keys")
	}
	return nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, path string) error {
	slog.Info("reading products file", slog.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}
	products, err := decodeProducts(data)
	if err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))
	return repo.Upsert(ctx, products)
}

// decodeProducts parses the seed catalog, an array of product objects with
// prices in đồng.
func decodeProducts(data []byte) ([]product.Product, error) {
	var out []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var p product.Product
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				p.ID, err = d.Str()
			case "slug":
				p.Slug, err = d.Str()
			case "name":
				p.Name, err = d.Str()
			case "category":
				p.Category, err = d.Str()
			case "price":
				var v int64
				v, err = d.Int64()
				p.Price = money.Money(v)
			case "sale_price":
				if d.Next() == jx.Null {
					return d.Null()
				}
				var v int64
				v, err = d.Int64()
				sp := money.Money(v)
				p.SalePrice = &sp
			case "stock":
				p.Stock, err = d.Int()
			case "image":
				p.Image, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		})
		if err != nil {
			return err
		}
		if p.ID == "" || p.Slug == "" {
			return errors.New("product without id or slug")
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// seedPromos writes a small set of codes into both legacy registries,
// valid for a year from now.
func seedPromos(ctx context.Context, reg *postgres.PromoRegistry, now time.Time) error {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(1, 0, 0)

	coupons := []promo.Coupon{
		{Code: "SAVE10", Discount: decimal.NewFromInt(10), ValidFrom: start, ValidTo: end, Active: true},
		{Code: "HAPPYHOURS", Discount: decimal.NewFromInt(18), ValidFrom: start, ValidTo: end, Active: true},
		{Code: "EXPIRED5", Discount: decimal.NewFromInt(5), ValidFrom: start.AddDate(-1, 0, 0), ValidTo: start.AddDate(0, 0, -1), Active: true},
	}
	for _, c := range coupons {
		if _, err := promo.FromCoupon(c); err != nil {
			return errors.Wrapf(err, "coupon %s", c.Code)
		}
		if err := reg.UpsertCoupon(ctx, c); err != nil {
			return err
		}
		slog.Info("upserted coupon", slog.String("code", c.Code))
	}

	fifty := money.Money(50000)
	codes := []promo.DiscountCode{
		{Code: "FREESHIP50K", DiscountAmount: &fifty, StartDate: start, EndDate: end},
		{Code: "SUMMER15", DiscountPercentage: decimal.NewNullDecimal(decimal.NewFromInt(15)), StartDate: start, EndDate: end},
	}
	for _, d := range codes {
		if _, err := promo.FromDiscountCode(d, now.Location()); err != nil {
			return errors.Wrapf(err, "discount code %s", d.Code)
		}
		if err := reg.UpsertDiscountCode(ctx, d); err != nil {
			return err
		}
		slog.Info("upserted discount code", slog.String("code", d.Code))
	}
	return nil
}

func seedAPIKeys(ctx context.Context, repo *postgres.APIKeyRepository, opts options) error {
	sec := handler.NewSecurity(nil, []byte(opts.pepper))
	keys := []auth.APIKeyInfo{
		{ID: "demo", UserID: "demo-user", KeyHash: sec.Hash(opts.userKey), Name: "Demo shopper"},
	}
	if opts.adminKey != "" {
		keys = append(keys, auth.APIKeyInfo{
			ID: "admin", UserID: "operator", KeyHash: sec.Hash(opts.adminKey),
			Name: "Operator", Scopes: []string{auth.ScopeAdmin},
		})
	}
	for i := range keys {
		if err := repo.Upsert(ctx, &keys[i]); err != nil {
			return err
		}
		slog.Info("upserted API key", slog.String("id", keys[i].ID), slog.String("user", keys[i].UserID))
	}
	return nil
}
