// Command promo-import loads gzipped JSON-lines exports of the two legacy
// promo registries into Postgres.
//
// Coupons are imported first. Every coupon code goes into a bloom filter so
// that discount codes can skip the shadowing lookup when the filter rules a
// collision out. A discount code whose key is held by an active coupon is
// never imported, since checkout would always resolve the coupon.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/promo"
	"github.com/xenking/storefront/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
	maxLineSize   = 64 * 1024
)

type options struct {
	coupons       string
	discountCodes string
	databaseURL   string
	timezone      string
	workers       int
	dryRun        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.coupons, "coupons", "data/coupons.jsonl.gz", "gzipped JSON lines of coupon records")
	flag.StringVar(&opts.discountCodes, "discount-codes", "data/discount_codes.jsonl.gz", "gzipped JSON lines of discount-code records")
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.timezone, "timezone", "Asia/Ho_Chi_Minh", "time zone of discount-code dates")
	flag.IntVar(&opts.workers, "workers", 8, "concurrent upserts")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "validate only, do not write")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" && !opts.dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("promo import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("promo import completed successfully")
}

// registry is the slice of postgres.PromoRegistry the import needs.
type registry interface {
	promo.Registry
	UpsertCoupon(ctx context.Context, c promo.Coupon) error
	UpsertDiscountCode(ctx context.Context, d promo.DiscountCode) error
}

// stats counts outcomes of one import pass.
type stats struct {
	read     atomic.Int64
	written  atomic.Int64
	invalid  atomic.Int64
	shadowed atomic.Int64
}

func (s *stats) log(pass string) {
	slog.Info(pass+" complete",
		slog.Int64("read", s.read.Load()),
		slog.Int64("written", s.written.Load()),
		slog.Int64("invalid", s.invalid.Load()),
		slog.Int64("shadowed", s.shadowed.Load()),
	)
}

func run(ctx context.Context, opts options) error {
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return errors.Wrapf(err, "load timezone %q", opts.timezone)
	}
	for _, f := range []string{opts.coupons, opts.discountCodes} {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	var reg registry = dryRegistry{}
	if !opts.dryRun {
		pool, err := postgres.NewPool(ctx, opts.databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()
		reg = postgres.NewPromoRegistry(pool, loc)
	}

	imp := &importer{
		reg:     reg,
		loc:     loc,
		workers: max(opts.workers, 1),
		coupons: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
	}

	slog.Info("pass 1: coupons", slog.String("file", opts.coupons))
	var couponStats stats
	if err := imp.importCoupons(ctx, opts.coupons, &couponStats); err != nil {
		return errors.Wrap(err, "import coupons")
	}
	couponStats.log("pass 1")

	slog.Info("pass 2: discount codes", slog.String("file", opts.discountCodes))
	var codeStats stats
	if err := imp.importDiscountCodes(ctx, opts.discountCodes, &codeStats); err != nil {
		return errors.Wrap(err, "import discount codes")
	}
	codeStats.log("pass 2")
	return nil
}

type importer struct {
	reg     registry
	loc     *time.Location
	workers int
	// coupons holds every imported coupon code. It is only touched by the
	// reading goroutine.
	coupons *bloom.BloomFilter
}

func (imp *importer) importCoupons(ctx context.Context, path string, st *stats) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.workers)

	err := streamLines(ctx, path, func(line []byte) error {
		n := st.read.Add(1)
		if n%progressEvery == 0 {
			slog.Info("coupon progress", slog.Int64("read", n))
		}
		c, err := decodeCoupon(line)
		if err == nil {
			_, err = promo.FromCoupon(c)
		}
		if err != nil {
			st.invalid.Add(1)
			slog.Warn("skip coupon", slog.Int64("line", n), slog.String("error", err.Error()))
			return nil
		}
		c.Code = promo.Normalize(c.Code)
		if c.Active {
			imp.coupons.AddString(c.Code)
		}
		g.Go(func() error {
			if err := imp.reg.UpsertCoupon(ctx, c); err != nil {
				return err
			}
			st.written.Add(1)
			return nil
		})
		return nil
	})
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

func (imp *importer) importDiscountCodes(ctx context.Context, path string, st *stats) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.workers)

	err := streamLines(ctx, path, func(line []byte) error {
		n := st.read.Add(1)
		if n%progressEvery == 0 {
			slog.Info("discount code progress", slog.Int64("read", n))
		}
		d, err := decodeDiscountCode(line, imp.loc)
		if err == nil {
			_, err = promo.FromDiscountCode(d, imp.loc)
		}
		if err != nil {
			st.invalid.Add(1)
			slog.Warn("skip discount code", slog.Int64("line", n), slog.String("error", err.Error()))
			return nil
		}
		d.Code = promo.Normalize(d.Code)
		maybeShadowed := imp.coupons.TestString(d.Code)

		g.Go(func() error {
			if maybeShadowed {
				shadowed, err := imp.shadowedByCoupon(ctx, d.Code)
				if err != nil {
					return err
				}
				if shadowed {
					st.shadowed.Add(1)
					slog.Warn("discount code shadowed by coupon", slog.String("code", d.Code))
					return nil
				}
			}
			if err := imp.reg.UpsertDiscountCode(ctx, d); err != nil {
				return err
			}
			st.written.Add(1)
			return nil
		})
		return nil
	})
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

// shadowedByCoupon confirms a bloom hit against the registry, which resolves
// active coupons before discount codes.
func (imp *importer) shadowedByCoupon(ctx context.Context, code string) (bool, error) {
	c, err := imp.reg.FindByCode(ctx, code)
	switch {
	case errors.Is(err, promo.ErrNotFound):
		return false, nil
	case err != nil:
		return false, errors.Wrapf(err, "check coupon %s", code)
	}
	return c.Origin == promo.OriginCoupon, nil
}

// streamLines calls fn for every non-empty line of a gzip file. The slice
// passed to fn is only valid during the call.
func streamLines(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// dryRegistry accepts every write and knows no codes.
type dryRegistry struct{}

func (dryRegistry) FindByCode(context.Context, string) (*promo.Code, error) {
	return nil, promo.ErrNotFound
}
func (dryRegistry) UpsertCoupon(context.Context, promo.Coupon) error             { return nil }
func (dryRegistry) UpsertDiscountCode(context.Context, promo.DiscountCode) error { return nil }
