// Command seed-products loads a catalog seed file into MongoDB. The file
// is a JSON array of products, optionally gzip-compressed. Records are
// streamed rather than slurped, deduplicated by name, and upserted
// concurrently, so large catalogs and repeated runs are both cheap.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/mini-store/internal/domain/product"
	storemongo "github.com/xenking/mini-store/internal/storage/mongo"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

func main() {
	var (
		mongoURI string
		database string
		file     string
		workers  int
	)

	flag.StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection URI (or MONGODB_URI env)")
	flag.StringVar(&database, "database", "store", "MongoDB database name")
	flag.StringVar(&file, "products-file", "db/seed/products.json", "products JSON file (.gz supported)")
	flag.IntVar(&workers, "workers", 4, "concurrent upsert workers")
	flag.Parse()

	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}
	if mongoURI == "" {
		slog.Error("mongo URI is required: set --mongo-uri or MONGODB_URI")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, mongoURI, database, file, workers); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, mongoURI, database, file string, workers int) error {
	db, err := storemongo.Connect(ctx, mongoURI, database)
	if err != nil {
		return errors.Wrap(err, "connect to mongodb")
	}
	defer func() { _ = db.Close(context.Background()) }()

	if err := db.EnsureIndexes(ctx); err != nil {
		return errors.Wrap(err, "ensure indexes")
	}

	repo := storemongo.NewProductRepository(db)

	records := make(chan *product.Product, workers*2)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(records)
		return streamProducts(ctx, file, records)
	})
	for range workers {
		g.Go(func() error {
			for p := range records {
				if err := repo.UpsertByName(ctx, p); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// streamProducts decodes the seed file incrementally and sends each valid,
// not-yet-seen product on out. Duplicate names within the file are skipped
// via a bloom filter; the false positive rate only ever skips a record,
// never double-inserts one.
func streamProducts(ctx context.Context, path string, out chan<- *product.Product) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var total, skipped uint64

	d := jx.Decode(reader, 1<<16)
	if err := d.Arr(func(d *jx.Decoder) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		total++

		if err := validate(p); err != nil {
			slog.Warn("skipping invalid record",
				slog.Uint64("index", total),
				slog.String("error", err.Error()),
			)
			skipped++
			return nil
		}
		if seen.TestAndAddString(p.Name) {
			skipped++
			return nil
		}

		select {
		case out <- p:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}

	slog.Info("seed file read",
		slog.Uint64("records", total),
		slog.Uint64("skipped", skipped),
	)
	return nil
}

// decodeProduct reads one product object from the stream.
func decodeProduct(d *jx.Decoder) (*product.Product, error) {
	now := time.Now()
	p := &product.Product{
		ID:        uuid.New().String(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			p.Name = v
			return err
		case "category":
			v, err := d.Str()
			p.Category = v
			return err
		case "price":
			n, err := d.Num()
			if err != nil {
				return err
			}
			price, err := decimal.NewFromString(n.String())
			p.Price = price
			return err
		case "discount":
			v, err := d.Int64()
			p.Discount = v
			return err
		case "stock":
			v, err := d.Int64()
			p.Stock = v
			return err
		case "image":
			v, err := d.Str()
			p.Image = v
			return err
		case "description":
			v, err := d.Str()
			p.Description = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}

	p.Derive()
	return p, nil
}

func validate(p *product.Product) error {
	switch {
	case p.Name == "":
		return errors.New("missing name")
	case p.Category == "":
		return errors.New("missing category")
	case p.Image == "":
		return errors.New("missing image")
	case p.Price.IsNegative():
		return errors.New("negative price")
	case p.Discount < product.MinDiscount || p.Discount > product.MaxDiscount:
		return errors.New("discount out of range")
	case p.Stock < 0:
		return errors.New("negative stock")
	}
	return nil
}
