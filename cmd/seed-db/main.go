// Command seed-db bootstraps a fresh database: indexes, the initial
// super-admin account, and the sample product catalog.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/grainly/storefront/internal/domain/admin"
	"github.com/grainly/storefront/internal/domain/catalog"
	"github.com/grainly/storefront/internal/storage/mongodb"
)

func main() {
	_ = godotenv.Load()

	var (
		mongoURI      string
		mongoDB       string
		productsFile  string
		adminUsername string
		adminPassword string
		adminEmail    string
	)

	flag.StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection URI (or MONGODB_URI env)")
	flag.StringVar(&mongoDB, "mongo-db", "grainly", "MongoDB database name")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminUsername, "admin-username", "admin", "initial super-admin username")
	flag.StringVar(&adminPassword, "admin-password", "", "initial super-admin password (or GRAINLY_SEED_ADMIN_PASSWORD env)")
	flag.StringVar(&adminEmail, "admin-email", "admin@grainly.local", "initial super-admin email")
	flag.Parse()

	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}
	if mongoURI == "" {
		slog.Error("mongo URI is required: set --mongo-uri or MONGODB_URI")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("GRAINLY_SEED_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or GRAINLY_SEED_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, mongoURI, mongoDB, productsFile, adminUsername, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, mongoURI, mongoDB, productsFile, username, email, password string) error {
	slog.Info("connecting to database")

	db, err := mongodb.Connect(ctx, mongoURI, mongoDB)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer func() { _ = db.Close(context.Background()) }()

	slog.Info("creating indexes")

	if err := db.EnsureIndexes(ctx); err != nil {
		return errors.Wrap(err, "ensure indexes")
	}

	if err := seedAdmin(ctx, db, username, email, password); err != nil {
		return errors.Wrap(err, "seed admin")
	}

	if err := seedProducts(ctx, db, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

func seedAdmin(ctx context.Context, db *mongodb.DB, username, email, password string) error {
	repo := mongodb.NewAdminRepository(db)
	// TokenTTL is irrelevant here; the service is only used for its
	// create-with-hash path.
	svc := admin.NewService(repo, []byte("seed"), 0)

	_, err := svc.Create(ctx, admin.CreateRequest{
		Username: username,
		Email:    email,
		Password: password,
		Name:     "Super Admin",
		Role:     admin.RoleSuperAdmin,
	})
	if err != nil {
		if errors.Is(err, admin.ErrAlreadyExists) {
			slog.Info("admin already exists, skipping", slog.String("username", username))
			return nil
		}
		return err
	}

	slog.Info("created super-admin", slog.String("username", username))
	return nil
}

func seedProducts(ctx context.Context, db *mongodb.DB, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []catalog.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	repo := mongodb.NewProductRepository(db)
	existing, err := repo.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "count products")
	}
	if existing > 0 {
		slog.Info("products already seeded, skipping", slog.Int64("count", existing))
		return nil
	}

	slog.Info("inserting products", slog.Int("count", len(products)))

	for i := range products {
		p := &products[i]
		if err := p.Validate(); err != nil {
			return errors.Wrapf(err, "product %q", p.ItemName)
		}
		if err := repo.Create(ctx, p); err != nil {
			return errors.Wrapf(err, "insert product %q", p.ItemName)
		}
		slog.Info("inserted product",
			slog.String("itemName", p.ItemName),
			slog.String("flavour", p.Flavour),
		)
	}

	return nil
}
