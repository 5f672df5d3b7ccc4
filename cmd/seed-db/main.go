// Command seed-db populates a development database with zones, users,
// restaurants, menu items, and promo codes.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/chowline/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		restaurants int
		customers   int
		agents      int
		seed        int64
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&restaurants, "restaurants", 5, "number of restaurants to seed")
	flag.IntVar(&customers, "customers", 20, "number of customers to seed")
	flag.IntVar(&agents, "agents", 8, "number of delivery agents to seed")
	flag.Int64Var(&seed, "seed", 0, "fake data seed (0 = random)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, restaurants, customers, agents, seed); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string, restaurants, customers, agents int, seed int64) error {
	faker := gofakeit.New(uint64(seed))

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	zoneIDs, err := seedZones(ctx, pool, faker)
	if err != nil {
		return errors.Wrap(err, "seed zones")
	}
	slog.Info("zones seeded", slog.Int("count", len(zoneIDs)))

	for i := range customers {
		if err := seedUser(ctx, pool, faker, "customer", nil); err != nil {
			return errors.Wrapf(err, "seed customer %d", i)
		}
	}
	slog.Info("customers seeded", slog.Int("count", customers))

	for i := range agents {
		zones := []uuid.UUID{zoneIDs[i%len(zoneIDs)]}
		if err := seedUser(ctx, pool, faker, "delivery", zones); err != nil {
			return errors.Wrapf(err, "seed agent %d", i)
		}
	}
	slog.Info("agents seeded", slog.Int("count", agents))

	for i := range restaurants {
		if err := seedRestaurant(ctx, pool, faker, zoneIDs[i%len(zoneIDs)]); err != nil {
			return errors.Wrapf(err, "seed restaurant %d", i)
		}
	}
	slog.Info("restaurants seeded", slog.Int("count", restaurants))

	return nil
}

func seedZones(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker) ([]uuid.UUID, error) {
	names := []string{"Central", "North", "South", "Riverside"}
	ids := make([]uuid.UUID, len(names))
	city := faker.City()

	for i, name := range names {
		ids[i] = uuid.New()
		if _, err := pool.Exec(ctx, `
			INSERT INTO zones (id, name, city) VALUES ($1, $2, $3)`,
			ids[i], name, city); err != nil {
			return nil, errors.Wrapf(err, "inserting zone %q", name)
		}
	}
	return ids, nil
}

func seedUser(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, role string, zones []uuid.UUID) error {
	id := uuid.New()
	status := "offline"
	if role == "delivery" {
		status = "active"
	}
	if zones == nil {
		zones = []uuid.UUID{}
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO users (id, role, name, email, delivery_status, active_zones)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, role, faker.Name(), faker.Email(), status, zones); err != nil {
		return errors.Wrapf(err, "inserting %s user", role)
	}
	return nil
}

func seedRestaurant(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, zoneID uuid.UUID) error {
	ownerID := uuid.New()
	restID := uuid.New()
	name := faker.Company() + " Kitchen"

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (id, role, name, email)
			VALUES ($1, 'restaurant', $2, $3)`,
			ownerID, faker.Name(), faker.Email()); err != nil {
			return errors.Wrap(err, "inserting owner")
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO restaurants (id, owner_id, name, status, zone_id)
			VALUES ($1, $2, $3, 'active', $4)`,
			restID, ownerID, name, zoneID); err != nil {
			return errors.Wrapf(err, "inserting restaurant %q", name)
		}

		for range faker.Number(6, 12) {
			price := decimal.NewFromInt(int64(faker.Number(40, 400)))
			if _, err := tx.Exec(ctx, `
				INSERT INTO menu_items (id, restaurant_id, name, price)
				VALUES ($1, $2, $3, $4)`,
				uuid.New(), restID, faker.Dinner(), price); err != nil {
				return errors.Wrap(err, "inserting menu item")
			}
		}

		// One capped percentage code and one fixed code per restaurant.
		expires := time.Now().AddDate(0, 1, 0)
		if _, err := tx.Exec(ctx, `
			INSERT INTO promo_codes (restaurant_id, code, discount, kind, min_order, max_discount, expires_at, usage_limit)
			VALUES ($1, 'SAVE20', 20, 'percentage', 100, 50, $2, 100)`,
			restID, expires); err != nil {
			return errors.Wrap(err, "inserting percentage promo")
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO promo_codes (restaurant_id, code, discount, kind, min_order, expires_at)
			VALUES ($1, 'FLAT50', 50, 'fixed', 200, $2)`,
			restID, expires); err != nil {
			return errors.Wrap(err, "inserting fixed promo")
		}
		return nil
	})
}
