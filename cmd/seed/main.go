package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nirvaan-oms/api/internal/config"
	"github.com/nirvaan-oms/api/internal/database"
	"github.com/nirvaan-oms/api/internal/logger"
	"github.com/nirvaan-oms/api/internal/service"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type seedProduct struct {
	name  string
	price int64
}

var defaultProducts = []seedProduct{
	{"NIRVAAN 5KG (100% PURE COCONUT OIL)", 10000},
	{"NIRVAAN 1L (100% PURE COCONUT OIL)", 2500},
}

func main() {
	// CLI flags
	email := flag.String("email", "", "User email address")
	password := flag.String("password", "", "User password")
	name := flag.String("name", "", "User full name")
	role := flag.String("role", "admin", "User role: admin or courier")
	products := flag.Bool("products", false, "Also seed the default product catalog")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Env())

	userRole := database.UserRole(strings.ToLower(*role))
	if userRole != database.UserRoleAdmin && userRole != database.UserRoleCourier {
		logger.Fatal().Str("role", *role).Msg("role must be admin or courier")
	}

	// Fall back to defaults
	if *email == "" {
		*email = string(userRole) + "@nirvaan.lk"
	}
	if *password == "" {
		*password = "password123"
		logger.Warn().Msg("using default password 'password123', change it immediately in production")
	}
	if *name == "" {
		*name = "Nirvaan " + strings.ToUpper(string(userRole[:1])) + string(userRole[1:])
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("unable to ping database")
	}
	logger.Info().Msg("connected to database")

	// Seed in a transaction: the user and catalog land together or not at all.
	tx, err := pool.Begin(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	q := database.New(pool).WithTx(tx)

	user, err := seedUser(ctx, q, strings.ToLower(strings.TrimSpace(*email)), *password, *name, userRole)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to seed user")
	}

	if *products {
		if err := seedProducts(ctx, q); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed products")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to commit")
	}

	logger.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("seed completed successfully")
}

// seedUser creates the user if it doesn't exist.
func seedUser(ctx context.Context, q *database.Queries, email, password, fullName string, role database.UserRole) (database.User, error) {
	existing, err := q.GetUserByEmail(ctx, email)
	if err == nil {
		logger.Info().Str("email", email).Str("id", existing.ID.String()).Msg("user already exists, skipping")
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.User{}, fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return database.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := q.CreateUser(ctx, database.CreateUserParams{
		Email:          email,
		HashedPassword: string(hashed),
		FullName:       fullName,
		Role:           role,
	})
	if err != nil {
		return database.User{}, fmt.Errorf("insert user: %w", err)
	}

	logger.Info().Str("email", email).Str("id", user.ID.String()).Msg("created user")
	return user, nil
}

// seedProducts adds the default catalog entries missing by name.
func seedProducts(ctx context.Context, q *database.Queries) error {
	existing, err := q.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[strings.ToLower(p.Name)] = true
	}

	for _, sp := range defaultProducts {
		if have[strings.ToLower(sp.name)] {
			logger.Info().Str("product", sp.name).Msg("product already exists, skipping")
			continue
		}
		p, err := q.CreateProduct(ctx, database.CreateProductParams{
			Name:           sp.name,
			Description:    pgtype.Text{},
			Price:          service.DecimalToNumeric(decimal.NewFromInt(sp.price)),
			DeliveryCharge: service.DecimalToNumeric(decimal.Zero),
			Status:         database.ProductStatusAvailable,
		})
		if err != nil {
			return fmt.Errorf("insert product %q: %w", sp.name, err)
		}
		logger.Info().Str("product", p.Name).Str("id", p.ID.String()).Msg("created product")
	}
	return nil
}
