package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tableside/api/internal/auth"
	"github.com/tableside/api/internal/config"
	"github.com/tableside/api/internal/database"
	"github.com/tableside/api/internal/enum"
	"github.com/tableside/api/internal/logger"
	"go.uber.org/zap"
)

type seedItem struct {
	name  string
	qty   int32
	price string
}

var defaultMenu = []seedItem{
	{"Pizza", 10, "10.00"},
	{"Burger", 15, "8.00"},
	{"French Fries", 20, "3.50"},
	{"Coke", 30, "2.00"},
}

func main() {
	// CLI flags
	migrate := flag.Bool("migrate", true, "Apply migrations before seeding")
	tokens := flag.Bool("tokens", true, "Print a development token for each role")
	table := flag.Int("table", 1, "Table number for the CUSTOMER token")
	ttl := flag.Duration("ttl", 24*time.Hour, "Lifetime of the printed tokens")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.ForEnv(cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if *migrate {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("unable to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal("unable to ping database", zap.Error(err))
	}
	log.Info("connected to database")

	// Seed in a transaction so a partial menu is never left behind
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal("failed to begin transaction", zap.Error(err))
	}
	defer tx.Rollback(ctx)

	q := database.New(pool).WithTx(tx)
	for _, it := range defaultMenu {
		item, err := q.UpsertMenuItem(ctx, database.UpsertMenuItemParams{
			Name:         it.name,
			AvailableQty: it.qty,
			Price:        decimal.NewNullDecimal(decimal.RequireFromString(it.price)),
		})
		if err != nil {
			log.Fatal("failed to seed menu item", zap.String("name", it.name), zap.Error(err))
		}
		log.Info("menu item seeded",
			zap.String("name", item.Name),
			zap.Int32("available_qty", item.AvailableQty),
			zap.String("price", item.UnitPrice().StringFixed(2)))
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatal("failed to commit transaction", zap.Error(err))
	}

	if !*tokens {
		return
	}

	fmt.Println()
	fmt.Println("=== Development tokens ===")
	for _, role := range []string{enum.RoleManager, enum.RoleWaiter, enum.RoleCook, enum.RoleCustomer} {
		var tableNumber int32
		if role == enum.RoleCustomer {
			tableNumber = int32(*table)
		}
		tok, err := auth.GenerateToken(cfg.JWTSecret, uuid.New(), role, tableNumber, *ttl)
		if err != nil {
			log.Fatal("failed to generate token", zap.String("role", role), zap.Error(err))
		}
		if tableNumber > 0 {
			fmt.Printf("%-9s (table %d) %s\n", role, tableNumber, tok)
			continue
		}
		fmt.Printf("%-9s %s\n", role, tok)
	}
}
