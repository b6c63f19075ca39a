package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bidtide/auction-backend/internal/config"
	"github.com/bidtide/auction-backend/internal/db"
	"github.com/bidtide/auction-backend/internal/model"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type seedAuction struct {
	Seller        string
	Title         string
	Description   string
	StartingPrice string
	MinIncrement  string
	Listed        bool
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var existing int64
	if err := gdb.Model(&model.Auction{}).Count(&existing).Error; err != nil {
		return fmt.Errorf("count auctions: %w", err)
	}
	if existing > 0 && os.Getenv("FORCE_SEED") != "true" {
		log.Printf("auctions already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	now := time.Now().UTC()
	for _, sa := range buildSeedAuctions() {
		startingPrice, err := decimal.NewFromString(sa.StartingPrice)
		if err != nil {
			return fmt.Errorf("seed %q: %w", sa.Title, err)
		}
		minIncrement, err := decimal.NewFromString(sa.MinIncrement)
		if err != nil {
			return fmt.Errorf("seed %q: %w", sa.Title, err)
		}
		endsAt := now.Add(cfg.BidDuration)
		a := model.Auction{
			SellerUID:     sa.Seller,
			Title:         sa.Title,
			Description:   sa.Description,
			StartingPrice: startingPrice,
			MinIncrement:  minIncrement,
			Status:        model.AuctionStatusPending,
			EndsAt:        &endsAt,
		}
		if sa.Listed {
			a.Status = model.AuctionStatusListed
			a.AdminFeePaid = true
		}
		if err := gdb.Create(&a).Error; err != nil {
			return fmt.Errorf("create %q: %w", sa.Title, err)
		}
		log.Printf("seeded auction %d: %s (%s)", a.ID, a.Title, a.Status)
	}
	return nil
}

func buildSeedAuctions() []seedAuction {
	return []seedAuction{
		{Seller: "seed-seller-1", Title: "Vintage film camera", Description: "Fully working 35mm SLR with a 50mm lens.", StartingPrice: "120.00", MinIncrement: "5.00", Listed: true},
		{Seller: "seed-seller-1", Title: "Mechanical keyboard", Description: "Hot-swappable, barely used.", StartingPrice: "60.00", MinIncrement: "2.50", Listed: true},
		{Seller: "seed-seller-2", Title: "Road bike frame", Description: "Aluminium frame, size 54.", StartingPrice: "250.00", MinIncrement: "10.00", Listed: true},
		{Seller: "seed-seller-2", Title: "Studio monitor pair", Description: "5-inch nearfields, minor scuffs.", StartingPrice: "180.00", MinIncrement: "10.00"},
		{Seller: "seed-seller-3", Title: "Espresso machine", Description: "Single boiler, recently descaled.", StartingPrice: "90.00", MinIncrement: "5.00"},
	}
}
