package config

import (
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	Port       string `env:"PORT" envDefault:"8080"`
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD,required"`
	DBHost     string `env:"DB_HOST,required"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName     string `env:"DB_NAME,required"`
	DBPort     string `env:"DB_PORT" envDefault:"3306"`

	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`

	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID"`

	// How long an auction accepts bids once the admin fee clears.
	BidDuration time.Duration `env:"BID_DURATION" envDefault:"72h"`
	// How often the settlement sweeper scans for expired auctions.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"60s"`
	// Minimum gap between two outbid notifications to the same bidder
	// on the same auction.
	OutbidCooldown time.Duration `env:"OUTBID_COOLDOWN" envDefault:"5m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
