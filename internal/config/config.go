// Package config loads service configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// API configures cmd/api.
type API struct {
	Port         string   `env:"PORT" envDefault:"8080"`
	PostgresURL  string   `env:"POSTGRES_URL,required"`
	KafkaBrokers []string `env:"KAFKA_BROKERS,required" envSeparator:","`

	TripayBaseURL      string        `env:"TRIPAY_BASE_URL" envDefault:"https://tripay.co.id/api-sandbox"`
	TripayMerchantCode string        `env:"TRIPAY_MERCHANT_CODE,required"`
	TripayAPIKey       string        `env:"TRIPAY_API_KEY,required"`
	TripayPrivateKey   string        `env:"TRIPAY_PRIVATE_KEY,required"`
	GatewayTimeout     time.Duration `env:"TRIPAY_TIMEOUT" envDefault:"30s"`

	FrontendURL   string        `env:"FRONTEND_URL" envDefault:"https://aksesgptmurah.tech"`
	CheckoutTTL   time.Duration `env:"CHECKOUT_TTL" envDefault:"4h"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// Worker configures cmd/worker.
type Worker struct {
	KafkaBrokers      []string `env:"KAFKA_BROKERS,required" envSeparator:","`
	InvitesServiceURL string   `env:"INVITES_SERVICE_URL,required"`
	OrderAPIURL       string   `env:"ORDER_API_URL,required"`
}

// Invites configures cmd/invites.
type Invites struct {
	Port string `env:"PORT" envDefault:"8084"`
}

// Load merges a .env file (never overriding variables already set) and
// parses the environment into target.
func Load(target any) error {
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				_ = os.Setenv(k, v)
			}
		}
	}

	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
