package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/stepperslife/ticketing/internal/secrets"
)

type Config struct {
	HTTPAddr     string
	CRDBDSN      string
	MongoURI     string
	RedisAddr    string
	RabbitURL    string
	OfferTTL     time.Duration
	OTLPEndpoint string

	SquareAccessToken  string
	SquareEnvironment  string
	StripeAPIKey       string
	PayPalClientID     string
	PayPalClientSecret string
	PayPalAPIBase      string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	store := secrets.NewStore(os.Getenv("SECRETS_FILE"))

	offerTTL, _ := time.ParseDuration(os.Getenv("OFFER_TTL"))
	if offerTTL == 0 {
		offerTTL = 15 * time.Minute
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return &Config{
		HTTPAddr:     addr,
		CRDBDSN:      os.Getenv("CRDB_DSN"),
		MongoURI:     os.Getenv("MONGO_URI"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RabbitURL:    os.Getenv("RABBIT_URL"),
		OfferTTL:     offerTTL,
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		SquareAccessToken:  store.Get("SQUARE_ACCESS_TOKEN"),
		SquareEnvironment:  store.Get("SQUARE_ENVIRONMENT"),
		StripeAPIKey:       store.Get("STRIPE_API_KEY"),
		PayPalClientID:     store.Get("PAYPAL_CLIENT_ID"),
		PayPalClientSecret: store.Get("PAYPAL_CLIENT_SECRET"),
		PayPalAPIBase:      store.Get("PAYPAL_API_BASE"),
	}, nil
}
