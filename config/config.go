package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DebugMode turns on per-event logging in the demo runner.
var DebugMode = os.Getenv("DEBUG") == "true"

type Config struct {
	ProductID         string
	WebsocketEndpoint string
	RestEndpoint      string
	UseSandbox        bool
	MetricsAddr       string
	BookViewDepth     int
}

// Load reads the configuration from the environment, taking a .env file
// into account when present. Endpoints left empty are filled in by the
// caller from the provider defaults (production or sandbox).
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading straight from the environment")
	}
	DebugMode = os.Getenv("DEBUG") == "true"

	return &Config{
		ProductID:         envOr("COINBASE_PRODUCT_ID", "BTC-USD"),
		WebsocketEndpoint: os.Getenv("COINBASE_WS_URL"),
		RestEndpoint:      os.Getenv("COINBASE_REST_URL"),
		UseSandbox:        os.Getenv("COINBASE_SANDBOX") == "true",
		MetricsAddr:       envOr("METRICS_ADDR", ":8080"),
		BookViewDepth:     envOrInt("BOOK_VIEW_DEPTH", 20),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid value for %s: %s, using %d", key, v, fallback)
		return fallback
	}
	return n
}
