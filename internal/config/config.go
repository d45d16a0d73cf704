package config

import (
	"os"
	"strconv"
	"time"
)

// DefaultDatasetURL is the gapminder table the dashboard is built around.
const DefaultDatasetURL = "https://raw.githubusercontent.com/plotly/datasets/master/gapminder_unfiltered.csv"

// Server captures process level configuration.
type Server struct {
	Addr            string
	Debug           bool
	DatasetURL      string
	FetchTimeout    time.Duration
	RateLimit       float64
	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Unset or unparsable values fall back to defaults.
func FromEnv() Server {
	return Server{
		Addr:            getString("GAPDASH_ADDR", "127.0.0.1:8050"),
		Debug:           getBool("GAPDASH_DEBUG", true),
		DatasetURL:      getString("GAPDASH_DATASET_URL", DefaultDatasetURL),
		FetchTimeout:    getDuration("GAPDASH_FETCH_TIMEOUT", 30*time.Second),
		RateLimit:       getFloat("GAPDASH_RATE_LIMIT", 0),
		ShutdownTimeout: getDuration("GAPDASH_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && f >= 0 {
		return f
	}
	return def
}
