package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	Port              string
	APIToken          string
	DatabaseURL       string
	ConfigRoot        string
	DataRoot          string
	GeoIPDBPath       string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	PhotoroomAPIKey   string
	PhotoroomBaseURL  string
	RemoveBgAPIKey    string
	RemoveBgBaseURL   string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
	MaxConcurrentRuns int
	SafeBatchLimit    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		APIToken:          os.Getenv("KROMA_API_TOKEN"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ConfigRoot:        getEnv("KROMA_CONFIG_ROOT", "./config"),
		DataRoot:          getEnv("KROMA_DATA_ROOT", "./data"),
		GeoIPDBPath:       os.Getenv("GEOIP_DB_PATH"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		PhotoroomAPIKey:   os.Getenv("PHOTOROOM_API_KEY"),
		PhotoroomBaseURL:  getEnv("PHOTOROOM_BASE_URL", "https://sdk.photoroom.com/v1"),
		RemoveBgAPIKey:    os.Getenv("REMOVEBG_API_KEY"),
		RemoveBgBaseURL:   getEnv("REMOVEBG_BASE_URL", "https://api.remove.bg/v1.0"),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		MaxConcurrentRuns: getEnvInt("MAX_CONCURRENT_RUNS", 2),
		SafeBatchLimit:    getEnvInt("SAFE_BATCH_LIMIT", 25),
	}

	if cfg.MaxConcurrentRuns < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_RUNS must be at least 1")
	}

	if cfg.SafeBatchLimit < 1 {
		return nil, fmt.Errorf("SAFE_BATCH_LIMIT must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
