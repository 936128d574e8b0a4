package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the TaskPipe server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Jobs     JobsConfig
	Services ServicesConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// JobsConfig tunes record retention and processing budgets.
type JobsConfig struct {
	JobTTL           time.Duration
	BatchTTL         time.Duration
	Budget           time.Duration
	PollInterval     time.Duration
	MaxPollAttempts  int
	MaxLogEntries    int
	BatchConcurrency int
}

// ServicesConfig points at the remote processing services. All of them share
// one service API key.
type ServicesConfig struct {
	AIManagerURL   string
	FileServiceURL string
	ScraperURL     string
	TranscriberURL string
	ConverterURL   string
	ExtractorURL   string
	APIKey         string
	Timeout        time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value is
// missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("TASKPIPE_PORT", 8080),
			Env:  envString("TASKPIPE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Jobs: JobsConfig{
			JobTTL:           envDuration("JOB_TTL", 2*time.Hour),
			BatchTTL:         envDuration("BATCH_TTL", 1*time.Hour),
			Budget:           envDuration("JOB_BUDGET", 15*time.Minute),
			PollInterval:     envDuration("JOB_POLL_INTERVAL", 5*time.Second),
			MaxPollAttempts:  envInt("JOB_MAX_POLL_ATTEMPTS", 60),
			MaxLogEntries:    envInt("JOB_MAX_LOG_ENTRIES", 200),
			BatchConcurrency: envInt("BATCH_CONCURRENCY", 1),
		},
		Services: ServicesConfig{
			AIManagerURL:   os.Getenv("AI_MANAGER_URL"),
			FileServiceURL: os.Getenv("FILE_SERVICE_URL"),
			ScraperURL:     os.Getenv("SCRAPER_URL"),
			TranscriberURL: os.Getenv("TRANSCRIBER_URL"),
			ConverterURL:   os.Getenv("CONVERTER_URL"),
			ExtractorURL:   os.Getenv("EXTRACTOR_URL"),
			APIKey:         os.Getenv("SERVICES_API_KEY"),
			Timeout:        envDuration("SERVICES_TIMEOUT", 30*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	required := map[string]string{
		"AI_MANAGER_URL":   c.Services.AIManagerURL,
		"FILE_SERVICE_URL": c.Services.FileServiceURL,
		"SCRAPER_URL":      c.Services.ScraperURL,
		"TRANSCRIBER_URL":  c.Services.TranscriberURL,
		"CONVERTER_URL":    c.Services.ConverterURL,
		"EXTRACTOR_URL":    c.Services.ExtractorURL,
	}
	for name, val := range required {
		if val == "" {
			return fmt.Errorf("%s is required", name)
		}
		if !strings.HasPrefix(val, "http://") && !strings.HasPrefix(val, "https://") {
			return fmt.Errorf("%s must start with http:// or https://, got %q", name, val)
		}
	}

	if c.Jobs.JobTTL <= 0 {
		return fmt.Errorf("JOB_TTL must be positive")
	}
	if c.Jobs.BatchTTL <= 0 {
		return fmt.Errorf("BATCH_TTL must be positive")
	}
	if c.Jobs.Budget <= 0 {
		return fmt.Errorf("JOB_BUDGET must be positive")
	}
	if c.Jobs.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
