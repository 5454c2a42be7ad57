package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

// Config holds everything the process reads from the environment at
// startup. Automation settings loaded here are only the initial values;
// admins can change them at runtime through the settings endpoint.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	CORSAllowedOrigins []string

	Automation models.AutomationSettings

	// R2 archival is optional; pruning deletes outright when unset.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load reads configuration from environment variables, optionally
// seeded from a .env file for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	automation, err := loadAutomationSettings()
	if err != nil {
		return nil, err
	}

	origins := []string{"*"}
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		CORSAllowedOrigins: origins,
		Automation:         automation,
		R2AccountID:        os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:      os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:  os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:       os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:    os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

// R2Configured reports whether all required R2 credentials are present.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func loadAutomationSettings() (models.AutomationSettings, error) {
	s := models.DefaultAutomationSettings()

	var err error
	if s.WorkerCount, err = intEnv("RECALC_WORKER_COUNT", s.WorkerCount); err != nil {
		return s, err
	}
	if s.MaxAttempts, err = intEnv("RECALC_MAX_ATTEMPTS", s.MaxAttempts); err != nil {
		return s, err
	}
	if s.QueueCapacity, err = intEnv("RECALC_QUEUE_CAPACITY", s.QueueCapacity); err != nil {
		return s, err
	}
	if s.MaxSnapshots, err = intEnv("SNAPSHOT_MAX_COUNT", s.MaxSnapshots); err != nil {
		return s, err
	}
	if s.JobTimeout, err = durationEnv("RECALC_JOB_TIMEOUT", s.JobTimeout); err != nil {
		return s, err
	}
	if s.DebounceWindow, err = durationEnv("RECALC_DEBOUNCE_WINDOW", s.DebounceWindow); err != nil {
		return s, err
	}
	if s.SnapshotMaxAge, err = durationEnv("SNAPSHOT_MAX_AGE", s.SnapshotMaxAge); err != nil {
		return s, err
	}
	if raw := os.Getenv("PREFER_CLUB_IDENTITY"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return s, fmt.Errorf("invalid PREFER_CLUB_IDENTITY environment variable: %w", err)
		}
		s.PreferClubIdentity = v
	}

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("automation settings from environment are invalid: %w", err)
	}
	return s, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}
