package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Env           string
	LogLevel      string
	OpsPort       string
	DatabaseURL   string
	OutputDir     string
	ReplayFile    string

	// Monitoring loop
	PollInterval            time.Duration
	ExtractionTimeout       time.Duration
	ConnectRetryWindow      time.Duration
	RetryFailedExtractions  bool
	OutboundDrainBudget     int

	// Assessment API
	AssessmentBaseURL   string
	AssessmentAPIKey    string
	AssessmentTimeout   time.Duration
	SimulateResponses   bool
	SimulatorDelay      time.Duration

	// Outbound result worker
	OutboundPollInterval time.Duration
	OutboundMaxErrors    int

	// Ops surface
	AdminJWTSecret string

	// Status bus
	RedisAddr     string
	RedisPassword string
	StatusChannel string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		OpsPort:     getEnv("OPS_PORT", "8090"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		OutputDir:   getEnv("OUTPUT_DIR", "output/patients"),
		ReplayFile:  getEnv("REPLAY_FILE", ""),

		PollInterval:           getEnvAsDuration("POLL_INTERVAL", 30*time.Second),
		ExtractionTimeout:      getEnvAsDuration("EXTRACTION_TIMEOUT", 45*time.Second),
		ConnectRetryWindow:     getEnvAsDuration("CONNECT_RETRY_WINDOW", 5*time.Minute),
		RetryFailedExtractions: getEnvAsBool("RETRY_FAILED_EXTRACTIONS", false),
		OutboundDrainBudget:    getEnvAsInt("OUTBOUND_DRAIN_BUDGET", 5),

		AssessmentBaseURL: getEnv("ASSESSMENT_BASE_URL", ""),
		AssessmentAPIKey:  getEnv("ASSESSMENT_API_KEY", ""),
		AssessmentTimeout: getEnvAsDuration("ASSESSMENT_TIMEOUT", 15*time.Second),
		SimulateResponses: getEnvAsBool("SIMULATE_RESPONSES", false),
		SimulatorDelay:    getEnvAsDuration("SIMULATOR_DELAY", 30*time.Second),

		OutboundPollInterval: getEnvAsDuration("OUTBOUND_POLL_INTERVAL", 10*time.Second),
		OutboundMaxErrors:    getEnvAsInt("OUTBOUND_MAX_ERRORS", 4),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		RedisAddr:     strings.TrimSpace(getEnv("REDIS_ADDR", "")),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		StatusChannel: getEnv("STATUS_CHANNEL", "chartwatch:status"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
