package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultSessionIdleWindow = 30 * time.Minute

type Config struct {
	Host              string
	Port              string
	DataDir           string
	APIKey            string
	SessionIdleWindow time.Duration
	EnableReminders   bool
	MetricsEnabled    bool
}

func Load() Config {
	host := os.Getenv("DAYPLAN_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("DAYPLAN_PORT")
	if port == "" {
		port = "8088"
	}
	dataDir := os.Getenv("DAYPLAN_DATA_DIR")
	if dataDir == "" {
		dataDir = ".data"
	}
	apiKey := os.Getenv("DAYPLAN_API_KEY")
	idleWindow := parseEnvMinutes("DAYPLAN_SESSION_IDLE_MINUTES", defaultSessionIdleWindow)
	enableReminders := !strings.EqualFold(strings.TrimSpace(os.Getenv("DAYPLAN_DISABLE_REMINDERS")), "true")
	metricsEnabled := !strings.EqualFold(strings.TrimSpace(os.Getenv("DAYPLAN_DISABLE_METRICS")), "true")
	return Config{
		Host:              host,
		Port:              port,
		DataDir:           dataDir,
		APIKey:            apiKey,
		SessionIdleWindow: idleWindow,
		EnableReminders:   enableReminders,
		MetricsEnabled:    metricsEnabled,
	}
}

func parseEnvMinutes(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return fallback
	}
	return time.Duration(minutes) * time.Minute
}
