package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything read from the environment at startup.
type Config struct {
	AppEnv string

	DatabaseURL       string
	DBConnectAttempts int
	DBLogLevel        string

	HTTPAddr          string
	CORSOrigins       []string
	PhotosDir         string
	SeedOnStart       bool
	MealsDefaultLimit int

	TelegramToken    string
	NotifyChatIDs    []int64
	AllowedChatIDs   []int64
	ReminderInterval time.Duration
	ReminderDays     int
}

// ErrMissingDatabaseURL is returned by Load when DATABASE_URL is empty.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL not set")

// Load reads .env (if present) and then the process environment.
// The returned bool reports whether a .env file was found.
func Load() (*Config, bool, error) {
	envFound := godotenv.Load() == nil

	cfg := &Config{
		AppEnv:            GetEnv("APP_ENV", "development"),
		DatabaseURL:       GetEnv("DATABASE_URL", ""),
		DBConnectAttempts: GetInt("DB_CONNECT_ATTEMPTS", 15),
		DBLogLevel:        GetEnv("DB_LOG_LEVEL", "warn"),
		HTTPAddr:          GetEnv("HTTP_ADDR", ":8080"),
		CORSOrigins:       GetList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		PhotosDir:         GetEnv("PHOTOS_DIR", ""),
		SeedOnStart:       GetBool("SEED_ON_START", true),
		MealsDefaultLimit: GetInt("MEALS_DEFAULT_LIMIT", 5),
		TelegramToken:     GetEnv("TELEGRAM_TOKEN", ""),
		NotifyChatIDs:     ParseChatIDs(GetEnv("NOTIFY_CHAT_IDS", "")),
		AllowedChatIDs:    ParseChatIDs(GetEnv("ALLOWED_CHAT_IDS", "")),
		ReminderInterval:  GetDuration("REMINDER_INTERVAL", 24*time.Hour),
		ReminderDays:      GetInt("REMINDER_DAYS", 3),
	}

	if cfg.DatabaseURL == "" {
		return cfg, envFound, ErrMissingDatabaseURL
	}
	return cfg, envFound, nil
}

// GetEnv returns the value of key or fallback when it is unset or blank.
func GetEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	v, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func GetBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(GetEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// GetList splits a comma separated value, dropping empty entries.
func GetList(key string, fallback []string) []string {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// ParseChatIDs turns "123,456,789" into a slice of int64, skipping junk.
func ParseChatIDs(ids string) []int64 {
	var result []int64
	if ids == "" {
		return result
	}
	for _, s := range strings.Split(ids, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			result = append(result, id)
		}
	}
	return result
}
