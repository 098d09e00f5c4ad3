package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB       DBConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
	Log      LogConfig
	Telegram TelegramConfig
}

type DBConfig struct {
	Store    string // "postgres" or "memory"
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// URL returns the pgx connection string.
func (c DBConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

type HTTPConfig struct {
	Addr        string
	Env         string   // "development" allows any origin
	CORSOrigins []string // used outside development
}

type AuthConfig struct {
	JWTSecret     string
	SessionTTL    time.Duration
	AdminUsername string
	AdminPassword string // plain, hashed at startup when no hash is given
	AdminHash     string // bcrypt
}

type LogConfig struct {
	Level    string // debug, info, warn, error
	Format   string // json, text
	Output   string // stdout, file, both
	FilePath string
}

type TelegramConfig struct {
	AdderToken   string // menu admin bot
	MessageToken string // token for sending menu change notices to the admin chat
	AdminChatID  int64
	Login        string // password for the menu admin bot
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("DB_PORT: %w", err)
	}
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	var chatID int64
	if v := getEnv("ADMIN_CHAT_ID", ""); v != "" {
		chatID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_CHAT_ID: %w", err)
		}
	}

	cfg := &Config{
		DB: DBConfig{
			Store:    strings.ToLower(getEnv("STORE", "postgres")),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "restaurant"),
		},
		HTTP: HTTPConfig{
			Addr:        getEnv("HTTP_ADDR", ":8080"),
			Env:         getEnv("APP_ENV", "development"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "")),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			SessionTTL:    ttl,
			AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			AdminHash:     getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Format:   getEnv("LOG_FORMAT", "json"),
			Output:   getEnv("LOG_OUTPUT", "stdout"),
			FilePath: getEnv("LOG_FILE", "logs/app.log"),
		},
		Telegram: TelegramConfig{
			AdderToken:   getEnv("ADDER_TOKEN", ""),
			MessageToken: getEnv("MESSAGE_TOKEN", ""),
			AdminChatID:  chatID,
			Login:        getEnv("LOGIN", ""),
		},
	}
	if cfg.DB.Store != "postgres" && cfg.DB.Store != "memory" {
		return nil, fmt.Errorf("STORE must be postgres or memory, got %q", cfg.DB.Store)
	}
	return cfg, nil
}

// AutoMigrate reports whether AUTO_MIGRATE is set to 1 or true.
func AutoMigrate() bool {
	v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE"))
	return v == "1" || strings.EqualFold(v, "true")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
