package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DBDriver string
	DBHost   string
	DBUser   string
	DBPass   string
	DBName   string
	DBPort   string
	DBPath   string
	RedisURL string

	JWTSecret string
	JWTTTL    time.Duration

	GeminiAPIKey   string
	GeminiModel    string
	GeminiTTSModel string
	AIProxyURL     string
	AITimeout      time.Duration

	PresenceWindow    time.Duration
	HeartbeatInterval time.Duration
	HistoryPageSize   int

	MailboxSweepSchedule string
	MailboxStaleAfter    time.Duration

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryURL          string
	CloudinaryCloudName    string
	CloudinaryUploadFolder string

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		AppEnv:         v.GetString("APP_ENV"),
		Port:           v.GetString("PORT"),
		AllowedOrigins: v.GetString("ALLOWED_ORIGINS"),

		DBDriver: v.GetString("DB_DRIVER"),
		DBHost:   v.GetString("DB_HOST"),
		DBUser:   v.GetString("DB_USER"),
		DBPass:   v.GetString("DB_PASS"),
		DBName:   v.GetString("DB_NAME"),
		DBPort:   v.GetString("DB_PORT"),
		DBPath:   v.GetString("DB_PATH"),
		RedisURL: v.GetString("REDIS_URL"),

		JWTSecret: v.GetString("JWT_SECRET"),

		GeminiAPIKey:   v.GetString("GEMINI_API_KEY"),
		GeminiModel:    v.GetString("GEMINI_MODEL"),
		GeminiTTSModel: v.GetString("GEMINI_TTS_MODEL"),
		AIProxyURL:     v.GetString("AI_PROXY_URL"),

		HistoryPageSize: v.GetInt("HISTORY_PAGE_SIZE"),

		MailboxSweepSchedule: v.GetString("MAILBOX_SWEEP_SCHEDULE"),

		MeiliSearchHost: v.GetString("MEILISEARCH_HOST"),
		MeiliMasterKey:  v.GetString("MEILI_MASTER_KEY"),

		CloudinaryURL:          v.GetString("CLOUDINARY_URL"),
		CloudinaryCloudName:    v.GetString("CLOUDINARY_CLOUD_NAME"),
		CloudinaryUploadFolder: v.GetString("CLOUDINARY_UPLOAD_FOLDER"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"JWT_TTL", &cfg.JWTTTL},
		{"AI_TIMEOUT", &cfg.AITimeout},
		{"PRESENCE_WINDOW", &cfg.PresenceWindow},
		{"HEARTBEAT_INTERVAL", &cfg.HeartbeatInterval},
		{"MAILBOX_STALE_AFTER", &cfg.MailboxStaleAfter},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if cfg.HistoryPageSize <= 0 {
		return nil, fmt.Errorf("invalid HISTORY_PAGE_SIZE: must be positive")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "polychat")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_PATH", "polychat.db")

	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_TTL", "720h")

	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts")
	v.SetDefault("AI_TIMEOUT", "20s")

	v.SetDefault("PRESENCE_WINDOW", "5m")
	v.SetDefault("HEARTBEAT_INTERVAL", "60s")
	v.SetDefault("HISTORY_PAGE_SIZE", 20)

	v.SetDefault("MAILBOX_SWEEP_SCHEDULE", "@every 5m")
	v.SetDefault("MAILBOX_STALE_AFTER", "1m")

	v.SetDefault("CLOUDINARY_UPLOAD_FOLDER", "polychat_avatars")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// IsDevelopment reports whether the app runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
