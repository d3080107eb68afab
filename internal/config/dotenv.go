package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Port                     string
	LogLevel                 string
	LogFormat                string
	DatabaseURL              string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	RoomIDAttempts           int
	ReconnectGraceSeconds    int
	JudgeTimeoutSeconds      int
	UploadTimeoutSeconds     int
	OracleBaseURL            string
	OracleAPIKey             string
	OracleModel              string
	OraclePrompt             string
	StorageBackend           string
	ImageTTLSeconds          int
	MaxImageBytes            int
	GitHubToken              string
	GitHubRepo               string
	GitHubBranch             string
	GitHubFolder             string
	GitHubCDNBaseURL         string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	WSMessagesPerSecond      int
	WSBurst                  int
}

func Default() Config {
	return Config{
		Port:                     "8080",
		LogLevel:                 "info",
		LogFormat:                "json",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		RoomIDAttempts:           16,
		ReconnectGraceSeconds:    30,
		JudgeTimeoutSeconds:      20,
		UploadTimeoutSeconds:     30,
		OracleBaseURL:            "https://api.openai.com/v1",
		OracleModel:              "gpt-4o-mini",
		StorageBackend:           "memory",
		ImageTTLSeconds:          3600,
		MaxImageBytes:            5 * 1024 * 1024,
		GitHubBranch:             "main",
		GitHubFolder:             "imgup",
		RedisAddr:                "localhost:6379",
		WSMessagesPerSecond:      10,
		WSBurst:                  20,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = raw
	}
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		cfg.DatabaseURL = raw
	}
	positiveInt("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns)
	positiveInt("DB_MAX_IDLE_CONNS", &cfg.DBMaxIdleConns)
	positiveInt("DB_CONN_MAX_LIFETIME_SECONDS", &cfg.DBConnMaxLifetimeSeconds)
	positiveInt("DB_CONN_MAX_IDLE_SECONDS", &cfg.DBConnMaxIdleTimeSeconds)
	positiveInt("ROOM_ID_ATTEMPTS", &cfg.RoomIDAttempts)
	if raw := os.Getenv("RECONNECT_GRACE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.ReconnectGraceSeconds = value
		}
	}
	positiveInt("JUDGE_TIMEOUT_SECONDS", &cfg.JudgeTimeoutSeconds)
	positiveInt("UPLOAD_TIMEOUT_SECONDS", &cfg.UploadTimeoutSeconds)
	if raw := os.Getenv("ORACLE_BASE_URL"); raw != "" {
		cfg.OracleBaseURL = raw
	}
	if raw := os.Getenv("ORACLE_API_KEY"); raw != "" {
		cfg.OracleAPIKey = raw
	}
	if raw := os.Getenv("ORACLE_MODEL"); raw != "" {
		cfg.OracleModel = raw
	}
	if raw := os.Getenv("ORACLE_PROMPT"); raw != "" {
		cfg.OraclePrompt = raw
	}
	if raw := os.Getenv("STORAGE_BACKEND"); raw != "" {
		cfg.StorageBackend = raw
	}
	positiveInt("IMAGE_TTL_SECONDS", &cfg.ImageTTLSeconds)
	positiveInt("MAX_IMAGE_BYTES", &cfg.MaxImageBytes)
	if raw := os.Getenv("GITHUB_TOKEN"); raw != "" {
		cfg.GitHubToken = raw
	}
	if raw := os.Getenv("GITHUB_REPO"); raw != "" {
		cfg.GitHubRepo = raw
	}
	if raw := os.Getenv("GITHUB_BRANCH"); raw != "" {
		cfg.GitHubBranch = raw
	}
	if raw := os.Getenv("GITHUB_DEFAULT_FOLDER"); raw != "" {
		cfg.GitHubFolder = raw
	}
	if raw := os.Getenv("GITHUB_CDN_BASE_URL"); raw != "" {
		cfg.GitHubCDNBaseURL = raw
	}
	if raw := os.Getenv("REDIS_ADDR"); raw != "" {
		cfg.RedisAddr = raw
	}
	if raw := os.Getenv("REDIS_PASSWORD"); raw != "" {
		cfg.RedisPassword = raw
	}
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.RedisDB = value
		}
	}
	positiveInt("WS_MESSAGES_PER_SECOND", &cfg.WSMessagesPerSecond)
	positiveInt("WS_BURST", &cfg.WSBurst)
	return cfg
}

func positiveInt(key string, dest *int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if value, err := strconv.Atoi(raw); err == nil && value > 0 {
		*dest = value
	}
}
