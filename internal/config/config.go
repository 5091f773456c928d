package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultUploadMaxBytes = 200 * 1024 * 1024 // 200MB
	DefaultAdminUsername  = "@BayRex"
	defaultAdminPassword  = "admin123"

	defaultSessionTTLHours = 24
)

type Config struct {
	// Server
	Port    int
	AppEnv  string
	BaseURL string

	// Logging
	LogLevel  string
	LogFormat string

	// Session
	SessionSecret string
	// SessionSecretGenerated is set when SESSION_SECRET was empty and a
	// random secret was generated for this process.
	SessionSecretGenerated bool
	SessionTTLHours        int
	SessionBackend         string

	// Admin
	AdminUsername     string
	AdminPasswordHash string
	AdminPassword     string
	AdminTOTPSecret   string

	// Uploads
	UploadMaxBytes int64
	UploadsPath    string
	BlobBackend    string
	DeleteFiles    bool

	// FTP blob backend
	FTPHost     string
	FTPPort     int
	FTPUser     string
	FTPPassword string
	FTPPath     string

	// Record store
	StoreDriver string
	SQLitePath  string
	DBHost      string
	DBPort      int
	DBUser      string
	DBPassword  string
	DBName      string
	// DBConnectRetries bounds the PostgreSQL connection attempts before
	// falling back to the memory store.
	DBConnectRetries int

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string

	SeedDemo bool
}

// IsProduction reports whether detailed error messages must be hidden.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// generateSecureSecret generates a cryptographically secure random secret
func generateSecureSecret(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return hex.EncodeToString([]byte(os.Getenv("HOSTNAME") + string(rune(length))))
	}
	return hex.EncodeToString(bytes)
}

// Load reads configuration from the environment (and .env when present).
func Load(log logrus.FieldLogger) *Config {
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded environment from .env")
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	secretGenerated := false
	if sessionSecret == "" {
		sessionSecret = generateSecureSecret(32)
		secretGenerated = true
		log.Warn("SESSION_SECRET not set - generated random secret. Sessions will not persist across restarts unless a database is used.")
	}

	adminHash := getEnv("ADMIN_PASSWORD_HASH", "")
	adminPassword := getEnv("ADMIN_PASSWORD", "")
	if adminHash == "" && adminPassword == "" {
		log.Warn("ADMIN_PASSWORD not set - using insecure default admin password!")
		adminPassword = defaultAdminPassword
	}

	uploadsPath := getEnv("UPLOADS_PATH", "")
	if uploadsPath == "" {
		uploadsPath = "uploads"
		if os.Getenv("RENDER") != "" {
			uploadsPath = "/var/data/uploads"
		}
	}

	maxBytes := getEnvInt64("UPLOAD_MAX_BYTES", DefaultUploadMaxBytes)
	if maxBytes <= 0 {
		log.Warnf("UPLOAD_MAX_BYTES=%d is invalid, using %d", maxBytes, DefaultUploadMaxBytes)
		maxBytes = DefaultUploadMaxBytes
	}

	sessionTTL := getEnvInt("SESSION_TTL_HOURS", defaultSessionTTLHours)
	if sessionTTL <= 0 {
		log.Warnf("SESSION_TTL_HOURS=%d is invalid, using %d", sessionTTL, defaultSessionTTLHours)
		sessionTTL = defaultSessionTTLHours
	}

	dbPassword := getEnv("DB_PASSWORD", "")
	storeDriver := strings.ToLower(getEnv("STORE_DRIVER", "memory"))
	if storeDriver == "postgres" && dbPassword == "" {
		log.Warn("DB_PASSWORD not set - this is insecure for production!")
	}

	return &Config{
		Port:    getEnvInt("PORT", 10000),
		AppEnv:  getEnv("APP_ENV", getEnv("NODE_ENV", "development")),
		BaseURL: strings.TrimRight(getEnv("BASE_URL", ""), "/"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SessionSecret:          sessionSecret,
		SessionSecretGenerated: secretGenerated,
		SessionTTLHours:        sessionTTL,
		SessionBackend:         strings.ToLower(getEnv("SESSION_BACKEND", "memory")),

		AdminUsername:     getEnv("ADMIN_USERNAME", DefaultAdminUsername),
		AdminPasswordHash: adminHash,
		AdminPassword:     adminPassword,
		AdminTOTPSecret:   getEnv("ADMIN_TOTP_SECRET", ""),

		UploadMaxBytes: maxBytes,
		UploadsPath:    uploadsPath,
		BlobBackend:    strings.ToLower(getEnv("BLOB_BACKEND", "fs")),
		DeleteFiles:    getEnvBool("DELETE_FILES", false),

		FTPHost:     getEnv("FTP_HOST", ""),
		FTPPort:     getEnvInt("FTP_PORT", 21),
		FTPUser:     getEnv("FTP_USER", "anonymous"),
		FTPPassword: getEnv("FTP_PASSWORD", ""),
		FTPPath:     getEnv("FTP_PATH", "/"),

		StoreDriver: storeDriver,
		SQLitePath:  getEnv("SQLITE_PATH", "catalog.db"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnvInt("DB_PORT", 5432),
		DBUser:      getEnv("DB_USER", "bayrex"),
		DBPassword:  dbPassword,
		DBName:      getEnv("DB_NAME", "bayrex"),

		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 5),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		SeedDemo: getEnvBool("SEED_DEMO", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
