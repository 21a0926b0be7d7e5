package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/moduhq/modu/internal/auth/mail"
)

type Config struct {
	Issuer   string   // Required: issuer claim for tokens
	Audience []string // Required: audience claim for tokens

	SigningKeyFile string // Optional: path to RSA private key PEM (default: ./signing.pem, generated if absent)
	SigningKeyID   string // Optional: kid published in the JWKS (default: "primary")
	RSABits        int    // Optional: RSA key size when generating (default: 2048)

	DatabaseFile string // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	AccessTTL     time.Duration // Optional: access token lifetime (default: 30m)
	RefreshTTL    time.Duration // Optional: refresh token lifetime (default: 7 days)
	RememberMeTTL time.Duration // Optional: refresh token lifetime with rememberMe (default: 90 days)
	OtpTTL        time.Duration // Optional: recovery code lifetime (default: 2m)

	AppleClientID string // Required for Apple login: the app's bundle or services identifier

	SMTP mail.SMTPConfig // Required for password recovery mail

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:   getEnvOrDefault("AUTH_ISSUER", "modu-auth"),
		Audience: splitList(getEnvOrDefault("AUTH_AUDIENCE", "modu-app")),

		SigningKeyFile: getEnvOrDefault("AUTH_SIGNING_KEY_FILE", "signing.pem"),
		SigningKeyID:   getEnvOrDefault("AUTH_SIGNING_KEY_ID", "primary"),
		RSABits:        getEnvIntOrDefault("AUTH_RSA_BITS", 2048),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		AccessTTL:     getEnvDurationOrDefault("AUTH_ACCESS_TTL", 0),
		RefreshTTL:    getEnvDurationOrDefault("AUTH_REFRESH_TTL", 0),
		RememberMeTTL: getEnvDurationOrDefault("AUTH_REMEMBER_ME_TTL", 0),
		OtpTTL:        getEnvDurationOrDefault("AUTH_OTP_TTL", 0),

		AppleClientID: os.Getenv("AUTH_APPLE_CLIENT_ID"),

		SMTP: mail.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvIntOrDefault("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}

// splitList parses a comma separated env value, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
