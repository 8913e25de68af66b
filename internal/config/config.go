// package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// SMTPConfig holds credentials for one SMTP submission endpoint.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// IsComplete reports whether the config is usable for a real send.
func (c SMTPConfig) IsComplete() bool {
	return c.Host != "" && c.Port != 0 && c.User != "" && c.Password != ""
}

// Config holds all application configuration. The SMTP and sender-identity
// fallbacks are resolved once at startup and passed into the dispatcher at
// construction; nothing reads the environment mid-send.
type Config struct {
	// server
	HTTPPort int

	// auth
	JWTSecret      string
	GoogleClientID string

	// smtp fallback (used when the user has no stored app-password)
	SMTP SMTPConfig

	// sender identity defaults
	SenderName  string
	SenderEmail string
	Phone       string
	LinkedIn    string
	Portfolio   string

	// storage
	DataDir       string // users.json and uploaded CVs
	RecordsPath   string // xlsx record log
	DefaultCVPath string // fallback attachment when no CV is configured

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:       getEnvInt("HTTP_PORT", 4859),
		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key"),
		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 0),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
		},
		SenderName:    getEnv("SENDER_NAME", ""),
		SenderEmail:   getEnv("SENDER_EMAIL", ""),
		Phone:         getEnv("PHONE_NUMBER", ""),
		LinkedIn:      getEnv("LINKEDIN_URL", ""),
		Portfolio:     getEnv("PORTFOLIO_URL", ""),
		DataDir:       getEnv("DATA_DIR", "./data"),
		RecordsPath:   getEnv("EXCEL_OUTPUT_PATH", "logs/applications.xlsx"),
		DefaultCVPath: getEnv("DEFAULT_CV_PATH", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
	}

	// the sender address falls back to the SMTP user, matching the
	// From header resolution in the mailer
	if cfg.SenderEmail == "" {
		cfg.SenderEmail = cfg.SMTP.User
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
