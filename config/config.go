package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// GenerateAPIKey generates a secure random API key
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Config holds all configuration for the bridge daemon
type Config struct {
	// Server settings
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Authentication
	APIKey    string
	JWTSecret string

	// Security
	AllowedOrigins []string
	RateLimitRPS   int

	// Privileged executor
	PowerShellBin string

	// Safety policy file (optional; compiled-in default when empty)
	PolicyFile string

	// Persisted UI preferences document
	SettingsFile string

	// Logging
	LogLevel string

	// Setup mode
	SetupMode bool
	EnvFile   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	envFile := getEnvFile()

	// Load .env file if it exists
	_ = godotenv.Load(envFile)

	cfg := &Config{
		Port:           getEnvInt("PORT", 8095),
		Host:           getEnv("HOST", "127.0.0.1"),
		ReadTimeout:    time.Duration(getEnvInt("READ_TIMEOUT_SECONDS", 30)) * time.Second,
		WriteTimeout:   time.Duration(getEnvInt("WRITE_TIMEOUT_SECONDS", 300)) * time.Second,
		APIKey:         getEnv("API_KEY", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 100),
		PowerShellBin:  getEnv("POWERSHELL_BIN", "pwsh"),
		PolicyFile:     getEnv("POLICY_FILE", ""),
		SettingsFile:   getEnv("SETTINGS_FILE", "settings.json"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SetupMode:      false,
		EnvFile:        envFile,
	}

	// Check if API key is configured
	if cfg.APIKey == "" {
		cfg.SetupMode = true
		return cfg, nil
	}

	if cfg.JWTSecret == "" {
		// Use API key as fallback for JWT secret
		cfg.JWTSecret = cfg.APIKey
	}

	return cfg, nil
}

// getEnvFile returns the path to the .env file
func getEnvFile() string {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		return envFile
	}

	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}

	// Fall back to the executable directory
	exe, err := os.Executable()
	if err == nil {
		dir := strings.TrimSuffix(exe, "/hyperdeck-bridge")
		envPath := dir + "/.env"
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	return ".env"
}

// SaveAPIKey saves the API key to the .env file
func (c *Config) SaveAPIKey(apiKey string) error {
	updates := map[string]string{"API_KEY": apiKey}
	if err := UpdateEnvFile(c.EnvFile, updates); err != nil {
		return err
	}

	c.APIKey = apiKey
	c.JWTSecret = apiKey
	c.SetupMode = false

	return nil
}

// UpdateEnvFile updates or adds environment variables in a .env file
func UpdateEnvFile(envFile string, updates map[string]string) error {
	existingContent := ""
	if data, err := os.ReadFile(envFile); err == nil {
		existingContent = string(data)
	}

	lines := strings.Split(existingContent, "\n")
	found := make(map[string]bool)

	for i, line := range lines {
		for key, value := range updates {
			if strings.HasPrefix(line, key+"=") {
				lines[i] = key + "=" + value
				found[key] = true
				break
			}
		}
	}

	var newLines []string
	for key, value := range updates {
		if !found[key] {
			newLines = append(newLines, key+"="+value)
		}
	}
	if len(newLines) > 0 {
		lines = append(newLines, lines...)
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env file: %w", err)
	}

	return nil
}

// LoadWithDefaults loads config with defaults for testing
func LoadWithDefaults() *Config {
	return &Config{
		Port:           8095,
		Host:           "127.0.0.1",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   300 * time.Second,
		APIKey:         "test-api-key",
		JWTSecret:      "test-jwt-secret",
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   100,
		PowerShellBin:  "pwsh",
		SettingsFile:   "settings.json",
		LogLevel:       "info",
	}
}

// Addr returns the server address string
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
