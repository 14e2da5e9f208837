package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

//////////////////////////////////////////////////////////////
// CONFIGURATION
//////////////////////////////////////////////////////////////

const (
	DEFAULT_MODEL_NAME  = "gemini-1.5-flash"
	DEFAULT_STORE_DSN   = "file:decoy.db?_foreign_keys=on"
	DEFAULT_PERSONA     = "persona.txt"
	DEFAULT_MAX_TOKENS  = 150
	DEFAULT_DELAY_MIN   = 20 * time.Second
	DEFAULT_DELAY_MAX   = 40 * time.Second
	DEFAULT_TYPING_TICK = 10 * time.Second
)

var errMissingCredential = errors.New("missing credential")

// Config holds everything read from the environment at startup.
type Config struct {
	WhatsAppPhone   string
	StoreDSN        string
	GeminiAPIKey    string
	GeminiModel     string
	MaxOutputTokens int32
	PersonaFile     string
	OpeningLine     string
	ReplyDelay      Delay
	TypingRefresh   time.Duration
	Whitelist       []string
	ContactsFile    string
	LogLevel        string
}

// loadConfig reads .env (if present) and the process environment.
func loadConfig() (*Config, error) {
	_ = godotenv.Load()
	return configFromEnv()
}

func configFromEnv() (*Config, error) {
	maxTokens, tokensErr := getEnvAsInt("MAX_OUTPUT_TOKENS", DEFAULT_MAX_TOKENS)
	delayMin, minErr := getEnvAsDuration("REPLY_DELAY_MIN", DEFAULT_DELAY_MIN)
	delayMax, maxErr := getEnvAsDuration("REPLY_DELAY_MAX", DEFAULT_DELAY_MAX)
	typingRefresh, typingErr := getEnvAsDuration("TYPING_REFRESH", DEFAULT_TYPING_TICK)
	if err := errors.Join(tokensErr, minErr, maxErr, typingErr); err != nil {
		return nil, err
	}

	cfg := &Config{
		WhatsAppPhone:   sanitizePhone(getEnv("WHATSAPP_PHONE", "")),
		StoreDSN:        getEnv("WHATSAPP_STORE", DEFAULT_STORE_DSN),
		GeminiAPIKey:    strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		GeminiModel:     getEnv("GEMINI_MODEL", DEFAULT_MODEL_NAME),
		MaxOutputTokens: int32(maxTokens),
		PersonaFile:     getEnv("PERSONA_FILE", DEFAULT_PERSONA),
		OpeningLine:     getEnv("OPENING_LINE", defaultOpeningLine),
		ReplyDelay:      Delay{Min: delayMin, Max: delayMax},
		TypingRefresh:   typingRefresh,
		Whitelist:       append(append([]string(nil), defaultWhitelist...), splitList(getEnv("WHITELIST", ""))...),
		ContactsFile:    getEnv("CONTACTS_FILE", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	var missing []string
	if cfg.WhatsAppPhone == "" {
		missing = append(missing, "WHATSAPP_PHONE")
	}
	if cfg.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s not set, put them in the environment or .env", errMissingCredential, strings.Join(missing, ", "))
	}
	if err := cfg.ReplyDelay.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxOutputTokens <= 0 {
		return nil, fmt.Errorf("MAX_OUTPUT_TOKENS must be positive, got %d", cfg.MaxOutputTokens)
	}
	if cfg.TypingRefresh <= 0 {
		cfg.TypingRefresh = DEFAULT_TYPING_TICK
	}
	return cfg, nil
}

// buildWhitelist merges the configured ids with the contacts export, if any.
func (c *Config) buildWhitelist() (*Whitelist, error) {
	entries := c.Whitelist
	if c.ContactsFile != "" {
		ids, err := loadContactIDs(c.ContactsFile)
		if err != nil {
			return nil, err
		}
		entries = append(append([]string(nil), entries...), ids...)
	}
	return NewWhitelist(entries...), nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
// A value that is set but not a number is an error.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not an integer", key, valueStr)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a duration (e.g. 20s): %w", key, valueStr, err)
	}
	return value, nil
}
