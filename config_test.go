package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WHATSAPP_PHONE", "+1 555 000 1111")
	t.Setenv("GEMINI_API_KEY", "test-key")
}

func TestConfigFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := configFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "15550001111", cfg.WhatsAppPhone)
	assert.Equal(t, DEFAULT_STORE_DSN, cfg.StoreDSN)
	assert.Equal(t, DEFAULT_MODEL_NAME, cfg.GeminiModel)
	assert.Equal(t, int32(150), cfg.MaxOutputTokens)
	assert.Equal(t, "persona.txt", cfg.PersonaFile)
	assert.Equal(t, "This is Dan, who is this?", cfg.OpeningLine)
	assert.Equal(t, Delay{Min: 20 * time.Second, Max: 40 * time.Second}, cfg.ReplyDelay)
	assert.Equal(t, 10*time.Second, cfg.TypingRefresh)
	assert.Equal(t, defaultWhitelist, cfg.Whitelist)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GEMINI_MODEL", "gemini-2.5-flash")
	t.Setenv("MAX_OUTPUT_TOKENS", "80")
	t.Setenv("REPLY_DELAY_MIN", "1s")
	t.Setenv("REPLY_DELAY_MAX", "2s")
	t.Setenv("WHITELIST", "111, 222")
	t.Setenv("OPENING_LINE", "Hi, who's this?")

	cfg, err := configFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, int32(80), cfg.MaxOutputTokens)
	assert.Equal(t, Delay{Min: time.Second, Max: 2 * time.Second}, cfg.ReplyDelay)
	assert.Equal(t, "Hi, who's this?", cfg.OpeningLine)

	w, err := cfg.buildWhitelist()
	require.NoError(t, err)
	assert.True(t, w.Contains("111"))
	assert.True(t, w.Contains("222"))
	assert.True(t, w.Contains("15550104477"))
}

func TestConfigFromEnvMissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		key     string
		missing []string
	}{
		{"no phone", "", "key", []string{"WHATSAPP_PHONE"}},
		{"no api key", "15550001111", "", []string{"GEMINI_API_KEY"}},
		{"nothing", "", "", []string{"WHATSAPP_PHONE", "GEMINI_API_KEY"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WHATSAPP_PHONE", tt.phone)
			t.Setenv("GEMINI_API_KEY", tt.key)

			_, err := configFromEnv()
			require.ErrorIs(t, err, errMissingCredential)
			for _, name := range tt.missing {
				assert.ErrorContains(t, err, name)
			}
		})
	}
}

func TestConfigFromEnvRejectsBadValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REPLY_DELAY_MIN", "40s")
	t.Setenv("REPLY_DELAY_MAX", "20s")
	_, err := configFromEnv()
	assert.Error(t, err)

	t.Setenv("REPLY_DELAY_MIN", "")
	t.Setenv("REPLY_DELAY_MAX", "")
	t.Setenv("MAX_OUTPUT_TOKENS", "0")
	_, err = configFromEnv()
	assert.ErrorContains(t, err, "MAX_OUTPUT_TOKENS")
}

func TestBuildWhitelistWithContactsFile(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "contacts.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"contacts":{"a":{"jid":"4915112345678@s.whatsapp.net","type":"individual"}}}`), 0o644))
	t.Setenv("CONTACTS_FILE", path)

	cfg, err := configFromEnv()
	require.NoError(t, err)
	w, err := cfg.buildWhitelist()
	require.NoError(t, err)
	assert.True(t, w.Contains("4915112345678"))

	cfg.ContactsFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = cfg.buildWhitelist()
	assert.Error(t, err)
}

func TestConfigFromEnvRejectsUnparsableValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"REPLY_DELAY_MIN", "abc"},
		{"REPLY_DELAY_MAX", "40"},
		{"TYPING_REFRESH", "often"},
		{"MAX_OUTPUT_TOKENS", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := configFromEnv()
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.key)
			assert.ErrorContains(t, err, tt.value)
		})
	}
}
