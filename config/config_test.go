package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	key1, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.Len(t, key1, 64) // 32 bytes hex encoded

	key2, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key1, key2)
}

func TestLoad_SetupModeWithoutAPIKey(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), ".env"))
	t.Setenv("API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.SetupMode)
}

func TestLoad_JWTSecretFallsBackToAPIKey(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), ".env"))
	t.Setenv("API_KEY", "the-key")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.SetupMode)
	assert.Equal(t, "the-key", cfg.JWTSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), ".env"))
	t.Setenv("API_KEY", "k")
	t.Setenv("PORT", "9999")
	t.Setenv("POWERSHELL_BIN", "/usr/bin/pwsh")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "/usr/bin/pwsh", cfg.PowerShellBin)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestUpdateEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=8095\nAPI_KEY=old\n"), 0600))

	err := UpdateEnvFile(path, map[string]string{"API_KEY": "new", "LOG_LEVEL": "debug"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "API_KEY=new")
	assert.Contains(t, content, "LOG_LEVEL=debug")
	assert.Contains(t, content, "PORT=8095")
	assert.False(t, strings.Contains(content, "API_KEY=old"))
}

func TestAddr(t *testing.T) {
	cfg := LoadWithDefaults()
	assert.Equal(t, "127.0.0.1:8095", cfg.Addr())
}

func TestSettingsStore_DefaultsWhenMissing(t *testing.T) {
	store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.json"))

	s := store.Get()
	assert.Equal(t, DefaultSettings(), s)
	assert.True(t, s.ConfirmBeforeDelete)
	assert.Equal(t, int64(2048), s.DefaultMemoryMB)
}

func TestSettingsStore_DefaultsWhenCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

	store := NewSettingsStore(path)
	assert.Equal(t, DefaultSettings(), store.Get())
}

func TestSettingsStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewSettingsStore(path)

	s := store.Get()
	s.AccentTheme = "violet"
	s.DefaultCPUCount = 8
	require.NoError(t, store.Save(s))

	// New store sees the persisted document.
	fresh := NewSettingsStore(path)
	got := fresh.Get()
	assert.Equal(t, "violet", got.AccentTheme)
	assert.Equal(t, 8, got.DefaultCPUCount)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
