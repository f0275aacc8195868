package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"ROAS_SPREADSHEET_ID", "GOOGLE_APPLICATION_CREDENTIALS", "ROAS_CREDENTIALS_FILE",
		"ROAS_CREDENTIALS_JSON", "ROAS_DEFAULT_SHEET",
		"ROAS_NORMALIZE_PHONES", "ROAS_LOG_LEVEL", "ROAS_LOG_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "Leads", cfg.DefaultSheet)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateRemote())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "conf", "roas.yaml")

	cfg := DefaultConfig()
	cfg.SpreadsheetID = "sheet-123"
	cfg.CredentialsFile = "/etc/roas/sa.json"
	cfg.NormalizePhones = true

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.NoError(t, loaded.ValidateRemote())
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "roas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spreadsheet_id: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("ROAS variables override file values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ROAS_SPREADSHEET_ID", "env-id")
		t.Setenv("ROAS_LOG_LEVEL", "debug")
		t.Setenv("ROAS_NORMALIZE_PHONES", "true")

		cfg := &Config{SpreadsheetID: "file-id", Logging: LoggingConfig{Level: "info"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "env-id", cfg.SpreadsheetID)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.True(t, cfg.NormalizePhones)
	})

	t.Run("GOOGLE_APPLICATION_CREDENTIALS only fills an empty path", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/adc.json")

		cfg := &Config{CredentialsFile: "/configured.json"}
		cfg.applyEnvOverrides()
		assert.Equal(t, "/configured.json", cfg.CredentialsFile)

		cfg = &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "/adc.json", cfg.CredentialsFile)
	})

	t.Run("ROAS_CREDENTIALS_FILE wins over ADC", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/adc.json")
		t.Setenv("ROAS_CREDENTIALS_FILE", "/roas.json")

		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.Equal(t, "/roas.json", cfg.CredentialsFile)
	})
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "chatty"
	assert.Error(t, cfg.Validate())
}

func TestLoad_IgnoresValueInputOption(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "roas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spreadsheet_id: abc\nvalue_input_option: RAW\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.SpreadsheetID)

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "value_input_option")
}

func TestWriteDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROAS_SPREADSHEET_ID", "env-id")
	path := filepath.Join(t.TempDir(), "conf", "roas.yaml")

	written, err := WriteDefault(path, false)
	require.NoError(t, err)
	assert.Equal(t, "env-id", written.SpreadsheetID)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, written, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	t.Run("existing file is kept", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("default_sheet: Mine\n"), 0600))

		_, err := WriteDefault(path, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrExist)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "default_sheet: Mine\n", string(data))
	})

	t.Run("force overwrites", func(t *testing.T) {
		_, err := WriteDefault(path, true)
		require.NoError(t, err)

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Leads", loaded.DefaultSheet)
	})
}
