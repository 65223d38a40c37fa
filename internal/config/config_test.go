package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"data_dir": "/var/lib/hrms",
		"sync_api_url": "https://script.example.com/exec",
		"write_policy": "strict",
		"upload_limit": 20,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/var/lib/hrms", cfg.DataDir)
	assert.Equal(t, "https://script.example.com/exec", cfg.SyncAPIURL)
	assert.Equal(t, WriteStrict, cfg.WritePolicy)
	assert.Equal(t, 20, cfg.UploadLimit)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{ invalid json }`), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"defaults", Default(), ""},
		{"unknown write policy", Config{WritePolicy: "eventual"}, "write_policy"},
		{"unknown hold policy", Config{HoldPolicy: "forever"}, "hold_policy"},
		{"negative upload limit", Config{UploadLimit: -1}, "upload_limit"},
		{"base above max", Config{BaseDelayMillis: 5000, MaxDelayMillis: 100}, "base_delay_ms"},
		{"bad timezone", Config{Timezone: "Mars/Olympus"}, "unknown timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{UploadLimit: 10, CompanyName: "Acme"}
	merged := cfg.MergeWithDefaults(Default())

	assert.Equal(t, 10, merged.UploadLimit)
	assert.Equal(t, "Acme", merged.CompanyName)
	assert.Equal(t, WriteOptimistic, merged.WritePolicy)
	assert.Equal(t, HoldRevisit, merged.HoldPolicy)
	assert.Equal(t, "10:00 AM", merged.DefaultInterviewTime)
	assert.Equal(t, 10, cfg.UploadLimit, "original should be unchanged")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HRMS_UPLOAD_LIMIT", "7")
	t.Setenv("HRMS_WRITE_POLICY", "strict")
	t.Setenv("SYNC_API_URL", "https://sync.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.UploadLimit)
	assert.Equal(t, WriteStrict, cfg.WritePolicy)
	assert.Equal(t, "https://sync.example.com", cfg.SyncAPIURL)
	assert.Equal(t, ".hrms", cfg.DataDir)
}

func TestLoad_RejectsInvalidEnv(t *testing.T) {
	t.Setenv("HRMS_HOLD_POLICY", "sometimes")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hold_policy")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("HRMS_TEST_INT", "nope")
	t.Setenv("HRMS_TEST_DURATION", "90s")
	t.Setenv("HRMS_TEST_SET", "a, b,,a ")

	assert.Equal(t, 7, EnvInt("HRMS_TEST_INT", 7), "unparsable values fall back")
	assert.Equal(t, 90*time.Second, EnvDuration("HRMS_TEST_DURATION", time.Second))
	assert.True(t, EnvBool("HRMS_TEST_UNSET", true))
	assert.Equal(t, "x", EnvString("HRMS_TEST_UNSET", "x"))
	assert.Equal(t, map[string]bool{"a": true, "b": true}, EnvSet("HRMS_TEST_SET"))
	assert.Empty(t, EnvSet("HRMS_TEST_UNSET"))
}
