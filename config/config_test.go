package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	}
}

func TestLoad_ReadsYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "actionmesh.yaml", `
model:
  provider: anthropic
  model: claude-3-5-haiku-latest
  timeout: 5s
store:
  driver: sqlite
  dsn: file:actionmesh.db
commitment:
  cutoff_hour: 16
  timezone: America/Chicago
orchestrator:
  company_name: Acme Roofing
  integrations: [sms, calendar]
sms:
  max_length: 160
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, 5*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 16, cfg.Commitment.CutoffHour)
	assert.Equal(t, 17, cfg.Commitment.DueHour)
	assert.Equal(t, "Acme Roofing", cfg.Orchestrator.CompanyName)
	assert.Equal(t, []string{"sms", "calendar"}, cfg.Orchestrator.Integrations)
	assert.Equal(t, []string{"payments"}, cfg.Orchestrator.ForbiddenCategories)
	assert.Equal(t, 160, cfg.SMS.MaxLength)

	loc, err := cfg.Commitment.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", loc.String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ACTIONMESH_MODEL_PROVIDER", "gemini")
	t.Setenv("ACTIONMESH_SMS_MAX_LENGTH", "200")
	t.Setenv("ACTIONMESH_ERROR_BUFFER_REDIS_ADDR", "localhost:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, 200, cfg.SMS.MaxLength)
	assert.Equal(t, "localhost:6379", cfg.ErrorBuffer.RedisAddr)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"provider": "model:\n  provider: llama\n",
		"driver":   "store:\n  driver: mongo\n",
		"dsn":      "store:\n  driver: postgres\n",
		"timezone": "commitment:\n  timezone: Mars/Olympus\n",
		"due hour": "commitment:\n  due_hour: 25\n",
		"yaml":     "model: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, dir, name+".yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestPropertyValidate_HoursInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := Default()
		cfg.Commitment.CutoffHour = rapid.IntRange(-5, 30).Draw(t, "cutoff")
		cfg.Commitment.DueHour = rapid.IntRange(-5, 30).Draw(t, "due")
		valid := cfg.Commitment.CutoffHour >= 0 && cfg.Commitment.CutoffHour <= 24 &&
			cfg.Commitment.DueHour >= 0 && cfg.Commitment.DueHour <= 23
		if err := cfg.Validate(); (err == nil) != valid {
			t.Fatalf("cutoff=%d due=%d: err=%v", cfg.Commitment.CutoffHour, cfg.Commitment.DueHour, err)
		}
	})
}
