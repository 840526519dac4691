package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory so no stray .env is read.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	assert.Equal(t, "master_dbo", cfg.Target.SearchPath)
	assert.Equal(t, 500, cfg.Translate.ChunkSize)
	assert.Equal(t, 3, cfg.Repair.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Generation.Timeout)
	assert.Equal(t, "ConvertedProcedures", cfg.Artifacts.Dir)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "procmigrate.yaml", `
target:
  dsn: postgres://app@localhost/app
  search_path: legacy
generation:
  timeout: 30s
  temperature: 0
translate:
  chunk_size: 200
repair:
  max_attempts: 5
  backoff: 2s
log:
  level:
`)

	cfg, err := Load(LoadOptions{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "postgres://app@localhost/app", cfg.Target.DSN)
	assert.Equal(t, "legacy", cfg.Target.SearchPath)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 0.0, cfg.Generation.Temperature)
	assert.Equal(t, 200, cfg.Translate.ChunkSize)
	assert.Equal(t, 5, cfg.Repair.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Repair.Backoff)
	// A null value keeps the default.
	assert.Equal(t, "info", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "gpt-4o", cfg.Generation.CorrectModel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "procmigrate.yaml", "translate:\n  chunk_size: 200\n")
	t.Setenv("PROCMIGRATE_TRANSLATE_CHUNK_SIZE", "50")
	t.Setenv("PROCMIGRATE_GENERATION_API_KEY", "sk-test")
	t.Setenv("PROCMIGRATE_TRANSLATE_STOP_ON_ERROR", "true")
	t.Setenv("PROCMIGRATE_REPAIR_BACKOFF", "1s")

	cfg, err := Load(LoadOptions{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Translate.ChunkSize)
	assert.Equal(t, "sk-test", cfg.Generation.APIKey)
	assert.True(t, cfg.Translate.StopOnError)
	assert.Equal(t, time.Second, cfg.Repair.Backoff)
}

func TestLoad_DefaultEnvFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, ".env", "PROCMIGRATE_GENERATION_API_KEY=sk-dotenv\nOTHER_KEY=ignored\n")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "sk-dotenv", cfg.Generation.APIKey)
	_, set := os.LookupEnv("PROCMIGRATE_GENERATION_API_KEY")
	assert.False(t, set, "env file must not leak into the process environment")
}

func TestLoad_ProcessEnvBeatsEnvFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "secrets.env", "PROCMIGRATE_SOURCE_DSN=sqlserver://file\n")
	t.Setenv("PROCMIGRATE_SOURCE_DSN", "sqlserver://env")

	cfg, err := Load(LoadOptions{EnvFile: path})
	require.NoError(t, err)
	assert.Equal(t, "sqlserver://env", cfg.Source.DSN)
}

func TestLoad_MissingNamedFiles(t *testing.T) {
	dir := isolate(t)

	_, err := Load(LoadOptions{Path: filepath.Join(dir, "nope.yaml")})
	require.Error(t, err)

	_, err = Load(LoadOptions{EnvFile: filepath.Join(dir, "nope.env")})
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "bad.yaml", "translate: [\n")

	_, err := Load(LoadOptions{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero chunk size", map[string]string{"PROCMIGRATE_TRANSLATE_CHUNK_SIZE": "0"}},
		{"zero attempts", map[string]string{"PROCMIGRATE_REPAIR_MAX_ATTEMPTS": "0"}},
		{"bad log level", map[string]string{"PROCMIGRATE_LOG_LEVEL": "loud"}},
		{"bad base url", map[string]string{"PROCMIGRATE_GENERATION_BASE_URL": "not a url"}},
		{"negative temperature", map[string]string{"PROCMIGRATE_GENERATION_TEMPERATURE": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(LoadOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "configuration validation failed")
		})
	}
}

func TestRequire(t *testing.T) {
	cfg := Default()

	err := cfg.RequireConvert()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.dsn is not set (env PROCMIGRATE_SOURCE_DSN)")
	assert.Contains(t, err.Error(), "PROCMIGRATE_GENERATION_API_KEY")

	cfg.Source.DSN = "sqlserver://x"
	cfg.Generation.APIKey = "sk"
	assert.NoError(t, cfg.RequireConvert())

	err = cfg.RequireApply()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target.dsn")

	cfg.Target.DSN = "postgres://x"
	assert.NoError(t, cfg.RequireApply())
}

func TestTransformEnvKey(t *testing.T) {
	tests := map[string]string{
		"GENERATION_API_KEY": "generation.api_key",
		"LOG_JSON":           "log.json",
		"TARGET_SEARCH_PATH": "target.search_path",
		"LEDGER":             "ledger",
		"_REPAIR__BACKOFF_":  "repair.backoff",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, transformEnvKey(in), in)
	}
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "PROCMIGRATE_GENERATION_CORRECT_MAX_TOKENS", EnvName("generation.correct_max_tokens"))
}
