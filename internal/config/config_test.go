package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configVars = []string{
	"GAIAFLOW_PROVIDER", "GAIAFLOW_MODEL",
	"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY", "TAVILY_API_KEY",
	"GAIAFLOW_STORE", "GAIAFLOW_SQLITE_PATH",
	"GAIAFLOW_REDIS_ADDR", "GAIAFLOW_REDIS_PASSWORD", "GAIAFLOW_REDIS_DB",
	"GAIAFLOW_MYSQL_DSN",
	"GAIAFLOW_MAX_STEPS", "GAIAFLOW_LOG_FORMAT", "GAIAFLOW_LOG_LEVEL",
}

// clearEnv unsets every config variable for the duration of the test.
// t.Setenv registers the restore, Unsetenv removes the value.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range configVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Empty(t, cfg.Model)
	assert.Equal(t, "sk-test", cfg.OpenAIKey)
	assert.Empty(t, cfg.TavilyKey)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "gaiaflow.db", cfg.Store.SQLitePath)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 0, cfg.Store.RedisDB)
	assert.Equal(t, 50, cfg.MaxSteps)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GAIAFLOW_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GAIAFLOW_MODEL", "claude-3-5-sonnet-latest")
	t.Setenv("TAVILY_API_KEY", "tvly-key")
	t.Setenv("GAIAFLOW_STORE", "redis")
	t.Setenv("GAIAFLOW_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("GAIAFLOW_REDIS_PASSWORD", "hunter2")
	t.Setenv("GAIAFLOW_REDIS_DB", "3")
	t.Setenv("GAIAFLOW_MAX_STEPS", "12")
	t.Setenv("GAIAFLOW_LOG_FORMAT", "json")
	t.Setenv("GAIAFLOW_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", cfg.Model)
	assert.Equal(t, "tvly-key", cfg.TavilyKey)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis.internal:6380", cfg.Store.RedisAddr)
	assert.Equal(t, "hunter2", cfg.Store.RedisPassword)
	assert.Equal(t, 3, cfg.Store.RedisDB)
	assert.Equal(t, 12, cfg.MaxSteps)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.env")
	content := "OPENAI_API_KEY=sk-file\nGAIAFLOW_MODEL=gpt-4o\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.OpenAIKey)
	assert.Equal(t, "gpt-4o", cfg.Model)
}

func TestLoad_EnvFileDoesNotOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := filepath.Join(t.TempDir(), "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_API_KEY=sk-file\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.OpenAIKey)
}

func TestLoad_EnvFileMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load env file")

	// No explicit path: a missing ./.env is not an error.
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.OpenAIKey)
}

func TestLoad_ParseError(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GAIAFLOW_MAX_STEPS", "lots")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "unknown provider",
			env:  map[string]string{"GAIAFLOW_PROVIDER": "llama"},
			want: "unsupported provider",
		},
		{
			name: "openai key missing",
			env:  map[string]string{},
			want: "OPENAI_API_KEY is required",
		},
		{
			name: "anthropic key missing",
			env:  map[string]string{"GAIAFLOW_PROVIDER": "anthropic"},
			want: "ANTHROPIC_API_KEY is required",
		},
		{
			name: "google key missing",
			env:  map[string]string{"GAIAFLOW_PROVIDER": "google"},
			want: "GOOGLE_API_KEY is required",
		},
		{
			name: "unknown store",
			env:  map[string]string{"OPENAI_API_KEY": "sk", "GAIAFLOW_STORE": "postgres"},
			want: "unsupported store backend",
		},
		{
			name: "sqlite path empty",
			env:  map[string]string{"OPENAI_API_KEY": "sk", "GAIAFLOW_STORE": "sqlite", "GAIAFLOW_SQLITE_PATH": ""},
			want: "GAIAFLOW_SQLITE_PATH is required",
		},
		{
			name: "redis addr empty",
			env:  map[string]string{"OPENAI_API_KEY": "sk", "GAIAFLOW_STORE": "redis", "GAIAFLOW_REDIS_ADDR": ""},
			want: "GAIAFLOW_REDIS_ADDR is required",
		},
		{
			name: "mysql dsn missing",
			env:  map[string]string{"OPENAI_API_KEY": "sk", "GAIAFLOW_STORE": "mysql"},
			want: "GAIAFLOW_MYSQL_DSN is required",
		},
		{
			name: "zero max steps",
			env:  map[string]string{"OPENAI_API_KEY": "sk", "GAIAFLOW_MAX_STEPS": "0"},
			want: "max steps must be at least 1",
		},
		{
			name: "bad log format",
			env:  map[string]string{"OPENAI_API_KEY": "sk", "GAIAFLOW_LOG_FORMAT": "yaml"},
			want: "invalid log format",
		},
		{
			name: "bad log level",
			env:  map[string]string{"OPENAI_API_KEY": "sk", "GAIAFLOW_LOG_LEVEL": "trace"},
			want: "invalid log level",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParse_SkipsValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("GAIAFLOW_PROVIDER", "llama")

	cfg, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, "llama", cfg.Provider)
	assert.Error(t, cfg.Validate())
}

func TestAPIKey(t *testing.T) {
	cfg := &Config{
		Provider:     "openai",
		OpenAIKey:    "sk-oa",
		AnthropicKey: "sk-ant",
		GoogleKey:    "sk-goog",
	}
	assert.Equal(t, "sk-oa", cfg.APIKey())

	cfg.Provider = "anthropic"
	assert.Equal(t, "sk-ant", cfg.APIKey())

	cfg.Provider = "google"
	assert.Equal(t, "sk-goog", cfg.APIKey())
}
