package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves into an empty temp dir so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

// clearKeys blanks the bare credential variables so the host environment
// does not leak into assertions.
func clearKeys(t *testing.T) {
	t.Helper()
	for _, env := range envAliases {
		t.Setenv(env, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	clearKeys(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "agrimate.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.LLM.TimeoutSecs)
	assert.Equal(t, 20, cfg.LLM.HistoryLimit)

	assert.Equal(t, "https://integrate.api.nvidia.com/v1", cfg.LLM.NVIDIA.BaseURL)
	assert.Equal(t, "nvidia/llama-3.3-nemotron-super-49b-v1.5", cfg.LLM.NVIDIA.Model)
	assert.InDelta(t, 0.6, cfg.LLM.NVIDIA.Temperature, 0.001)
	require.NotNil(t, cfg.LLM.NVIDIA.TopP)
	assert.InDelta(t, 0.95, *cfg.LLM.NVIDIA.TopP, 0.001)
	assert.Equal(t, int64(4096), cfg.LLM.NVIDIA.MaxTokens)

	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.Groq.BaseURL)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Groq.Model)
	assert.InDelta(t, 0.7, cfg.LLM.Groq.Temperature, 0.001)
	assert.Nil(t, cfg.LLM.Groq.TopP)

	assert.Equal(t, "New Delhi", cfg.Weather.DefaultLocation)
	assert.Equal(t, 10, cfg.Weather.TimeoutSecs)
	assert.Equal(t, 600, cfg.Weather.CacheMaxAgeSecs)
	assert.Equal(t, "https://api.data.gov.in/resource", cfg.Mandi.BaseURL)
	assert.Equal(t, "9ef84268-d588-465a-a308-a864a43d0070", cfg.Mandi.ResourceID)
	assert.Equal(t, 5, cfg.Mandi.TimeoutSecs)
	assert.Equal(t, 300, cfg.Mandi.CacheTTLSecs)
	assert.Equal(t, 50, cfg.Mandi.DefaultLimit)
	assert.True(t, cfg.Metrics.Enabled)

	assert.Empty(t, cfg.LLM.NVIDIA.Key)
	assert.False(t, cfg.LLM.HasProvider())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)
	clearKeys(t)

	yaml := `
store:
  driver: bolt
  path: data/history.db
log:
  level: debug
  format: console
server:
  port: 9090
llm:
  groq:
    model: llama-3.1-8b-instant
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bolt", cfg.Store.Driver)
	assert.Equal(t, "data/history.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Groq.Model)
	// Defaults still apply for unset values
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.Groq.BaseURL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	clearKeys(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("AGRIMATE_STORE_DRIVER", "postgres")
	t.Setenv("AGRIMATE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadBareKeyNames(t *testing.T) {
	chdirTemp(t)
	clearKeys(t)

	t.Setenv("NVIDIA_API_KEY", "nv-key")
	t.Setenv("GROQ_API_KEY", "gsk-key")
	t.Setenv("WEATHER_API_KEY", "wx-key")
	t.Setenv("DATA_GOV_API_KEY", "dg-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "nv-key", cfg.LLM.NVIDIA.Key)
	assert.Equal(t, "gsk-key", cfg.LLM.Groq.Key)
	assert.Equal(t, "wx-key", cfg.Weather.Key)
	assert.Equal(t, "dg-key", cfg.Mandi.Key)
	assert.True(t, cfg.LLM.HasProvider())
}

func TestLoadPrefixedKeyWins(t *testing.T) {
	chdirTemp(t)
	clearKeys(t)

	t.Setenv("AGRIMATE_LLM_GROQ_KEY", "prefixed")
	t.Setenv("GROQ_API_KEY", "bare")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.LLM.Groq.Key)
}

func TestLoadDotEnvFiles(t *testing.T) {
	dir := chdirTemp(t)
	clearKeys(t)
	os.Unsetenv("GROQ_API_KEY")
	os.Unsetenv("WEATHER_API_KEY")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("GROQ_API_KEY=from-local\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GROQ_API_KEY=from-env\nWEATHER_API_KEY=wx\n"), 0644))
	t.Cleanup(func() {
		os.Unsetenv("GROQ_API_KEY")
		os.Unsetenv("WEATHER_API_KEY")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-local", cfg.LLM.Groq.Key)
	assert.Equal(t, "wx", cfg.Weather.Key)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("AGRIMATE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "agrimate.db"
	cfg.Mandi.DefaultLimit = 50
	return cfg
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateStoreDrivers(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		path    string
		url     string
		wantErr string
	}{
		{name: "sqlite ok", driver: "sqlite", path: "a.db"},
		{name: "bolt ok", driver: "bolt", path: "a.bolt"},
		{name: "bolt missing path", driver: "bolt", wantErr: "store.path is required"},
		{name: "postgres ok", driver: "postgres", url: "postgres://localhost/agrimate"},
		{name: "postgres missing url", driver: "postgres", wantErr: "store.database_url is required"},
		{name: "unknown", driver: "mongo", path: "x", wantErr: "unknown store.driver mongo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			cfg.Store.Driver = tt.driver
			cfg.Store.Path = tt.path
			cfg.Store.DatabaseURL = tt.url

			err := cfg.Validate("history")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateChat_RequiresProvider(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("chat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.nvidia.key")

	cfg.LLM.Anthropic.Key = "sk-ant"
	assert.NoError(t, cfg.Validate("chat"))
	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateWeather_RequiresKey(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("weather")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weather.key is required")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	dir := chdirTemp(t)
	clearKeys(t)

	// config.yaml in the working directory is ignored when a file is named.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9090\n"), 0644))
	path := filepath.Join(dir, "staging.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\nweather:\n  default_location: Pune\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "Pune", cfg.Weather.DefaultLocation)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoadFile_MissingPath(t *testing.T) {
	dir := chdirTemp(t)
	clearKeys(t)

	_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}
