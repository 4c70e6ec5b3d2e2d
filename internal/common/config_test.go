package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, "TEXT", cfg.Platform.DefaultStore)
	assert.Equal(t, "PG", cfg.Platform.SQLStore)
	assert.Equal(t, "NOUPDATE", cfg.Platform.DefaultPolicy)
	assert.Equal(t, DefaultThresholdHours, cfg.Update.ThresholdHours)
	assert.Equal(t, "TEST", cfg.Providers.Codes.Test)
	assert.Equal(t, 30*time.Second, cfg.Providers.FRED.GetTimeout())
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("ECONDATA_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestConfig_InvalidPortIgnored(t *testing.T) {
	t.Setenv("ECONDATA_PORT", "not-a-port")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestConfig_StoreAndPolicyEnvOverride(t *testing.T) {
	t.Setenv("ECONDATA_DEFAULT_STORE", "badger")
	t.Setenv("ECONDATA_DEFAULT_POLICY", "simple")
	t.Setenv("ECONDATA_ECHO_ACCESS", "true")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "BADGER", cfg.Platform.DefaultStore)
	assert.Equal(t, "SIMPLE", cfg.Platform.DefaultPolicy)
	assert.True(t, cfg.Platform.EchoAccess)
}

func TestConfig_DataPathEnvOverride(t *testing.T) {
	t.Setenv("ECONDATA_DATA_PATH", "/srv/econ")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, filepath.Join("/srv/econ", "text"), cfg.Storage.Text.Path)
	assert.Equal(t, filepath.Join("/srv/econ", "badger"), cfg.Storage.Badger.Path)
	assert.Equal(t, filepath.Join("/srv/econ", "statcan"), cfg.Providers.StatCan.Directory)
}

func TestConfig_FREDKeyEnvOverride(t *testing.T) {
	t.Setenv("FRED_API_KEY", "from-env")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "from-env", cfg.Providers.FRED.APIKey)
}

func TestConfig_KafkaBrokersEnvOverride(t *testing.T) {
	t.Setenv("ECONDATA_KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Brokers)
}

func TestLoadConfig_MergesFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[platform]
default_store = "BADGER"
default_policy = "SIMPLE"

[update]
threshold_hours = 12
`), 0644))
	require.NoError(t, os.WriteFile(local, []byte(`
[update]
threshold_hours = 6
`), 0644))

	cfg, err := LoadConfig(base, filepath.Join(dir, "missing.toml"), local)
	require.NoError(t, err)

	assert.Equal(t, "BADGER", cfg.Platform.DefaultStore)
	assert.Equal(t, "SIMPLE", cfg.Platform.DefaultPolicy)
	assert.Equal(t, 6, cfg.Update.ThresholdHours)
	// untouched sections keep defaults
	assert.Equal(t, "PG", cfg.Platform.SQLStore)
}

func TestLoadConfig_InvalidToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[platform\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestIsProduction(t *testing.T) {
	cfg := &Config{Environment: " Prod "}
	assert.True(t, cfg.IsProduction())
	cfg.Environment = "development"
	assert.False(t, cfg.IsProduction())
}
