package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/econdata/internal/common"
	"github.com/bobmcallan/econdata/internal/models"
	"github.com/bobmcallan/econdata/internal/platform"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Text.Path = filepath.Join(dir, "text")
	cfg.Storage.Badger.Path = filepath.Join(dir, "badger")
	cfg.Providers.StatCan.Directory = filepath.Join(dir, "statcan")
	return cfg
}

func TestNewAppWithConfig_RegistersConfiguredBackends(t *testing.T) {
	a, err := NewAppWithConfig(context.Background(), testConfig(t), common.NewSilentLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.ElementsMatch(t, []string{"MEMORY", "TEXT", "BADGER"}, a.Platform.Stores.Codes())
	assert.ElementsMatch(t, []string{"TEST", "U", "PUSH", "F", "D", "CCSV"}, a.Platform.Providers.Codes())
	assert.Equal(t, []string{"NOUPDATE", "SIMPLE"}, a.Platform.Policies.Names())
	assert.NotNil(t, a.User)
}

func TestNewAppWithConfig_FetchThroughDefaultStore(t *testing.T) {
	a, err := NewAppWithConfig(context.Background(), testConfig(t), common.NewSilentLogger())
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	ser, err := a.Platform.FetchDefault(ctx, "TEST@TEST1")
	require.NoError(t, err)
	assert.Equal(t, 2, ser.Len())

	rec, err := a.Platform.Metadata(ctx, "TEST@TEST1", "TEXT")
	require.NoError(t, err)
	assert.Equal(t, "TEST@TEST1", rec.FullTicker.String())

	// Same store through the BADGER backend and the SIMPLE policy.
	ser, err = a.Platform.Fetch(ctx, "TEST@TEST1", platform.FetchOptions{Store: "BADGER", Policy: "SIMPLE"})
	require.NoError(t, err)
	assert.Equal(t, 2, ser.Len())
}

func TestNewAppWithConfig_UserProviderHandlers(t *testing.T) {
	a, err := NewAppWithConfig(context.Background(), testConfig(t), common.NewSilentLogger())
	require.NoError(t, err)
	defer a.Close()

	a.User.Handle("ONES", func(ctx context.Context, query string) (models.Series, error) {
		return models.NewSeries(query, []models.Observation{
			models.Obs(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 1),
		})
	})

	ser, err := a.Platform.Fetch(context.Background(), "U@ONES", platform.FetchOptions{Store: "MEMORY"})
	require.NoError(t, err)
	assert.Equal(t, 1, ser.Len())
}

func TestNewAppWithConfig_MissingDefaultStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Platform.DefaultStore = "REDIS"

	_, err := NewAppWithConfig(context.Background(), cfg, common.NewSilentLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownStore)
}

func TestNewAppWithConfig_UnknownDefaultPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Platform.DefaultPolicy = "WEEKLY"

	_, err := NewAppWithConfig(context.Background(), cfg, common.NewSilentLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownPolicy)
}

func TestNewApp_LoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "econdata.toml")
	content := `
[platform]
default_store = "MEMORY"

[storage.text]
path = ""

[storage.badger]
path = ""

[logging]
level = "error"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	a, err := NewApp(path)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"MEMORY"}, a.Platform.Stores.Codes())
	_, err = a.Platform.FetchDefault(context.Background(), "TEST@TEST1")
	require.NoError(t, err)
}
