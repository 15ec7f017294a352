package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/walletd-network/walletd/internal/config"
)

func TestInitConfigDefaults(t *testing.T) {
	t.Setenv("WALLETD_DATADIR", t.TempDir())

	require.NoError(t, config.InitConfig())
	require.Equal(t, config.DBBadger, config.GetString(config.DBTypeKey))
	require.Equal(t, 1000, config.GetInt(config.SyncMaxTxsKey))
	require.Equal(t, 1.4, config.GetFloat(config.CosmosGasAdjustmentKey))
	require.Equal(t, 3*time.Hour, config.GetDuration(config.CacheMaxAgeKey))
}

func TestInitConfigValidation(t *testing.T) {
	t.Setenv("WALLETD_DATADIR", t.TempDir())

	t.Setenv("WALLETD_DB_TYPE", "redis")
	require.Error(t, config.InitConfig())

	t.Setenv("WALLETD_DB_TYPE", "inmemory")
	t.Setenv("WALLETD_COSMOS_GAS_ADJUSTMENT", "0.5")
	require.Error(t, config.InitConfig())

	t.Setenv("WALLETD_COSMOS_GAS_ADJUSTMENT", "1.2")
	require.NoError(t, config.InitConfig())
	require.Equal(t, config.DBInMemory, config.GetString(config.DBTypeKey))
}
