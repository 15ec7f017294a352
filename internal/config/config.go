package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// TronExplorerUrlKey is the endpoint of the trongrid-compatible gateway
	TronExplorerUrlKey = "TRON_EXPLORER_URL"
	// StellarExplorerUrlKey is the endpoint of the horizon gateway
	StellarExplorerUrlKey = "STELLAR_EXPLORER_URL"
	// StellarDirectoryUrlKey is the endpoint of the public directory used to resolve recipient memo policies
	StellarDirectoryUrlKey = "STELLAR_DIRECTORY_URL"
	// StellarPassphraseKey is the passphrase of the stellar network signatures commit to
	StellarPassphraseKey = "STELLAR_PASSPHRASE"
	// CosmosExplorerUrlKey is the endpoint of the LCD gateway
	CosmosExplorerUrlKey = "COSMOS_EXPLORER_URL"
	// CosmosGasPriceKey is the price of one gas unit in the smallest denomination
	CosmosGasPriceKey = "COSMOS_GAS_PRICE"
	// CosmosGasAdjustmentKey scales gas estimates up to absorb estimation drift
	CosmosGasAdjustmentKey = "COSMOS_GAS_ADJUSTMENT"
	// DeviceAddrKey is the address <host:port> of the signing device APDU endpoint
	DeviceAddrKey = "DEVICE_ADDR"
	// SyncMaxTxsKey bounds how many raw transactions one sync pass pulls per account
	SyncMaxTxsKey = "SYNC_MAX_TXS"
	// CacheMaxEntriesKey bounds how many directory verdicts the memo cache holds
	CacheMaxEntriesKey = "CACHE_MAX_ENTRIES"
	// CacheMaxAgeKey is how long a cached directory verdict stays fresh
	CacheMaxAgeKey = "CACHE_MAX_AGE"

	// DBBadger and DBInMemory are the supported DB_TYPE values.
	DBBadger   = "badger"
	DBInMemory = "inmemory"

	DbLocation = "db"

	mainnetStellarPassphrase = "Public Global Stellar Network ; September 2015"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("walletd", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("WALLETD")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DBTypeKey, DBBadger)
	vip.SetDefault(TronExplorerUrlKey, "https://api.trongrid.io")
	vip.SetDefault(StellarExplorerUrlKey, "https://horizon.stellar.org")
	vip.SetDefault(StellarDirectoryUrlKey, "https://api.stellar.expert")
	vip.SetDefault(StellarPassphraseKey, mainnetStellarPassphrase)
	vip.SetDefault(CosmosExplorerUrlKey, "https://api.cosmos.network")
	vip.SetDefault(CosmosGasPriceKey, 25)
	vip.SetDefault(CosmosGasAdjustmentKey, 1.4)
	vip.SetDefault(DeviceAddrKey, "127.0.0.1:9999")
	vip.SetDefault(SyncMaxTxsKey, 1000)
	vip.SetDefault(CacheMaxEntriesKey, 300)
	vip.SetDefault(CacheMaxAgeKey, 3*time.Hour)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	switch dbType := GetString(DBTypeKey); dbType {
	case DBBadger, DBInMemory:
	default:
		return fmt.Errorf("unsupported database type: %s", dbType)
	}

	if GetFloat(CosmosGasAdjustmentKey) < 1 {
		return fmt.Errorf("%s must be equal or greater than 1", CosmosGasAdjustmentKey)
	}
	if GetInt(CosmosGasPriceKey) <= 0 {
		return fmt.Errorf("%s must be positive", CosmosGasPriceKey)
	}
	if GetInt(SyncMaxTxsKey) <= 0 {
		return fmt.Errorf("%s must be positive", SyncMaxTxsKey)
	}
	if GetInt(CacheMaxEntriesKey) <= 0 {
		return fmt.Errorf("%s must be positive", CacheMaxEntriesKey)
	}
	if GetDuration(CacheMaxAgeKey) <= 0 {
		return fmt.Errorf("%s must be positive", CacheMaxAgeKey)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	return makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
