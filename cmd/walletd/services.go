package main

import (
	"fmt"
	"math/big"
	"path/filepath"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/walletd-network/walletd/internal/config"
	"github.com/walletd-network/walletd/internal/core/application"
	"github.com/walletd-network/walletd/internal/core/application/bridge"
	cosmosbridge "github.com/walletd-network/walletd/internal/core/application/bridge/cosmos"
	stellarbridge "github.com/walletd-network/walletd/internal/core/application/bridge/stellar"
	tronbridge "github.com/walletd-network/walletd/internal/core/application/bridge/tron"
	"github.com/walletd-network/walletd/internal/core/domain"
	"github.com/walletd-network/walletd/internal/infrastructure/device/speculos"
	cosmosexplorer "github.com/walletd-network/walletd/internal/infrastructure/explorer/cosmos"
	stellarexplorer "github.com/walletd-network/walletd/internal/infrastructure/explorer/stellar"
	tronexplorer "github.com/walletd-network/walletd/internal/infrastructure/explorer/tron"
	dbbadger "github.com/walletd-network/walletd/internal/infrastructure/storage/db/badger"
	"github.com/walletd-network/walletd/internal/infrastructure/storage/db/inmemory"
	"github.com/walletd-network/walletd/pkg/asynccache"
)

// getAccountService assembles the service from the configured explorers,
// storage and device endpoint. The returned cleanup releases the storage.
func getAccountService() (*application.AccountService, func(), error) {
	if err := config.InitConfig(); err != nil {
		return nil, nil, err
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	registry, err := buildRegistry()
	if err != nil {
		return nil, nil, err
	}

	repo, cleanup, err := buildRepository()
	if err != nil {
		return nil, nil, err
	}

	svc, err := application.NewAccountService(
		repo, registry,
		speculos.NewConnector(), config.GetString(config.DeviceAddrKey),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func buildRegistry() (*bridge.Registry, error) {
	maxTxs := config.GetInt(config.SyncMaxTxsKey)

	tronClient, err := tronexplorer.NewClient(
		config.GetString(config.TronExplorerUrlKey),
	)
	if err != nil {
		return nil, fmt.Errorf("tron explorer: %w", err)
	}
	tronBridge, err := tronbridge.NewBridge(tronClient, maxTxs)
	if err != nil {
		return nil, err
	}

	stellarClient, err := stellarexplorer.NewClient(
		config.GetString(config.StellarExplorerUrlKey),
	)
	if err != nil {
		return nil, fmt.Errorf("stellar explorer: %w", err)
	}
	stellarBridge, err := stellarbridge.NewBridge(
		stellarClient,
		stellarexplorer.NewDirectory(config.GetString(config.StellarDirectoryUrlKey)),
		config.GetString(config.StellarPassphraseKey),
		maxTxs,
		asynccache.Options{
			MaxEntries: config.GetInt(config.CacheMaxEntriesKey),
			MaxAge:     config.GetDuration(config.CacheMaxAgeKey),
		},
	)
	if err != nil {
		return nil, err
	}

	cosmosClient, err := cosmosexplorer.NewClient(
		config.GetString(config.CosmosExplorerUrlKey),
	)
	if err != nil {
		return nil, fmt.Errorf("cosmos explorer: %w", err)
	}
	cosmosBridge, err := cosmosbridge.NewBridge(
		cosmosClient,
		big.NewInt(int64(config.GetInt(config.CosmosGasPriceKey))),
		decimal.NewFromFloat(config.GetFloat(config.CosmosGasAdjustmentKey)),
		maxTxs,
	)
	if err != nil {
		return nil, err
	}

	return bridge.NewRegistry(tronBridge, stellarBridge, cosmosBridge), nil
}

func buildRepository() (domain.AccountRepository, func(), error) {
	switch config.GetString(config.DBTypeKey) {
	case config.DBInMemory:
		return inmemory.NewAccountRepositoryImpl(inmemory.NewDbManager()),
			func() {}, nil
	default:
		dbDir := filepath.Join(config.GetDatadir(), config.DbLocation)
		dbManager, err := dbbadger.NewDbManager(dbDir, nil)
		if err != nil {
			return nil, nil, err
		}
		repo := dbbadger.NewAccountRepositoryImpl(dbManager.AccountStore)
		return repo, func() { dbManager.Close() }, nil
	}
}
