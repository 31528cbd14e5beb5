package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/cache"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/config"
	explorerdb "github.com/Salty-Dragon/rtm-asset-explorer-sub000/db"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/external/rtm"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/indexer"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/logging"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/metrics"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/syncer"
)

func initFlags() {
	flag.String(config.FlagConfigPath, "", "config file path")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()
	err := viper.BindPFlags(pflag.CommandLine)
	if err != nil {
		panic(err)
	}
}

func printUsage() {
	fmt.Print("usage: ./asset-syncer --config-path configFile\n")
}

func main() {
	var (
		cfg            *config.Config
		configFilePath string
	)
	initFlags()
	configFilePath = viper.GetString(config.FlagConfigPath)
	if configFilePath == "" {
		configFilePath = os.Getenv(config.EnvVarConfigFilePath)
	}
	if configFilePath == "" {
		printUsage()
		return
	}
	cfg = config.ParseConfigFromFile(configFilePath)
	if cfg == nil {
		panic("failed to get configuration")
	}
	cfg.Validate()
	logging.InitLogger(&cfg.LogConfig)

	gdb := config.InitDBWithConfig(&cfg.DBConfig, true)
	dao := explorerdb.NewExplorerSvcDB(gdb)

	chain, err := rtm.NewNodeClient(cfg.ChainConfig.RPCAddr, cfg.ChainConfig.RPCUser, cfg.ChainConfig.RPCPass)
	if err != nil {
		panic(fmt.Sprintf("failed to create node client, err=%s", err.Error()))
	}
	defer chain.Shutdown()

	assetCache, err := cache.NewLocalCache(cfg.CacheConfig.GetCacheSize())
	if err != nil {
		panic(err)
	}
	processor := indexer.NewProcessor(dao, assetCache)
	assetSyncer := syncer.NewAssetSyncer(dao, chain, processor, cfg)

	if cfg.MetricsConfig.Enable {
		address := cfg.MetricsConfig.HttpAddress
		if address == "" {
			address = metrics.DefaultMetricsAddress
		}
		metrics.NewMetrics(address).Start()
	}

	go assetSyncer.StartLoop()
	go assetSyncer.MonitorChainTip()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logging.Logger.Infof("received shutdown signal, stopping sync")
	assetSyncer.Stop()
}
