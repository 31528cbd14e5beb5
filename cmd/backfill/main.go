package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/cache"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/config"
	explorerdb "github.com/Salty-Dragon/rtm-asset-explorer-sub000/db"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/external/rtm"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/indexer"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/logging"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/syncer"
	"github.com/Salty-Dragon/rtm-asset-explorer-sub000/util"
)

const (
	ModeResync          = "resync"
	ModeRelinkSubAssets = "relink-subassets"
	ModeRecomputeSupply = "recompute-supply"
)

type options struct {
	ConfigPath string `short:"c" long:"config-path" description:"config file path" required:"true"`
	Modes      string `short:"m" long:"mode" description:"comma separated modes: resync, relink-subassets, recompute-supply" default:"resync"`
	Clear      bool   `long:"clear" description:"delete stored transfers in the range before the re-walk, requires --yes"`
	Yes        bool   `short:"y" long:"yes" description:"confirm destructive operations"`
	Args       struct {
		From string `positional-arg-name:"FROM" description:"first height of the range"`
		To   string `positional-arg-name:"TO" description:"last height of the range"`
	} `positional-args:"true"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	modes := util.SplitByComma(opts.Modes)
	if len(modes) == 0 {
		fmt.Println("no mode given")
		os.Exit(2)
	}
	for _, mode := range modes {
		switch mode {
		case ModeResync, ModeRelinkSubAssets, ModeRecomputeSupply:
		default:
			fmt.Printf("unknown mode %q\n", mode)
			os.Exit(2)
		}
	}

	var (
		fromHeight, toHeight uint64
		err                  error
	)
	if hasMode(modes, ModeResync) {
		if opts.Args.From == "" || opts.Args.To == "" {
			fmt.Println("resync needs a height range: backfill [options] FROM TO")
			os.Exit(2)
		}
		if fromHeight, err = util.StringToUint64(opts.Args.From); err != nil {
			fmt.Printf("bad FROM height %q\n", opts.Args.From)
			os.Exit(2)
		}
		if toHeight, err = util.StringToUint64(opts.Args.To); err != nil {
			fmt.Printf("bad TO height %q\n", opts.Args.To)
			os.Exit(2)
		}
	}
	if opts.Clear && !hasMode(modes, ModeResync) {
		fmt.Println("--clear only applies to the resync mode")
		os.Exit(2)
	}
	if opts.Clear && !opts.Yes {
		fmt.Println("--clear deletes stored transfer rows; re-run with --yes to confirm")
		os.Exit(1)
	}

	cfg := config.ParseConfigFromFile(opts.ConfigPath)
	if cfg == nil {
		panic("failed to get configuration")
	}
	cfg.Validate()
	logging.InitLogger(&cfg.LogConfig)

	gdb := config.InitDBWithConfig(&cfg.DBConfig, true)
	dao := explorerdb.NewExplorerSvcDB(gdb)

	chain, err := rtm.NewNodeClient(cfg.ChainConfig.RPCAddr, cfg.ChainConfig.RPCUser, cfg.ChainConfig.RPCPass)
	if err != nil {
		fmt.Printf("failed to create node client, err=%s\n", err.Error())
		os.Exit(1)
	}
	defer chain.Shutdown()

	assetCache, err := cache.NewLocalCache(cfg.CacheConfig.GetCacheSize())
	if err != nil {
		panic(err)
	}
	processor := indexer.NewProcessor(dao, assetCache)
	backfiller := syncer.NewBackfiller(dao, chain, processor)

	for _, mode := range modes {
		switch mode {
		case ModeResync:
			counters, err := backfiller.Run(syncer.BackfillOptions{
				From:       fromHeight,
				To:         toHeight,
				ClearFirst: opts.Clear,
			})
			if err != nil {
				fmt.Printf("resync failed: %s\n", err.Error())
				fmt.Printf("partial pass: %s\n", counters)
				os.Exit(1)
			}
			fmt.Printf("resync [%d, %d] done: %s\n", fromHeight, toHeight, counters)
		case ModeRelinkSubAssets:
			resolved, remaining, err := backfiller.RelinkSubAssets()
			if err != nil {
				fmt.Printf("relink-subassets failed: %s\n", err.Error())
				os.Exit(1)
			}
			fmt.Printf("relink-subassets done: resolved=%d remaining=%d\n", resolved, remaining)
		case ModeRecomputeSupply:
			n, err := backfiller.RecomputeSupplies()
			if err != nil {
				fmt.Printf("recompute-supply failed: %s\n", err.Error())
				os.Exit(1)
			}
			fmt.Printf("recompute-supply done: assets=%d\n", n)
		}
	}
	logging.Logger.Infof("backfill finished, modes=%s", util.JoinWithComma(modes))
}

func hasMode(modes []string, mode string) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}
