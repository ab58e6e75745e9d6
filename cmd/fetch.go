package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudkiwi/vnetaudit/config"
	"github.com/cloudkiwi/vnetaudit/inventory"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var FetchCommand = &cli.Command{
	Name:        "fetch",
	Usage:       "fetch the subnet inventory from Azure and refresh the cache",
	UsageText:   "fetch [--config FILE]",
	Description: "queries Azure Resource Graph through the az CLI and overwrites today's cache file, even if one already exists",
	Args:        false,
	Flags: []cli.Flag{
		ConfigFlag(false),
	},
	Action: func(cCtx *cli.Context) error {
		if cCtx.NArg() > 0 {
			return ErrTooManyArguments
		}

		afs := afero.NewOsFs()

		cfg, err := config.LoadConfig(afs, cCtx.String("config"))
		if err != nil {
			return err
		}

		if err := runFetchCmd(cCtx.Context, afs, cfg); err != nil {
			return err
		}

		// check for updates after running the command
		if err := CheckForUpdate(cfg); err != nil {
			return err
		}

		return nil
	},
}

func runFetchCmd(ctx context.Context, afs afero.Fs, cfg *config.Config) error {
	runner := &inventory.CLIRunner{MaxOutputBytes: cfg.Azure.MaxResponseBytes}
	fetcher := inventory.NewFetcher(runner, cfg.Azure.PageSize, time.Duration(cfg.Azure.RequestDelayMs)*time.Millisecond)
	fetcher.ShowProgress = true

	data, err := fetcher.FetchAll(ctx)
	if err != nil {
		return err
	}

	store := inventory.NewStore(afs, cfg.Azure.CacheDir)
	path := store.DefaultPath(time.Now())
	if err := store.Write(path, data); err != nil {
		return err
	}

	fmt.Printf("Fetched %d subnet records into %s\n", len(data.Data), path)
	return nil
}
