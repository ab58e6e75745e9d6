package cmd

import (
	"context"
	"fmt"

	"github.com/cloudkiwi/vnetaudit/audit"
	"github.com/cloudkiwi/vnetaudit/config"
	"github.com/cloudkiwi/vnetaudit/report"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var VNetsCommand = &cli.Command{
	Name:        "vnets",
	Usage:       "list discovered VNets and their subnet counts",
	UsageText:   "vnets [--config FILE] [--cache FILE]",
	Args:        false,
	Flags: []cli.Flag{
		ConfigFlag(false),
		CacheFlag(),
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

		if err := runVNetsCmd(cCtx.Context, afs, cfg, cCtx.String("cache")); err != nil {
			return err
		}

		// check for updates after running the command
		if err := CheckForUpdate(cfg); err != nil {
			return err
		}

		return nil
	},
}

func runVNetsCmd(ctx context.Context, afs afero.Fs, cfg *config.Config, cachePath string) error {
	data, err := loadInventory(ctx, afs, cfg, cachePath)
	if err != nil {
		return err
	}

	records := audit.Deduplicate(data.Data, cfg.Audit.IgnoredSubnetNames)
	vnets := audit.GroupVNets(records)
	if len(vnets) == 0 {
		fmt.Println("No VNets found.")
		return nil
	}

	excluded, err := cfg.ExcludedCIDRs()
	if err != nil {
		return err
	}

	t := report.FormatVNetsTable(vnets, excluded)
	fmt.Println(t)
	return nil
}
