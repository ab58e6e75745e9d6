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

var OverlapsCommand = &cli.Command{
	Name:        "overlaps",
	Usage:       "list VNet address blocks claimed by more than one VNet",
	UsageText:   "overlaps [--config FILE] [--cache FILE]",
	Description: "finds identical address blocks advertised by multiple VNets; peered blocks that merely contain each other are not conflicts",
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

		if err := runOverlapsCmd(cCtx.Context, afs, cfg, cCtx.String("cache")); err != nil {
			return err
		}

		// check for updates after running the command
		if err := CheckForUpdate(cfg); err != nil {
			return err
		}

		return nil
	},
}

func runOverlapsCmd(ctx context.Context, afs afero.Fs, cfg *config.Config, cachePath string) error {
	data, err := loadInventory(ctx, afs, cfg, cachePath)
	if err != nil {
		return err
	}

	if err := audit.CheckProvenance(data.Data); err != nil {
		return err
	}

	// overlaps are reported on the full inventory, before any overlap
	// policy removes claimants
	records := audit.Deduplicate(data.Data, cfg.Audit.IgnoredSubnetNames)

	conflicts := audit.FindOverlaps(records)
	if len(conflicts) == 0 {
		fmt.Println("No overlapping address blocks found.")
		return nil
	}

	t := report.FormatOverlapsTable(conflicts)
	fmt.Println(t)
	return nil
}
