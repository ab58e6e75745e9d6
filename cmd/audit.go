package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudkiwi/vnetaudit/audit"
	"github.com/cloudkiwi/vnetaudit/config"
	"github.com/cloudkiwi/vnetaudit/report"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var AuditCommand = &cli.Command{
	Name:        "audit",
	Usage:       "report allocated subnets and the gaps between them",
	UsageText:   "audit [--config FILE] [--cache FILE] [--gap-mask N] [--keep-one] [--summary]",
	Description: "prints the full address space report as fixed-width CSV, one row per subnet or unused gap",
	Args:        false,
	Flags: []cli.Flag{
		ConfigFlag(false),
		CacheFlag(),
		&cli.UintFlag{
			Name:     "gap-mask",
			Usage:    "override the default gap block size from the config",
			Required: false,
		},
		&cli.BoolFlag{
			Name:     "keep-one",
			Usage:    "resolve each overlap by keeping the best-ranked VNet instead of applying the configured policy",
			Value:    false,
			Required: false,
		},
		&cli.BoolFlag{
			Name:     "summary",
			Aliases:  []string{"s"},
			Usage:    "print utilization statistics after the report",
			Value:    false,
			Required: false,
		},
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

		if cCtx.IsSet("gap-mask") {
			mask := cCtx.Uint("gap-mask")
			if mask > 32 {
				return fmt.Errorf("%w: gap mask /%d", ErrInvalidConfig, mask)
			}
			cfg.Audit.GapMask = uint8(mask)
		}
		if cCtx.Bool("keep-one") {
			cfg.Audit.OverlapPolicy = config.OverlapPolicyKeepOne
		}

		if err := runAuditCmd(cCtx.Context, afs, cfg, cCtx.String("cache"), cCtx.Bool("summary")); err != nil {
			return err
		}

		// check for updates after running the command
		if err := CheckForUpdate(cfg); err != nil {
			return err
		}

		return nil
	},
}

func runAuditCmd(ctx context.Context, afs afero.Fs, cfg *config.Config, cachePath string, summary bool) error {
	data, err := loadInventory(ctx, afs, cfg, cachePath)
	if err != nil {
		return err
	}

	records, err := prepareRecords(cfg, data)
	if err != nil {
		return err
	}

	startAddr, err := cfg.StartAddr()
	if err != nil {
		return err
	}

	finder := audit.NewGapFinder(startAddr, cfg.Audit.GapMask)
	rows, err := finder.Process(records)
	if err != nil {
		return err
	}

	if err := report.WriteCSV(os.Stdout, rows); err != nil {
		return err
	}

	if summary {
		stats, err := report.Summarize(rows)
		if err != nil {
			return err
		}
		fmt.Println()
		if err := report.WriteSummary(os.Stdout, stats); err != nil {
			return err
		}
	}

	return nil
}
