package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudkiwi/vnetaudit/audit"
	"github.com/cloudkiwi/vnetaudit/config"
	"github.com/cloudkiwi/vnetaudit/inventory"
	"github.com/cloudkiwi/vnetaudit/util"

	"github.com/google/go-github/github"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var ErrMissingConfigPath = errors.New("config path parameter is required")
var ErrTooManyArguments = errors.New("too many arguments provided")

func Commands() []*cli.Command {
	return []*cli.Command{
		AuditCommand,
		OverlapsCommand,
		VNetsCommand,
		FetchCommand,
		CacheCommand,
		ValidateConfigCommand,
	}
}

func ConfigFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Load configuration from `FILE`",
		Value:    config.DefaultConfigPath,
		Required: required,
		Action: func(_ *cli.Context, path string) error {
			return ValidateConfigPath(afero.NewOsFs(), path)
		},
	}
}

func CacheFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "cache",
		Usage:    "Read the subnet inventory from `FILE` instead of today's cache",
		Required: false,
	}
}

func CheckForUpdate(cfg *config.Config) error {
	currentVersion := config.Version

	// check for update if version is set
	if cfg.UpdateCheckEnabled && currentVersion != "" {
		newer, latestVersion, err := util.CheckForNewerVersion(github.NewClient(nil), currentVersion)
		if err != nil {
			return fmt.Errorf("error checking for newer version of vnetaudit: %w", err)
		}
		if newer {
			fmt.Printf("\n\t✨ A newer version (%s) of vnetaudit is available! https://github.com/cloudkiwi/vnetaudit/releases ✨\n\n", latestVersion)
		}
	}
	return nil
}

// loadInventory wires the Azure collaborators from config and returns the
// subnet inventory, fetched or cached.
func loadInventory(ctx context.Context, afs afero.Fs, cfg *config.Config, cachePath string) (*inventory.Data, error) {
	runner := &inventory.CLIRunner{MaxOutputBytes: cfg.Azure.MaxResponseBytes}
	fetcher := inventory.NewFetcher(runner, cfg.Azure.PageSize, time.Duration(cfg.Azure.RequestDelayMs)*time.Millisecond)
	fetcher.ShowProgress = true

	store := inventory.NewStore(afs, cfg.Azure.CacheDir)
	return store.Load(ctx, fetcher, cachePath)
}

// prepareRecords runs the shared front half of the audit pipeline:
// provenance checks, de-duplication and the configured overlap policy.
// Records come back sorted by CIDR, ready for the gap walk.
func prepareRecords(cfg *config.Config, data *inventory.Data) ([]inventory.Subnet, error) {
	if err := audit.CheckProvenance(data.Data); err != nil {
		return nil, err
	}

	records := audit.Deduplicate(data.Data, cfg.Audit.IgnoredSubnetNames)
	if err := audit.VerifyUnique(records); err != nil {
		return nil, err
	}

	switch cfg.Audit.OverlapPolicy {
	case config.OverlapPolicyExclude:
		excluded, err := cfg.ExcludedCIDRs()
		if err != nil {
			return nil, err
		}
		records = audit.FilterExcludedCIDRs(records, excluded)
	case config.OverlapPolicyKeepOne:
		records = audit.FilterKeepOnePerConflict(records)
	case config.OverlapPolicyReportOnly:
		// conflicts are surfaced by the overlaps command only
	}

	return audit.SortByCIDR(records), nil
}
