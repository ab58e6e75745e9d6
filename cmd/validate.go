package cmd

import (
	"errors"
	"fmt"

	"github.com/cloudkiwi/vnetaudit/config"
	"github.com/cloudkiwi/vnetaudit/util"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var ErrInvalidConfig = errors.New("encountered invalid configuration values")

var ValidateConfigCommand = &cli.Command{
	Name:      "validate",
	Usage:     "validate a configuration file",
	UsageText: "validate [--config FILE]",
	Args:      false,
	Flags: []cli.Flag{
		ConfigFlag(false),
	},
	Action: func(cCtx *cli.Context) error {
		// check if a config was provided and is not empty
		if cCtx.String("config") == "" {
			return ErrMissingConfigPath
		}

		// check if too many arguments were provided
		if cCtx.NArg() > 0 {
			return ErrTooManyArguments
		}

		afs := afero.NewOsFs()

		// validate config file
		cfg, err := RunValidateConfigCommand(afs, cCtx.String("config"))
		if err != nil {
			fmt.Printf("\n\t[!] Configuration file is not valid...")
			return err
		}

		// check for updates after running the command
		if err := CheckForUpdate(cfg); err != nil {
			return err
		}

		return nil
	},
}

func RunValidateConfigCommand(afs afero.Fs, configPath string) (*config.Config, error) {
	// validate config file path
	if err := ValidateConfigPath(afs, configPath); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(afs, configPath)
	if err != nil {
		return nil, err
	}

	// the parsed-field helpers catch values that pass struct validation
	// but cannot be used, like an excluded CIDR with host bits set
	if _, err := cfg.ExcludedCIDRs(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := cfg.StartAddr(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	fmt.Printf("\n\t[✨] Configuration file is valid \n\n")

	return cfg, nil
}

func ValidateConfigPath(afs afero.Fs, configPath string) error {
	if configPath == "" {
		return ErrMissingConfigPath
	}

	// get relative file path
	relPath, err := util.ParseRelativePath(configPath)
	if err != nil {
		return err
	}

	if err := util.ValidateFile(afs, relPath); err != nil {
		return err
	}

	return nil
}
