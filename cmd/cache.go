package cmd

import (
	"fmt"

	"github.com/cloudkiwi/vnetaudit/config"
	"github.com/cloudkiwi/vnetaudit/inventory"

	"github.com/manifoldco/promptui"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var CacheCommand = &cli.Command{
	Name:      "cache",
	Usage:     "manage cached subnet inventory files",
	UsageText: "cache clear [--non-interactive]",
	Subcommands: []*cli.Command{
		{
			Name:      "clear",
			Usage:     "delete all cached inventory files",
			UsageText: "cache clear [--non-interactive]",
			Args:      false,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:     "non-interactive",
					Aliases:  []string{"ni"},
					Usage:    "does not prompt for confirmation of deletion",
					Value:    false,
					Required: false,
				},
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

				ask := !cCtx.Bool("non-interactive")
				return runCacheClearCmd(afs, cfg, ask)
			},
		},
	},
}

func runCacheClearCmd(afs afero.Fs, cfg *config.Config, ask bool) error {
	if ask {
		prompt := promptui.Prompt{
			Label:     "Clear inventory cache",
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			fmt.Println("Cancelling deletion...")
			return err
		}
	}

	store := inventory.NewStore(afs, cfg.Azure.CacheDir)
	removed, err := store.Clear()
	if err != nil {
		return err
	}

	if removed == 0 {
		fmt.Println("Found no cache files to delete.")
	} else {
		fmt.Println("Successfully deleted", removed, "cache files")
	}
	return nil
}
