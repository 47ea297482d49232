package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paseo-app/desktopd/internal/config"
	"github.com/paseo-app/desktopd/internal/update"
)

var updateCheckOnly bool

func newUpdateCmd() *cobra.Command {
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update the Paseo desktop app to the latest release",
		Long: `Check GitHub releases for a newer Paseo desktop build and install it
over the current binary.

Examples:
  paseo-desktopd update           # Install the latest release
  paseo-desktopd update --check   # Only check, don't install`,
		RunE: runUpdate,
	}

	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "Only check for updates, don't install")

	return updateCmd
}

// newUpdater builds an updater from the config file's update section and the
// compiled-in version.
func newUpdater() (*update.Updater, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return update.NewUpdater(update.Config{
		Owner:          cfg.Update.Owner,
		Repo:           cfg.Update.Repo,
		CurrentVersion: Version,
	}), nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	setupLogging()

	updater, err := newUpdater()
	if err != nil {
		return err
	}

	fmt.Printf("Current version: %s\n", Version)

	info, err := updater.Check()
	if err != nil {
		return fmt.Errorf("check for updates: %w", err)
	}

	if !info.HasUpdate {
		fmt.Println("Already up to date.")
		return nil
	}

	fmt.Printf("Latest version:  %s\n", info.LatestVersion)
	if info.ReleaseNotes != "" {
		fmt.Printf("\n%s\n\n", info.ReleaseNotes)
	}

	if updateCheckOnly {
		fmt.Println("Update available. Run 'paseo-desktopd update' to install it.")
		return nil
	}

	fmt.Println("Downloading...")
	result, err := updater.Install(func(downloaded, total int64) {
		if total > 0 {
			percent := float64(downloaded) / float64(total) * 100
			fmt.Printf("\r  %.1f%% (%d / %d bytes)", percent, downloaded, total)
		}
	})
	if err != nil {
		fmt.Println()
		return err
	}
	fmt.Println()

	fmt.Println(result.Message)
	return nil
}
