package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newDaemonCmd() *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Interact with the locally installed Paseo CLI",
		Long: `Query and update the Paseo CLI installed on this machine.

The CLI is resolved through your login shell, so PATH additions from shell
profiles (nvm, homebrew, etc.) are honored.`,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show the installed Paseo CLI version",
		RunE:  runDaemonVersion,
	}
	daemonCmd.AddCommand(versionCmd)

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Run `paseo daemon update`",
		RunE:  runDaemonUpdate,
	}
	daemonCmd.AddCommand(updateCmd)

	return daemonCmd
}

func runDaemonVersion(cmd *cobra.Command, args []string) error {
	setupLogging()

	client, err := newControlClient()
	if err != nil {
		return err
	}
	result, err := client.DaemonVersion()
	if err != nil {
		return err
	}

	if result.Error != "" {
		return fmt.Errorf("%s", result.Error)
	}
	fmt.Println(result.Version)
	return nil
}

func runDaemonUpdate(cmd *cobra.Command, args []string) error {
	setupLogging()

	client, err := newControlClient()
	if err != nil {
		return err
	}
	result, err := client.DaemonUpdate()
	if err != nil {
		return err
	}

	if out := strings.TrimSpace(result.Stdout); out != "" {
		fmt.Println(out)
	}
	if errOut := strings.TrimSpace(result.Stderr); errOut != "" {
		fmt.Fprintln(os.Stderr, errOut)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("paseo daemon update exited with code %d", result.ExitCode)
	}
	return nil
}
