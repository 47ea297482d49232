package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newZoomCmd() *cobra.Command {
	zoomCmd := &cobra.Command{
		Use:   "zoom",
		Short: "Control the UI zoom factor",
		Long: `Read or change the zoom factor of the running Paseo desktop UI.

The factor is clamped to [0.5, 3.0]; in/out move by 0.1.

Examples:
  paseo-desktopd zoom get
  paseo-desktopd zoom set 1.5
  paseo-desktopd zoom in
  paseo-desktopd zoom reset`,
	}

	zoomCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the current zoom factor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return zoomAction(func(c zoomClient) (float64, error) { return c.ZoomGet() })
		},
	})

	zoomCmd.AddCommand(&cobra.Command{
		Use:   "set <factor>",
		Short: "Set the zoom factor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			factor, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid factor %q", args[0])
			}
			return zoomAction(func(c zoomClient) (float64, error) { return c.ZoomSet(factor) })
		},
	})

	zoomCmd.AddCommand(&cobra.Command{
		Use:   "in",
		Short: "Zoom in one step",
		RunE: func(cmd *cobra.Command, args []string) error {
			return zoomAction(func(c zoomClient) (float64, error) { return c.ZoomIn() })
		},
	})

	zoomCmd.AddCommand(&cobra.Command{
		Use:   "out",
		Short: "Zoom out one step",
		RunE: func(cmd *cobra.Command, args []string) error {
			return zoomAction(func(c zoomClient) (float64, error) { return c.ZoomOut() })
		},
	})

	zoomCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset the zoom factor to 1.0",
		RunE: func(cmd *cobra.Command, args []string) error {
			return zoomAction(func(c zoomClient) (float64, error) { return c.ZoomReset() })
		},
	})

	return zoomCmd
}

// zoomClient is the slice of the control client the zoom commands use.
type zoomClient interface {
	ZoomGet() (float64, error)
	ZoomSet(factor float64) (float64, error)
	ZoomIn() (float64, error)
	ZoomOut() (float64, error)
	ZoomReset() (float64, error)
}

func zoomAction(op func(zoomClient) (float64, error)) error {
	setupLogging()

	client, err := newControlClient()
	if err != nil {
		return err
	}
	factor, err := op(client)
	if err != nil {
		return err
	}

	fmt.Printf("%.1f\n", factor)
	return nil
}
