// paseo-desktopd is the background daemon for the Paseo desktop app. It
// owns the managed attachment store, bridges to the locally installed Paseo
// CLI through the user's login shell, and exposes everything to the UI over
// a Unix control socket.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/paseo-app/desktopd/internal/attachments"
	"github.com/paseo-app/desktopd/internal/config"
	"github.com/paseo-app/desktopd/internal/control"
	"github.com/paseo-app/desktopd/internal/shellexec"
	"github.com/paseo-app/desktopd/internal/svc"
	"github.com/paseo-app/desktopd/internal/update"
	"github.com/paseo-app/desktopd/internal/zoom"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	cfgFile  string
	logLevel string

	// Service mode flag (hidden, used when running as a service)
	serviceRun bool
)

func main() {
	// Check if running as a service (invoked by service manager)
	if svc.IsServiceMode(os.Args) {
		runAsService()
		return
	}

	rootCmd := &cobra.Command{
		Use:   "paseo-desktopd",
		Short: "Paseo Desktop daemon",
		Long: `paseo-desktopd runs the background half of the Paseo desktop app.

It manages the attachment store on disk, runs the Paseo CLI through your
login shell, keeps the UI zoom state, and installs application updates.
The UI talks to it over a Unix socket.

Start the daemon:

  paseo-desktopd serve

Or install it as a user service so it starts at login:

  paseo-desktopd service install
  paseo-desktopd service start

For more help on any command, use: paseo-desktopd <command> --help`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level")

	// Hidden service mode flag (used when running as a service)
	rootCmd.PersistentFlags().BoolVar(&serviceRun, "service-run", false, "Run as a service (internal use)")
	_ = rootCmd.PersistentFlags().MarkHidden("service-run")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon in the foreground",
		RunE:  runServeCmd,
	}
	rootCmd.AddCommand(serveCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("paseo-desktopd %s\n", Version)
			fmt.Printf("  commit:     %s\n", Commit)
			fmt.Printf("  build time: %s\n", BuildTime)
			fmt.Printf("  go:         %s\n", runtime.Version())
		},
	}
	rootCmd.AddCommand(versionCmd)

	rootCmd.AddCommand(newAttachCmd())
	rootCmd.AddCommand(newDaemonCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newServiceCmd())
	rootCmd.AddCommand(newZoomCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfgFile)
}

// runServe is the daemon main loop: it wires the store, shell runner, zoom
// state, and updater into the control server and blocks until the context
// is cancelled. It is shared by foreground serve and service mode.
func runServe(ctx context.Context, configPath string) error {
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.LogLevel != "" {
		if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	}

	log.Info().
		Str("version", Version).
		Str("data_dir", cfg.DataDir).
		Str("socket", cfg.SocketPath).
		Msg("starting paseo-desktopd")

	store := attachments.NewStore(cfg.DataDir)
	runner := shellexec.NewRunner(cfg.Shell)
	zoomCtl := zoom.NewController(func(factor float64) {
		log.Debug().Float64("factor", factor).Msg("zoom factor changed")
	})
	updater := update.NewUpdater(update.Config{
		Owner:          cfg.Update.Owner,
		Repo:           cfg.Update.Repo,
		CurrentVersion: Version,
	})

	server := control.NewServer(cfg.SocketPath, store, runner, zoomCtl, updater)
	if err := server.Start(); err != nil {
		return err
	}
	defer func() { _ = server.Stop() }()

	if cfg.MetricsListen != "" {
		go serveMetrics(ctx, cfg.MetricsListen)
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nil
}

// serveMetrics exposes the Prometheus registry over HTTP until the context
// is cancelled.
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server error")
	}
}

func runAsService() {
	setupLogging()

	// Parse the --config flag manually; cobra is not in play here.
	var configPath string
	for i, arg := range os.Args {
		if (arg == "--config" || arg == "-c") && i+1 < len(os.Args) {
			configPath = os.Args[i+1]
		}
	}

	log.Info().Str("config", configPath).Msg("starting as service")

	cfg := &svc.ServiceConfig{
		Name:        svc.DefaultServiceName(),
		DisplayName: svc.DefaultDisplayName(),
		Description: svc.DefaultDescription(),
		ConfigPath:  configPath,
	}

	prg := &svc.Program{
		ConfigPath: configPath,
		RunServe:   runServe,
	}

	if err := svc.Run(prg, cfg); err != nil {
		log.Fatal().Err(err).Msg("service run failed")
	}
}
