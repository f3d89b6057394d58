// Package main provides the CLI entrypoint for sign2me.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/sign2me/internal/app"
	"github.com/ayusman/sign2me/internal/config"
	"github.com/ayusman/sign2me/internal/sequencer"
	"github.com/ayusman/sign2me/internal/session"
	"github.com/ayusman/sign2me/internal/tray"
	"github.com/ayusman/sign2me/internal/tui"
	"github.com/ayusman/sign2me/pkg/logger"
)

const (
	uiTUI  = "tui"
	uiTray = "tray"
)

var (
	configPath string
	addr       string
	camera     bool
	practiceUI string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "sign2me",
		Short:        "ASL fingerspelling practice",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPracticeCmd())
	rootCmd.AddCommand(newLettersCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the practice HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&camera, "camera", false, "enable the server-side camera source")
	return cmd
}

func newPracticeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Practice with the local camera",
		Args:  cobra.NoArgs,
		RunE:  runPracticeCmd,
	}
	cmd.Flags().StringVar(&practiceUI, "ui", uiTUI, "interface: tui or tray")
	return cmd
}

func newLettersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "letters",
		Short: "Print the practicable alphabet",
		Args:  cobra.NoArgs,
		RunE:  runLettersCmd,
	}
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = addr
	}
	if cmd.Flags().Changed("camera") {
		cfg.CameraEnabled = camera
	}

	log, err := logger.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, app.Options{Logger: log})
	if err != nil {
		return err
	}
	defer closeApp(log, a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx)
}

func runPracticeCmd(_ *cobra.Command, _ []string) error {
	var present app.Presenter
	switch practiceUI {
	case uiTUI:
		present = func(ctx context.Context, c *session.Controller) error {
			return tui.Run(ctx, c)
		}
	case uiTray:
		present = func(ctx context.Context, c *session.Controller) error {
			return tray.New(c).Run(ctx)
		}
	default:
		return fmt.Errorf("unknown ui %q (want %s or %s)", practiceUI, uiTUI, uiTray)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.CameraEnabled = true

	// The TUI owns the terminal, so logs go to a file in the data directory.
	logFile, err := openLogFile(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()

	log, err := logger.New(cfg.LogLevel, logFile)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, app.Options{Logger: log})
	if err != nil {
		return err
	}
	defer closeApp(log, a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Practice(ctx, present)
}

func runLettersCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	seq, err := sequencer.New(cfg.Alphabet)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(seq.Letters(), " "))
	fmt.Fprintf(cmd.OutOrStdout(), "excluded (motion): %s\n", strings.Join(strings.Split(sequencer.MotionLetters, ""), " "))
	return nil
}

func openLogFile(cfg *config.Config) (*os.File, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return os.OpenFile(filepath.Join(cfg.DataDir, "practice.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func closeApp(log logger.Logger, a *app.App) {
	if err := a.Close(); err != nil {
		log.Error(context.Background(), "shutdown reported errors", logger.Err(err))
	}
}
