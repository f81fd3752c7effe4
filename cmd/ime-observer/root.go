package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kimeobserver/ime-observer/internal/command"
	"github.com/kimeobserver/ime-observer/internal/logger"
	"github.com/kimeobserver/ime-observer/internal/supervisor"
	"github.com/kimeobserver/ime-observer/internal/wakeup"
)

// sharedWakeup is the single process-wide mailbox used to wake whichever
// query-worker the selected backend spawns: one daemon process drives
// exactly one backend at a time.
var sharedWakeup = wakeup.New()

var rootCmd = &cobra.Command{
	Use:   "ime-observer",
	Short: "Watch the active IME/keyboard-layout status and drive a running kanata instance",
	Long: `ime-observer watches the host's active input method (or, on Windows,
the keyboard layout / IME on-off state) and tells a kanata instance
listening on a local TCP port to reload a config file or switch layer
whenever that status changes.`,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func init() {
	addCommonFlags(rootCmd.PersistentFlags())
}

// runSupervisor wires the parsed CLI state into a supervisor.Config and
// blocks until SIGINT/SIGTERM.
func runSupervisor(port int, binding command.Binding) error {
	// Arguments are valid from here on: later errors are not usage errors.
	rootCmd.SilenceUsage = true
	if debugFlag {
		logger.SetLevel(logger.Debug)
	}

	cfg := supervisor.Config{
		Port:          port,
		Binding:       binding,
		NewBackend:    defaultBackendFactory,
		BackendConfig: backendConfigFromFlags(),
	}
	sup := supervisor.New(cfg, sharedWakeup)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Run(ctx); err != nil {
		return fmt.Errorf("ime-observer: %w", err)
	}
	return nil
}
