package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keysafehq/keysafe/internal/activation"
	"github.com/keysafehq/keysafe/internal/keychain"
	"github.com/keysafehq/keysafe/internal/spool"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the backlog flush agent",
	Long: "Run the long-lived flush agent. Drains spooled writes from other " +
		"keysafe invocations and retries deferred writes whenever the secure " +
		"store becomes available: on SIGUSR1, on spool or watch-path changes, " +
		"and on a periodic timer.",
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

// agentFlusher drives spool drain and backlog flush as one unit: load
// spooled writes into the manager, push the backlog at the store, then
// drain again so spool files whose writes just became durable are removed.
type agentFlusher struct {
	mgr    *keychain.Manager
	spool  *spool.Dir
	logger *slog.Logger
}

func (f *agentFlusher) Flush() (int, int) {
	if _, err := f.spool.Drain(f.mgr); err != nil {
		f.logger.Warn("spool drain", "error", err)
	}
	flushed, remaining := f.mgr.Flush()
	if _, err := f.spool.Drain(f.mgr); err != nil {
		f.logger.Warn("spool drain", "error", err)
	}
	return flushed, remaining
}

func (f *agentFlusher) Pending() int {
	return f.mgr.Pending() + f.spool.Len()
}

func runAgent(cmd *cobra.Command, args []string) error {
	e, cleanup, err := newEnv()
	if err != nil {
		return err
	}
	defer cleanup()

	sp, err := spool.Open(spool.DefaultPath())
	if err != nil {
		return fmt.Errorf("opening spool: %w", err)
	}

	interval, err := e.cfg.FlushInterval(activation.DefaultInterval)
	if err != nil {
		return err
	}
	minGap, err := e.cfg.FlushMinGap(activation.DefaultMinGap)
	if err != nil {
		return err
	}

	logger := slog.With("component", "agent")
	flusher := &agentFlusher{mgr: e.mgr, spool: sp, logger: logger}

	watchPaths := append([]string{sp.Path()}, e.cfg.Flush.WatchPaths...)
	trig := activation.New(flusher,
		activation.WithInterval(interval),
		activation.WithMinGap(minGap),
		activation.WithWatchPaths(watchPaths...),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	notifyActivation(ctx, trig)

	logger.Info("keysafe agent starting",
		"spool", sp.Path(),
		"interval", interval.String(),
		"min_gap", minGap.String(),
	)

	// Pick up anything spooled while no agent was running.
	trig.Notify()

	err = trig.Run(ctx)
	logger.Info("keysafe agent stopped", "pending", flusher.Pending())
	return err
}
