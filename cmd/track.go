package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/ptime/internal/api"
	"github.com/joescharf/ptime/internal/daemon"
	"github.com/joescharf/ptime/internal/notify"
	"github.com/joescharf/ptime/internal/tracker"
	"github.com/joescharf/ptime/internal/watch"
)

var (
	trackDetach bool
	trackIdle   bool
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run the tracking daemon",
	Long: `Run the tracking daemon in the foreground.

Inside a git repository the daemon starts tracking the repository's
project and current branch right away (use --idle to wait for an
activation instead) and follows branch switches. Intervals left open by a
crashed daemon are closed on startup. On SIGINT/SIGTERM the open interval
is closed before exiting.

Use --detach to run it in the background; 'ptime track stop' ends it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if trackDetach {
			return trackStartDetached()
		}
		return trackRun(cmd.Context())
	},
}

var trackStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackStopRun()
	},
}

func init() {
	trackCmd.Flags().BoolVarP(&trackDetach, "detach", "d", false, "Run the daemon in the background")
	trackCmd.Flags().BoolVar(&trackIdle, "idle", false, "Start idle and wait for an activation")
	trackCmd.AddCommand(trackStopCmd)
	rootCmd.AddCommand(trackCmd)
}

func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(viper.GetString("daemon.pid_file"))
}

func trackLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "ptime-track.log")
}

func trackRun(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, daemon.ShutdownSignals()...)
	defer stop()

	pf := pidFile()
	if err := pf.Acquire(); err != nil {
		return err
	}
	defer func() { _ = pf.Remove() }()

	s, err := getStore()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	logger := newLogger(os.Stderr)
	slog.SetDefault(logger)

	var n notify.Notifier = notify.Log{Logger: logger}
	if viper.GetBool("notify.enabled") {
		n = notify.NewDesktop("ptime")
	}
	tr := tracker.New(s, tracker.WithLogger(logger), tracker.WithNotifier(n))

	if closed, err := tr.Recover(ctx); err != nil {
		logger.Warn("could not close dangling intervals", "error", err)
	} else if closed > 0 {
		logger.Info("closed dangling intervals", "count", closed)
	}

	if ws, err := currentWorkspace(); err != nil {
		logger.Info("not in a git repository, waiting for activation", "error", err)
	} else {
		c := tracker.Context{Project: ws.Project, Branch: ws.Branch}
		if trackIdle {
			_ = tr.Remember(c)
		} else if err := tr.Start(ctx, c); err != nil {
			// Already logged and notified; the next activation retries.
			logger.Warn("initial start failed", "error", err)
		}
		if viper.GetBool("watch.enabled") {
			w := watch.NewBranchWatcher(ws.GitDir, tr.BranchWatcherFor(ws.Project))
			w.Logger = logger
			go func() {
				if err := w.Run(ctx); err != nil {
					logger.Warn("branch watcher stopped", "error", err)
				}
			}()
		}
	}

	addr := viper.GetString("daemon.addr")
	srv := api.NewServer(tr, s, time.Local)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, addr) }()
	logger.Info("ptime daemon listening", "addr", addr, "pid", os.Getpid())

	var serveErr error
	select {
	case <-ctx.Done():
		serveErr = <-errCh
	case serveErr = <-errCh:
	}

	// The daemon's own context is done; give the final close its own.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Shutdown(shutdownCtx); err != nil {
		logger.Error("final stop failed", "error", err)
	}
	logger.Info("ptime daemon stopped")

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("control API: %w", serveErr)
	}
	return nil
}

func trackStartDetached() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("%w (pid %d)", daemon.ErrAlreadyRunning, pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	logPath := trackLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	args := []string{"track"}
	if trackIdle {
		args = append(args, "--idle")
	}
	if verbose {
		args = append(args, "--verbose")
	}
	if cfg, _ := rootCmd.PersistentFlags().GetString("config"); cfg != "" {
		args = append(args, "--config", cfg)
	}

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	daemon.Detach(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	pid := child.Process.Pid
	_ = child.Process.Release()

	ui.Success("Tracking daemon started (pid %d)", pid)
	ui.VerboseLog("log: %s", logPath)
	return nil
}

func trackStopRun() error {
	pid, err := pidFile().Stop(5 * time.Second)
	if errors.Is(err, daemon.ErrNotRunning) {
		return err
	}
	if err != nil {
		return fmt.Errorf("stop daemon (pid %d): %w", pid, err)
	}
	ui.Success("Tracking daemon stopped (pid %d)", pid)
	return nil
}
