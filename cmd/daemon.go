package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/inbox/cli"
	"github.com/grovetools/inbox/errors"
	"github.com/grovetools/inbox/internal/daemon/engine"
	"github.com/grovetools/inbox/internal/daemon/pidfile"
	"github.com/grovetools/inbox/internal/daemon/server"
	"github.com/grovetools/inbox/logging"
	"github.com/grovetools/inbox/pkg/api"
	"github.com/grovetools/inbox/pkg/daemon"
	"github.com/grovetools/inbox/pkg/paths"
	"github.com/grovetools/inbox/pkg/session"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// tokenDebounce absorbs the burst of events an editor or the CLI produces
// when rewriting the token file.
const tokenDebounce = 200 * time.Millisecond

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Long: `Start inboxd in the foreground. The daemon polls the instance every
poll_interval while visible and serves the counts on a unix socket.`,
		RunE: runStart,
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	logger := cli.GetLogger(cmd, "inboxd")
	pidPath := paths.PidFilePath()
	sockPath := paths.SocketPath()

	if err := pidfile.Acquire(pidPath); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil {
			logger.Errorf("Failed to release pidfile: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eng := newDaemonEngine(ctx, rt, logger)

	srv := server.New(logging.NewLogger("server"))
	srv.SetEngine(eng)
	srv.SetVisibility(rt.tracker)
	srv.SetAllowedOrigins(rt.cfg.AllowedOrigins)
	srv.SetRunningConfig(&api.RunningConfig{
		Instance:               rt.cfg.Instance,
		PollInterval:           rt.cfg.PollInterval,
		SessionRefreshInterval: rt.cfg.SessionRefreshInterval,
		TokenFile:              rt.store.TokenFile(),
		StartedAt:              time.Now(),
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		select {
		case <-stop:
			logger.Info("Received stop signal")
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}
	}()

	go eng.Start(ctx)

	if rt.cfg.Listen != "" {
		go func() {
			if err := srv.ListenTCP(rt.cfg.Listen); err != nil {
				logger.WithError(err).Error("TCP listener failed")
			}
		}()
	}

	logger.WithField("pid", os.Getpid()).WithField("instance", rt.cfg.Instance).Info("Starting daemon")
	if err := srv.ListenAndServe(sockPath); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// newDaemonEngine wires the poller to its role source. Roles are fetched
// before the first cycle and again before the cycle that follows a
// login, so a moderator's or admin's first cycle already covers reports
// and applications.
func newDaemonEngine(ctx context.Context, rt *runtime, logger *logrus.Entry) *engine.Engine {
	eng := engine.New(rt.inbox, logger)
	refreshRoles := func(ctx context.Context) {
		if err := rt.store.Refresh(ctx, rt.client); err != nil {
			logger.WithError(err).WithField("code", errors.GetCode(err)).Warn("Failed to load session roles")
		}
	}

	eng.BeforeStart(refreshRoles)
	eng.Register(session.NewRefresher(rt.store, rt.client, rt.cfg.SessionRefreshInterval))
	eng.Register(session.NewWatcher(rt.store, tokenDebounce, func(s session.Snapshot) {
		if !s.LoggedIn() {
			return
		}
		go func() {
			refreshRoles(ctx)
			eng.Inbox().PollOnce(ctx)
		}()
	}))
	return eng
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).InfoPretty("Daemon is not running")
				return nil
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sent SIGTERM to process %d\n", pid)
			return nil
		},
	}
}

// statusOutput is the --json form of inboxd status.
type statusOutput struct {
	Running bool               `json:"running"`
	PID     int                `json:"pid,omitempty"`
	Socket  string             `json:"socket"`
	Config  *api.RunningConfig `json:"config,omitempty"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		Long:  "Report whether inboxd is running. Exits non-zero when it is stopped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sockPath := paths.SocketPath()
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}

			out := statusOutput{Running: running, PID: pid, Socket: sockPath}
			if running {
				if client := daemon.Connect(sockPath); client != nil {
					defer client.Close()
					if rc, err := client.GetConfig(cmd.Context()); err == nil {
						out.Config = rc
					}
				}
			}

			if cli.GetOptions(cmd).JSONOutput {
				if err := printJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else if running {
				pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
				pretty.Success(fmt.Sprintf("Running (PID: %d)", pid))
				pretty.Field("Socket", sockPath)
				if out.Config != nil {
					pretty.Field("Instance", out.Config.Instance)
					pretty.Field("Poll interval", out.Config.PollInterval)
					pretty.Field("Up since", out.Config.StartedAt.Format(time.RFC3339))
				}
			}

			if !running {
				return errors.DaemonNotRunning(sockPath)
			}
			return nil
		},
	}
}
