package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/grovetools/inbox/cli"
	"github.com/grovetools/inbox/config"
	"github.com/grovetools/inbox/errors"
	"github.com/grovetools/inbox/internal/inbox"
	"github.com/grovetools/inbox/logging"
	"github.com/grovetools/inbox/pkg/daemon"
	"github.com/grovetools/inbox/pkg/lemmy"
	"github.com/grovetools/inbox/pkg/profiling"
	"github.com/grovetools/inbox/pkg/session"
	"github.com/grovetools/inbox/pkg/visibility"
	"github.com/spf13/cobra"
)

// authEnv holds a token that takes precedence over the token file and is
// never written to disk.
const authEnv = "INBOXD_AUTH"

// runtime is everything a command needs to talk to the instance.
type runtime struct {
	cfg     *config.Config
	client  *lemmy.Client
	store   *session.Store
	tracker *visibility.Tracker
	inbox   *inbox.Handle
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	defer profiling.Start("runtime").Stop()

	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	client, err := lemmy.NewClient(cfg.Instance, lemmy.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	initial := visibility.Visible
	if cfg.StartHidden {
		initial = visibility.Hidden
	}
	tracker := visibility.NewTracker(initial)

	rt := &runtime{
		cfg:     cfg,
		client:  client,
		store:   store,
		tracker: tracker,
	}
	rt.inbox = inbox.NewHandle(func() *inbox.Service {
		return inbox.New(client, store, tracker,
			inbox.WithInterval(cfg.PollInterval),
			inbox.WithLogger(logging.NewLogger("inbox")),
		)
	})
	return rt, nil
}

// openStore loads the session from INBOXD_AUTH when set, otherwise from
// the configured token file.
func openStore(cfg *config.Config) (*session.Store, error) {
	logger := logging.NewLogger("session")

	if token := strings.TrimSpace(os.Getenv(authEnv)); token != "" {
		store := session.NewStore("", logger)
		if err := store.Login(token); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTokenInvalid, "invalid token in "+authEnv)
		}
		return store, nil
	}

	store := session.NewStore(cfg.TokenFile, logger)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// localService learns the user's roles and returns the in-process service.
// Used when no daemon is listening.
func (rt *runtime) localService(ctx context.Context) (*inbox.Service, error) {
	span := profiling.Start("session.refresh")
	err := rt.store.Refresh(ctx, rt.client)
	span.Stop()
	if err != nil {
		return nil, err
	}
	return rt.inbox.Get(), nil
}

// openClient connects to the daemon, or falls back to an in-process
// client built from the configuration.
func openClient(cmd *cobra.Command) (daemon.Client, error) {
	defer profiling.Start("connect").Stop()
	return daemon.New(func() (*inbox.Service, error) {
		rt, err := newRuntime(cmd)
		if err != nil {
			return nil, err
		}
		return rt.localService(cmd.Context())
	})
}
