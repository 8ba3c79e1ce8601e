package daemon

import (
	"net"
	"os"
	"time"

	"github.com/grovetools/inbox/internal/inbox"
	"github.com/grovetools/inbox/pkg/paths"
)

// New returns a Client that will use the daemon if available,
// otherwise falls back to a LocalClient built by local.
//
// Callers don't need to know whether the daemon is running;
// the same API works in both modes. local is only called on fallback.
func New(local func() (*inbox.Service, error)) (Client, error) {
	if client := Connect(paths.SocketPath()); client != nil {
		return client, nil
	}

	svc, err := local()
	if err != nil {
		return nil, err
	}
	return NewLocalClient(svc), nil
}

// Connect returns a RemoteClient if a daemon is listening on socketPath, nil otherwise.
func Connect(socketPath string) *RemoteClient {
	if _, err := os.Stat(socketPath); err != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
	if err != nil {
		return nil
	}
	conn.Close()

	client, err := NewRemoteClient(socketPath)
	if err != nil {
		return nil
	}
	return client
}
