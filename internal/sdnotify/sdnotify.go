// Package sdnotify reports service state to the service manager over the
// datagram socket named by $NOTIFY_SOCKET.
package sdnotify

import "github.com/coreos/go-systemd/v22/daemon"

// States understood by the service manager.
const (
	Ready    = daemon.SdNotifyReady
	Stopping = daemon.SdNotifyStopping
)

// SocketEnv names the variable holding the notification socket path.
const SocketEnv = "NOTIFY_SOCKET"

// Notify sends state to the service manager. It returns false without error
// when no notification socket is configured. The variable is kept so later
// states reach the same socket.
func Notify(state string) (bool, error) {
	return daemon.SdNotify(false, state)
}
