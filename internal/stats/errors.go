package stats

import (
	"errors"

	"github.com/gotd/td/tgerr"
)

// errors
var (
	ErrMegagroup = errors.New("not available for supergroups")
	ErrBroadcast = errors.New("not available for broadcast channels")
	ErrNoChannel = errors.New("peer has no associated channel")
	ErrClosed    = errors.New("statistics fetcher is closed")
	ErrBusy      = errors.New("a request of this kind is already in flight")
)

// ErrorType returns the RPC error type (e.g. CHAT_ADMIN_REQUIRED) carried by err,
// or its message when err did not come from the server.
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	if rpcErr, ok := tgerr.As(err); ok {
		return rpcErr.Type
	}
	return err.Error()
}
