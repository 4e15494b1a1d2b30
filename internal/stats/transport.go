// Package stats fetches channel, supergroup, post, story and boost statistics
// and keeps track of the requests it has in flight.
package stats

import (
	"context"

	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstats/internal/models"
)

// Ledger is the transport's bookkeeping of outstanding requests.
type Ledger interface {
	AllocateRequestID() models.RequestID
	RegisterStatsRequest(shard models.ShardID, id models.RequestID)
	UnregisterStatsRequest(shard models.ShardID, id models.RequestID)
	Pending(id models.RequestID) bool
}

// Call performs one remote call against the invoker of the routed shard.
type Call func(ctx context.Context, inv tg.Invoker) error

// Transport sends calls to the telegram backend.
type Transport interface {
	Ledger

	// Dispatch runs call under id against shard (0 = main connection) and
	// reports the outcome through complete exactly once, from any goroutine.
	Dispatch(ctx context.Context, shard models.ShardID, id models.RequestID, call Call, complete func(error))

	// StatsShard returns the shard serving statistics of channel, 0 if unknown.
	StatsShard(channel models.Channel) models.ShardID
}

// Directory materializes peers and messages referenced by results.
type Directory interface {
	PeerLoaded(peer models.PeerID) bool
	ProcessUsers(users []tg.UserClass)
	ProcessChats(chats []tg.ChatClass)
	AddMessage(msg tg.MessageClass)
}
