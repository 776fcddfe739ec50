package core

import "github.com/davemillward/paxring/pkg/paxring/types"

// Transport is the send/receive primitive the dispatcher, election loop,
// and client edge are all built against. It is assumed lossy, non-FIFO
// across senders, and non-duplicating in the common case; every consumer
// of Listen() must tolerate drops, reorderings, and duplicates.
type Transport interface {
	// Send addresses a single message to one host table entry. A failure to
	// serialize or deliver is fatal only to this datagram; the caller should
	// log and continue.
	Send(to types.HostEntry, message types.Message) error

	// Multicast is a convenience wrapper that Sends message to every entry
	// in group, continuing past individual failures.
	Multicast(group []types.HostEntry, message types.Message) error

	// Listen returns the channel new inbound messages are published on.
	Listen() <-chan types.Message

	// LocalUID is the uid this transport is bound to; used to resolve a
	// message's SenderID back to a HostEntry via the shared host table.
	LocalUID() types.UID

	// Close releases the underlying socket/resources. Listen's channel is
	// closed once Close returns.
	Close() error
}
