package core

import (
	"sync"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

// MemoryBus is the in-process substitute for the network, shared by every
// MemoryTransport in a test cluster. It plays the role of the wire, with a
// pluggable drop rule standing in for real packet loss.
type MemoryBus struct {
	mutex  sync.Mutex
	routes map[types.UID]chan types.Message

	// Drop, when non-nil, is consulted for every send; returning true drops
	// the datagram, modelling arbitrary network loss.
	Drop func(from, to types.UID, m types.Message) bool
}

// NewMemoryBus creates an empty bus; transports register themselves via
// register as they're constructed.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{routes: make(map[types.UID]chan types.Message)}
}

func (b *MemoryBus) register(uid types.UID) chan types.Message {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	ch := make(chan types.Message, 256)
	b.routes[uid] = ch
	return ch
}

func (b *MemoryBus) unregister(uid types.UID) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if ch, ok := b.routes[uid]; ok {
		delete(b.routes, uid)
		close(ch)
	}
}

func (b *MemoryBus) deliver(from, to types.UID, m types.Message) {
	if b.Drop != nil && b.Drop(from, to, m) {
		return
	}
	b.mutex.Lock()
	ch, ok := b.routes[to]
	b.mutex.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- m:
	default:
		// Queue full: the real network would have dropped this too.
	}
}

// MemoryTransport implements Transport over a shared MemoryBus, for
// deterministic, fast unit and integration tests.
type MemoryTransport struct {
	uid types.UID
	bus *MemoryBus
	ch  chan types.Message
}

// NewMemoryTransport registers uid on bus and returns its Transport handle.
func NewMemoryTransport(bus *MemoryBus, uid types.UID) *MemoryTransport {
	return &MemoryTransport{uid: uid, bus: bus, ch: bus.register(uid)}
}

func (t *MemoryTransport) LocalUID() types.UID { return t.uid }

func (t *MemoryTransport) Send(to types.HostEntry, message types.Message) error {
	t.bus.deliver(t.uid, to.UID, message)
	return nil
}

func (t *MemoryTransport) Multicast(group []types.HostEntry, message types.Message) error {
	for _, to := range group {
		t.bus.deliver(t.uid, to.UID, message)
	}
	return nil
}

func (t *MemoryTransport) Listen() <-chan types.Message {
	return t.ch
}

func (t *MemoryTransport) Close() error {
	t.bus.unregister(t.uid)
	return nil
}

var _ Transport = (*MemoryTransport)(nil)
