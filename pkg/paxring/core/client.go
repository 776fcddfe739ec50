package core

import (
	"sync"
	"time"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

// Default settling/drain delays for the client edge, in the same
// 25-100ms band as the consensus-side bootstrap sleeps.
const (
	DefaultClientSettle = 50 * time.Millisecond
	DefaultDrainDelay   = 100 * time.Millisecond
)

// Client is the client edge: it waits for the role partition, forwards a
// single value to a chosen proposer, blocks for the decision, and is the
// sole source of the TERM signal that shuts the whole run down.
type Client struct {
	uid          types.UID
	table        types.HostTable
	transport    Transport
	log          types.Logger
	value        types.Value
	proposerHint int

	settle    time.Duration
	drain     time.Duration
	dispatch  *Dispatcher
	proposers []types.HostEntry

	decision    chan types.Value
	decidedOnce bool

	startCh   chan struct{}
	startOnce sync.Once

	termCh   chan struct{}
	termOnce sync.Once
}

// NewClient builds a client edge bound to uid, proposing value and picking
// its target proposer via proposerHint mod |proposers|.
func NewClient(uid types.UID, table types.HostTable, transport Transport, log types.Logger, value types.Value, proposerHint int) *Client {
	return &Client{
		uid:          uid,
		table:        table,
		transport:    transport,
		log:          log,
		value:        value,
		proposerHint: proposerHint,
		settle:       DefaultClientSettle,
		drain:        DefaultDrainDelay,
		decision:     make(chan types.Value, 1),
		startCh:      make(chan struct{}),
		termCh:       make(chan struct{}),
	}
}

// Run executes the client sequence to completion: bind, await START,
// forward, block for SET, drain, broadcast TERM, return the decided value.
func (c *Client) Run() (types.Value, error) {
	c.dispatch = NewDispatcher(c.transport, c.log)
	c.dispatch.Route = c.route
	c.dispatch.FastPath = func(types.Message) {} // clients never see ACCEPT-VALUE
	c.dispatch.Start()
	defer c.dispatch.Stop()

	select {
	case <-c.startCh:
	case <-c.termCh:
		return 0, nil
	}

	target := c.proposers[c.proposerHint%len(c.proposers)]
	time.Sleep(c.settle)

	fwd := types.NewMessage(types.HeaderFwd, c.uid)
	v := c.value
	fwd.Value = &v
	if err := c.transport.Send(target, fwd); err != nil {
		c.log.Warnf("client %d: FWD to %s failed: %v", c.uid, target, err)
	}

	select {
	case decided := <-c.decision:
		c.log.Infof("client %d: decided %d", c.uid, decided)

		time.Sleep(c.drain)
		term := types.NewMessage(types.HeaderTerm, c.uid)
		if err := c.transport.Multicast(c.table.Hosts, term); err != nil {
			c.log.Warnf("client %d: TERM broadcast failed: %v", c.uid, err)
		}
		return decided, nil
	case <-c.termCh:
		// Another client already decided and broadcast TERM first; this is
		// the only shutdown path, so exit without deciding.
		return 0, nil
	}
}

// route mirrors Node's but is much smaller: a client only ever needs START
// (to learn the proposer list), SET (the decision) and TERM (shutdown).
// Everything else is stray traffic and is dropped.
func (c *Client) route(m types.Message) {
	switch m.Header {
	case types.HeaderStart:
		if m.Roles == nil {
			c.log.Errorf("client %d: malformed START from %d", c.uid, m.SenderID)
			return
		}
		c.proposers = resolveEntries(c.table, m.Roles.Proposers)
		c.signalStart()
	case types.HeaderSet:
		if m.Value == nil || c.decidedOnce {
			return
		}
		c.decidedOnce = true
		c.decision <- *m.Value
	case types.HeaderTerm:
		c.termOnce.Do(func() { close(c.termCh) })
	}
}

func (c *Client) signalStart() {
	c.startOnce.Do(func() { close(c.startCh) })
}
