package core

import (
	"sync"
	"time"

	"github.com/davemillward/paxring/pkg/paxring/definition"
	"github.com/davemillward/paxring/pkg/paxring/types"
)

type ringColor int

const (
	ringRed ringColor = iota
	ringBlack
)

// Election runs Chang-Roberts leader election over the ring of consensus
// nodes. The ring's successor function, (uid+1) mod C, assumes consensus
// UIDs occupy a contiguous range starting at 0, i.e. every con row precedes
// every cli row in the host table. internal/hosttable does not check this.
type Election struct {
	self      types.UID
	table     types.HostTable
	ring      []types.HostEntry
	transport Transport
	log       types.Logger
	metrics   *definition.Metrics
	settle    time.Duration

	mutex     sync.Mutex
	color     ringColor
	isLeader  bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewElection builds the election component for self. settle is the small
// settling sleep before the opening token is sent.
func NewElection(self types.UID, table types.HostTable, transport Transport, log types.Logger, metrics *definition.Metrics, settle time.Duration) *Election {
	return &Election{
		self:      self,
		table:     table,
		ring:      table.ConsensusNodes(),
		transport: transport,
		log:       log,
		metrics:   metrics,
		settle:    settle,
		color:     ringRed,
		done:      make(chan struct{}),
	}
}

func (e *Election) successor() types.HostEntry {
	c := len(e.ring)
	next := types.UID((int(e.self) + 1) % c)
	return e.table.Entry(next)
}

// Start sends this node's opening TOKEN after the settling delay.
func (e *Election) Start() {
	go func() {
		time.Sleep(e.settle)
		token := types.NewMessage(types.HeaderToken, e.self)
		token.Token = &types.TokenBody{Candidate: e.self}
		if err := e.transport.Send(e.successor(), token); err != nil {
			e.log.Warnf("election: failed sending opening token: %v", err)
		}
	}()
}

// HandleToken processes one TOKEN message per the Chang-Roberts rules. It
// must only be called from a single goroutine (the node's
// dispatcher worker) to keep color/isLeader single-writer.
func (e *Election) HandleToken(m types.Message) {
	if m.Token == nil {
		e.log.Errorf("election: malformed TOKEN message from %d", m.SenderID)
		return
	}

	if m.Token.Term {
		e.finish()
		return
	}

	j := m.Token.Candidate
	i := e.self

	e.mutex.Lock()
	color := e.color
	e.mutex.Unlock()

	if color == ringBlack {
		e.forward(j)
		return
	}

	switch {
	case j < i:
		// Token dies here.
	case j > i:
		e.mutex.Lock()
		e.color = ringBlack
		e.mutex.Unlock()
		e.forward(j)
	default:
		e.mutex.Lock()
		e.isLeader = true
		e.mutex.Unlock()
		e.log.Infof("election: node %d is the leader", i)
		term := types.NewMessage(types.HeaderToken, e.self)
		term.Token = &types.TokenBody{Term: true}
		if err := e.transport.Multicast(e.ring, term); err != nil {
			e.log.Warnf("election: failed multicasting termination token: %v", err)
		}
		e.finish()
	}
}

func (e *Election) forward(candidate types.UID) {
	if e.metrics != nil {
		e.metrics.TokensForwarded.Inc()
	}
	token := types.NewMessage(types.HeaderToken, e.self)
	token.Token = &types.TokenBody{Candidate: candidate}
	if err := e.transport.Send(e.successor(), token); err != nil {
		e.log.Warnf("election: failed forwarding token: %v", err)
	}
}

func (e *Election) finish() {
	e.closeOnce.Do(func() { close(e.done) })
}

// Done is closed once this node has either declared itself leader or
// observed the termination token.
func (e *Election) Done() <-chan struct{} { return e.done }

// IsLeader reports whether this node won the election. Only meaningful
// after Done() has been closed.
func (e *Election) IsLeader() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.isLeader
}
