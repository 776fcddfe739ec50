package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/davemillward/paxring/pkg/paxring/definition"
	"github.com/davemillward/paxring/pkg/paxring/types"
)

type nodeState int32

const (
	stateUninit nodeState = iota
	stateElecting
	stateAwaitingRole
	stateRunning
	stateTerminated
)

// Settle durations the bootstrap sequence uses to stay race-free in
// practice; never load-bearing for Paxos correctness itself.
const (
	DefaultElectionSettle = 50 * time.Millisecond
	DefaultRoleSettle     = 50 * time.Millisecond
)

// Node is the single consensus-process type: one struct with a role tag
// rather than three separate types per role. Which fields are meaningful
// depends on Role.
type Node struct {
	uid       types.UID
	table     types.HostTable
	transport Transport
	log       types.Logger
	metrics   *definition.Metrics

	electionSettle time.Duration
	roleSettle     time.Duration

	state atomic.Int32

	election *Election

	// roleVal and lists are written from whichever goroutine first learns
	// them (Run's own goroutine for the coordinator's self-assignment, the
	// dispatcher's worker goroutine for everyone else via ROLE/START) and
	// read from both the worker goroutine and the listener goroutine's
	// ACCEPT-VALUE fast path, so both live behind atomics rather than the
	// single-writer rule the rest of Node's fields get away with.
	roleVal atomic.Value // types.NodeRole
	lists   atomic.Pointer[roleLists]

	roleCh chan struct{}
	roleMu sync.Once

	dispatcher *Dispatcher

	// Proposer state.
	seq            *types.BallotSequence
	acksReceived   []types.Promise
	acceptancesMu  sync.Mutex
	acceptances    []types.Accepted // ghost ACCEPT-VALUE knowledge; written by the listener fast path too
	backoffEnabled bool

	// Acceptor state.
	promisesMade []types.Accepted
	accepted     []types.Accepted

	// Learner state.
	learned  []types.Accepted
	decided  bool
	decision types.Value

	done     chan struct{}
	termOnce sync.Once
}

// roleLists is the resolved fan-out target for each partition, snapshotted
// atomically on every START so the listener goroutine's fast path can read
// it without racing the worker goroutine that writes it.
type roleLists struct {
	proposers []types.HostEntry
	acceptors []types.HostEntry
	learners  []types.HostEntry
}

// NewNode constructs a consensus node. The NACK-triggered retry path is off
// by default; SetBackoff toggles it.
func NewNode(uid types.UID, table types.HostTable, transport Transport, log types.Logger, metrics *definition.Metrics) *Node {
	n := &Node{
		uid:            uid,
		table:          table,
		transport:      transport,
		log:            log,
		metrics:        metrics,
		electionSettle: DefaultElectionSettle,
		roleSettle:     DefaultRoleSettle,
		roleCh:         make(chan struct{}),
		done:           make(chan struct{}),
	}
	n.state.Store(int32(stateUninit))
	return n
}

// SetBackoff toggles the optional NACK back-off/re-forward path; disabled
// by default.
func (n *Node) SetBackoff(enabled bool) { n.backoffEnabled = enabled }

// Role reports the role this node settled on. Only meaningful once Run has
// progressed past election and role assignment.
func (n *Node) Role() types.NodeRole {
	v, _ := n.roleVal.Load().(types.NodeRole)
	return v
}

func (n *Node) setRole(role types.NodeRole) { n.roleVal.Store(role) }

// currentLists returns the most recent START's resolved fan-out lists, or
// the zero value if START hasn't landed yet.
func (n *Node) currentLists() roleLists {
	p := n.lists.Load()
	if p == nil {
		return roleLists{}
	}
	return *p
}

// Run drives the node through ELECTING -> ROLED -> RUNNING and blocks until
// a TERM message arrives.
func (n *Node) Run() error {
	n.state.Store(int32(stateElecting))

	n.dispatcher = NewDispatcher(n.transport, n.log)
	n.dispatcher.Route = n.route
	n.dispatcher.FastPath = n.handleAcceptValue
	n.dispatcher.Start()

	n.election = NewElection(n.uid, n.table, n.transport, n.log, n.metrics, n.electionSettle)
	n.election.Start()
	<-n.election.Done()

	if n.election.IsLeader() {
		n.log.Infof("node %d elected coordinator", n.uid)
		assignment := AssignRoles(n.uid, n.table)
		n.setRole(types.RoleLearner)
		n.state.Store(int32(stateRunning))
		go BroadcastRoles(n.transport, n.table, assignment, n.roleSettle)
	} else {
		n.state.Store(int32(stateAwaitingRole))
		<-n.roleCh
		n.state.Store(int32(stateRunning))
	}

	n.log.Infof("node %d running as %s", n.uid, n.Role())

	<-n.done
	n.dispatcher.Stop()
	n.state.Store(int32(stateTerminated))
	return nil
}

// route is called from the single dispatcher worker goroutine; it is the
// only place Node's role-state fields are mutated, keeping every field
// single-writer.
func (n *Node) route(m types.Message) {
	if m.Header == types.HeaderTerm {
		n.terminate()
		return
	}

	if m.Header == types.HeaderStart {
		n.handleStart(m)
		return
	}

	switch nodeState(n.state.Load()) {
	case stateElecting:
		if m.Header == types.HeaderToken {
			n.election.HandleToken(m)
		}
		// Any other traffic this early is stray and discarded.
		return
	case stateAwaitingRole:
		if m.Header == types.HeaderRole {
			n.setRole(m.AssignedRole)
			// START may have been processed before ROLE under reordering,
			// in which case handleStart skipped the seeding.
			if m.AssignedRole == types.RoleProposer && n.seq == nil {
				n.seq = types.NewBallotSequence(n.uid, n.table.N())
			}
			n.roleMu.Do(func() { close(n.roleCh) })
		}
		return
	case stateRunning:
		n.routeProtocol(m)
	default:
		// Stray traffic after termination, or before election started.
	}
}

func (n *Node) handleStart(m types.Message) {
	if m.Roles == nil {
		n.log.Errorf("node %d: malformed START from %d", n.uid, m.SenderID)
		return
	}
	n.lists.Store(&roleLists{
		proposers: resolveEntries(n.table, m.Roles.Proposers),
		acceptors: resolveEntries(n.table, m.Roles.Acceptors),
		learners:  resolveEntries(n.table, m.Roles.Learners),
	})

	if n.Role() == types.RoleProposer && n.seq == nil {
		n.seq = types.NewBallotSequence(n.uid, n.table.N())
	}
}

func resolveEntries(table types.HostTable, uids []types.UID) []types.HostEntry {
	out := make([]types.HostEntry, 0, len(uids))
	for _, u := range uids {
		out = append(out, table.Entry(u))
	}
	return out
}

// routeProtocol dispatches a steady-state Paxos header to its phase
// handler. A header landing at the wrong role is a fatal assertion: it
// indicates a role-table bug, not a recoverable condition.
func (n *Node) routeProtocol(m types.Message) {
	// START may race FWD/PROPOSAL/etc. over a non-FIFO transport; until it
	// lands, role-specific fan-out targets are empty, so drop rather than
	// act on an incomplete view.
	if n.lists.Load() == nil {
		n.log.Warnf("node %d: dropping %s received before START", n.uid, m.Header)
		return
	}

	switch m.Header {
	case types.HeaderFwd:
		n.requireRole(types.RoleProposer, m)
		n.phase1aForward(m)
	case types.HeaderProposal:
		n.requireRole(types.RoleAcceptor, m)
		n.phase1bPromise(m)
	case types.HeaderAck:
		n.requireRole(types.RoleProposer, m)
		n.phase2aAck(m)
	case types.HeaderNack:
		n.requireRole(types.RoleProposer, m)
		n.phase2aNack(m)
	case types.HeaderAccept:
		n.requireRole(types.RoleAcceptor, m)
		n.phase2bAccept(m)
	case types.HeaderLearn:
		n.requireRole(types.RoleLearner, m)
		n.phase3Learn(m)
	default:
		n.log.Warnf("node %d: unhandled header %s", n.uid, m.Header)
	}
}

func (n *Node) requireRole(want types.NodeRole, m types.Message) {
	if got := n.Role(); got != want {
		n.log.Fatalf("node %d: message %s requires role %s but node is %s", n.uid, m.Header, want, got)
	}
}

func (n *Node) terminate() {
	n.termOnce.Do(func() { close(n.done) })
}

// Done is closed once this node has processed TERM and Run is unwinding.
// Safe to wait on from outside the node's own goroutines.
func (n *Node) Done() <-chan struct{} { return n.done }

// Accepted returns a snapshot of the (v,n) pairs this node has accepted as
// an Acceptor. Only safe to call once Run has returned (i.e. after Done is
// closed): before that, accepted is owned by the dispatcher worker
// goroutine and reading it concurrently would race.
func (n *Node) Accepted() []types.Accepted {
	return append([]types.Accepted(nil), n.accepted...)
}

// Decision reports the value this node's Learner role settled on, if any.
// Same post-Done() calling contract as Accepted.
func (n *Node) Decision() (types.Value, bool) {
	return n.decision, n.decided
}
