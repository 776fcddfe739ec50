package core

import (
	"testing"
	"time"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

// runningNode builds a node already past election and role assignment, with
// the standard small-cluster partition resolved, so phase handlers can be driven
// directly through route without a dispatcher. The test goroutine then
// plays the part of the single worker goroutine.
func runningNode(t *testing.T, bus *MemoryBus, table types.HostTable, uid types.UID, role types.NodeRole) *Node {
	t.Helper()
	transport := NewMemoryTransport(bus, uid)
	t.Cleanup(func() { transport.Close() })

	proposers, acceptors, learners := table.RoleLists()
	n := NewNode(uid, table, transport, newTestLogger(), nil)
	n.setRole(role)
	n.lists.Store(&roleLists{
		proposers: resolveEntries(table, proposers),
		acceptors: resolveEntries(table, acceptors),
		learners:  resolveEntries(table, learners),
	})
	n.state.Store(int32(stateRunning))
	if role == types.RoleProposer {
		n.seq = types.NewBallotSequence(uid, table.N())
	}
	return n
}

// observer registers a bare transport on bus so a test can watch what a
// phase handler sent to that uid.
func observer(t *testing.T, bus *MemoryBus, uid types.UID) <-chan types.Message {
	t.Helper()
	tr := NewMemoryTransport(bus, uid)
	t.Cleanup(func() { tr.Close() })
	return tr.Listen()
}

func recvHeader(t *testing.T, ch <-chan types.Message, want types.Header) types.Message {
	t.Helper()
	select {
	case m := <-ch:
		if m.Header != want {
			t.Fatalf("received %s, want %s", m.Header, want)
		}
		return m
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", want)
		return types.Message{}
	}
}

// TestPhase1bNackResolvesSender drives the refusal branch: an acceptor that
// already promised a higher ballot must NACK, and the NACK must land at the
// proposer resolved from the message's sender uid before branching, so the
// refusal path never lacks a reply address.
func TestPhase1bNackResolvesSender(t *testing.T) {
	table := smallClusterTable()
	bus := NewMemoryBus()
	proposerCh := observer(t, bus, 0)

	acceptor := runningNode(t, bus, table, 1, types.RoleAcceptor)
	acceptor.promisesMade = []types.Accepted{{Value: 5, Ballot: 12}}

	proposal := types.NewMessage(types.HeaderProposal, 0)
	proposal.Proposal = &types.Proposal{Value: 8, Ballot: 6}
	acceptor.route(proposal)

	m := recvHeader(t, proposerCh, types.HeaderNack)
	if m.Proposal == nil || m.Proposal.Ballot != 6 {
		t.Fatalf("NACK body = %+v, want the refused (8, 6)", m.Proposal)
	}
	if len(acceptor.promisesMade) != 1 {
		t.Fatalf("refusal must not record a new promise, promisesMade = %+v", acceptor.promisesMade)
	}
}

// TestPhase1bPromiseCarriesPriorAcceptance checks the promise branch when
// the acceptor has accepted before: the ACK must report the
// highest-ballot prior (v*, n*), not echo the incoming proposal.
func TestPhase1bPromiseCarriesPriorAcceptance(t *testing.T) {
	table := smallClusterTable()
	bus := NewMemoryBus()
	proposerCh := observer(t, bus, 0)

	acceptor := runningNode(t, bus, table, 1, types.RoleAcceptor)
	acceptor.accepted = []types.Accepted{{Value: 11, Ballot: 7}, {Value: 3, Ballot: 1}}

	proposal := types.NewMessage(types.HeaderProposal, 0)
	proposal.Proposal = &types.Proposal{Value: 99, Ballot: 12}
	acceptor.route(proposal)

	m := recvHeader(t, proposerCh, types.HeaderAck)
	if m.Promise == nil {
		t.Fatalf("ACK carried no promise body")
	}
	want := types.Promise{Ballot: 12, Value: 11, AcceptedBallot: 7}
	if *m.Promise != want {
		t.Fatalf("promise = %+v, want %+v", *m.Promise, want)
	}
}

// TestPhase2aAdoptsHighestAcceptedValue checks the P2c selection rule: once
// a quorum of acks is in, the proposer must propose the value behind the
// highest previously-accepted ballot among them, not its own.
func TestPhase2aAdoptsHighestAcceptedValue(t *testing.T) {
	table := smallClusterTable()
	bus := NewMemoryBus()
	acceptorCh := observer(t, bus, 2)

	proposer := runningNode(t, bus, table, 0, types.RoleProposer)

	ack1 := types.NewMessage(types.HeaderAck, 1)
	ack1.Promise = &types.Promise{Ballot: 0, Value: 99, AcceptedBallot: types.NoBallot}
	proposer.route(ack1)

	ack2 := types.NewMessage(types.HeaderAck, 3)
	ack2.Promise = &types.Promise{Ballot: 0, Value: 11, AcceptedBallot: 7}
	proposer.route(ack2)

	m := recvHeader(t, acceptorCh, types.HeaderAccept)
	if m.Proposal == nil || m.Proposal.Value != 11 {
		t.Fatalf("ACCEPT body = %+v, want value 11 (highest prior acceptance)", m.Proposal)
	}
}

// TestPhase3LearnDecisionIsSticky: once a learner
// has emitted SET(v), every later SET it emits carries the same v, even if
// duplicate or late LEARNs bring a different ballot to quorum.
func TestPhase3LearnDecisionIsSticky(t *testing.T) {
	table := smallClusterTable()
	bus := NewMemoryBus()
	clientCh := observer(t, bus, 5)

	learner := runningNode(t, bus, table, 4, types.RoleLearner)

	learn := func(from types.UID, v types.Value, n types.Ballot) {
		m := types.NewMessage(types.HeaderLearn, from)
		m.Accepted = &types.Accepted{Value: v, Ballot: n}
		learner.route(m)
	}

	learn(1, 5, 3)
	learn(2, 5, 3)
	first := recvHeader(t, clientCh, types.HeaderSet)
	if first.Value == nil || *first.Value != 5 {
		t.Fatalf("first SET = %+v, want 5", first.Value)
	}

	learn(1, 9, 9)
	learn(2, 9, 9)
	second := recvHeader(t, clientCh, types.HeaderSet)
	if second.Value == nil || *second.Value != 5 {
		t.Fatalf("late quorum changed the decision: SET = %+v, want 5", second.Value)
	}
}
