package core

import (
	"math/rand"
	"time"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

// quorum is the smallest majority of n participants.
func quorum(n int) int { return n/2 + 1 }

// phase1aForward is Phase 1a: a proposer receiving a client's FWD(v) draws
// its next ballot and multicasts PROPOSAL(v, n) to every acceptor.
func (n *Node) phase1aForward(m types.Message) {
	if m.Value == nil {
		n.log.Errorf("node %d: FWD with no value from %d", n.uid, m.SenderID)
		return
	}
	ballot := n.seq.Draw()
	if n.metrics != nil {
		n.metrics.BallotsProposed.Inc()
	}

	proposal := types.NewMessage(types.HeaderProposal, n.uid)
	proposal.Proposal = &types.Proposal{Value: *m.Value, Ballot: ballot}
	if err := n.transport.Multicast(n.currentLists().acceptors, proposal); err != nil {
		n.log.Warnf("node %d: multicast PROPOSAL failed: %v", n.uid, err)
	}
}

// phase1bPromise is Phase 1b: an acceptor receiving PROPOSAL(v, n) either
// promises not to accept anything numbered below n, or refuses with NACK if
// it already promised a higher ballot. The reply always resolves its
// destination from the sender's UID before branching, so the NACK path has
// a valid reply address just as the promise path does.
func (n *Node) phase1bPromise(m types.Message) {
	if m.Proposal == nil {
		n.log.Errorf("node %d: PROPOSAL with no body from %d", n.uid, m.SenderID)
		return
	}
	v, ballot := m.Proposal.Value, m.Proposal.Ballot
	sender := n.table.Entry(m.SenderID)

	higherPromised := false
	for _, p := range n.promisesMade {
		if p.Ballot > ballot {
			higherPromised = true
			break
		}
	}

	if higherPromised {
		if n.metrics != nil {
			n.metrics.PromisesRejected.Inc()
		}
		nack := types.NewMessage(types.HeaderNack, n.uid)
		nack.Proposal = &types.Proposal{Value: v, Ballot: ballot}
		if err := n.transport.Send(sender, nack); err != nil {
			n.log.Warnf("node %d: send NACK failed: %v", n.uid, err)
		}
		return
	}

	var promise types.Promise
	if len(n.accepted) > 0 {
		highest := n.accepted[0]
		for _, a := range n.accepted {
			if a.Ballot > highest.Ballot {
				highest = a
			}
		}
		n.promisesMade = append(n.promisesMade, types.Accepted{Value: highest.Value, Ballot: ballot})
		promise = types.Promise{Ballot: ballot, Value: highest.Value, AcceptedBallot: highest.Ballot}
	} else {
		n.promisesMade = append(n.promisesMade, types.Accepted{Value: v, Ballot: ballot})
		promise = types.Promise{Ballot: ballot, Value: v, AcceptedBallot: types.NoBallot}
	}

	if n.metrics != nil {
		n.metrics.PromisesGranted.Inc()
	}
	ack := types.NewMessage(types.HeaderAck, n.uid)
	ack.Promise = &promise
	if err := n.transport.Send(sender, ack); err != nil {
		n.log.Warnf("node %d: send ACK failed: %v", n.uid, err)
	}
}

// phase2aAck is Phase 2a's majority side: a proposer counts ACKs whose
// ballot-promised (n1) or previously-accepted (n2) field matches the ballot
// this ACK concerns, and on reaching quorum multicasts ACCEPT carrying the
// value of the ack with the highest previously-accepted ballot (n2) among
// every ack on record. Ghost knowledge from
// the ACCEPT-VALUE fast path overrides the vote whenever it's present,
// since it reflects a decision that has already happened elsewhere on the
// ring.
func (n *Node) phase2aAck(m types.Message) {
	if m.Promise == nil {
		n.log.Errorf("node %d: ACK with no body from %d", n.uid, m.SenderID)
		return
	}
	p := *m.Promise
	n.acksReceived = append(n.acksReceived, p)

	matching := 0
	for _, a := range n.acksReceived {
		if a.Ballot == p.Ballot || a.AcceptedBallot == p.Ballot {
			matching++
		}
	}
	if matching < quorum(len(n.currentLists().acceptors)) {
		return
	}

	// Among every ack on record, the one carrying the highest previously-
	// accepted ballot (n2) is the value that must win, per classical
	// Paxos's P2c: a proposer is bound to the value behind the
	// highest-numbered proposal any acceptor in its quorum has already
	// accepted. Acks with no prior acceptance carry AcceptedBallot ==
	// NoBallot (-1) and echo back this proposer's own forwarded value, so
	// defaulting to the first ack when nothing beats NoBallot still picks
	// a correct value.
	highest := n.acksReceived[0]
	for _, a := range n.acksReceived {
		if a.AcceptedBallot > highest.AcceptedBallot {
			highest = a
		}
	}

	n.acceptancesMu.Lock()
	ghost := append([]types.Accepted(nil), n.acceptances...)
	n.acceptancesMu.Unlock()

	var value types.Value
	var ballot types.Ballot
	if len(ghost) > 0 {
		best := ghost[0]
		for _, g := range ghost {
			if g.Ballot > best.Ballot {
				best = g
			}
		}
		value, ballot = best.Value, best.Ballot
	} else {
		value, ballot = highest.Value, p.Ballot
	}

	accept := types.NewMessage(types.HeaderAccept, n.uid)
	accept.Proposal = &types.Proposal{Value: value, Ballot: ballot}
	if err := n.transport.Multicast(n.currentLists().acceptors, accept); err != nil {
		n.log.Warnf("node %d: multicast ACCEPT failed: %v", n.uid, err)
	}
}

// backoffSteps bounds the random delay to 50ms increments up to 950ms.
const backoffSteps = 20

// phase2aNack is the optional retry side of Phase 2a: when enabled, a
// proposer that gets rejected waits a random interval and re-forwards its
// own value to itself, re-entering Phase 1a with a fresh ballot.
func (n *Node) phase2aNack(m types.Message) {
	if !n.backoffEnabled || m.Proposal == nil {
		return
	}
	value := m.Proposal.Value
	delay := time.Duration(rand.Intn(backoffSteps)) * 50 * time.Millisecond
	time.AfterFunc(delay, func() {
		fwd := types.NewMessage(types.HeaderFwd, n.uid)
		fwd.Value = &value
		if err := n.transport.Send(n.table.Entry(n.uid), fwd); err != nil {
			n.log.Warnf("node %d: backoff re-forward failed: %v", n.uid, err)
		}
	})
}

// phase2bAccept is Phase 2b: an acceptor receiving ACCEPT(v, n) honors it
// unless it has already promised a strictly higher ballot, in which case it
// silently drops the request. On acceptance it records
// (v, n) and fans the decision out twice: ACCEPT-VALUE to every proposer
// (the redundant fast-path signal) and LEARN to every learner.
func (n *Node) phase2bAccept(m types.Message) {
	if m.Proposal == nil {
		n.log.Errorf("node %d: ACCEPT with no body from %d", n.uid, m.SenderID)
		return
	}
	prop := m.Proposal
	for _, p := range n.promisesMade {
		if p.Ballot > prop.Ballot {
			return
		}
	}

	accepted := types.Accepted{Value: prop.Value, Ballot: prop.Ballot}
	n.accepted = append(n.accepted, accepted)
	if n.metrics != nil {
		n.metrics.ValuesAccepted.Inc()
	}

	av := types.NewMessage(types.HeaderAcceptValue, n.uid)
	av.Accepted = &accepted
	if err := n.transport.Multicast(n.currentLists().proposers, av); err != nil {
		n.log.Warnf("node %d: multicast ACCEPT-VALUE failed: %v", n.uid, err)
	}

	learn := types.NewMessage(types.HeaderLearn, n.uid)
	learn.Accepted = &accepted
	if err := n.transport.Multicast(n.currentLists().learners, learn); err != nil {
		n.log.Warnf("node %d: multicast LEARN failed: %v", n.uid, err)
	}
}

// phase3Learn is Phase 3: a learner collects LEARN(v, n) reports and, once
// a quorum of acceptors has reported the same ballot, multicasts SET(v) to
// every client. Once decided, any later quorum only re-announces the
// already-decided value, which a client that has its answer ignores.
func (n *Node) phase3Learn(m types.Message) {
	if m.Accepted == nil {
		n.log.Errorf("node %d: LEARN with no body from %d", n.uid, m.SenderID)
		return
	}
	acc := *m.Accepted
	n.learned = append(n.learned, acc)

	count := 0
	for _, a := range n.learned {
		if a.Ballot == acc.Ballot {
			count++
		}
	}
	if count < quorum(len(n.currentLists().acceptors)) {
		return
	}

	// Decision stickiness: the first quorum fixes the delivered value for
	// the rest of the run. Late LEARNs can only trigger re-announcements of
	// that same value, never a different one.
	if !n.decided {
		n.decided = true
		n.decision = acc.Value
		if n.metrics != nil {
			n.metrics.DecisionsReached.Inc()
		}
	}

	value := n.decision
	set := types.NewMessage(types.HeaderSet, n.uid)
	set.Value = &value
	if err := n.transport.Multicast(n.table.ClientNodes(), set); err != nil {
		n.log.Warnf("node %d: multicast SET failed: %v", n.uid, err)
	}
}

// handleAcceptValue is the dispatcher's ACCEPT-VALUE fast path: it runs on
// the listener goroutine, never the worker goroutine, so it only ever
// touches acceptances, guarded by acceptancesMu. A proposer that hasn't
// settled into its role yet (a brief window right after START) simply
// drops the ghost signal; phase2aAck will fall back to its own vote.
func (n *Node) handleAcceptValue(m types.Message) {
	if m.Accepted == nil {
		return
	}
	if n.Role() != types.RoleProposer {
		return
	}
	n.acceptancesMu.Lock()
	n.acceptances = append(n.acceptances, *m.Accepted)
	n.acceptancesMu.Unlock()
}
