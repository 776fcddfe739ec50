package types

// Proposal is the pair (v, n) a proposer multicasts in Phase 1a/2a.
type Proposal struct {
	Value  Value
	Ballot Ballot
}

// Promise is the triple (n, v, n') an acceptor replies with in Phase 1b: a
// promise for ballot n, optionally reporting a previously accepted (v, n').
// AcceptedBallot is NoBallot when the acceptor has nothing on record.
type Promise struct {
	Ballot         Ballot
	Value          Value
	AcceptedBallot Ballot
}

// HasPrior reports whether this promise is carrying a previously accepted
// value (AcceptedBallot != NoBallot).
func (p Promise) HasPrior() bool {
	return p.AcceptedBallot != NoBallot
}

// Accepted is an (v, n) pair an acceptor has committed to, or a learner has
// observed via LEARN/ACCEPT-VALUE.
type Accepted struct {
	Value  Value
	Ballot Ballot
}
