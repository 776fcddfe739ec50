package types

// Ballot is a monotonically increasing, globally unique proposal number.
// Each proposer with UID u draws ballots from the disjoint arithmetic
// progression u, u+N, u+2N, ... where N is the total host count, so no
// coordination is required to keep ballots unique across proposers.
type Ballot int64

// NoBallot is the sentinel for "no previously accepted ballot" (n' = ⊥).
const NoBallot Ballot = -1

// BallotSequence hands out the next ballot for a single proposer.
type BallotSequence struct {
	next   Ballot
	stride int
}

// NewBallotSequence seeds a sequence for a proposer with the given uid,
// stepping by stride (the total host count N) on every draw.
func NewBallotSequence(uid UID, stride int) *BallotSequence {
	return &BallotSequence{next: Ballot(uid), stride: stride}
}

// Draw returns the next ballot in this proposer's progression and advances
// the sequence by N.
func (s *BallotSequence) Draw() Ballot {
	n := s.next
	s.next += Ballot(s.stride)
	return n
}
