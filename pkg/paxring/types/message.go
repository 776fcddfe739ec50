package types

import "github.com/google/uuid"

// Header is one of the exhaustive set of wire headers the protocol uses.
type Header string

const (
	HeaderToken       Header = "TOKEN"
	HeaderRole        Header = "ROLE"
	HeaderStart       Header = "START"
	HeaderFwd         Header = "FWD"
	HeaderProposal    Header = "PROPOSAL"
	HeaderAck         Header = "ACK"
	HeaderNack        Header = "NACK"
	HeaderAccept      Header = "ACCEPT"
	HeaderAcceptValue Header = "ACCEPT-VALUE"
	HeaderLearn       Header = "LEARN"
	HeaderSet         Header = "SET"
	HeaderTerm        Header = "TERM"
)

// RoleAssignment is the body of a START broadcast: the three role
// partitions, each a list of UIDs in host-table order.
type RoleAssignment struct {
	Proposers []UID
	Acceptors []UID
	Learners  []UID
}

// NodeRole is the Paxos role the coordinator assigns a consensus UID: one
// of Proposer, Acceptor, Learner. Distinct from Kind, which only says
// whether a host table row is a consensus participant or a client.
type NodeRole string

const (
	RoleNone     NodeRole = ""
	RoleProposer NodeRole = "PROPOSER"
	RoleAcceptor NodeRole = "ACCEPTOR"
	RoleLearner  NodeRole = "LEARNER"
)

// TokenBody is the Chang-Roberts ring payload: either a candidate UID or the
// literal termination marker.
type TokenBody struct {
	Candidate UID
	Term      bool
}

// Message is the envelope every datagram carries: a header, an opaque body,
// and the sender's UID, so a recipient can resolve a reply address without
// the body needing to repeat it. Body is one of the types above plus
// Proposal/Promise/Value depending on Header; msgpack tags keep the wire
// encoding stable and compact enough to fit a single datagram.
type Message struct {
	ID       uuid.UUID `msgpack:"id"`
	Header   Header    `msgpack:"h"`
	SenderID UID       `msgpack:"s"`

	AssignedRole NodeRole        `msgpack:"role,omitempty"`
	Roles        *RoleAssignment `msgpack:"roles,omitempty"`
	Token        *TokenBody      `msgpack:"token,omitempty"`
	Proposal     *Proposal       `msgpack:"proposal,omitempty"`
	Promise      *Promise        `msgpack:"promise,omitempty"`
	Accepted     *Accepted       `msgpack:"accepted,omitempty"`
	Value        *Value          `msgpack:"value,omitempty"`
}

// NewMessage stamps a fresh message ID and sender for header h from sender.
func NewMessage(header Header, sender UID) Message {
	return Message{ID: uuid.New(), Header: header, SenderID: sender}
}
