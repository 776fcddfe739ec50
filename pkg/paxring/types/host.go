package types

import "fmt"

// Kind distinguishes a consensus participant from a client in the host table.
type Kind string

const (
	Consensus Kind = "con"
	Client    Kind = "cli"
)

// UID is a total-ordered index into the host table. The table is read-only
// after startup and identical across every process in the run.
type UID int

// HostEntry is a single row of the host table: (hostname, port, kind),
// indexed implicitly by its position (the UID).
type HostEntry struct {
	UID  UID
	Host string
	Port int
	Kind Kind
}

func (h HostEntry) String() string {
	return fmt.Sprintf("%s:%d#%d(%s)", h.Host, h.Port, h.UID, h.Kind)
}

// HostTable is the full, shared, read-only table every process loads at
// startup. Indices equal UIDs.
type HostTable struct {
	Proposers int
	Acceptors int
	Learners  int
	Hosts     []HostEntry
}

// Entry returns the host table row for uid.
func (t HostTable) Entry(uid UID) HostEntry {
	return t.Hosts[uid]
}

// N is the total host count, used as the stride between a proposer's ballots.
func (t HostTable) N() int {
	return len(t.Hosts)
}

// ConsensusNodes returns every host table entry tagged con, in table order.
func (t HostTable) ConsensusNodes() []HostEntry {
	var out []HostEntry
	for _, h := range t.Hosts {
		if h.Kind == Consensus {
			out = append(out, h)
		}
	}
	return out
}

// ClientNodes returns every host table entry tagged cli, in table order.
func (t HostTable) ClientNodes() []HostEntry {
	var out []HostEntry
	for _, h := range t.Hosts {
		if h.Kind == Client {
			out = append(out, h)
		}
	}
	return out
}

// RoleLists partitions the consensus UIDs by position: the first Proposers
// entries become Proposers, the next Acceptors become Acceptors, the next
// Learners become Learners. The last consensus UID always ends up a
// Learner, even when the Learners count was already exhausted (the
// coordinator appends itself in AssignRoles).
func (t HostTable) RoleLists() (proposers, acceptors, learners []UID) {
	con := t.ConsensusNodes()
	idx := 0
	for i := 0; i < t.Proposers && idx < len(con); i++ {
		proposers = append(proposers, con[idx].UID)
		idx++
	}
	for i := 0; i < t.Acceptors && idx < len(con); i++ {
		acceptors = append(acceptors, con[idx].UID)
		idx++
	}
	for i := 0; i < t.Learners && idx < len(con); i++ {
		learners = append(learners, con[idx].UID)
		idx++
	}
	return proposers, acceptors, learners
}
