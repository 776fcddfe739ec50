package core

import (
	"time"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

// AssignRoles partitions the host table's consensus UIDs into
// Proposers/Acceptors/Learners by position. The coordinator always ends up
// a Learner, even if the Learners count was already exhausted by the
// positional partition: rather than silently dropping the last learner
// slot, it is appended to Learners if the partition didn't already place
// it there.
func AssignRoles(coordinator types.UID, table types.HostTable) types.RoleAssignment {
	proposers, acceptors, learners := table.RoleLists()

	inLearners := false
	for _, u := range learners {
		if u == coordinator {
			inLearners = true
			break
		}
	}
	if !inLearners {
		learners = append(learners, coordinator)
	}

	return types.RoleAssignment{Proposers: proposers, Acceptors: acceptors, Learners: learners}
}

// roleOf reports which partition uid falls into, per the (possibly
// coordinator-amended) assignment.
func roleOf(uid types.UID, assignment types.RoleAssignment) types.NodeRole {
	for _, u := range assignment.Proposers {
		if u == uid {
			return types.RoleProposer
		}
	}
	for _, u := range assignment.Acceptors {
		if u == uid {
			return types.RoleAcceptor
		}
	}
	for _, u := range assignment.Learners {
		if u == uid {
			return types.RoleLearner
		}
	}
	return types.RoleNone
}

// BroadcastRoles is the coordinator's side of role assignment: after a
// short settle delay it unicasts ROLE to every assigned consensus UID, then
// multicasts START with the full assignment to every host, consensus and
// client alike.
func BroadcastRoles(transport Transport, table types.HostTable, assignment types.RoleAssignment, settle time.Duration) {
	time.Sleep(settle)

	send := func(uids []types.UID, role types.NodeRole) {
		for _, uid := range uids {
			entry := table.Entry(uid)
			m := types.NewMessage(types.HeaderRole, transport.LocalUID())
			m.AssignedRole = role
			_ = transport.Send(entry, m)
		}
	}
	send(assignment.Proposers, types.RoleProposer)
	send(assignment.Acceptors, types.RoleAcceptor)
	send(assignment.Learners, types.RoleLearner)

	time.Sleep(settle)
	start := types.NewMessage(types.HeaderStart, transport.LocalUID())
	start.Roles = &assignment
	_ = transport.Multicast(table.Hosts, start)
}
