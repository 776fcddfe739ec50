package types

// Value is the opaque scalar Paxos agrees on. One value is decided per run.
type Value int64
