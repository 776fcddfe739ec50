package definition

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters the node and election loops update.
// None of these are load-bearing for correctness; they exist purely for
// operational visibility.
type Metrics struct {
	BallotsProposed   prometheus.Counter
	PromisesGranted   prometheus.Counter
	PromisesRejected  prometheus.Counter
	ValuesAccepted    prometheus.Counter
	DecisionsReached  prometheus.Counter
	TokensForwarded   prometheus.Counter
}

// NewMetrics registers a fresh, independent set of counters in reg. Passing
// a new prometheus.Registry per node keeps multiple in-process nodes (as
// used by the test harness) from colliding on the default global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BallotsProposed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paxring_ballots_proposed_total",
			Help: "Number of ballots a proposer has drawn and multicast.",
		}),
		PromisesGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paxring_promises_granted_total",
			Help: "Number of PROPOSAL messages an acceptor promised.",
		}),
		PromisesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paxring_promises_rejected_total",
			Help: "Number of PROPOSAL messages an acceptor NACKed.",
		}),
		ValuesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paxring_values_accepted_total",
			Help: "Number of ACCEPT messages an acceptor honored.",
		}),
		DecisionsReached: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paxring_decisions_reached_total",
			Help: "Number of times a learner reached majority and emitted SET.",
		}),
		TokensForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paxring_election_tokens_forwarded_total",
			Help: "Number of Chang-Roberts TOKEN messages forwarded.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.BallotsProposed, m.PromisesGranted, m.PromisesRejected,
			m.ValuesAccepted, m.DecisionsReached, m.TokensForwarded)
	}
	return m
}
