package core

import (
	"sync"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

// Dispatcher is the single-ingress-queue plumbing: one listener goroutine
// drains the transport and appends to a shared FIFO queue under a mutex,
// and one worker goroutine pops messages one at a time and routes them by
// header. The ACCEPT-VALUE fast path is the one exception: it is applied
// directly by the listener goroutine, never touching the queue, because it
// must not be blocked behind slow queue work: it carries ghost acceptance
// knowledge that rescues Phase 2a from ordering hazards.
//
// Concurrency contract: exactly one goroutine (the worker) calls Route;
// FastPath may run concurrently with Route from the listener goroutine, so
// any state FastPath touches (here, a Proposer's ghost acceptances) must be
// separately guarded - see Node.acceptancesMu in core/node.go.
type Dispatcher struct {
	transport Transport
	log       types.Logger

	// FastPath handles ACCEPT-VALUE messages directly on the listener
	// goroutine, bypassing the queue.
	FastPath func(types.Message)

	// Route handles every other header, called only from the worker
	// goroutine.
	Route func(types.Message)

	mutex sync.Mutex
	queue []types.Message
	ready chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewDispatcher builds a dispatcher over transport; callers must set
// FastPath and Route before calling Start.
func NewDispatcher(transport Transport, log types.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		log:       log,
		ready:     make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start spawns the listener and worker goroutines.
func (d *Dispatcher) Start() {
	d.wg.Add(2)
	go d.listen()
	go d.work()
}

// Stop signals both goroutines to exit and waits for them.
func (d *Dispatcher) Stop() {
	close(d.done)
	d.wg.Wait()
}

func (d *Dispatcher) listen() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case m, ok := <-d.transport.Listen():
			if !ok {
				return
			}
			if m.Header == types.HeaderAcceptValue {
				if d.FastPath != nil {
					d.FastPath(m)
				}
				continue
			}
			d.enqueue(m)
		}
	}
}

func (d *Dispatcher) enqueue(m types.Message) {
	d.mutex.Lock()
	d.queue = append(d.queue, m)
	d.mutex.Unlock()
	select {
	case d.ready <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) pop() (types.Message, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if len(d.queue) == 0 {
		return types.Message{}, false
	}
	m := d.queue[0]
	d.queue = d.queue[1:]
	return m, true
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case <-d.ready:
		}
		for {
			m, ok := d.pop()
			if !ok {
				break
			}
			if d.Route != nil {
				d.Route(m)
			}
		}
	}
}
