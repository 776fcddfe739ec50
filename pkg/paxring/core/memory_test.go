package core

import (
	"testing"
	"time"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

func TestMemoryTransportSendAndListen(t *testing.T) {
	bus := NewMemoryBus()
	a := NewMemoryTransport(bus, 0)
	b := NewMemoryTransport(bus, 1)
	defer a.Close()
	defer b.Close()

	entryB := types.HostEntry{UID: 1}
	msg := types.NewMessage(types.HeaderFwd, 0)
	if err := a.Send(entryB, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-b.Listen():
		if got.Header != types.HeaderFwd || got.SenderID != 0 {
			t.Fatalf("received %+v, want FWD from 0", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
}

func TestMemoryBusDropSimulatesLoss(t *testing.T) {
	bus := NewMemoryBus()
	bus.Drop = func(from, to types.UID, m types.Message) bool { return true }

	a := NewMemoryTransport(bus, 0)
	b := NewMemoryTransport(bus, 1)
	defer a.Close()
	defer b.Close()

	_ = a.Send(types.HostEntry{UID: 1}, types.NewMessage(types.HeaderFwd, 0))

	select {
	case got := <-b.Listen():
		t.Fatalf("expected the datagram to be dropped, got %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryTransportMulticast(t *testing.T) {
	bus := NewMemoryBus()
	a := NewMemoryTransport(bus, 0)
	b := NewMemoryTransport(bus, 1)
	c := NewMemoryTransport(bus, 2)
	defer a.Close()
	defer b.Close()
	defer c.Close()

	group := []types.HostEntry{{UID: 1}, {UID: 2}}
	if err := a.Multicast(group, types.NewMessage(types.HeaderTerm, 0)); err != nil {
		t.Fatalf("Multicast: %v", err)
	}

	for _, ch := range []<-chan types.Message{b.Listen(), c.Listen()} {
		select {
		case m := <-ch:
			if m.Header != types.HeaderTerm {
				t.Fatalf("got %s, want TERM", m.Header)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for multicast delivery")
		}
	}
}
