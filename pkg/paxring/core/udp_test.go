package core

import (
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

// bindUDP binds a transport on a kernel-assigned port and returns it with
// the host table entry peers should address it by.
func bindUDP(t *testing.T, uid types.UID) (*UDPTransport, types.HostEntry) {
	t.Helper()
	entry := types.HostEntry{UID: uid, Host: "127.0.0.1", Port: 0, Kind: types.Consensus}
	tr, err := NewUDPTransport(entry, newTestLogger())
	if err != nil {
		t.Fatalf("NewUDPTransport: %v", err)
	}
	entry.Port = tr.conn.LocalAddr().(*net.UDPAddr).Port
	return tr, entry
}

func TestUDPTransportRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	a, _ := bindUDP(t, 0)
	b, entryB := bindUDP(t, 1)
	defer a.Close()
	defer b.Close()

	msg := types.NewMessage(types.HeaderProposal, 0)
	msg.Proposal = &types.Proposal{Value: 42, Ballot: 6}
	if err := a.Send(entryB, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-b.Listen():
		if got.Header != types.HeaderProposal || got.SenderID != 0 {
			t.Fatalf("received %+v, want PROPOSAL from 0", got)
		}
		if got.Proposal == nil || *got.Proposal != *msg.Proposal {
			t.Fatalf("proposal body = %+v, want %+v", got.Proposal, msg.Proposal)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for datagram")
	}
}

// TestUDPTransportDropsCorruptDatagram checks the deserialize-failure
// policy: a corrupted datagram is fatal only to itself, and the listener
// keeps decoding subsequent traffic.
func TestUDPTransportDropsCorruptDatagram(t *testing.T) {
	defer goleak.VerifyNone(t)

	a, _ := bindUDP(t, 0)
	b, entryB := bindUDP(t, 1)
	defer a.Close()
	defer b.Close()

	raw, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: entryB.Port})
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	if _, err := raw.Write([]byte{0xff, 0x00, 0x01}); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}
	raw.Close()

	if err := a.Send(entryB, types.NewMessage(types.HeaderTerm, 0)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-b.Listen():
		if got.Header != types.HeaderTerm {
			t.Fatalf("received %+v, want the TERM sent after the garbage", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("listener never recovered after the corrupt datagram")
	}
}
