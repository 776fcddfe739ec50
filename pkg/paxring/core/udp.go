package core

import (
	"fmt"
	"net"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

// UDPTransport is the production Transport: one UDP socket bound to the
// local node's port, a background listener goroutine decoding datagrams
// and publishing them on a buffered producer channel.
type UDPTransport struct {
	uid      types.UID
	conn     *net.UDPConn
	producer chan types.Message
	log      types.Logger
	done     chan struct{}
}

// NewUDPTransport binds a UDP socket on self.Port and starts the listener.
func NewUDPTransport(self types.HostEntry, log types.Logger) (*UDPTransport, error) {
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: self.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("paxring: bind udp port %d: %w", self.Port, err)
	}
	t := &UDPTransport{
		uid:      self.UID,
		conn:     conn,
		producer: make(chan types.Message, 256),
		log:      log,
		done:     make(chan struct{}),
	}
	go t.poll()
	return t, nil
}

func (t *UDPTransport) LocalUID() types.UID { return t.uid }

func (t *UDPTransport) Send(to types.HostEntry, message types.Message) error {
	data, err := EncodeMessage(message)
	if err != nil {
		t.log.Errorf("failed encoding %s to %s: %v", message.Header, to, err)
		return err
	}
	addr := &net.UDPAddr{IP: net.ParseIP(to.Host), Port: to.Port}
	if addr.IP == nil {
		ips, resErr := net.LookupIP(to.Host)
		if resErr != nil || len(ips) == 0 {
			return fmt.Errorf("paxring: resolve host %q: %w", to.Host, resErr)
		}
		addr.IP = ips[0]
	}
	if _, err := t.conn.WriteToUDP(data, addr); err != nil {
		t.log.Errorf("failed sending %s to %s: %v", message.Header, to, err)
		return err
	}
	return nil
}

func (t *UDPTransport) Multicast(group []types.HostEntry, message types.Message) error {
	var firstErr error
	for _, to := range group {
		if err := t.Send(to, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *UDPTransport) Listen() <-chan types.Message {
	return t.producer
}

func (t *UDPTransport) Close() error {
	close(t.done)
	err := t.conn.Close()
	return err
}

// poll decodes datagrams and republishes them. Errors in deserialization
// are fatal only to that datagram: log and continue.
func (t *UDPTransport) poll() {
	defer close(t.producer)
	buf := make([]byte, MaxDatagramSize)
	for {
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
				t.log.Warnf("udp read error: %v", err)
				return
			}
		}
		message, err := DecodeMessage(buf[:n])
		if err != nil {
			t.log.Errorf("dropping corrupted datagram: %v", err)
			continue
		}
		select {
		case t.producer <- message:
		case <-t.done:
			return
		}
	}
}

var _ Transport = (*UDPTransport)(nil)
