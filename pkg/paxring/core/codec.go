package core

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/davemillward/paxring/pkg/paxring/types"
)

// MaxDatagramSize is the payload ceiling per UDP datagram.
const MaxDatagramSize = 4096

// EncodeMessage serializes a message as a tagged msgpack dictionary,
// rejecting anything that would not fit in a
// single datagram.
func EncodeMessage(m types.Message) ([]byte, error) {
	data, err := msgpack.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("paxring: encode message: %w", err)
	}
	if len(data) > MaxDatagramSize {
		return nil, fmt.Errorf("paxring: encoded message %d bytes exceeds %d byte datagram limit", len(data), MaxDatagramSize)
	}
	return data, nil
}

// DecodeMessage deserializes a datagram previously produced by EncodeMessage.
// A deserialize failure is fatal only to this datagram;
// callers are expected to log and drop rather than propagate.
func DecodeMessage(data []byte) (types.Message, error) {
	var m types.Message
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return types.Message{}, fmt.Errorf("paxring: decode message: %w", err)
	}
	return m, nil
}
