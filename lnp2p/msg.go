package lnp2p

import (
	"encoding/json"
	"fmt"
)

// MaxMessageSize bounds a single line on the wire.
const MaxMessageSize = 1 << 20

// A Message is one line of JSON on a peer connection.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage encodes payload as the body of a message of the given type.
func NewMessage(mtype string, payload interface{}) (Message, error) {
	if payload == nil {
		return Message{Type: mtype}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s: %w", mtype, err)
	}
	return Message{Type: mtype, Data: data}, nil
}

// Decode unpacks the body into v.
func (m Message) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s message has no body", m.Type)
	}
	return json.Unmarshal(m.Data, v)
}
