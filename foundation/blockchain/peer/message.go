package peer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// MessageType identifies the kind of message exchanged between peers.
type MessageType int

// Set of message types understood by the node.
const (
	QueryLatest MessageType = iota
	QueryAll
	ResponseBlockchain
	QueryTransactionPool
	ResponseTransactionPool
)

var typeNames = map[MessageType]string{
	QueryLatest:             "query_latest",
	QueryAll:                "query_all",
	ResponseBlockchain:      "response_blockchain",
	QueryTransactionPool:    "query_transaction_pool",
	ResponseTransactionPool: "response_transaction_pool",
}

// String implements the fmt.Stringer interface.
func (mt MessageType) String() string {
	if name, exists := typeNames[mt]; exists {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(mt))
}

// Valid reports whether the message type is one the node understands.
func (mt MessageType) Valid() bool {
	_, exists := typeNames[mt]
	return exists
}

// =============================================================================

// ErrUnknownType is returned when a message carries a type outside the
// protocol.
var ErrUnknownType = errors.New("unknown message type")

// Message is the envelope written to the wire for every exchange.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewMessage constructs a message with the payload marshaled as its data.
// A nil payload is written as JSON null.
func NewMessage(mt MessageType, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", mt, err)
	}

	return Message{Type: mt, Data: data}, nil
}

// DecodeMessage parses a raw frame read from a peer.
func DecodeMessage(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}

	if !msg.Type.Valid() {
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownType, msg.Type)
	}

	return msg, nil
}

// Blocks decodes the data of a RESPONSE_BLOCKCHAIN message.
func (m Message) Blocks() ([]database.Block, error) {
	var blocks []database.Block
	if err := m.decode(&blocks); err != nil {
		return nil, err
	}

	return blocks, nil
}

// Transactions decodes the data of a RESPONSE_TRANSACTION_POOL message.
func (m Message) Transactions() ([]database.Tx, error) {
	var trans []database.Tx
	if err := m.decode(&trans); err != nil {
		return nil, err
	}

	return trans, nil
}

// decode unmarshals the data into v. Peers may send the array directly or
// as a JSON string holding the encoded array.
func (m Message) decode(v any) error {
	data := m.Data
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode %s data: %w", m.Type, err)
		}
		data = []byte(s)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s data: %w", m.Type, err)
	}

	return nil
}
