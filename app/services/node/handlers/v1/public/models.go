package public

import "github.com/ardanlabs/utxochain/foundation/blockchain/database"

// rawBlock carries the transactions to mine as they are.
type rawBlock struct {
	Data []database.Tx `json:"data" validate:"required"`
}

// payment asks for amount units to be sent to the address. The node key is
// used when no key is provided.
type payment struct {
	Address string `json:"address" validate:"required"`
	Amount  uint64 `json:"amount" validate:"required,gt=0"`
	Key     string `json:"key,omitempty"`
}

// peerRequest asks the node to connect to another node.
type peerRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// outputs describes the unspent outputs of an address.
type outputs struct {
	Address string          `json:"address"`
	Balance uint64          `json:"balance"`
	Outputs []database.UTXO `json:"outputs"`
}

type status struct {
	Status string `json:"status"`
}
