// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/utxochain/business/web/errs"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/keystore"
	"github.com/ardanlabs/utxochain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Node  *peer.Node
	Key   *keystore.KeyStore
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client. The optional
// prefix query parameter restricts the events sent.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID, r.URL.Query()["prefix"]...)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Blocks returns the full chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveChain(), http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.RetrieveBlock(web.Param(r, "hash"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Transaction returns a transaction committed to the chain together with
// the merkle proof of its inclusion.
func (h Handlers) Transaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	record, err := h.State.RetrieveTransaction(web.Param(r, "id"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, record, http.StatusOK)
}

// UnspentOutputs returns every unspent output in the ledger.
func (h Handlers) UnspentOutputs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveUTXOs(), http.StatusOK)
}

// AddressOutputs returns the unspent outputs and balance of an address.
func (h Handlers) AddressOutputs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")
	if !signature.IsAddress(address) {
		return errs.NewTrusted(fmt.Errorf("invalid address %q", address), http.StatusBadRequest)
	}

	return web.Respond(ctx, w, h.outputs(address), http.StatusOK)
}

// WalletAddress returns the address of the node key.
func (h Handlers) WalletAddress(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Address string `json:"address"`
	}{
		Address: h.Key.PublicKey(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// WalletBalance returns the balance of the node key.
func (h Handlers) WalletBalance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Balance uint64 `json:"balance"`
	}{
		Balance: h.State.RetrieveBalance(h.Key.PublicKey()),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// WalletOutputs returns the unspent outputs of the node key.
func (h Handlers) WalletOutputs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.outputs(h.Key.PublicKey()), http.StatusOK)
}

// Mine mines a block holding the coinbase and the mempool.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.MineBlock(ctx, nil)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// MineRaw mines a block holding exactly the provided transactions.
func (h Handlers) MineRaw(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var raw rawBlock
	if err := web.Decode(r, &raw); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	block, err := h.State.MineBlock(ctx, raw.Data)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// MineTransaction mines a block holding the coinbase and a single payment.
func (h Handlers) MineTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var pay payment
	if err := web.Decode(r, &pay); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	privateKey, err := h.privateKey(pay.Key)
	if err != nil {
		return err
	}

	block, err := h.State.MineTransaction(ctx, pay.Address, pay.Amount, privateKey)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// SendTransaction builds a payment and adds it to the mempool.
func (h Handlers) SendTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var pay payment
	if err := web.Decode(r, &pay); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	privateKey, err := h.privateKey(pay.Key)
	if err != nil {
		return err
	}

	tx, err := h.State.SendTransaction(pay.Address, pay.Amount, privateKey)
	if err != nil {
		return err
	}

	h.Log.Infow("send tran", "traceid", v.TraceID, "tx", tx.ID, "to", pay.Address, "amount", pay.Amount)

	return web.Respond(ctx, w, tx, http.StatusOK)
}

// Mempool returns the set of pending transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pool := h.State.RetrieveMempool()
	if pool == nil {
		pool = []database.Tx{}
	}

	return web.Respond(ctx, w, pool, http.StatusOK)
}

// Peers returns the connections with other nodes.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Node.Peers(), http.StatusOK)
}

// AddPeer connects to another node. The connection is made in the
// background so a failure is only visible in the logs.
func (h Handlers) AddPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req peerRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Node.Connect(req.URL)

	return web.Respond(ctx, w, status{Status: "connecting to " + req.URL}, http.StatusAccepted)
}

// =============================================================================

func (h Handlers) outputs(address string) outputs {
	utxos := h.State.RetrieveOutputs(address)
	if utxos == nil {
		utxos = []database.UTXO{}
	}

	return outputs{
		Address: address,
		Balance: h.State.RetrieveBalance(address),
		Outputs: utxos,
	}
}

// privateKey returns the key supplied with the request or the node key.
func (h Handlers) privateKey(keyHex string) (*ecdsa.PrivateKey, error) {
	if keyHex == "" {
		return h.Key.PrivateKey(), nil
	}

	ks, err := keystore.FromHex(keyHex)
	if err != nil {
		return nil, errs.NewTrusted(err, http.StatusBadRequest)
	}

	return ks.PrivateKey(), nil
}
