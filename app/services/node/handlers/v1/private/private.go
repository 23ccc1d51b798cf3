// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Node  *peer.Node
}

// Peer upgrades the request into a peer connection.
func (h Handlers) Peer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.Log.Infow("peer connection", "traceid", web.GetTraceID(ctx), "remoteaddr", r.RemoteAddr)

	h.Node.ServeHTTP(w, r)
	return nil
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.State.RetrieveChain()
	latest := chain[len(chain)-1]

	status := struct {
		LatestBlockHash  string      `json:"latest_block_hash"`
		LatestBlockIndex uint64      `json:"latest_block_index"`
		CumulativeWork   string      `json:"cumulative_work"`
		Difficulty       uint        `json:"next_difficulty"`
		Mempool          int         `json:"mempool"`
		Peers            []peer.Info `json:"peers"`
	}{
		LatestBlockHash:  latest.Hash,
		LatestBlockIndex: latest.Index,
		CumulativeWork:   database.CumulativeWork(chain).String(),
		Difficulty:       database.RequiredDifficulty(chain),
		Mempool:          h.State.QueryMempoolLength(),
		Peers:            h.Node.Peers(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}
