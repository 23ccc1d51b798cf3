// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/utxochain/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/utxochain/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/keystore"
	"github.com/ardanlabs/utxochain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Node  *peer.Node
	Key   *keystore.KeyStore
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Node:  cfg.Node,
		Key:   cfg.Key,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/blocks", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/:hash", pbl.BlockByHash)
	app.Handle(http.MethodGet, version, "/transactions/:id", pbl.Transaction)
	app.Handle(http.MethodGet, version, "/outputs", pbl.UnspentOutputs)
	app.Handle(http.MethodGet, version, "/outputs/:address", pbl.AddressOutputs)
	app.Handle(http.MethodGet, version, "/wallet/address", pbl.WalletAddress)
	app.Handle(http.MethodGet, version, "/wallet/balance", pbl.WalletBalance)
	app.Handle(http.MethodGet, version, "/wallet/outputs", pbl.WalletOutputs)
	app.Handle(http.MethodPost, version, "/mine", pbl.Mine)
	app.Handle(http.MethodPost, version, "/mine/raw", pbl.MineRaw)
	app.Handle(http.MethodPost, version, "/mine/transaction", pbl.MineTransaction)
	app.Handle(http.MethodPost, version, "/tx/send", pbl.SendTransaction)
	app.Handle(http.MethodGet, version, "/tx/pool", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/peers", pbl.Peers)
	app.Handle(http.MethodPost, version, "/peers", pbl.AddPeer)
}

// PrivateRoutes binds the routes other nodes connect to.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Node:  cfg.Node,
	}

	app.Handle(http.MethodGet, "", "/", prv.Peer)
	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
}
