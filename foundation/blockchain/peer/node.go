package peer

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/metrics"
	"github.com/gorilla/websocket"
)

// Set of timing and size limits applied to every connection.
const (
	defaultPoolQueryDelay = 500 * time.Millisecond
	dialTimeout           = 10 * time.Second
	writeWait             = 10 * time.Second
	maxMessageSize        = 32 << 20
)

// Ledger represents the behavior the node needs from the blockchain to answer
// and act on peer messages.
type Ledger interface {
	RetrieveLatestBlock() database.Block
	RetrieveChain() []database.Block
	RetrieveMempool() []database.Tx
	ProcessPeerBlock(block database.Block) error
	ProcessPeerChain(chain []database.Block) error
	UpsertNodeTransaction(tx database.Tx) error
}

// Config represents the configuration required to start the node.
type Config struct {
	Ledger         Ledger
	EvHandler      state.EventHandler
	Metrics        *metrics.Metrics
	PoolQueryDelay time.Duration
}

// inbound is a message received from a peer waiting to be handled.
type inbound struct {
	peer *Peer
	msg  Message
}

// =============================================================================

// Node manages the connections with the peers. Every message received is
// handled by a single goroutine so the ledger sees peer events one at a time.
type Node struct {
	ledger    Ledger
	evHandler state.EventHandler
	metrics   *metrics.Metrics
	poolDelay time.Duration
	upgrader  websocket.Upgrader
	dialer    websocket.Dialer
	peers     *PeerSet
	inbox     chan inbound

	ctx    context.Context
	cancel context.CancelFunc
	shut   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewNode constructs a node and starts the goroutine handling the messages
// received from the peers.
func NewNode(cfg Config) *Node {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	delay := cfg.PoolQueryDelay
	if delay <= 0 {
		delay = defaultPoolQueryDelay
	}

	ctx, cancel := context.WithCancel(context.Background())

	n := Node{
		ledger:    cfg.Ledger,
		evHandler: ev,
		metrics:   cfg.Metrics,
		poolDelay: delay,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		dialer: websocket.Dialer{
			HandshakeTimeout: dialTimeout,
		},
		peers:  NewPeerSet(),
		inbox:  make(chan inbound),
		ctx:    ctx,
		cancel: cancel,
		shut:   make(chan struct{}),
	}

	hasStarted := make(chan bool)
	n.goroutine(func() {
		hasStarted <- true
		n.dispatchOperations()
	})
	<-hasStarted

	return &n
}

// Shutdown closes every connection and waits for the node goroutines
// to terminate.
func (n *Node) Shutdown() {
	n.evHandler("peer: shutdown: started")
	defer n.evHandler("peer: shutdown: completed")

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	n.cancel()
	close(n.shut)

	for _, p := range n.peers.Copy() {
		n.drop(p)
	}

	n.wg.Wait()
}

// ServeHTTP upgrades an inbound request into a peer connection.
func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		n.evHandler("peer: ServeHTTP: %s: upgrade: ERROR: %s", r.RemoteAddr, err)
		return
	}

	p := newPeer(r.RemoteAddr, false)
	n.add(p)
	n.start(p, conn)
}

// Connect dials the peer at the websocket url in the background. A failed
// dial is logged and not retried.
func (n *Node) Connect(url string) {
	p := newPeer(url, true)
	n.add(p)

	started := n.goroutine(func() {
		ctx, cancel := context.WithTimeout(n.ctx, dialTimeout)
		defer cancel()

		n.evHandler("peer: Connect: %s: dialing", url)

		conn, resp, err := n.dialer.DialContext(ctx, url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			n.evHandler("peer: Connect: %s: ERROR: %s", url, err)
			n.drop(p)
			return
		}

		n.start(p, conn)
	})

	if !started {
		n.drop(p)
	}
}

// Peers returns the description of every known connection.
func (n *Node) Peers() []Info {
	peers := n.peers.Copy()

	infos := make([]Info, len(peers))
	for i, p := range peers {
		infos[i] = p.Info()
	}

	return infos
}

// =============================================================================
// These methods implement the worker.Gossip interface.

// BroadcastLatestBlock sends the tip of the chain to every open peer.
func (n *Node) BroadcastLatestBlock() {
	n.broadcast(ResponseBlockchain, []database.Block{n.ledger.RetrieveLatestBlock()})
}

// BroadcastPool sends the mempool to every open peer.
func (n *Node) BroadcastPool() {
	n.broadcast(ResponseTransactionPool, n.pool())
}

// =============================================================================

// start launches the goroutines serving an established connection and
// performs the opening exchange.
func (n *Node) start(p *Peer, conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	p.open(conn)

	if !n.goroutine(func() { n.readOperations(p) }) {
		n.drop(p)
		return
	}
	n.goroutine(func() { n.writeOperations(p) })

	n.evHandler("peer: %s: connection open: outbound[%v]", p.Addr, p.Outbound)
	n.updatePeers()

	n.send(p, QueryLatest, nil)
	p.after(n.poolDelay, func() {
		n.send(p, QueryTransactionPool, nil)
	})
}

// readOperations reads messages from the peer and hands them to the
// dispatch goroutine.
func (n *Node) readOperations(p *Peer) {
	defer n.drop(p)

	for {
		_, frame, err := p.conn.ReadMessage()
		if err != nil {
			if p.State() != Closed {
				n.evHandler("peer: %s: read: %s", p.Addr, err)
			}
			return
		}

		msg, err := DecodeMessage(frame)
		if err != nil {
			n.evHandler("peer: %s: read: ignoring message: %s", p.Addr, err)
			continue
		}
		n.metrics.PeerMessage(msg.Type.String())

		select {
		case n.inbox <- inbound{peer: p, msg: msg}:
		case <-p.done:
			return
		case <-n.shut:
			return
		}
	}
}

// writeOperations writes the queued messages to the peer.
func (n *Node) writeOperations(p *Peer) {
	defer n.drop(p)

	for {
		select {
		case msg := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteJSON(msg); err != nil {
				n.evHandler("peer: %s: write: %s: ERROR: %s", p.Addr, msg.Type, err)
				return
			}

		case <-p.done:
			return
		}
	}
}

// dispatchOperations handles the messages received from every peer.
func (n *Node) dispatchOperations() {
	n.evHandler("peer: dispatchOperations: G started")
	defer n.evHandler("peer: dispatchOperations: G completed")

	for {
		select {
		case in := <-n.inbox:
			n.handle(in.peer, in.msg)
		case <-n.shut:
			n.evHandler("peer: dispatchOperations: received shut signal")
			return
		}
	}
}

// =============================================================================

// add registers a new peer with the set.
func (n *Node) add(p *Peer) {
	n.peers.Add(p)
	n.updatePeers()
}

// drop closes the connection and removes the peer from the set.
func (n *Node) drop(p *Peer) {
	p.close()

	if n.peers.Remove(p.ID) {
		n.evHandler("peer: %s: connection closed", p.Addr)
		n.updatePeers()
	}
}

func (n *Node) updatePeers() {
	n.metrics.SetPeers(n.peers.Len())
}

// goroutine runs f on a goroutine tracked by the node. It reports false once
// shutdown has started.
func (n *Node) goroutine(f func()) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return false
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		f()
	}()

	return true
}

// send queues a single message for the peer.
func (n *Node) send(p *Peer, mt MessageType, payload any) {
	msg, err := NewMessage(mt, payload)
	if err != nil {
		n.evHandler("peer: %s: send: ERROR: %s", p.Addr, err)
		return
	}

	if !p.Send(msg) && p.State() == Open {
		n.evHandler("peer: %s: send: %s: queue full, message dropped", p.Addr, mt)
	}
}

// broadcast queues the message for every open peer.
func (n *Node) broadcast(mt MessageType, payload any) {
	msg, err := NewMessage(mt, payload)
	if err != nil {
		n.evHandler("peer: broadcast: ERROR: %s", err)
		return
	}

	for _, p := range n.peers.Copy() {
		if p.State() != Open {
			continue
		}
		if !p.Send(msg) {
			n.evHandler("peer: %s: broadcast: %s: queue full, message dropped", p.Addr, mt)
		}
	}
}

// pool returns the mempool as a non-nil slice so it encodes as an array.
func (n *Node) pool() []database.Tx {
	trans := n.ledger.RetrieveMempool()
	if trans == nil {
		trans = []database.Tx{}
	}
	return trans
}
