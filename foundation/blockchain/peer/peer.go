// Package peer maintains the websocket connections to the other nodes in the
// network and implements the protocol used to keep their chains and mempools
// in sync.
package peer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnState represents the lifecycle of a peer connection.
type ConnState int

// Set of connection states.
const (
	Connecting ConnState = iota
	Open
	Closed
)

// String implements the fmt.Stringer interface.
func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	default:
		return "closed"
	}
}

// sendBuffer is the number of messages that can be queued for a peer before
// new messages are dropped.
const sendBuffer = 64

// =============================================================================

// Peer represents a connection with another node in the network.
type Peer struct {
	ID       string
	Addr     string
	Outbound bool

	mu        sync.Mutex
	state     ConnState
	conn      *websocket.Conn
	timer     *time.Timer
	send      chan Message
	done      chan struct{}
	closeOnce sync.Once
}

func newPeer(addr string, outbound bool) *Peer {
	return &Peer{
		ID:       uuid.NewString(),
		Addr:     addr,
		Outbound: outbound,
		state:    Connecting,
		send:     make(chan Message, sendBuffer),
		done:     make(chan struct{}),
	}
}

// State returns the current state of the connection.
func (p *Peer) State() ConnState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Info returns a description of the peer.
func (p *Peer) Info() Info {
	return Info{
		ID:       p.ID,
		Address:  p.Addr,
		Outbound: p.Outbound,
		State:    p.State().String(),
	}
}

// Send queues the message to be written to the peer. It reports false when
// the connection is closed or the queue is full.
func (p *Peer) Send(msg Message) bool {
	select {
	case <-p.done:
		return false
	default:
	}

	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}

// open marks the connection as established.
func (p *Peer) open(conn *websocket.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.conn = conn
	p.state = Open
}

// after runs f once the duration elapses unless the connection closes first.
func (p *Peer) after(d time.Duration, f func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Closed {
		return
	}
	p.timer = time.AfterFunc(d, f)
}

// close tears down the connection. It is safe to call more than once.
func (p *Peer) close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		p.state = Closed
		close(p.done)

		if p.timer != nil {
			p.timer.Stop()
		}
		if p.conn != nil {
			p.conn.Close()
		}
	})
}

// =============================================================================

// Info describes a peer for the outside world.
type Info struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Outbound bool   `json:"outbound"`
	State    string `json:"state"`
}
