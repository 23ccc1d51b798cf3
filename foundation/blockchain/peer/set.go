package peer

import (
	"sort"
	"sync"
)

// PeerSet represents the data representation to maintain a set of
// connected peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[string]*Peer
}

// NewPeerSet constructs a new set to manage the peer connections.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[string]*Peer),
	}
}

// Add adds a new peer to the set.
func (ps *PeerSet) Add(peer *Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[peer.ID]
	if !exists {
		ps.set[peer.ID] = peer
		return true
	}

	return false
}

// Remove removes a peer from the set. It reports whether the peer was
// present.
func (ps *PeerSet) Remove(id string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[id]
	delete(ps.set, id)

	return exists
}

// Len returns the number of peers in the set.
func (ps *PeerSet) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.set)
}

// Copy returns the peers in the set ordered by address.
func (ps *PeerSet) Copy() []*Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	peers := make([]*Peer, 0, len(ps.set))
	for _, peer := range ps.set {
		peers = append(peers, peer)
	}

	sort.Slice(peers, func(i, j int) bool {
		if peers[i].Addr == peers[j].Addr {
			return peers[i].ID < peers[j].ID
		}
		return peers[i].Addr < peers[j].Addr
	})

	return peers
}
