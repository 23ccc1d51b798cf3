package peer

import (
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// handle acts on a single message received from the peer.
func (n *Node) handle(p *Peer, msg Message) {
	n.evHandler("peer: %s: handle: %s", p.Addr, msg.Type)

	switch msg.Type {
	case QueryLatest:
		n.send(p, ResponseBlockchain, []database.Block{n.ledger.RetrieveLatestBlock()})

	case QueryAll:
		n.send(p, ResponseBlockchain, n.ledger.RetrieveChain())

	case QueryTransactionPool:
		n.send(p, ResponseTransactionPool, n.pool())

	case ResponseBlockchain:
		blocks, err := msg.Blocks()
		if err != nil {
			n.evHandler("peer: %s: handle: ignoring blocks: %s", p.Addr, err)
			return
		}
		n.handleBlockchainResponse(p, blocks)

	case ResponseTransactionPool:
		trans, err := msg.Transactions()
		if err != nil {
			n.evHandler("peer: %s: handle: ignoring transactions: %s", p.Addr, err)
			return
		}
		n.handlePoolResponse(p, trans)
	}
}

// handleBlockchainResponse decides what to do with blocks sent by a peer
// based on how the last block relates to the local tip.
func (n *Node) handleBlockchainResponse(p *Peer, blocks []database.Block) {
	if len(blocks) == 0 {
		n.evHandler("peer: %s: blocks: empty response", p.Addr)
		return
	}

	last := blocks[len(blocks)-1]
	if err := last.ValidateStructure(); err != nil {
		n.evHandler("peer: %s: blocks: ignoring block %d: %s", p.Addr, last.Index, err)
		return
	}

	tip := n.ledger.RetrieveLatestBlock()
	if last.Index <= tip.Index {
		n.evHandler("peer: %s: blocks: received blk[%d] not ahead of tip blk[%d]", p.Addr, last.Index, tip.Index)
		return
	}

	switch {
	case last.PreviousHash == tip.Hash:
		if err := n.ledger.ProcessPeerBlock(last); err != nil {
			n.evHandler("peer: %s: blocks: append blk[%d]: ERROR: %s", p.Addr, last.Index, err)
			return
		}
		n.BroadcastLatestBlock()

	case len(blocks) == 1:
		n.evHandler("peer: %s: blocks: blk[%d] does not link to tip, querying chain", p.Addr, last.Index)
		n.send(p, QueryAll, nil)

	default:
		if err := n.ledger.ProcessPeerChain(blocks); err != nil {
			n.evHandler("peer: %s: blocks: replace chain: ERROR: %s", p.Addr, err)
			return
		}
		n.BroadcastLatestBlock()
	}
}

// handlePoolResponse offers every transaction sent by a peer to the mempool.
// The pool is shared again when at least one of them was accepted.
func (n *Node) handlePoolResponse(p *Peer, trans []database.Tx) {
	var accepted int
	for _, tx := range trans {
		if err := n.ledger.UpsertNodeTransaction(tx); err != nil {
			n.evHandler("peer: %s: pool: tx[%s]: %s", p.Addr, tx.ID, err)
			continue
		}
		accepted++
	}

	if accepted > 0 {
		n.evHandler("peer: %s: pool: accepted %d of %d", p.Addr, accepted, len(trans))
		n.BroadcastPool()
	}
}
