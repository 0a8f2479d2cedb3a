package chain

import (
	"fmt"

	"github.com/georgevidalakis/noobcash-blockchain/block"
)

// Wire is the JSON shape a blockchain takes on the wire (spec §6):
// {chain: [Block]}.
type Wire struct {
	Chain []block.Wire `json:"chain"`
}

// ToWire renders c in the wire shape described by spec §6.
func (c *Chain) ToWire() Wire {
	blocks := c.Blocks()
	wires := make([]block.Wire, len(blocks))
	for i, b := range blocks {
		wires[i] = b.ToWire()
	}
	return Wire{Chain: wires}
}

// FromWire reconstructs a Chain from its wire form.
func FromWire(w Wire, capacity int) (*Chain, error) {
	if len(w.Chain) == 0 {
		return nil, fmt.Errorf("chain: from wire: empty chain")
	}
	blocks := make([]*block.Block, len(w.Chain))
	for i, bw := range w.Chain {
		b, err := block.FromWire(bw, capacity)
		if err != nil {
			return nil, fmt.Errorf("chain: from wire: block %d: %w", i, err)
		}
		blocks[i] = b
	}
	c := &Chain{
		blocks:  blocks,
		hashSet: make(map[string]struct{}, len(blocks)),
	}
	for _, b := range blocks {
		c.hashSet[b.Hash] = struct{}{}
	}
	return c, nil
}
