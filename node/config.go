package node

import "fmt"

// Config defines the resources and parameters used to configure a Node. All
// fields must be set before calling New, following degeri-dcrlnd's
// watchtower.Config convention of a single documented, nil-able-field-free
// struct.
type Config struct {
	// Capacity is the fixed number of transactions per block (spec §6:
	// "capacity: int>0").
	Capacity int

	// Difficulty is the number of leading zero bits a block's hash must
	// have to satisfy proof-of-work (spec §6: "difficulty: int∈[1,160)").
	Difficulty int

	// Nodes is N, the fixed number of peers in the network (spec §6:
	// "nodes: int>0").
	Nodes int

	// Bootstrap reports whether this peer is the designated bootstrap
	// peer (id 0), which mints the genesis supply and assigns ids to
	// joiners (spec §4.6).
	Bootstrap bool
}

// Validate checks the configuration against the bounds of spec §6.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("node: config: capacity must be > 0, got %d", c.Capacity)
	}
	if c.Difficulty <= 0 || c.Difficulty >= 160 {
		return fmt.Errorf("node: config: difficulty must be in [1, 160), got %d", c.Difficulty)
	}
	if c.Nodes <= 0 {
		return fmt.Errorf("node: config: nodes must be > 0, got %d", c.Nodes)
	}
	return nil
}

// GenesisSupply is the total coin supply minted into the genesis
// transaction: 100 coins per peer (spec §3: "crediting bootstrap with
// 100 · N").
func (c Config) GenesisSupply() int64 {
	return 100 * int64(c.Nodes)
}
