// Package device provides the simulated vehicle hardware modules control:
// a bank of named functional blocks, and single or grouped devices over
// those blocks.
package device

import (
	"sort"
	"sync"

	"github.com/bft-labs/shipctl/internal/ports"
)

// Block is one functional block of the vehicle (a thruster, a reactor).
// Blocks may be flipped by the controller or by anything else aboard, so
// their state is guarded.
type Block struct {
	name string

	mu      sync.RWMutex
	enabled bool
}

// Name returns the block name.
func (b *Block) Name() string { return b.name }

// Enabled returns the current enabled flag.
func (b *Block) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// SetEnabled sets the enabled flag.
func (b *Block) SetEnabled(enabled bool) {
	b.mu.Lock()
	b.enabled = enabled
	b.mu.Unlock()
}

// Bank is the table of blocks aboard the vehicle, keyed by name.
// Blocks are created on first lookup.
type Bank struct {
	mu     sync.Mutex
	blocks map[string]*Block
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{blocks: make(map[string]*Block)}
}

// Block returns the named block, creating it disabled if needed.
func (b *Bank) Block(name string) *Block {
	b.mu.Lock()
	defer b.mu.Unlock()
	blk, ok := b.blocks[name]
	if !ok {
		blk = &Block{name: name}
		b.blocks[name] = blk
	}
	return blk
}

// Set flips a block from outside the controller, as a crew member would.
func (b *Bank) Set(name string, enabled bool) {
	b.Block(name).SetEnabled(enabled)
}

// Names returns the sorted names of every known block.
func (b *Bank) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.blocks))
	for n := range b.blocks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Single is a device backed by exactly one block.
type Single struct {
	block *Block
}

// NewSingle creates a device over one block.
func NewSingle(block *Block) *Single {
	return &Single{block: block}
}

// Enabled implements ports.Device.
func (s *Single) Enabled() bool { return s.block.Enabled() }

// SetEnabled implements ports.Device.
func (s *Single) SetEnabled(enabled bool) { s.block.SetEnabled(enabled) }

// Group is a device backed by several blocks commanded together.
type Group struct {
	blocks []*Block
}

// NewGroup creates a device over blocks.
func NewGroup(blocks ...*Block) *Group {
	return &Group{blocks: blocks}
}

// Enabled reports true only when every member is enabled.
func (g *Group) Enabled() bool {
	return g.Agrees(true)
}

// SetEnabled commands every member.
func (g *Group) SetEnabled(enabled bool) {
	for _, b := range g.blocks {
		b.SetEnabled(enabled)
	}
}

// Agrees reports whether every member matches enabled. An empty group
// always agrees.
func (g *Group) Agrees(enabled bool) bool {
	for _, b := range g.blocks {
		if b.Enabled() != enabled {
			return false
		}
	}
	return true
}

// Open returns the device for a module: a Single for one name, a Group for
// several, and a Single named after the module when names is empty.
func (b *Bank) Open(module string, names []string) ports.Device {
	switch len(names) {
	case 0:
		return NewSingle(b.Block(module))
	case 1:
		return NewSingle(b.Block(names[0]))
	default:
		blocks := make([]*Block, 0, len(names))
		for _, n := range names {
			blocks = append(blocks, b.Block(n))
		}
		return NewGroup(blocks...)
	}
}
