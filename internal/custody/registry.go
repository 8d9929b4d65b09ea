package custody

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry maps asset contract addresses to their custody adapters. It is the
// engine's view of which token contracts the marketplace knows how to move.
type Registry struct {
	mu       sync.RWMutex
	adapters map[common.Address]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[common.Address]Adapter)}
}

// Register binds a contract address to an adapter, replacing any previous
// binding.
func (r *Registry) Register(contract common.Address, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[contract] = adapter
}

// AdapterFor returns the adapter registered for a contract address.
func (r *Registry) AdapterFor(contract common.Address) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[contract]
	if !ok {
		return nil, ErrUnknownContract
	}
	return a, nil
}
