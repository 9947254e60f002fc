package walletkit

import (
	"sort"
	"sync"
)

// StrategyFactory creates a strategy. Options are passed through to
// NewWalletStrategy.
type StrategyFactory func(opts ...StrategyOption) (Strategy, error)

// Registry maps wallet types to strategy factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[WalletType]StrategyFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[WalletType]StrategyFactory),
	}
}

// RegisterFactory registers factory for walletType, replacing any previous
// registration.
func (r *Registry) RegisterFactory(walletType WalletType, factory StrategyFactory) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[walletType] = factory
	return r
}

// Create builds a strategy for walletType.
func (r *Registry) Create(walletType WalletType, opts ...StrategyOption) (Strategy, error) {
	r.mu.RLock()
	factory, exists := r.factories[walletType]
	r.mu.RUnlock()
	if !exists {
		return nil, NewUnsupportedWalletError(walletType)
	}
	return factory(opts...)
}

// SupportedTypes returns the registered wallet types in sorted order.
func (r *Registry) SupportedTypes() []WalletType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]WalletType, 0, len(r.factories))
	for walletType := range r.factories {
		types = append(types, walletType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// IsSupported reports whether walletType has a factory.
func (r *Registry) IsSupported(walletType WalletType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[walletType]
	return exists
}
