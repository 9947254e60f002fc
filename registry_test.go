package walletkit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreate(t *testing.T) {
	registry := NewRegistry().
		RegisterFactory(WalletTypeSui, func(opts ...StrategyOption) (Strategy, error) {
			return newMockStrategy(WalletTypeSui), nil
		}).
		RegisterFactory(WalletTypeEVM, func(opts ...StrategyOption) (Strategy, error) {
			return nil, errors.New("no key configured")
		})

	s, err := registry.Create(WalletTypeSui)
	require.NoError(t, err)
	assert.Equal(t, WalletTypeSui, s.Type())

	_, err = registry.Create(WalletTypeEVM)
	assert.EqualError(t, err, "no key configured")

	_, err = registry.Create(WalletTypeSVM)
	assert.Equal(t, ErrCodeUnsupportedWallet, ErrorCode(err))
}

func TestRegistrySupportedTypes(t *testing.T) {
	factory := func(opts ...StrategyOption) (Strategy, error) { return nil, nil }
	registry := NewRegistry()
	registry.RegisterFactory(WalletTypeSVM, factory)
	registry.RegisterFactory(WalletTypeEVM, factory)
	registry.RegisterFactory(WalletTypeSui, factory)

	assert.Equal(t, []WalletType{WalletTypeEVM, WalletTypeSVM, WalletTypeSui}, registry.SupportedTypes())
	assert.True(t, registry.IsSupported(WalletTypeSui))
	assert.False(t, registry.IsSupported("phantom"))
}
