package walletkit

import (
	"context"
	"sync"
)

// Approver decides a permission request for wallets that have no user
// interface of their own, such as locally provisioned keys.
type Approver func(ctx context.Context, walletType WalletType, accounts []string) (bool, error)

// AutoApprove grants every request.
func AutoApprove(context.Context, WalletType, []string) (bool, error) {
	return true, nil
}

// DenyAll denies every request.
func DenyAll(context.Context, WalletType, []string) (bool, error) {
	return false, nil
}

// Permissions tracks the permission grant of a key-backed wallet.
type Permissions struct {
	mu       sync.Mutex
	granted  bool
	approver Approver
}

// NewPermissions creates a permission holder. A nil approver approves
// every request.
func NewPermissions(granted bool, approver Approver) *Permissions {
	if approver == nil {
		approver = AutoApprove
	}
	return &Permissions{granted: granted, approver: approver}
}

// Granted reports whether permission is held.
func (p *Permissions) Granted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granted
}

// Request asks the approver for permission unless it is already held.
func (p *Permissions) Request(ctx context.Context, walletType WalletType, accounts []string) (bool, error) {
	p.mu.Lock()
	if p.granted {
		p.mu.Unlock()
		return true, nil
	}
	approver := p.approver
	p.mu.Unlock()

	ok, err := approver(ctx, walletType, accounts)
	if err != nil || !ok {
		return false, err
	}

	p.mu.Lock()
	p.granted = true
	p.mu.Unlock()
	return true, nil
}

// Revoke drops a held permission.
func (p *Permissions) Revoke() {
	p.mu.Lock()
	p.granted = false
	p.mu.Unlock()
}
