// Package identity wraps a wallet provider to find the connected account
// and decide whether it belongs to the registry admin. Nothing is signed:
// the address is only compared with a configured admin address.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoProvider         = errors.New("wallet provider is not installed")
	ErrNoAccounts         = errors.New("wallet returned no accounts")
	ErrAdminNotConfigured = errors.New("admin address not configured")
	ErrNotCurrentAdmin    = errors.New("only current admin can update admin address")
	ErrInvalidAddress     = errors.New("invalid Ethereum address")
)

// Provider is the wallet the helper talks to.
type Provider interface {
	// RequestAccounts asks the wallet for account access. The first
	// account is the active one.
	RequestAccounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (string, error)
	// OnAccountsChanged and OnChainChanged register a handler and return
	// a function removing it.
	OnAccountsChanged(fn func(accounts []string)) (cancel func())
	OnChainChanged(fn func(chainID string)) (cancel func())
}

// Subscription is a handle on an event handler. Unsubscribe is safe to
// call more than once and on a nil handle.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe removes the handler.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

func joinSubscriptions(subs ...*Subscription) *Subscription {
	return newSubscription(func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	})
}

// CheckAdmin compares address with adminAddress ignoring case.
func CheckAdmin(address, adminAddress string) (bool, error) {
	if strings.TrimSpace(adminAddress) == "" { // No admin configured
		return false, ErrAdminNotConfigured
	}
	return strings.EqualFold(strings.TrimSpace(address), strings.TrimSpace(adminAddress)), nil // Case-insensitive compare
}

// IsAdmin reports whether address is the admin address. It is false, with
// a logged warning, when no admin address is configured.
func IsAdmin(address, adminAddress string) bool {
	ok, err := CheckAdmin(address, adminAddress)
	if err != nil {
		logrus.Warn("Admin address not configured")
		return false
	}
	return ok
}

// Wallet binds a provider to the admin address in effect.
type Wallet struct {
	provider Provider

	mu    sync.RWMutex
	admin string
}

// NewWallet returns a helper for provider. provider may be nil, in which
// case every request fails with ErrNoProvider.
func NewWallet(provider Provider, adminAddress string) *Wallet {
	return &Wallet{provider: provider, admin: strings.TrimSpace(adminAddress)}
}

// AdminAddress returns the admin address currently in effect.
func (w *Wallet) AdminAddress() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.admin
}

// Connect requests account access and returns the active address.
func (w *Wallet) Connect(ctx context.Context) (string, error) {
	accounts, err := w.requestAccounts(ctx)
	if err != nil {
		return "", err
	}
	logrus.WithField("address", accounts[0]).Debug("Wallet connected") // First account is the active one
	return accounts[0], nil
}

func (w *Wallet) requestAccounts(ctx context.Context) ([]string, error) {
	if w.provider == nil {
		return nil, ErrNoProvider
	}
	accounts, err := w.provider.RequestAccounts(ctx)
	if err != nil {
		logrus.WithError(err).Error("Error connecting to wallet") // Usually a user rejection
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	return accounts, nil
}

// ChainID returns the chain the wallet is on.
func (w *Wallet) ChainID(ctx context.Context) (string, error) {
	if w.provider == nil {
		return "", ErrNoProvider
	}
	return w.provider.ChainID(ctx)
}

// IsAdmin checks address against the admin address in effect.
func (w *Wallet) IsAdmin(address string) bool {
	return IsAdmin(address, w.AdminAddress())
}

// SubscribeAccountChange registers fn for account changes. Without a
// provider the returned handle does nothing.
func (w *Wallet) SubscribeAccountChange(fn func(accounts []string)) *Subscription {
	if w.provider == nil {
		return newSubscription(nil) // Inert handle
	}
	return newSubscription(w.provider.OnAccountsChanged(fn))
}

// SubscribeChainChange registers fn for network changes.
func (w *Wallet) SubscribeChainChange(fn func(chainID string)) *Subscription {
	if w.provider == nil {
		return newSubscription(nil)
	}
	return newSubscription(w.provider.OnChainChanged(fn))
}

// UpdateAdminAddress replaces the local admin address. The connected
// account must be the current admin when one is configured. The value is
// written to st and takes effect immediately for this wallet; no server
// configuration changes.
func (w *Wallet) UpdateAdminAddress(ctx context.Context, newAddress string, st Storage) error {
	accounts, err := w.requestAccounts(ctx)
	if err != nil {
		return err
	}
	current := w.AdminAddress()
	if current != "" && !strings.EqualFold(accounts[0], current) { // Only the current admin may replace it
		return ErrNotCurrentAdmin
	}
	newAddress = strings.TrimSpace(newAddress)
	if !common.IsHexAddress(newAddress) { // Validate before persisting
		return fmt.Errorf("%w: %q", ErrInvalidAddress, newAddress)
	}
	if err := st.Set(AdminAddressKey, newAddress); err != nil { // Persist the override
		return fmt.Errorf("persist admin address: %w", err)
	}

	w.mu.Lock()
	w.admin = newAddress // Takes effect immediately
	w.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"previous": current,
		"admin":    newAddress,
	}).Info("Admin address updated locally")
	return nil
}
