package identity

import (
	"context"
	"errors"
	"sync"
)

// Role of a connected wallet.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Panel is the view shown for an identity state.
type Panel string

const (
	PanelNone    Panel = "none"
	PanelAdmin   Panel = "admin"
	PanelStudent Panel = "student"
)

// State is either disconnected (zero value) or connected with a role.
type State struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	Role      Role   `json:"role,omitempty"`
}

// Panel picks the view for the state.
func (s State) Panel() Panel {
	switch {
	case !s.Connected:
		return PanelNone
	case s.Role == RoleAdmin:
		return PanelAdmin
	default:
		return PanelStudent
	}
}

// Level is the severity of a user notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows short transient messages to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) { f(level, message) }

// Session tracks the identity state of one user:
//
//	Disconnected -> Connected(admin|student)   on Connect
//	accounts changed to none                   -> Disconnected
//	accounts changed to another account        -> role re-evaluated
//	chain changed                              -> Disconnected
type Session struct {
	wallet *Wallet
	notify Notifier

	mu       sync.Mutex
	state    State
	onChange func(State)
}

// NewSession starts disconnected. n may be nil.
func NewSession(w *Wallet, n Notifier) *Session {
	if n == nil {
		n = NotifierFunc(func(Level, string) {})
	}
	return &Session{wallet: w, notify: n}
}

// OnChange sets a listener called after every state transition.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect connects the wallet and determines the role.
func (s *Session) Connect(ctx context.Context) (State, error) {
	address, err := s.wallet.Connect(ctx)
	if err != nil {
		s.notify.Notify(LevelError, err.Error()) // Surface the wallet's message
		return s.State(), err                    // State unchanged
	}
	role := s.roleFor(address)
	next := s.set(State{Connected: true, Address: address, Role: role})
	s.notify.Notify(LevelSuccess, "Connected as "+string(role))
	return next, nil
}

// Watch subscribes to account and chain changes. The returned handle
// removes both handlers.
func (s *Session) Watch() *Subscription {
	return joinSubscriptions(
		s.wallet.SubscribeAccountChange(s.handleAccountsChanged),
		s.wallet.SubscribeChainChange(s.handleChainChanged),
	)
}

// UpdateAdminAddress applies a local admin override and drops the
// connection, like a page reload would.
func (s *Session) UpdateAdminAddress(ctx context.Context, newAddress string, st Storage) error {
	if err := s.wallet.UpdateAdminAddress(ctx, newAddress, st); err != nil {
		s.notify.Notify(LevelError, err.Error())
		return err
	}
	s.set(State{}) // Force a reconnect
	s.notify.Notify(LevelSuccess, "Admin address updated. Please reconnect.")
	return nil
}

func (s *Session) handleAccountsChanged(accounts []string) {
	if len(accounts) == 0 {
		s.set(State{}) // No accounts left
		s.notify.Notify(LevelError, "Wallet disconnected")
		return
	}
	role, unconfigured := s.classify(accounts[0])

	// The connected check and the write share one critical section so a
	// concurrent chain change cannot be undone by a stale read.
	s.mu.Lock()
	if !s.state.Connected {
		s.mu.Unlock()
		return // Account switches never connect a disconnected session
	}
	next := State{Connected: true, Address: accounts[0], Role: role}
	s.state = next
	fn := s.onChange
	s.mu.Unlock()

	if unconfigured {
		s.notify.Notify(LevelWarning, "Admin address not configured")
	}
	if fn != nil {
		fn(next)
	}
}

func (s *Session) handleChainChanged(string) {
	s.set(State{}) // Any network change disconnects
	s.notify.Notify(LevelError, "Network changed. Please reconnect.")
}

func (s *Session) roleFor(address string) Role {
	role, unconfigured := s.classify(address)
	if unconfigured {
		s.notify.Notify(LevelWarning, "Admin address not configured")
	}
	return role
}

// classify reports the role of address and whether no admin is configured.
func (s *Session) classify(address string) (Role, bool) {
	ok, err := CheckAdmin(address, s.wallet.AdminAddress()) // Compare with the admin in effect
	if ok {
		return RoleAdmin, false
	}
	return RoleStudent, errors.Is(err, ErrAdminNotConfigured)
}

func (s *Session) set(next State) State {
	s.mu.Lock()
	s.state = next
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(next)
	}
	return next
}
