package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is used when an RPCProvider is built without one.
const DefaultPollInterval = 2 * time.Second

// Caller is the subset of *rpc.Client the provider needs.
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// RPCProvider talks to a wallet over Ethereum JSON-RPC. JSON-RPC has no
// push for account or network changes, so handlers are driven by polling
// eth_accounts and eth_chainId.
type RPCProvider struct {
	client   Caller
	interval time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	nextID int
	stops  map[int]context.CancelFunc
	closed bool
}

// DialRPC connects to a wallet endpoint (http, ws or ipc).
func DialRPC(ctx context.Context, url string, interval time.Duration) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial wallet rpc %s: %w", url, err)
	}
	return NewRPCProvider(client, interval), nil
}

// NewRPCProvider wraps an existing client.
func NewRPCProvider(client Caller, interval time.Duration) *RPCProvider {
	if interval <= 0 {
		interval = DefaultPollInterval // Fall back to default interval
	}
	return &RPCProvider{
		client:   client,
		interval: interval,
		stops:    map[int]context.CancelFunc{},
	}
}

func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *RPCProvider) ChainID(ctx context.Context) (string, error) {
	var id string
	if err := p.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return "", err
	}
	return id, nil
}

func (p *RPCProvider) OnAccountsChanged(fn func(accounts []string)) func() {
	return p.watch("eth_accounts", func(raw json.RawMessage) {
		var accounts []string
		if err := json.Unmarshal(raw, &accounts); err != nil {
			logrus.WithError(err).Warn("Malformed eth_accounts result")
			return
		}
		fn(accounts)
	})
}

func (p *RPCProvider) OnChainChanged(fn func(chainID string)) func() {
	return p.watch("eth_chainId", func(raw json.RawMessage) {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			logrus.WithError(err).Warn("Malformed eth_chainId result")
			return
		}
		fn(id)
	})
}

// watch polls method and calls onChange whenever its result differs from
// the previous one. The first result only sets the baseline.
func (p *RPCProvider) watch(method string, onChange func(json.RawMessage)) func() {
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock() // Already closed
		cancel()
		return func() {}
	}
	id := p.nextID
	p.nextID++
	p.stops[id] = cancel
	p.wg.Add(1) // Close waits for this poller
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		var last json.RawMessage
		seeded := false
		for {
			var raw json.RawMessage
			err := p.client.CallContext(ctx, &raw, method)
			switch {
			case ctx.Err() != nil:
				return // Stopped
			case err != nil:
				logrus.WithError(err).WithField("method", method).Debug("Wallet poll failed")
			case !seeded: // First result is the baseline
				last, seeded = raw, true
			case !bytes.Equal(last, raw): // Value changed
				last = raw
				onChange(raw)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		p.mu.Lock()
		delete(p.stops, id)
		p.mu.Unlock()
		cancel()
	}
}

// Close stops every poller, waits for them and closes the client.
func (p *RPCProvider) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for id, stop := range p.stops {
		stop()
		delete(p.stops, id)
	}
	p.mu.Unlock()

	p.wg.Wait() // Wait for pollers to exit
	p.client.Close()
}
