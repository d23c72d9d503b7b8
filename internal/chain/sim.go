// Package chain provides an in-memory chain simulator implementing the wallet
// Chain interface: per-address balances, gas charging on submission, and
// deterministic transaction digests.
package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/paypath/paypath/internal/wallet"
)

var (
	// ErrInsufficientFunds occurs when the sender lacks stablecoin balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientGas occurs when the sender cannot cover the gas charge.
	ErrInsufficientGas = errors.New("insufficient gas")
)

type account struct {
	gas        int64
	stablecoin int64
}

// Sim is a concurrency-safe simulated chain.
type Sim struct {
	mu       sync.Mutex
	gasCost  int64
	accounts map[string]*account
	nonce    uint64
}

// NewSim builds a simulator charging gasCost base units of the gas coin per
// submitted transaction.
func NewSim(gasCost int64) *Sim {
	return &Sim{gasCost: gasCost, accounts: make(map[string]*account)}
}

// Seed credits an address with gas and stablecoin balances.
func (s *Sim) Seed(address string, gasUnits, stableUnits int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(address)
	acct.gas += gasUnits
	acct.stablecoin += stableUnits
}

// Balances implements wallet.Chain.
func (s *Sim) Balances(_ context.Context, address string) (wallet.Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(address)
	return wallet.Balances{Gas: acct.gas, Stablecoin: acct.stablecoin}, nil
}

// TransferStablecoin implements wallet.Chain. The signer pays the gas charge;
// the stablecoin amount moves to the destination address.
func (s *Sim) TransferStablecoin(ctx context.Context, signer wallet.Signer, to string, amountUnits int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if signer == nil || signer.Address() == "" {
		return "", wallet.ErrNotConnected
	}
	if amountUnits <= 0 {
		return "", ErrInsufficientFunds
	}
	if !wallet.IsValidAddress(to) {
		return "", fmt.Errorf("invalid destination address")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.account(signer.Address())
	if from.stablecoin < amountUnits {
		return "", ErrInsufficientFunds
	}
	if from.gas < s.gasCost {
		return "", ErrInsufficientGas
	}

	dest := s.account(to)
	from.stablecoin -= amountUnits
	from.gas -= s.gasCost
	dest.stablecoin += amountUnits

	s.nonce++
	return digest(signer.Address(), to, amountUnits, s.nonce), nil
}

// account returns the ledger entry for an address, creating it at zero.
// Callers must hold the lock.
func (s *Sim) account(address string) *account {
	acct, ok := s.accounts[address]
	if !ok {
		acct = &account{}
		s.accounts[address] = acct
	}
	return acct
}

func digest(from, to string, amount int64, nonce uint64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d:%d", from, to, amount, nonce)))
	return hex.EncodeToString(sum[:])
}
