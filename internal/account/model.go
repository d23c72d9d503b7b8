// Package account aggregates the signed-in user's observable state: address,
// handle, balances, linked payment methods, default method and recent
// transactions.
package account

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/paypath/paypath/internal/api"
	"github.com/paypath/paypath/internal/wallet"
)

// Backend is the slice of the API client the model needs.
type Backend interface {
	GetProfile(ctx context.Context) (api.Profile, error)
	LookupUser(ctx context.Context, username string) (*api.LookupUser, error)
	ListOnchainWallets(ctx context.Context) ([]api.OnchainWallet, error)
	ListOffchainBanks(ctx context.Context) (api.OffchainBankList, error)
	GetDefaultMethod(ctx context.Context) (api.DefaultMethod, error)
}

// Transaction is one history row. History is append-only within a session and
// ordered newest first.
type Transaction struct {
	ID           string
	Type         string // "sent" or "received"
	Counterparty string
	AmountUnits  int64
	Timestamp    time.Time
}

// Snapshot is a point-in-time copy of the model.
type Snapshot struct {
	Address         string
	Handle          string
	GasUnits        int64
	StablecoinUnits int64
	FiatUnits       int64
	Wallets         []api.OnchainWallet
	Banks           []api.OffchainBank
	DefaultMethod   api.DefaultMethod
	Transactions    []Transaction
}

// Model owns the session-scoped account state.
type Model struct {
	backend  Backend
	chain    wallet.Chain
	signer   wallet.Signer
	fiatRate int64 // fiat units per whole stablecoin
	logger   *slog.Logger

	mu         sync.Mutex
	handle     string
	balances   wallet.Balances
	balanceSeq uint64
	wallets    []api.OnchainWallet
	banks      []api.OffchainBank
	defaultM   api.DefaultMethod
	history    []Transaction
	nextSub    int
	subs       map[int]func(Snapshot)
}

// New builds a model for the connected signer.
func New(backend Backend, ch wallet.Chain, signer wallet.Signer, fiatRate int64, logger *slog.Logger) *Model {
	return &Model{
		backend:  backend,
		chain:    ch,
		signer:   signer,
		fiatRate: fiatRate,
		logger:   logger,
		subs:     make(map[int]func(Snapshot)),
	}
}

// Address returns the connected wallet address, or "".
func (m *Model) Address() string {
	if m.signer == nil {
		return ""
	}
	return m.signer.Address()
}

// Handle returns the user's handle, or "" before onboarding.
func (m *Model) Handle() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// Snapshot copies the current state.
func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers an observer and returns its unsubscribe function.
func (m *Model) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// RefreshProfile loads the backend profile. A handle is only accepted
// together with a primary address.
func (m *Model) RefreshProfile(ctx context.Context) error {
	profile, err := m.backend.GetProfile(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if profile.Username != "" && profile.WalletAddress == "" {
		// Handle set implies primary address set; refuse a partial profile.
		m.logger.Warn("profile has handle but no wallet address", "handle", profile.Username)
		return nil
	}
	m.handle = profile.Username
	m.notifyLocked()
	return nil
}

// SetHandle records the handle chosen during onboarding.
func (m *Model) SetHandle(handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handle = handle
	m.notifyLocked()
}

// RefreshBalance fetches gas and stablecoin balances. Concurrent refreshes
// are ordered: only the most recently started fetch may apply, so a stale
// read never overwrites a newer one.
func (m *Model) RefreshBalance(ctx context.Context) error {
	address := m.Address()
	if address == "" {
		return wallet.ErrNotConnected
	}

	m.mu.Lock()
	m.balanceSeq++
	mine := m.balanceSeq
	m.mu.Unlock()

	balances, err := m.chain.Balances(ctx, address)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balanceSeq != mine {
		return nil
	}
	m.balances = balances
	m.notifyLocked()
	return nil
}

// RefreshMethods loads linked wallets, banks and the default method.
func (m *Model) RefreshMethods(ctx context.Context) error {
	wallets, err := m.backend.ListOnchainWallets(ctx)
	if err != nil {
		return err
	}
	banks, err := m.backend.ListOffchainBanks(ctx)
	if err != nil {
		return err
	}
	def, err := m.backend.GetDefaultMethod(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.wallets = wallets
	m.banks = banks.Banks
	m.defaultM = def
	m.notifyLocked()
	return nil
}

// LookupHandle resolves a handle via the backend; absent users yield nil.
func (m *Model) LookupHandle(ctx context.Context, handle string) (*api.LookupUser, error) {
	return m.backend.LookupUser(ctx, handle)
}

// IsValidAddress is the local syntactic address check.
func (m *Model) IsValidAddress(s string) bool {
	return wallet.IsValidAddress(s)
}

// SendStablecoin signs and submits a transfer, records it in history and
// refreshes balances.
func (m *Model) SendStablecoin(ctx context.Context, to string, amountUnits int64, counterparty string) (string, error) {
	digest, err := m.chain.TransferStablecoin(ctx, m.signer, to, amountUnits)
	if err != nil {
		return "", err
	}
	m.Record(Transaction{
		ID:           digest,
		Type:         "sent",
		Counterparty: counterparty,
		AmountUnits:  amountUnits,
		Timestamp:    time.Now().UTC(),
	})
	if err := m.RefreshBalance(ctx); err != nil {
		m.logger.Warn("refresh balance after send", "error", err)
	}
	return digest, nil
}

// Record appends a transaction, keeping history newest first.
func (m *Model) Record(tx Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, tx)
	sort.SliceStable(m.history, func(i, j int) bool {
		return m.history[i].Timestamp.After(m.history[j].Timestamp)
	})
	m.notifyLocked()
}

func (m *Model) snapshotLocked() Snapshot {
	snap := Snapshot{
		Address:         m.Address(),
		Handle:          m.handle,
		GasUnits:        m.balances.Gas,
		StablecoinUnits: m.balances.Stablecoin,
		DefaultMethod:   m.defaultM,
		Wallets:         append([]api.OnchainWallet(nil), m.wallets...),
		Banks:           append([]api.OffchainBank(nil), m.banks...),
		Transactions:    append([]Transaction(nil), m.history...),
	}
	if m.fiatRate > 0 {
		snap.FiatUnits = m.balances.Stablecoin * m.fiatRate / 1_000_000
	}
	return snap
}

func (m *Model) notifyLocked() {
	snapshot := m.snapshotLocked()
	for _, fn := range m.subs {
		fn(snapshot)
	}
}
