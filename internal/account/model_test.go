package account

import (
	"context"
	"testing"
	"time"

	"github.com/paypath/paypath/internal/api"
	"github.com/paypath/paypath/internal/chain"
	"github.com/paypath/paypath/internal/logging"
	"github.com/paypath/paypath/internal/wallet"
)

type fakeBackend struct {
	profile api.Profile
	users   map[string]api.LookupUser
	wallets []api.OnchainWallet
	banks   api.OffchainBankList
	def     api.DefaultMethod
}

func (f *fakeBackend) GetProfile(ctx context.Context) (api.Profile, error) { return f.profile, nil }

func (f *fakeBackend) LookupUser(ctx context.Context, username string) (*api.LookupUser, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeBackend) ListOnchainWallets(ctx context.Context) ([]api.OnchainWallet, error) {
	return f.wallets, nil
}

func (f *fakeBackend) ListOffchainBanks(ctx context.Context) (api.OffchainBankList, error) {
	return f.banks, nil
}

func (f *fakeBackend) GetDefaultMethod(ctx context.Context) (api.DefaultMethod, error) {
	return f.def, nil
}

func newTestModel(t *testing.T, backend Backend) (*Model, *chain.Sim, wallet.Signer) {
	t.Helper()
	signer, err := wallet.NewEphemeralKeystore()
	if err != nil {
		t.Fatalf("keystore: %v", err)
	}
	sim := chain.NewSim(1_000_000)
	sim.Seed(signer.Address(), 5_000_000_000, 10_000_000)
	return New(backend, sim, signer, 25_000, logging.Discard()), sim, signer
}

func TestRefreshBalanceAndFiat(t *testing.T) {
	m, _, _ := newTestModel(t, &fakeBackend{})
	if err := m.RefreshBalance(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	snap := m.Snapshot()
	if snap.StablecoinUnits != 10_000_000 {
		t.Fatalf("stablecoin = %d, want 10000000", snap.StablecoinUnits)
	}
	if snap.GasUnits != 5_000_000_000 {
		t.Fatalf("gas = %d, want 5000000000", snap.GasUnits)
	}
	// 10 USDC at 25000 fiat per whole coin.
	if snap.FiatUnits != 250_000 {
		t.Fatalf("fiat = %d, want 250000", snap.FiatUnits)
	}
}

func TestRefreshBalanceWithoutSigner(t *testing.T) {
	m := New(&fakeBackend{}, chain.NewSim(1), nil, 0, logging.Discard())
	if err := m.RefreshBalance(context.Background()); err != wallet.ErrNotConnected {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestRefreshProfileRejectsHandleWithoutAddress(t *testing.T) {
	backend := &fakeBackend{profile: api.Profile{Username: "alice"}}
	m, _, _ := newTestModel(t, backend)
	if err := m.RefreshProfile(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := m.Handle(); got != "" {
		t.Fatalf("handle = %q, want empty for partial profile", got)
	}

	backend.profile.WalletAddress = "0xabc"
	if err := m.RefreshProfile(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := m.Handle(); got != "alice" {
		t.Fatalf("handle = %q, want alice", got)
	}
}

func TestSendRecordsHistoryNewestFirst(t *testing.T) {
	m, sim, _ := newTestModel(t, &fakeBackend{})
	other, err := wallet.NewEphemeralKeystore()
	if err != nil {
		t.Fatalf("keystore: %v", err)
	}
	dest := other.Address()
	sim.Seed(dest, 0, 0)

	first, err := m.SendStablecoin(context.Background(), dest, 1_000_000, "@bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := m.SendStablecoin(context.Background(), dest, 2_000_000, "@bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	snap := m.Snapshot()
	if len(snap.Transactions) != 2 {
		t.Fatalf("history len = %d, want 2", len(snap.Transactions))
	}
	if snap.Transactions[0].ID != second || snap.Transactions[1].ID != first {
		t.Fatalf("history not newest first: %+v", snap.Transactions)
	}
	if snap.StablecoinUnits != 7_000_000 {
		t.Fatalf("stablecoin after sends = %d, want 7000000", snap.StablecoinUnits)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	m, _, _ := newTestModel(t, &fakeBackend{})
	var seen []string
	off := m.Subscribe(func(s Snapshot) { seen = append(seen, s.Handle) })

	m.SetHandle("carol")
	if len(seen) != 1 || seen[0] != "carol" {
		t.Fatalf("seen = %v, want [carol]", seen)
	}

	off()
	m.SetHandle("dave")
	if len(seen) != 1 {
		t.Fatalf("observer fired after unsubscribe: %v", seen)
	}
}

func TestRefreshMethods(t *testing.T) {
	backend := &fakeBackend{
		wallets: []api.OnchainWallet{{ID: "w1", Address: "0xaa"}},
		banks:   api.OffchainBankList{Total: 1, Banks: []api.OffchainBank{{ID: "b1", BankName: "VCB"}}},
		def:     api.DefaultMethod{WalletID: "w1", WalletType: "onchain"},
	}
	m, _, _ := newTestModel(t, backend)
	if err := m.RefreshMethods(context.Background()); err != nil {
		t.Fatalf("refresh methods: %v", err)
	}
	snap := m.Snapshot()
	if len(snap.Wallets) != 1 || len(snap.Banks) != 1 {
		t.Fatalf("methods = %d wallets %d banks, want 1/1", len(snap.Wallets), len(snap.Banks))
	}
	if !snap.DefaultMethod.Present() {
		t.Fatalf("default method should be present")
	}
}

func TestLookupHandleAbsentIsNil(t *testing.T) {
	m, _, _ := newTestModel(t, &fakeBackend{users: map[string]api.LookupUser{}})
	got, err := m.LookupHandle(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil for absent user", got)
	}
}
