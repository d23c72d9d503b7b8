package recipient

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paypath/paypath/internal/api"
	"github.com/paypath/paypath/internal/qr"
)

type lookupFunc func(ctx context.Context, username string) (*api.LookupUser, error)

func (f lookupFunc) LookupUser(ctx context.Context, username string) (*api.LookupUser, error) {
	return f(ctx, username)
}

func staticLookup(users map[string]*api.LookupUser) Lookup {
	return lookupFunc(func(_ context.Context, username string) (*api.LookupUser, error) {
		return users[username], nil
	})
}

func TestResolveHandleVariants(t *testing.T) {
	addr := "0x" + strings.Repeat("aa", 32)
	r := New(staticLookup(map[string]*api.LookupUser{
		"alice": {Username: "alice", WalletAddress: addr},
	}))
	ctx := context.Background()

	for _, input := range []string{"@alice", "alice", "@ALICE", " alice "} {
		got, err := r.ResolveText(ctx, input)
		if err != nil {
			t.Fatalf("resolve %q: %v", input, err)
		}
		if got.Kind != KindInternalHandle || got.Address != addr {
			t.Fatalf("resolve %q: %+v", input, got)
		}
		if got.DisplayName != "@alice" {
			t.Fatalf("display name %q", got.DisplayName)
		}
	}
}

func TestResolveFailures(t *testing.T) {
	addr := "0x" + strings.Repeat("aa", 32)
	r := New(staticLookup(map[string]*api.LookupUser{
		"alice":      {Username: "alice", WalletAddress: addr},
		"walletless": {Username: "walletless"},
	}))
	ctx := context.Background()

	if _, err := r.ResolveText(ctx, "@ghost"); err != ErrHandleUnknown {
		t.Fatalf("expected ErrHandleUnknown, got %v", err)
	}
	if _, err := r.ResolveText(ctx, "@walletless"); err != ErrHandleHasNoWallet {
		t.Fatalf("expected ErrHandleHasNoWallet, got %v", err)
	}
	if _, err := r.ResolveText(ctx, "0x1234"); err != ErrInvalidRecipient {
		t.Fatalf("expected ErrInvalidRecipient for short address, got %v", err)
	}
	if _, err := r.ResolveText(ctx, "@ab"); err != ErrInvalidRecipient {
		t.Fatalf("expected ErrInvalidRecipient for two character handle, got %v", err)
	}
	if _, err := r.ResolveText(ctx, "@abc"); err != ErrHandleUnknown {
		t.Fatalf("three character handle must pass validation, got %v", err)
	}
}

func TestResolveRawAddressNeedsNoLookup(t *testing.T) {
	r := New(lookupFunc(func(context.Context, string) (*api.LookupUser, error) {
		t.Fatalf("lookup must not run for raw addresses")
		return nil, nil
	}))

	addr := "0x12ab34cd" + strings.Repeat("0", 52) + "beef"
	got, err := r.ResolveText(context.Background(), addr)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Kind != KindInternalAddress || got.DisplayName != "0x12ab34...beef" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestResolveQrBankMapsDirectly(t *testing.T) {
	r := New(staticLookup(nil))
	got, err := r.ResolveQr(context.Background(), qr.Classified{
		Kind: qr.KindExternalBank,
		Bank: &qr.BankInfo{BankName: "Vietcombank", AccountNumber: "123", BeneficiaryName: "LE A", Amount: 200000},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Kind != KindExternalBank || got.DisplayName != "LE A (Vietcombank)" {
		t.Fatalf("unexpected result %+v", got)
	}

	if _, err := r.ResolveQr(context.Background(), qr.Classified{Kind: qr.KindInvalid}); err != ErrInvalidQr {
		t.Fatalf("expected ErrInvalidQr, got %v", err)
	}
}

func TestLatestLookupWins(t *testing.T) {
	addr := "0x" + strings.Repeat("aa", 32)
	firstStarted := make(chan struct{})
	release := make(chan struct{})

	lookup := lookupFunc(func(ctx context.Context, username string) (*api.LookupUser, error) {
		if username == "slow" {
			close(firstStarted)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return &api.LookupUser{Username: "slow", WalletAddress: addr}, nil
		}
		return &api.LookupUser{Username: username, WalletAddress: addr}, nil
	})
	r := New(lookup)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = r.resolveHandle(context.Background(), "slow")
	}()

	<-firstStarted
	second, err := r.resolveHandle(context.Background(), "fast")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.Handle != "fast" {
		t.Fatalf("second resolve applied %q", second.Handle)
	}

	close(release)
	wg.Wait()
	if firstErr != ErrSuperseded {
		t.Fatalf("first resolve must be discarded, got %v", firstErr)
	}

	// A stale response after cancellation must not leak into later calls.
	time.Sleep(10 * time.Millisecond)
	third, err := r.resolveHandle(context.Background(), "third")
	if err != nil || third.Handle != "third" {
		t.Fatalf("third resolve: %+v, %v", third, err)
	}
}
