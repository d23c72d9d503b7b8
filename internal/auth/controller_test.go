package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/paypath/paypath/internal/api"
	"github.com/paypath/paypath/internal/logging"
	"github.com/paypath/paypath/internal/vault"
	"github.com/paypath/paypath/internal/wallet"
)

type fakeBackend struct {
	mu        sync.Mutex
	nonces    int
	lastReq   api.VerifyRequest
	verifyErr error

	// holdVerify, when set, blocks Verify until released.
	holdVerify chan struct{}
}

func (b *fakeBackend) Challenge(_ context.Context, address string) (api.ChallengeResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nonces++
	return api.ChallengeResponse{
		Nonce:  fmt.Sprintf("nonce-%d", b.nonces),
		Domain: "paypath.app",
	}, nil
}

func (b *fakeBackend) Verify(_ context.Context, req api.VerifyRequest) (api.VerifyResponse, error) {
	b.mu.Lock()
	hold := b.holdVerify
	b.holdVerify = nil
	b.lastReq = req
	verifyErr := b.verifyErr
	b.mu.Unlock()

	if hold != nil {
		<-hold
	}
	if verifyErr != nil {
		return api.VerifyResponse{}, verifyErr
	}
	return api.VerifyResponse{AccessToken: "token-for-" + req.Nonce, TokenType: "Bearer"}, nil
}

func newController(t *testing.T, backend Backend, v vault.Vault) (*Controller, *wallet.Keystore) {
	t.Helper()
	ks, err := wallet.NewEphemeralKeystore()
	if err != nil {
		t.Fatalf("keystore: %v", err)
	}
	return NewController(backend, v, ks, "Sign in to PayPath", logging.Discard()), ks
}

func TestLoginWithWalletHappyPath(t *testing.T) {
	backend := &fakeBackend{}
	v := vault.NewMemory()
	c, ks := newController(t, backend, v)

	if err := c.LoginWithWallet(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}

	session, ok := v.Read()
	if !ok {
		t.Fatalf("expected persisted session")
	}
	if session.Token != "token-for-nonce-1" || session.TokenType != "Bearer" {
		t.Fatalf("unexpected session %+v", session)
	}

	req := backend.lastReq
	if req.Address != ks.Address() {
		t.Fatalf("verify address %s", req.Address)
	}
	wantMsg := BuildMessage(req.Domain, req.Address, req.Statement, req.Nonce, req.IssuedAt, req.ExpirationTime)
	if req.Message != wantMsg {
		t.Fatalf("message bytes diverge from the documented layout:\n%s\nvs\n%s", req.Message, wantMsg)
	}

	// The wallet's signature must verify over exactly the submitted bytes.
	addr, err := wallet.VerifyPersonalMessage([]byte(req.Message), req.Signature)
	if err != nil || addr != ks.Address() {
		t.Fatalf("signature does not verify: %v (addr %s)", err, addr)
	}
}

func TestLoginUsesFreshChallengeEachAttempt(t *testing.T) {
	backend := &fakeBackend{}
	v := vault.NewMemory()
	c, _ := newController(t, backend, v)
	ctx := context.Background()

	if err := c.LoginWithWallet(ctx); err != nil {
		t.Fatalf("first login: %v", err)
	}
	first := backend.lastReq.Nonce
	if err := c.LoginWithWallet(ctx); err != nil {
		t.Fatalf("second login: %v", err)
	}
	second := backend.lastReq.Nonce
	if first == second {
		t.Fatalf("challenge nonce reused: %s", first)
	}
}

func TestLoginFailureLeavesNoSession(t *testing.T) {
	backend := &fakeBackend{verifyErr: errors.New("verify rejected")}
	v := vault.NewMemory()
	c, _ := newController(t, backend, v)

	if err := c.LoginWithWallet(context.Background()); err == nil {
		t.Fatalf("expected login error")
	}
	if _, ok := v.Read(); ok {
		t.Fatalf("failed login must not persist a session")
	}
	state := c.Snapshot()
	if state.LastError == "" || state.IsAuthenticating {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestLoginWithoutWallet(t *testing.T) {
	backend := &fakeBackend{}
	v := vault.NewMemory()
	c := NewController(backend, v, nil, "s", logging.Discard())

	if err := c.LoginWithWallet(context.Background()); err != wallet.ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestLogoutClearsVaultAndState(t *testing.T) {
	backend := &fakeBackend{}
	v := vault.NewMemory()
	c, _ := newController(t, backend, v)

	if err := c.LoginWithWallet(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}
	c.Logout()

	if _, ok := v.Read(); ok {
		t.Fatalf("vault not cleared")
	}
	if c.Snapshot().Authenticated() {
		t.Fatalf("state still authenticated")
	}
}

func TestRacingLoginsApplyOnlyTheNewest(t *testing.T) {
	backend := &fakeBackend{}
	v := vault.NewMemory()
	c, _ := newController(t, backend, v)

	release := make(chan struct{})
	backend.mu.Lock()
	backend.holdVerify = release
	backend.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// First attempt blocks inside Verify.
		_ = c.LoginWithWallet(context.Background())
	}()

	// Wait until the first attempt has consumed the hold.
	for {
		backend.mu.Lock()
		consumed := backend.holdVerify == nil && backend.nonces >= 1
		backend.mu.Unlock()
		if consumed {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := c.LoginWithWallet(context.Background()); err != nil {
		t.Fatalf("second login: %v", err)
	}
	close(release)
	wg.Wait()

	session, ok := v.Read()
	if !ok {
		t.Fatalf("expected a session")
	}
	if session.Token != "token-for-nonce-2" {
		t.Fatalf("stale login applied: %+v", session)
	}
}

func TestStatePersistsAcrossControllers(t *testing.T) {
	v := vault.NewMemory()
	v.Write(vault.Session{Token: "tok", TokenType: "Bearer"})

	c := NewController(&fakeBackend{}, v, nil, "s", logging.Discard())
	if !c.Snapshot().Authenticated() {
		t.Fatalf("controller must hydrate from the vault")
	}
}
