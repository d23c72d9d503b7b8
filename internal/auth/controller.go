// Package auth drives wallet-signature login: challenge, message assembly,
// personal signature, verification, and session persistence.
package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/paypath/paypath/internal/api"
	"github.com/paypath/paypath/internal/vault"
	"github.com/paypath/paypath/internal/wallet"
)

// challengeTTL bounds the signed message validity window.
const challengeTTL = 5 * time.Minute

// Backend is the slice of the API client the controller needs.
type Backend interface {
	Challenge(ctx context.Context, address string) (api.ChallengeResponse, error)
	Verify(ctx context.Context, req api.VerifyRequest) (api.VerifyResponse, error)
}

// State is the observable snapshot of the controller.
type State struct {
	Token            string
	TokenType        string
	IsAuthenticating bool
	LastError        string
}

// Authenticated reports whether a session is present.
func (s State) Authenticated() bool {
	return s.Token != "" && s.TokenType != ""
}

// Controller owns the session lifecycle. The vault is the single authority on
// whether requests are authenticated; the in-memory state mirrors it.
type Controller struct {
	backend   Backend
	vault     vault.Vault
	signer    wallet.Signer
	statement string
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	state   State
	gen     uint64
	nextSub int
	subs    map[int]func(State)
}

// NewController hydrates controller state from the vault so a persisted
// session survives process restarts.
func NewController(backend Backend, v vault.Vault, signer wallet.Signer, statement string, logger *slog.Logger) *Controller {
	c := &Controller{
		backend:   backend,
		vault:     v,
		signer:    signer,
		statement: statement,
		logger:    logger,
		now:       time.Now,
		subs:      make(map[int]func(State)),
	}
	if session, ok := v.Read(); ok {
		c.state.Token = session.Token
		c.state.TokenType = session.TokenType
	}
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session reads the persisted session.
func (c *Controller) Session() (vault.Session, bool) {
	return c.vault.Read()
}

// Subscribe registers an observer for state changes and returns its
// unsubscribe function. The current state is not replayed.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// LoginWithWallet obtains a fresh challenge, signs it and verifies the
// signature with the backend. Any failure leaves the session absent. When two
// logins race, only the most recently started one may apply its result.
func (c *Controller) LoginWithWallet(ctx context.Context) error {
	if c.signer == nil || c.signer.Address() == "" {
		c.fail(wallet.ErrNotConnected.Error())
		return wallet.ErrNotConnected
	}
	address := c.signer.Address()

	c.mu.Lock()
	c.gen++
	mine := c.gen
	c.state.IsAuthenticating = true
	c.state.LastError = ""
	c.notifyLocked()
	c.mu.Unlock()

	session, err := c.login(ctx, address)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != mine {
		// A newer attempt superseded this one; discard the outcome either way.
		return nil
	}
	c.state.IsAuthenticating = false
	if err != nil {
		c.state.LastError = err.Error()
		c.notifyLocked()
		c.logger.Warn("login failed", "address", address, "error", err)
		return err
	}
	if werr := c.vault.Write(session); werr != nil {
		c.state.LastError = werr.Error()
		c.notifyLocked()
		return werr
	}
	c.state.Token = session.Token
	c.state.TokenType = session.TokenType
	c.notifyLocked()
	c.logger.Info("login succeeded", "address", address)
	return nil
}

func (c *Controller) login(ctx context.Context, address string) (vault.Session, error) {
	challenge, err := c.backend.Challenge(ctx, address)
	if err != nil {
		return vault.Session{}, err
	}

	issuedAt := c.now().UTC().Format(time.RFC3339)
	expirationTime := c.now().UTC().Add(challengeTTL).Format(time.RFC3339)
	message := BuildMessage(challenge.Domain, address, c.statement, challenge.Nonce, issuedAt, expirationTime)

	signature, err := c.signer.SignPersonalMessage(ctx, []byte(message))
	if err != nil {
		return vault.Session{}, err
	}

	// A verify failure is never retried with the same challenge; the caller
	// starts over and a fresh nonce is issued.
	verified, err := c.backend.Verify(ctx, api.VerifyRequest{
		Address:        address,
		Domain:         challenge.Domain,
		Nonce:          challenge.Nonce,
		IssuedAt:       issuedAt,
		ExpirationTime: expirationTime,
		Statement:      c.statement,
		Message:        message,
		Signature:      signature,
	})
	if err != nil {
		return vault.Session{}, err
	}
	return vault.Session{Token: verified.AccessToken, TokenType: verified.TokenType}, nil
}

// Logout clears both the persisted and the in-memory session.
func (c *Controller) Logout() {
	if err := c.vault.Clear(); err != nil {
		c.logger.Warn("clear session", "error", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Token = ""
	c.state.TokenType = ""
	c.notifyLocked()
}

// HandleUnauthorized is wired as the API client's 401 hook: the backend
// rejected the session, so drop it everywhere.
func (c *Controller) HandleUnauthorized() {
	c.logger.Info("session invalidated by backend")
	c.Logout()
}

func (c *Controller) fail(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LastError = msg
	c.notifyLocked()
}

// notifyLocked fans the current state out to observers. Callers hold the lock.
func (c *Controller) notifyLocked() {
	snapshot := c.state
	for _, fn := range c.subs {
		fn(snapshot)
	}
}
