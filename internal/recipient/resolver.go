// Package recipient maps typed input or a classified QR to a canonical send
// destination. Resolution is safe to call on every keystroke: each call
// supersedes the one before it, and a superseded call never surfaces a result.
package recipient

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/paypath/paypath/internal/api"
	"github.com/paypath/paypath/internal/qr"
	"github.com/paypath/paypath/internal/wallet"
)

// Resolver-level failures. The messages are the user-visible strings the
// client surfaces verbatim.
var (
	ErrHandleUnknown     = errors.New("User not found")
	ErrHandleHasNoWallet = errors.New("User has no linked wallet")
	ErrInvalidRecipient  = errors.New("Invalid wallet address format")
	ErrInvalidQr         = qr.ErrInvalidQr

	// ErrSuperseded reports that a newer resolution started before this one
	// finished; its result has been discarded.
	ErrSuperseded = errors.New("resolution superseded")
)

// Kind enumerates resolved destination kinds.
type Kind int

const (
	KindInternalHandle Kind = iota
	KindInternalAddress
	KindExternalBank
)

// Resolved is a canonical destination plus its display name.
type Resolved struct {
	Kind        Kind
	Handle      string
	Address     string
	DisplayName string
	Bank        *qr.BankInfo
}

// Lookup resolves handles to users.
type Lookup interface {
	LookupUser(ctx context.Context, username string) (*api.LookupUser, error)
}

// Resolver issues at most one in-flight lookup; a newer call cancels the
// older one (latest wins).
type Resolver struct {
	lookup Lookup

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// New builds a resolver over the given lookup.
func New(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

var handleRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// ResolveText resolves a typed recipient: an @handle, a bare handle, or a raw
// chain address.
func (r *Resolver) ResolveText(ctx context.Context, input string) (Resolved, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Resolved{}, ErrInvalidRecipient
	}

	if strings.HasPrefix(input, "0x") {
		if !wallet.IsValidAddress(input) {
			return Resolved{}, ErrInvalidRecipient
		}
		return Resolved{
			Kind:        KindInternalAddress,
			Address:     input,
			DisplayName: wallet.ShortAddress(input),
		}, nil
	}

	handle := strings.ToLower(strings.TrimPrefix(input, "@"))
	if len(handle) < 3 || !handleRe.MatchString(handle) {
		return Resolved{}, ErrInvalidRecipient
	}
	return r.resolveHandle(ctx, handle)
}

// ResolveQr maps a classified QR to a destination. Internal-handle QRs still
// require a lookup; bank QRs map directly.
func (r *Resolver) ResolveQr(ctx context.Context, c qr.Classified) (Resolved, error) {
	switch c.Kind {
	case qr.KindInternalHandle:
		return r.resolveHandle(ctx, c.Handle)
	case qr.KindInternalAddress:
		return Resolved{
			Kind:        KindInternalAddress,
			Address:     c.Address,
			DisplayName: wallet.ShortAddress(c.Address),
		}, nil
	case qr.KindExternalBank:
		return Resolved{
			Kind:        KindExternalBank,
			DisplayName: c.Bank.BeneficiaryName + " (" + c.Bank.BankName + ")",
			Bank:        c.Bank,
		}, nil
	default:
		return Resolved{}, ErrInvalidQr
	}
}

func (r *Resolver) resolveHandle(ctx context.Context, handle string) (Resolved, error) {
	r.mu.Lock()
	r.seq++
	mine := r.seq
	if r.cancel != nil {
		r.cancel()
	}
	lookupCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	user, err := r.lookup.LookupUser(lookupCtx, handle)

	r.mu.Lock()
	stale := r.seq != mine
	r.mu.Unlock()
	if stale {
		return Resolved{}, ErrSuperseded
	}

	if err != nil {
		return Resolved{}, err
	}
	if user == nil {
		return Resolved{}, ErrHandleUnknown
	}
	if user.WalletAddress == "" {
		return Resolved{}, ErrHandleHasNoWallet
	}
	return Resolved{
		Kind:        KindInternalHandle,
		Handle:      user.Username,
		Address:     user.WalletAddress,
		DisplayName: "@" + user.Username,
	}, nil
}
