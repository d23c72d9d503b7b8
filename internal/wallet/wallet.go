// Package wallet abstracts the connected blockchain wallet: the account
// address, personal-message signing, and signed stablecoin transfers.
package wallet

import (
	"context"
	"errors"
)

// ErrNotConnected indicates no wallet account is available.
var ErrNotConnected = errors.New("Wallet not connected")

// Balances holds the two coin balances the client cares about, in base units.
type Balances struct {
	Gas        int64
	Stablecoin int64
}

// Signer is the signing half of the wallet SDK.
type Signer interface {
	// Address returns the account address, or "" when not connected.
	Address() string
	// SignPersonalMessage signs the UTF-8 bytes of a message and returns the
	// serialized signature (scheme flag, signature, public key; base64).
	SignPersonalMessage(ctx context.Context, message []byte) (string, error)
}

// Chain is the execution half of the wallet SDK: balance reads and signed
// stablecoin transfers submitted on-chain.
type Chain interface {
	Balances(ctx context.Context, address string) (Balances, error)
	// TransferStablecoin builds, signs and submits a stablecoin transfer and
	// returns the transaction digest.
	TransferStablecoin(ctx context.Context, signer Signer, to string, amountUnits int64) (string, error)
}
