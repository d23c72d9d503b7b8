// Package qr classifies raw QR payloads into internal handles, internal
// addresses, external bank QRs, or invalid. Internal schemes are decided
// offline; only unrecognized payloads reach the backend scan endpoint.
package qr

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/paypath/paypath/internal/api"
	"github.com/paypath/paypath/internal/wallet"
)

// ErrInvalidQr indicates a payload no interpretation accepts.
var ErrInvalidQr = errors.New("Invalid QR Code")

// Kind enumerates QR classifications.
type Kind int

const (
	KindInvalid Kind = iota
	KindInternalHandle
	KindInternalAddress
	KindExternalBank
)

// BankInfo is a decoded external bank QR. Amount is a suggested fiat amount;
// zero means the QR carries none.
type BankInfo struct {
	BankName        string
	AccountNumber   string
	BeneficiaryName string
	Amount          int64
}

// Classified is the outcome of classifying one payload.
type Classified struct {
	Kind    Kind
	Handle  string
	Address string
	Bank    *BankInfo
}

// Scanner decodes payloads the client does not recognize locally.
type Scanner interface {
	ScanQr(ctx context.Context, qrString string) (*api.ScanResult, error)
}

// The paypath scheme wins over any other interpretation of the payload.
var payPathRe = regexp.MustCompile(`^paypath:@([A-Za-z0-9_]{3,})$`)

// Classify maps a raw QR payload to its kind. The paypath scheme and raw
// address branches never touch the network; the scanner is a fallback only.
func Classify(ctx context.Context, raw string, scanner Scanner) (Classified, error) {
	raw = strings.TrimSpace(raw)

	if m := payPathRe.FindStringSubmatch(raw); m != nil {
		return Classified{Kind: KindInternalHandle, Handle: strings.ToLower(m[1])}, nil
	}

	if strings.HasPrefix(raw, "0x") && wallet.IsValidAddress(raw) {
		return Classified{Kind: KindInternalAddress, Address: raw}, nil
	}

	if scanner == nil {
		return Classified{Kind: KindInvalid}, nil
	}
	decoded, err := scanner.ScanQr(ctx, raw)
	if err != nil {
		return Classified{}, err
	}
	if decoded == nil {
		return Classified{Kind: KindInvalid}, nil
	}
	return Classified{
		Kind: KindExternalBank,
		Bank: &BankInfo{
			BankName:        decoded.BankName,
			AccountNumber:   decoded.AccountNumber,
			BeneficiaryName: decoded.BeneficiaryName,
			Amount:          decoded.Amount,
		},
	}, nil
}

// ReceivePayload renders the QR contents the Receive screen shows for a
// handle.
func ReceivePayload(handle string) string {
	return "paypath:@" + handle
}
