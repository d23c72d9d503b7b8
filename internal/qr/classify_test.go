package qr

import (
	"context"
	"strings"
	"testing"

	"github.com/paypath/paypath/internal/api"
)

type scannerFunc func(ctx context.Context, qrString string) (*api.ScanResult, error)

func (f scannerFunc) ScanQr(ctx context.Context, qrString string) (*api.ScanResult, error) {
	return f(ctx, qrString)
}

func forbiddenScanner(t *testing.T) Scanner {
	return scannerFunc(func(context.Context, string) (*api.ScanResult, error) {
		t.Fatalf("scanner must not be called for internal payloads")
		return nil, nil
	})
}

func TestClassifyPayPathSchemeOffline(t *testing.T) {
	ctx := context.Background()
	for _, handle := range []string{"alice", "bob_99", "a_b", "ALICE"} {
		got, err := Classify(ctx, "paypath:@"+handle, forbiddenScanner(t))
		if err != nil {
			t.Fatalf("classify @%s: %v", handle, err)
		}
		if got.Kind != KindInternalHandle {
			t.Fatalf("expected handle kind for %s, got %v", handle, got.Kind)
		}
		if got.Handle != strings.ToLower(handle) {
			t.Fatalf("expected lowercased handle, got %s", got.Handle)
		}
	}
}

func TestClassifyAddressOffline(t *testing.T) {
	addr := "0x" + strings.Repeat("ab", 32)
	got, err := Classify(context.Background(), addr, forbiddenScanner(t))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Kind != KindInternalAddress || got.Address != addr {
		t.Fatalf("unexpected classification %+v", got)
	}
}

func TestClassifyFallsBackToScanner(t *testing.T) {
	called := false
	scanner := scannerFunc(func(_ context.Context, qrString string) (*api.ScanResult, error) {
		called = true
		return &api.ScanResult{
			BankName:        "Vietcombank",
			AccountNumber:   "123",
			BeneficiaryName: "LE A",
			Amount:          200000,
		}, nil
	})

	got, err := Classify(context.Background(), "00020101021238570010A000000727", scanner)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !called {
		t.Fatalf("expected scanner call for unknown payload")
	}
	if got.Kind != KindExternalBank || got.Bank == nil {
		t.Fatalf("unexpected classification %+v", got)
	}
	if got.Bank.BankName != "Vietcombank" || got.Bank.Amount != 200000 {
		t.Fatalf("unexpected bank info %+v", got.Bank)
	}
}

func TestClassifyInvalidWhenScannerDeclines(t *testing.T) {
	scanner := scannerFunc(func(context.Context, string) (*api.ScanResult, error) {
		return nil, nil
	})
	got, err := Classify(context.Background(), "garbage", scanner)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Kind != KindInvalid {
		t.Fatalf("expected invalid, got %v", got.Kind)
	}
}

func TestPayPathSchemeWinsOverAddressShape(t *testing.T) {
	// A short or malformed handle is not a paypath QR at all.
	got, err := Classify(context.Background(), "paypath:@ab", scannerFunc(func(context.Context, string) (*api.ScanResult, error) {
		return nil, nil
	}))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Kind != KindInvalid {
		t.Fatalf("two character handle should not classify, got %v", got.Kind)
	}
}

func TestReceivePayloadRoundTrips(t *testing.T) {
	payload := ReceivePayload("alice")
	got, err := Classify(context.Background(), payload, forbiddenScanner(t))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.Kind != KindInternalHandle || got.Handle != "alice" {
		t.Fatalf("receive payload did not round trip: %+v", got)
	}
}
