// Package sandbox is a self-contained PayPath backend for local development
// and end-to-end tests. It implements every endpoint the client speaks, with
// signature-verified login, an order lifecycle and pluggable persistence.
package sandbox

import (
	"context"
	"errors"
	"time"
)

// Store failures.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// User is a registered account bound to a wallet address.
type User struct {
	ID            string
	Username      string
	WalletAddress string
	Email         string
	KycStatus     string
	CreatedAt     time.Time
}

// LinkedWallet is an on-chain receiving method.
type LinkedWallet struct {
	ID        string
	UserID    string
	Address   string
	Chain     string
	Label     string
	CreatedAt time.Time
}

// LinkedBank is an off-chain receiving method.
type LinkedBank struct {
	ID              string
	UserID          string
	BankName        string
	AccountNumber   string
	BeneficiaryName string
	Label           string
	CreatedAt       time.Time
}

// DefaultChoice is the user's selected inbound method.
type DefaultChoice struct {
	WalletID   string
	WalletType string // "onchain" or "offchain"
}

// Order is a bank payout funded by an on-chain transfer.
type Order struct {
	ID              string
	UserID          string
	Status          string
	QrString        string
	BankName        string
	AccountNumber   string
	BeneficiaryName string
	UsdcUnits       int64
	FeeUnits        int64
	TotalUnits      int64
	FiatAmount      int64
	FiatCurrency    string
	PayoutAddress   string
	PaymentDigest   string
	Polls           int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Store persists users, linked methods and orders.
type Store interface {
	CreateUser(ctx context.Context, user User) error
	UserByID(ctx context.Context, id string) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	UserByAddress(ctx context.Context, address string) (User, error)
	UpdateUsername(ctx context.Context, id, username string) error
	UpdateEmail(ctx context.Context, id, email string) error
	UpdateKycStatus(ctx context.Context, id, status string) error

	AddWallet(ctx context.Context, w LinkedWallet) error
	ListWallets(ctx context.Context, userID string) ([]LinkedWallet, error)
	DeleteWallet(ctx context.Context, userID, id string) error

	AddBank(ctx context.Context, b LinkedBank) error
	ListBanks(ctx context.Context, userID string) ([]LinkedBank, error)
	DeleteBank(ctx context.Context, userID, id string) error

	SetDefault(ctx context.Context, userID string, choice DefaultChoice) error
	GetDefault(ctx context.Context, userID string) (DefaultChoice, error)

	CreateOrder(ctx context.Context, o Order) error
	OrderByID(ctx context.Context, id string) (Order, error)
	UpdateOrder(ctx context.Context, o Order) error
}
