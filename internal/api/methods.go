package api

import (
	"context"
	"net/http"
)

// OnchainWallet is a linked on-chain wallet.
type OnchainWallet struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	Chain     string `json:"chain,omitempty"`
	Label     string `json:"label,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// AddOnchainWalletRequest links a new on-chain wallet.
type AddOnchainWalletRequest struct {
	Address        string `json:"address"`
	Chain          string `json:"chain"`
	Label          string `json:"label,omitempty"`
	WalletProvider string `json:"walletProvider,omitempty"`
	PublicKey      string `json:"publicKey,omitempty"`
}

// OffchainBank is a linked bank account.
type OffchainBank struct {
	ID              string `json:"id"`
	BankName        string `json:"bankName"`
	AccountNumber   string `json:"accountNumber"`
	BeneficiaryName string `json:"beneficiaryName"`
	Label           string `json:"label,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
}

// OffchainBankList is the envelope the bank listing endpoint returns.
type OffchainBankList struct {
	Total int            `json:"total"`
	Banks []OffchainBank `json:"banks"`
}

// AddOffchainBankRequest links a bank account from a scanned bank QR.
type AddOffchainBankRequest struct {
	QrString string `json:"qrString"`
	Label    string `json:"label,omitempty"`
}

// DefaultMethod is the user's chosen inbound payment method. A zero WalletID
// means no default is set.
type DefaultMethod struct {
	WalletID      string `json:"walletId"`
	WalletType    string `json:"walletType"` // "onchain" or "offchain"
	Address       string `json:"address,omitempty"`
	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	AccountName   string `json:"accountName,omitempty"`
}

// Present reports whether a default method is set.
func (m DefaultMethod) Present() bool {
	return m.WalletID != "" && m.WalletType != ""
}

// SetDefaultMethodRequest selects a linked method as the default.
type SetDefaultMethodRequest struct {
	WalletID   string `json:"walletId"`
	WalletType string `json:"walletType"`
}

// ListOnchainWallets returns the user's linked on-chain wallets.
func (c *Client) ListOnchainWallets(ctx context.Context) ([]OnchainWallet, error) {
	var out []OnchainWallet
	err := c.do(ctx, http.MethodGet, "/wallet/onchain", nil, nil, &out)
	return out, err
}

// AddOnchainWallet links an on-chain wallet.
func (c *Client) AddOnchainWallet(ctx context.Context, req AddOnchainWalletRequest) error {
	return c.do(ctx, http.MethodPost, "/wallet/onchain/add", nil, req, nil)
}

// DeleteOnchainWallet removes a linked on-chain wallet.
func (c *Client) DeleteOnchainWallet(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/wallet/onchain/"+id, nil, nil, nil)
}

// ListOffchainBanks returns the user's linked bank accounts.
func (c *Client) ListOffchainBanks(ctx context.Context) (OffchainBankList, error) {
	var out OffchainBankList
	err := c.do(ctx, http.MethodGet, "/wallet/offchain", nil, nil, &out)
	return out, err
}

// AddOffchainBankByQr links a bank account decoded from a bank QR.
func (c *Client) AddOffchainBankByQr(ctx context.Context, req AddOffchainBankRequest) error {
	return c.do(ctx, http.MethodPost, "/wallet/offchain/add", nil, req, nil)
}

// DeleteOffchainBank removes a linked bank account.
func (c *Client) DeleteOffchainBank(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/wallet/offchain/"+id, nil, nil, nil)
}

// GetDefaultMethod reads the user's default receiving method.
func (c *Client) GetDefaultMethod(ctx context.Context) (DefaultMethod, error) {
	var out DefaultMethod
	err := c.do(ctx, http.MethodGet, "/payment-methods/default", nil, nil, &out)
	return out, err
}

// SetDefaultMethod selects a linked method as the default.
func (c *Client) SetDefaultMethod(ctx context.Context, req SetDefaultMethodRequest) error {
	return c.do(ctx, http.MethodPost, "/payment-methods/default", nil, req, nil)
}
