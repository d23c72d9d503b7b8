package api

import (
	"context"
	"net/http"
	"net/url"
)

// KycLink is the hosted verification flow for the current user.
type KycLink struct {
	URL     string `json:"url,omitempty"`
	KycLink string `json:"kycLink,omitempty"`
}

// Link returns whichever link field the backend populated.
func (k KycLink) Link() string {
	if k.URL != "" {
		return k.URL
	}
	return k.KycLink
}

// KycStatus is the verification state bound to a wallet address.
type KycStatus struct {
	KycStatus     string `json:"kycStatus"`
	UserID        string `json:"userId,omitempty"`
	Username      string `json:"username,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	CanTransfer   bool   `json:"canTransfer,omitempty"`
}

// GetKycLink requests a hosted KYC flow link for the wallet address.
func (c *Client) GetKycLink(ctx context.Context, walletAddress string) (KycLink, error) {
	var out KycLink
	body := map[string]string{"walletAddress": walletAddress}
	err := c.do(ctx, http.MethodPost, "/kyc/get-link", nil, body, &out)
	return out, err
}

// GetKycStatus reads the verification state for the wallet address.
func (c *Client) GetKycStatus(ctx context.Context, walletAddress string) (KycStatus, error) {
	var out KycStatus
	q := url.Values{"walletAddress": {walletAddress}}
	err := c.do(ctx, http.MethodGet, "/kyc/status", q, nil, &out)
	return out, err
}
