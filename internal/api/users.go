package api

import (
	"context"
	"net/http"
	"net/url"
)

// Profile is the authenticated user's own record.
type Profile struct {
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	WalletAddress string `json:"walletAddress"`
	Email         string `json:"email,omitempty"`
	KycStatus     string `json:"kycStatus,omitempty"`
}

// ProfileUpdate carries the mutable profile fields.
type ProfileUpdate struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// LookupDefaultWallet is the receiving method of a looked-up user: either an
// on-chain wallet or an off-chain bank account.
type LookupDefaultWallet struct {
	ID            string `json:"id"`
	Type          string `json:"type"` // "onchain" or "offchain"
	Address       string `json:"address,omitempty"`
	Chain         string `json:"chain,omitempty"`
	BankName      string `json:"bankName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	AccountName   string `json:"accountName,omitempty"`
	QrString      string `json:"qrString,omitempty"`
}

// LookupUser is the public view of a user resolved by handle.
type LookupUser struct {
	UserID             string               `json:"userId"`
	Username           string               `json:"username"`
	WalletAddress      string               `json:"walletAddress"`
	KycStatus          string               `json:"kycStatus"`
	CanReceiveTransfer bool                 `json:"canReceiveTransfer"`
	DefaultWallet      *LookupDefaultWallet `json:"defaultWallet"`
}

// GetProfile reads the authenticated user's profile.
func (c *Client) GetProfile(ctx context.Context) (Profile, error) {
	var out Profile
	err := c.do(ctx, http.MethodGet, "/users/profile", nil, nil, &out)
	return out, err
}

// UpdateProfile patches the authenticated user's profile.
func (c *Client) UpdateProfile(ctx context.Context, req ProfileUpdate) error {
	return c.do(ctx, http.MethodPatch, "/users/profile", nil, req, nil)
}

// CheckUsername reports whether a handle is still available.
func (c *Client) CheckUsername(ctx context.Context, username string) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	q := url.Values{"username": {username}}
	err := c.do(ctx, http.MethodGet, "/users/check-username", q, nil, &out)
	return out.Available, err
}

// ChangeUsername replaces the authenticated user's handle.
func (c *Client) ChangeUsername(ctx context.Context, newUsername string) error {
	body := map[string]string{"newUsername": newUsername}
	return c.do(ctx, http.MethodPatch, "/users/profile/username", nil, body, nil)
}

// LookupUser resolves a handle to a user, or (nil, nil) when no user exists.
func (c *Client) LookupUser(ctx context.Context, username string) (*LookupUser, error) {
	var out LookupUser
	q := url.Values{"username": {username}}
	err := c.do(ctx, http.MethodGet, "/users/lookup", q, nil, &out)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
