package api

import (
	"context"
	"net/http"
	"net/url"
)

// ChallengeResponse is the single-use login challenge issued for an address.
type ChallengeResponse struct {
	Nonce     string `json:"nonce"`
	ExpiresAt string `json:"expiresAt"`
	Domain    string `json:"domain"`
}

// VerifyRequest carries the signed authentication message back to the backend.
type VerifyRequest struct {
	Address        string `json:"address"`
	Domain         string `json:"domain,omitempty"`
	Nonce          string `json:"nonce"`
	IssuedAt       string `json:"issuedAt"`
	ExpirationTime string `json:"expirationTime"`
	Statement      string `json:"statement,omitempty"`
	Message        string `json:"message"`
	Signature      string `json:"signature"`
}

// VerifyResponse is the bearer pair issued on a valid signature.
type VerifyResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

// RegisterRequest creates a user bound to a wallet address.
type RegisterRequest struct {
	Username         string `json:"username"`
	WalletAddress    string `json:"walletAddress"`
	Email            string `json:"email,omitempty"`
	ReferralUsername string `json:"referralUsername,omitempty"`
}

// Challenge requests a fresh login challenge for the address.
func (c *Client) Challenge(ctx context.Context, address string) (ChallengeResponse, error) {
	var out ChallengeResponse
	q := url.Values{"address": {address}}
	err := c.do(ctx, http.MethodGet, "/auth/challenge", q, nil, &out)
	return out, err
}

// Verify submits the signed challenge and returns the session pair.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, error) {
	var out VerifyResponse
	err := c.do(ctx, http.MethodPost, "/auth/verify", nil, req, &out)
	return out, err
}

// Register creates the user account for a freshly authenticated wallet.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/auth/register", nil, req, nil)
}
