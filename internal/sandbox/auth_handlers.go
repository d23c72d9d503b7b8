package sandbox

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/paypath/paypath/internal/auth"
	"github.com/paypath/paypath/internal/wallet"
)

func (s *Server) handleChallenge(c *fiber.Ctx) error {
	address := c.Query("address")
	if !wallet.IsValidAddress(address) {
		return fiber.NewError(http.StatusBadRequest, "invalid address")
	}
	nonce, expiresAt, err := s.nonces.Issue(c.UserContext(), address)
	if err != nil {
		s.logger.Error("issue challenge", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "challenge unavailable")
	}
	return data(c, fiber.Map{
		"nonce":     nonce,
		"expiresAt": expiresAt.Format(time.RFC3339),
		"domain":    s.cfg.Domain,
	})
}

type verifyRequest struct {
	Address        string `json:"address"`
	Domain         string `json:"domain"`
	Nonce          string `json:"nonce"`
	IssuedAt       string `json:"issuedAt"`
	ExpirationTime string `json:"expirationTime"`
	Statement      string `json:"statement"`
	Message        string `json:"message"`
	Signature      string `json:"signature"`
}

func (s *Server) handleVerify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed body")
	}
	if !wallet.IsValidAddress(req.Address) {
		return fiber.NewError(http.StatusBadRequest, "invalid address")
	}

	if exp, err := time.Parse(time.RFC3339, req.ExpirationTime); err != nil || time.Now().UTC().After(exp) {
		return fiber.NewError(http.StatusUnauthorized, "message expired")
	}

	domain := req.Domain
	if domain == "" {
		domain = s.cfg.Domain
	}
	expected := auth.BuildMessage(domain, req.Address, req.Statement, req.Nonce, req.IssuedAt, req.ExpirationTime)
	if req.Message != expected {
		return fiber.NewError(http.StatusUnauthorized, "message mismatch")
	}

	signer, err := wallet.VerifyPersonalMessage([]byte(req.Message), req.Signature)
	if err != nil || signer != req.Address {
		return fiber.NewError(http.StatusUnauthorized, "signature verification failed")
	}

	// A nonce is single use; spend it only after the signature checks out so
	// a garbled submission does not burn the challenge.
	ok, err := s.nonces.Consume(c.UserContext(), req.Address, req.Nonce)
	if err != nil {
		s.logger.Error("consume challenge", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "challenge unavailable")
	}
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unknown or expired challenge")
	}

	var userID string
	if user, err := s.store.UserByAddress(c.UserContext(), req.Address); err == nil {
		userID = user.ID
	}
	token, err := MintToken(userID, req.Address, s.cfg.TokenTTL, []byte(s.cfg.JWTSecret))
	if err != nil {
		s.logger.Error("mint token", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "token unavailable")
	}
	return data(c, fiber.Map{"accessToken": token, "tokenType": "Bearer"})
}

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

type registerRequest struct {
	Username         string `json:"username"`
	WalletAddress    string `json:"walletAddress"`
	Email            string `json:"email"`
	ReferralUsername string `json:"referralUsername"`
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed body")
	}
	if !usernameRe.MatchString(req.Username) {
		return fiber.NewError(http.StatusBadRequest, "invalid username")
	}

	info := caller(c)
	if req.WalletAddress != info.address {
		return fiber.NewError(http.StatusForbidden, "address does not match session")
	}

	user := User{
		ID:            uuid.NewString(),
		Username:      req.Username,
		WalletAddress: req.WalletAddress,
		Email:         req.Email,
		KycStatus:     "none",
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreateUser(c.UserContext(), user); err != nil {
		if err == ErrConflict {
			return fiber.NewError(http.StatusConflict, "username or wallet already registered")
		}
		s.logger.Error("create user", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "registration failed")
	}

	// The primary wallet is linked as the first receiving method and made the
	// default.
	walletID := uuid.NewString()
	if err := s.store.AddWallet(c.UserContext(), LinkedWallet{
		ID:        walletID,
		UserID:    user.ID,
		Address:   user.WalletAddress,
		Chain:     "sui",
		Label:     "Primary",
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("link primary wallet", "error", err)
	} else if err := s.store.SetDefault(c.UserContext(), user.ID, DefaultChoice{WalletID: walletID, WalletType: "onchain"}); err != nil {
		s.logger.Warn("set default method", "error", err)
	}

	return data(c, fiber.Map{"userId": user.ID, "username": user.Username})
}
