package sandbox

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleProfile(c *fiber.Ctx) error {
	info := caller(c)
	if !info.registered() {
		// A verified wallet with no account yet: the client reads the empty
		// username as "onboarding required".
		return data(c, fiber.Map{"userId": "", "username": "", "walletAddress": info.address})
	}
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	return data(c, fiber.Map{
		"userId":        user.ID,
		"username":      user.Username,
		"walletAddress": user.WalletAddress,
		"email":         user.Email,
		"kycStatus":     user.KycStatus,
	})
}

func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed body")
	}
	if req.Email != "" {
		if err := s.store.UpdateEmail(c.UserContext(), user.ID, req.Email); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "update failed")
		}
	}
	return data(c, fiber.Map{"updated": true})
}

func (s *Server) handleCheckUsername(c *fiber.Ctx) error {
	username := c.Query("username")
	if !usernameRe.MatchString(username) {
		return data(c, fiber.Map{"available": false})
	}
	_, err := s.store.UserByUsername(c.UserContext(), username)
	if errors.Is(err, ErrNotFound) {
		return data(c, fiber.Map{"available": true})
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "lookup failed")
	}
	return data(c, fiber.Map{"available": false})
}

func (s *Server) handleChangeUsername(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req struct {
		NewUsername string `json:"newUsername"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed body")
	}
	if !usernameRe.MatchString(req.NewUsername) {
		return fiber.NewError(http.StatusBadRequest, "invalid username")
	}
	if err := s.store.UpdateUsername(c.UserContext(), user.ID, req.NewUsername); err != nil {
		if errors.Is(err, ErrConflict) {
			return fiber.NewError(http.StatusConflict, "username taken")
		}
		return fiber.NewError(http.StatusInternalServerError, "update failed")
	}
	return data(c, fiber.Map{"username": req.NewUsername})
}

func (s *Server) handleLookup(c *fiber.Ctx) error {
	username := c.Query("username")
	user, err := s.store.UserByUsername(c.UserContext(), username)
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "lookup failed")
	}

	defaultWallet, walletAddress := s.lookupDefault(c, user)
	return data(c, fiber.Map{
		"userId":             user.ID,
		"username":           user.Username,
		"walletAddress":      walletAddress,
		"kycStatus":          user.KycStatus,
		"canReceiveTransfer": walletAddress != "" || defaultWallet != nil,
		"defaultWallet":      defaultWallet,
	})
}

// lookupDefault resolves the looked-up user's receiving method. The exposed
// walletAddress follows the default when it is on-chain, else falls back to
// the primary address.
func (s *Server) lookupDefault(c *fiber.Ctx, user User) (fiber.Map, string) {
	choice, err := s.store.GetDefault(c.UserContext(), user.ID)
	if err != nil || choice.WalletID == "" {
		return nil, user.WalletAddress
	}

	switch choice.WalletType {
	case "onchain":
		wallets, err := s.store.ListWallets(c.UserContext(), user.ID)
		if err != nil {
			return nil, user.WalletAddress
		}
		for _, w := range wallets {
			if w.ID == choice.WalletID {
				return fiber.Map{
					"id":      w.ID,
					"type":    "onchain",
					"address": w.Address,
					"chain":   w.Chain,
				}, w.Address
			}
		}
	case "offchain":
		banks, err := s.store.ListBanks(c.UserContext(), user.ID)
		if err != nil {
			return nil, user.WalletAddress
		}
		for _, b := range banks {
			if b.ID == choice.WalletID {
				return fiber.Map{
					"id":            b.ID,
					"type":          "offchain",
					"bankName":      b.BankName,
					"accountNumber": b.AccountNumber,
					"accountName":   b.BeneficiaryName,
					"qrString":      "bank://" + b.BankName + "/" + b.AccountNumber,
				}, user.WalletAddress
			}
		}
	}
	return nil, user.WalletAddress
}

func (s *Server) handleKycLink(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	if user.KycStatus == "none" {
		if err := s.store.UpdateKycStatus(c.UserContext(), user.ID, "pending"); err != nil {
			s.logger.Warn("advance kyc status", "error", err)
		}
	}
	return data(c, fiber.Map{"url": s.cfg.KycBaseURL + "/" + user.ID})
}

func (s *Server) handleKycStatus(c *fiber.Ctx) error {
	address := c.Query("walletAddress")
	user, err := s.store.UserByAddress(c.UserContext(), address)
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "lookup failed")
	}
	return data(c, fiber.Map{
		"kycStatus":     user.KycStatus,
		"userId":        user.ID,
		"username":      user.Username,
		"walletAddress": user.WalletAddress,
		"canTransfer":   user.KycStatus == "approved" || user.KycStatus == "none",
	})
}
