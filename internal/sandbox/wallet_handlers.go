package sandbox

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/paypath/paypath/internal/wallet"
)

func walletJSON(w LinkedWallet) fiber.Map {
	return fiber.Map{
		"id":        w.ID,
		"address":   w.Address,
		"chain":     w.Chain,
		"label":     w.Label,
		"createdAt": w.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func bankJSON(b LinkedBank) fiber.Map {
	return fiber.Map{
		"id":              b.ID,
		"bankName":        b.BankName,
		"accountNumber":   b.AccountNumber,
		"beneficiaryName": b.BeneficiaryName,
		"label":           b.Label,
		"createdAt":       b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListWallets(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	wallets, err := s.store.ListWallets(c.UserContext(), user.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "list failed")
	}
	out := make([]fiber.Map, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, walletJSON(w))
	}
	return data(c, out)
}

func (s *Server) handleAddWallet(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req struct {
		Address string `json:"address"`
		Chain   string `json:"chain"`
		Label   string `json:"label"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed body")
	}
	if !wallet.IsValidAddress(req.Address) {
		return fiber.NewError(http.StatusBadRequest, "invalid address")
	}
	linked := LinkedWallet{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Address:   req.Address,
		Chain:     req.Chain,
		Label:     req.Label,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AddWallet(c.UserContext(), linked); err != nil {
		if errors.Is(err, ErrConflict) {
			return fiber.NewError(http.StatusConflict, "wallet already linked")
		}
		return fiber.NewError(http.StatusInternalServerError, "link failed")
	}
	return data(c, walletJSON(linked))
}

func (s *Server) handleDeleteWallet(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	if err := s.store.DeleteWallet(c.UserContext(), user.ID, c.Params("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, "delete failed")
	}
	return data(c, fiber.Map{"deleted": true})
}

func (s *Server) handleListBanks(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	banks, err := s.store.ListBanks(c.UserContext(), user.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "list failed")
	}
	out := make([]fiber.Map, 0, len(banks))
	for _, b := range banks {
		out = append(out, bankJSON(b))
	}
	return data(c, fiber.Map{"total": len(out), "banks": out})
}

func (s *Server) handleAddBank(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req struct {
		QrString string `json:"qrString"`
		Label    string `json:"label"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed body")
	}
	decoded, ok := ParseBankQr(req.QrString)
	if !ok {
		return fiber.NewError(http.StatusUnprocessableEntity, "unrecognized bank QR")
	}
	linked := LinkedBank{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		BankName:        decoded.BankName,
		AccountNumber:   decoded.AccountNumber,
		BeneficiaryName: decoded.BeneficiaryName,
		Label:           req.Label,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.AddBank(c.UserContext(), linked); err != nil {
		if errors.Is(err, ErrConflict) {
			return fiber.NewError(http.StatusConflict, "bank already linked")
		}
		return fiber.NewError(http.StatusInternalServerError, "link failed")
	}
	return data(c, bankJSON(linked))
}

func (s *Server) handleDeleteBank(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBank(c.UserContext(), user.ID, c.Params("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "bank not found")
		}
		return fiber.NewError(http.StatusInternalServerError, "delete failed")
	}
	return data(c, fiber.Map{"deleted": true})
}

func (s *Server) handleGetDefault(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	choice, err := s.store.GetDefault(c.UserContext(), user.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "read failed")
	}
	out := fiber.Map{"walletId": choice.WalletID, "walletType": choice.WalletType}
	switch choice.WalletType {
	case "onchain":
		wallets, err := s.store.ListWallets(c.UserContext(), user.ID)
		if err == nil {
			for _, w := range wallets {
				if w.ID == choice.WalletID {
					out["address"] = w.Address
				}
			}
		}
	case "offchain":
		banks, err := s.store.ListBanks(c.UserContext(), user.ID)
		if err == nil {
			for _, b := range banks {
				if b.ID == choice.WalletID {
					out["bankName"] = b.BankName
					out["accountNumber"] = b.AccountNumber
					out["accountName"] = b.BeneficiaryName
				}
			}
		}
	}
	return data(c, out)
}

func (s *Server) handleSetDefault(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req struct {
		WalletID   string `json:"walletId"`
		WalletType string `json:"walletType"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed body")
	}

	// The chosen id must reference a linked method of the matching type.
	switch req.WalletType {
	case "onchain":
		wallets, err := s.store.ListWallets(c.UserContext(), user.ID)
		if err != nil || !containsWallet(wallets, req.WalletID) {
			return fiber.NewError(http.StatusBadRequest, "unknown wallet")
		}
	case "offchain":
		banks, err := s.store.ListBanks(c.UserContext(), user.ID)
		if err != nil || !containsBank(banks, req.WalletID) {
			return fiber.NewError(http.StatusBadRequest, "unknown bank")
		}
	default:
		return fiber.NewError(http.StatusBadRequest, "invalid wallet type")
	}

	if err := s.store.SetDefault(c.UserContext(), user.ID, DefaultChoice{WalletID: req.WalletID, WalletType: req.WalletType}); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "update failed")
	}
	return data(c, fiber.Map{"walletId": req.WalletID, "walletType": req.WalletType})
}

func containsWallet(list []LinkedWallet, id string) bool {
	for _, w := range list {
		if w.ID == id {
			return true
		}
	}
	return false
}

func containsBank(list []LinkedBank, id string) bool {
	for _, b := range list {
		if b.ID == id {
			return true
		}
	}
	return false
}
