package sandbox

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/paypath/paypath/internal/api"
	"github.com/paypath/paypath/internal/money"
)

func (s *Server) handleScan(c *fiber.Ctx) error {
	if _, err := s.currentUser(c); err != nil {
		return err
	}
	var req struct {
		QrString string `json:"qrString"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed body")
	}
	decoded, ok := ParseBankQr(req.QrString)
	if !ok {
		return fiber.NewError(http.StatusUnprocessableEntity, "unrecognized QR")
	}
	return data(c, fiber.Map{
		"bankName":        decoded.BankName,
		"accountNumber":   decoded.AccountNumber,
		"beneficiaryName": decoded.BeneficiaryName,
		"amount":          decoded.Amount,
	})
}

// fiatToUnits converts a fiat amount to stablecoin base units at the
// configured rate, rounding half up.
func (s *Server) fiatToUnits(fiat int64) int64 {
	return (fiat*1_000_000 + s.cfg.FiatRate/2) / s.cfg.FiatRate
}

func (s *Server) unitsToFiat(units int64) int64 {
	return (units*s.cfg.FiatRate + 500_000) / 1_000_000
}

func (s *Server) handleQuote(c *fiber.Ctx) error {
	if _, err := s.currentUser(c); err != nil {
		return err
	}
	var req struct {
		Direction  string `json:"direction"`
		UsdcAmount string `json:"usdcAmount"`
		FiatAmount int64  `json:"fiatAmount"`
		Country    string `json:"country"`
		Token      string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed body")
	}

	var gross int64
	switch {
	case req.UsdcAmount != "":
		units, err := money.Parse(req.UsdcAmount, money.StablecoinDecimals)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid usdc amount")
		}
		gross = units
	case req.FiatAmount > 0:
		gross = s.fiatToUnits(req.FiatAmount)
	default:
		return fiber.NewError(http.StatusBadRequest, "amount required")
	}

	fee := money.Fee(gross, s.cfg.FeeNum, s.cfg.FeeDen)
	return data(c, fiber.Map{
		"success":        true,
		"direction":      req.Direction,
		"fiatCurrency":   "VND",
		"fiatAmount":     s.unitsToFiat(gross),
		"cryptoCurrency": "USDC",
		"usdcAmount":     money.Format(gross, money.StablecoinDecimals),
		"exchangeRate":   s.cfg.FiatRate,
		"feeAmount":      money.Format(fee, money.StablecoinDecimals),
		"feeRate":        float64(s.cfg.FeeNum) / float64(s.cfg.FeeDen),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCreateOrder(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req struct {
		QrString           string      `json:"qrString"`
		UsdcAmount         json.Number `json:"usdcAmount"`
		PayerWalletAddress string      `json:"payerWalletAddress"`
		ClientRequestID    string      `json:"clientRequestId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed body")
	}
	decoded, ok := ParseBankQr(req.QrString)
	if !ok {
		return fiber.NewError(http.StatusUnprocessableEntity, "unrecognized bank QR")
	}
	gross, err := money.Parse(req.UsdcAmount.String(), money.StablecoinDecimals)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid usdc amount")
	}

	fee := money.Fee(gross, s.cfg.FeeNum, s.cfg.FeeDen)
	now := time.Now().UTC()
	order := Order{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		Status:          api.OrderStatusAwaitingPayment,
		QrString:        req.QrString,
		BankName:        decoded.BankName,
		AccountNumber:   decoded.AccountNumber,
		BeneficiaryName: decoded.BeneficiaryName,
		UsdcUnits:       gross,
		FeeUnits:        fee,
		TotalUnits:      gross + fee,
		FiatAmount:      s.unitsToFiat(gross),
		FiatCurrency:    "VND",
		PayoutAddress:   s.cfg.TreasuryAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateOrder(c.UserContext(), order); err != nil {
		s.logger.Error("create order", "error", err)
		return fiber.NewError(http.StatusInternalServerError, "order creation failed")
	}
	s.logger.Info("order created", "order", order.ID, "bank", order.BankName, "fiat", order.FiatAmount)
	return data(c, s.orderJSON(order))
}

func (s *Server) orderJSON(o Order) fiber.Map {
	return fiber.Map{
		"id":     o.ID,
		"status": o.Status,
		"exchangeInfo": fiber.Map{
			"cryptoAmount":   money.Format(o.UsdcUnits, money.StablecoinDecimals),
			"fiatAmount":     o.FiatAmount,
			"fiatCurrency":   o.FiatCurrency,
			"cryptoCurrency": "USDC",
			"exchangeRate":   s.cfg.FiatRate,
			"feeAmount":      money.Format(o.FeeUnits, money.StablecoinDecimals),
		},
		"paymentInstruction": fiber.Map{
			"toAddress":      o.PayoutAddress,
			"coinType":       "usdc",
			"totalCrypto":    money.Format(o.TotalUnits, money.StablecoinDecimals),
			"totalCryptoRaw": formatRaw(o.TotalUnits),
			"totalPayout":    o.FiatAmount,
		},
		"payout": fiber.Map{"fiatCurrency": o.FiatCurrency},
	}
}

func formatRaw(units int64) string {
	return strconv.FormatInt(units, 10)
}

func (s *Server) loadOrder(c *fiber.Ctx) (Order, error) {
	user, err := s.currentUser(c)
	if err != nil {
		return Order{}, err
	}
	order, err := s.store.OrderByID(c.UserContext(), c.Params("id"))
	if errors.Is(err, ErrNotFound) || (err == nil && order.UserID != user.ID) {
		return Order{}, fiber.NewError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return Order{}, fiber.NewError(http.StatusInternalServerError, "order read failed")
	}
	return order, nil
}

func (s *Server) handleGetOrder(c *fiber.Ctx) error {
	order, err := s.loadOrder(c)
	if err != nil {
		return err
	}
	// A confirmed order settles after a configured number of status reads,
	// which exercises the client's polling loop end to end.
	if order.Status == api.OrderStatusProcessing {
		order.Polls++
		if order.Polls >= s.cfg.SettleAfterPolls {
			order.Status = api.OrderStatusCompleted
		}
		if err := s.store.UpdateOrder(c.UserContext(), order); err != nil {
			s.logger.Warn("advance order", "order", order.ID, "error", err)
		}
	}
	return data(c, s.orderJSON(order))
}

func (s *Server) handleConfirmOrder(c *fiber.Ctx) error {
	order, err := s.loadOrder(c)
	if err != nil {
		return err
	}
	var req struct {
		UserPaymentTxDigest string `json:"userPaymentTxDigest"`
	}
	if err := c.BodyParser(&req); err != nil || req.UserPaymentTxDigest == "" {
		return fiber.NewError(http.StatusBadRequest, "transaction digest required")
	}
	switch order.Status {
	case api.OrderStatusCreated, api.OrderStatusAwaitingPayment:
	default:
		return fiber.NewError(http.StatusConflict, "order not awaiting payment")
	}
	order.Status = api.OrderStatusProcessing
	order.PaymentDigest = req.UserPaymentTxDigest
	if err := s.store.UpdateOrder(c.UserContext(), order); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "order update failed")
	}
	s.logger.Info("order payment confirmed", "order", order.ID, "digest", req.UserPaymentTxDigest)
	return data(c, s.orderJSON(order))
}

func (s *Server) handleSyncOrder(c *fiber.Ctx) error {
	order, err := s.loadOrder(c)
	if err != nil {
		return err
	}
	// Sync reconciles against the payout rail; in the sandbox that settles a
	// processing order immediately.
	if order.Status == api.OrderStatusProcessing {
		order.Status = api.OrderStatusCompleted
		if err := s.store.UpdateOrder(c.UserContext(), order); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "order update failed")
		}
	}
	return data(c, s.orderJSON(order))
}
