package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// ScanResult is the backend decoding of an external bank QR. Amount is the
// suggested fiat amount; zero means the QR carries none.
type ScanResult struct {
	BankName        string `json:"bankName"`
	AccountNumber   string `json:"accountNumber"`
	BeneficiaryName string `json:"beneficiaryName"`
	Amount          int64  `json:"amount,omitempty"`
}

// ScanQr asks the backend to decode a QR payload. A QR the registry does not
// recognize yields (nil, nil).
func (c *Client) ScanQr(ctx context.Context, qrString string) (*ScanResult, error) {
	var out ScanResult
	body := map[string]string{"qrString": qrString}
	err := c.do(ctx, http.MethodPost, "/transfer/scan", nil, body, &out)
	if err != nil {
		if IsStatus(err, http.StatusUnprocessableEntity) || IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if out.BankName == "" || out.AccountNumber == "" {
		return nil, nil
	}
	return &out, nil
}

// QuoteRequest prices an external transfer. Exactly one of UsdcAmount or
// FiatAmount drives the quote.
type QuoteRequest struct {
	Direction  string `json:"direction"`
	UsdcAmount string `json:"usdcAmount,omitempty"`
	FiatAmount int64  `json:"fiatAmount,omitempty"`
	Country    string `json:"country"`
	Token      string `json:"token"`
}

// QuoteResponse is the backend's authoritative price for an external transfer.
type QuoteResponse struct {
	Success        bool        `json:"success"`
	Direction      string      `json:"direction"`
	FiatCurrency   string      `json:"fiatCurrency"`
	FiatAmount     int64       `json:"fiatAmount"`
	CryptoCurrency string      `json:"cryptoCurrency"`
	UsdcAmount     string      `json:"usdcAmount"`
	ExchangeRate   json.Number `json:"exchangeRate"`
	FeeAmount      json.Number `json:"feeAmount"`
	FeeRate        float64     `json:"feeRate"`
	Timestamp      string      `json:"timestamp"`
}

// CreateOrderRequest opens a payment order for a bank-QR transfer.
type CreateOrderRequest struct {
	QrString           string      `json:"qrString"`
	UsdcAmount         json.Number `json:"usdcAmount"`
	PayerWalletAddress string      `json:"payerWalletAddress"`
	FiatCurrency       string      `json:"fiatCurrency,omitempty"`
	Country            string      `json:"country,omitempty"`
	RecipientCountry   string      `json:"recipientCountry,omitempty"`
	ClientRequestID    string      `json:"clientRequestId,omitempty"`
}

// ExchangeInfo is the fiat/crypto breakdown of an order.
type ExchangeInfo struct {
	CryptoAmount   json.Number `json:"cryptoAmount"`
	FiatAmount     int64       `json:"fiatAmount"`
	FiatCurrency   string      `json:"fiatCurrency"`
	CryptoCurrency string      `json:"cryptoCurrency"`
	ExchangeRate   json.Number `json:"exchangeRate"`
	FeeAmount      json.Number `json:"feeAmount"`
}

// PaymentInstruction tells the payer what to transfer on-chain.
type PaymentInstruction struct {
	ToAddress      string      `json:"toAddress"`
	CoinType       string      `json:"coinType"`
	TotalCrypto    string      `json:"totalCrypto"`
	TotalCryptoRaw string      `json:"totalCryptoRaw"`
	TotalPayout    json.Number `json:"totalPayout"`
}

// Order is a payment order and its lifecycle status.
type Order struct {
	ID                 string             `json:"id"`
	Status             string             `json:"status"`
	ExchangeInfo       ExchangeInfo       `json:"exchangeInfo"`
	PaymentInstruction PaymentInstruction `json:"paymentInstruction"`
	Payout             struct {
		Username     string `json:"username,omitempty"`
		FiatCurrency string `json:"fiatCurrency"`
	} `json:"payout"`
}

// Order lifecycle statuses the client reacts to. The backend owns the full
// set; anything not recognized here is treated as still in flight.
const (
	OrderStatusCreated         = "created"
	OrderStatusAwaitingPayment = "awaiting_payment"
	OrderStatusProcessing      = "processing"
	OrderStatusCompleted       = "completed"
	OrderStatusFailed          = "failed"
	OrderStatusRefunded        = "refunded"
	OrderStatusExpired         = "expired"
)

// Terminal reports whether the order reached a final status.
func (o Order) Terminal() bool {
	switch o.Status {
	case OrderStatusCompleted, OrderStatusFailed, OrderStatusRefunded, OrderStatusExpired:
		return true
	}
	return false
}

// Succeeded reports whether the order completed successfully.
func (o Order) Succeeded() bool {
	return o.Status == OrderStatusCompleted
}

// PaymentsQuote prices an external transfer.
func (c *Client) PaymentsQuote(ctx context.Context, req QuoteRequest) (QuoteResponse, error) {
	var out QuoteResponse
	err := c.do(ctx, http.MethodPost, "/payments/quote", nil, req, &out)
	return out, err
}

// CreatePaymentOrder opens an order and returns its payment instruction.
func (c *Client) CreatePaymentOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	var out Order
	err := c.do(ctx, http.MethodPost, "/payments/orders", nil, req, &out)
	return out, err
}

// GetPaymentOrder reads an order by id.
func (c *Client) GetPaymentOrder(ctx context.Context, orderID string) (Order, error) {
	var out Order
	err := c.do(ctx, http.MethodGet, "/payments/orders/"+orderID, nil, nil, &out)
	return out, err
}

// ConfirmPaymentOrder reports the payer's on-chain transaction digest.
func (c *Client) ConfirmPaymentOrder(ctx context.Context, orderID, txDigest string) (Order, error) {
	var out Order
	body := map[string]string{"userPaymentTxDigest": txDigest}
	err := c.do(ctx, http.MethodPost, "/payments/orders/"+orderID+"/confirm-user-payment", nil, body, &out)
	return out, err
}

// SyncPaymentOrder asks the backend to refresh the order against its payout
// rail and returns the updated order.
func (c *Client) SyncPaymentOrder(ctx context.Context, orderID string) (Order, error) {
	var out Order
	err := c.do(ctx, http.MethodPost, "/payments/orders/"+orderID+"/sync", nil, nil, &out)
	return out, err
}
