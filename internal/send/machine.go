// Package send drives the send flow: input, review, sending, then success or
// error. Transitions are serialized; while a send is in flight every other
// transition is ignored.
package send

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paypath/paypath/internal/account"
	"github.com/paypath/paypath/internal/api"
	"github.com/paypath/paypath/internal/money"
	"github.com/paypath/paypath/internal/recipient"
)

// Step enumerates the machine's states.
type Step int

const (
	StepInput Step = iota
	StepReview
	StepSending
	StepSuccess
	StepError
)

// String renders a Step for logs.
func (s Step) String() string {
	switch s {
	case StepInput:
		return "input"
	case StepReview:
		return "review"
	case StepSending:
		return "sending"
	case StepSuccess:
		return "success"
	case StepError:
		return "error"
	}
	return "unknown"
}

// Validation and execution failures. The first group is user-correctable; the
// second is terminal for the attempt but the user may start a new send.
var (
	ErrNoRecipient         = errors.New("Recipient is required")
	ErrInvalidAmount       = errors.New("Invalid amount")
	ErrInsufficientBalance = errors.New("Insufficient USDC balance")
	ErrInsufficientGas     = errors.New("Not enough SUI for gas fees")

	ErrQuoteUnavailable    = errors.New("quote unavailable")
	ErrOrderCreateFailed   = errors.New("order creation failed")
	ErrOnchainSubmitFailed = errors.New("on-chain transfer failed")
	ErrOrderConfirmFailed  = errors.New("order confirmation failed")
	ErrOrderTimeout        = errors.New("order did not settle in time")
)

// Quote is the cost of the pending send. For the internal path it is computed
// locally; for the external path the backend's numbers replace it.
type Quote struct {
	GrossUnits   int64
	FeeUnits     int64
	TotalUnits   int64
	Currency     string
	FiatAmount   int64
	FiatCurrency string
	External     bool
}

// Backend is the slice of the API client the machine needs.
type Backend interface {
	PaymentsQuote(ctx context.Context, req api.QuoteRequest) (api.QuoteResponse, error)
	CreatePaymentOrder(ctx context.Context, req api.CreateOrderRequest) (api.Order, error)
	GetPaymentOrder(ctx context.Context, orderID string) (api.Order, error)
	ConfirmPaymentOrder(ctx context.Context, orderID, txDigest string) (api.Order, error)
	SyncPaymentOrder(ctx context.Context, orderID string) (api.Order, error)
}

// Accounts is the slice of the account model the machine needs.
type Accounts interface {
	Address() string
	Snapshot() account.Snapshot
	SendStablecoin(ctx context.Context, to string, amountUnits int64, counterparty string) (string, error)
}

// Snapshot is a point-in-time copy of the machine for observers.
type Snapshot struct {
	Step           Step
	RecipientInput string
	Resolved       *recipient.Resolved
	AmountInput    string
	Quote          Quote
	Err            error
	Digest         string
	OrderID        string
}

// Machine owns one send attempt at a time.
type Machine struct {
	backend       Backend
	account       Accounts
	minGasReserve int64
	feeNum        int64
	feeDen        int64
	country       string
	token         string
	pollDeadline  time.Duration
	logger        *slog.Logger
	sleep         func(ctx context.Context, d time.Duration) error

	mu              sync.Mutex
	step            Step
	recipientInput  string
	resolved        *recipient.Resolved
	qrString        string
	amountInput     string
	amountSuggested bool
	sourceMethod    string
	quote           Quote
	lastErr         error
	digest          string
	orderID         string
	nextSub         int
	subs            map[int]func(Snapshot)
}

// Option tweaks machine construction.
type Option func(*Machine)

// WithPollDeadline overrides the order polling deadline.
func WithPollDeadline(d time.Duration) Option {
	return func(m *Machine) { m.pollDeadline = d }
}

// WithSleep replaces the polling sleep, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Machine) { m.sleep = fn }
}

// NewMachine builds a send machine. minGasReserve is the gas balance required
// before any send is allowed.
func NewMachine(backend Backend, acct Accounts, minGasReserve int64, logger *slog.Logger, opts ...Option) *Machine {
	m := &Machine{
		backend:       backend,
		account:       acct,
		minGasReserve: minGasReserve,
		feeNum:        2,
		feeDen:        1000,
		country:       "VN",
		token:         "USDC",
		pollDeadline:  60 * time.Second,
		logger:        logger,
		step:          StepInput,
		subs:          make(map[int]func(Snapshot)),
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot copies the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers an observer and returns its unsubscribe function.
func (m *Machine) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// SetRecipientInput records the typed recipient. Typing does not displace a
// loaded QR context; applying a fresh resolution does.
func (m *Machine) SetRecipientInput(input string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepInput {
		return
	}
	m.recipientInput = input
	m.notifyLocked()
}

// ApplyResolved installs the outcome of resolving the typed recipient.
func (m *Machine) ApplyResolved(res recipient.Resolved) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepInput {
		return
	}
	m.resolved = &res
	m.qrString = ""
	m.notifyLocked()
}

// LoadQr installs a QR-derived destination. A QR match overrides any
// previously typed recipient, and a bank QR's suggested amount pre-fills the
// amount field when the user has not typed one.
func (m *Machine) LoadQr(raw string, res recipient.Resolved) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepInput {
		return
	}
	m.resolved = &res
	m.recipientInput = res.DisplayName
	m.qrString = ""
	if res.Kind == recipient.KindExternalBank {
		m.qrString = raw
		if res.Bank != nil && res.Bank.Amount > 0 && (m.amountInput == "" || m.amountSuggested) {
			// Pre-fill with the QR's fiat amount so observers see it; the
			// suggested flag keeps the quote on the fiat leg until the user
			// types over it.
			m.amountInput = strconv.FormatInt(res.Bank.Amount, 10)
			m.amountSuggested = true
		}
	}
	m.notifyLocked()
}

// ClearRecipient resets the destination, the QR context and any suggested
// amount.
func (m *Machine) ClearRecipient() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepInput {
		return
	}
	m.recipientInput = ""
	m.resolved = nil
	m.qrString = ""
	if m.amountSuggested {
		m.amountInput = ""
		m.amountSuggested = false
	}
	m.notifyLocked()
}

// SetAmount records the typed amount.
func (m *Machine) SetAmount(amount string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepInput {
		return
	}
	m.amountInput = amount
	m.amountSuggested = false
	m.notifyLocked()
}

// SelectSource records the chosen source payment method.
func (m *Machine) SelectSource(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepInput {
		return
	}
	m.sourceMethod = method
	m.notifyLocked()
}

// Validate checks the input and, on success, moves to review with a computed
// quote. Calls outside the input step are ignored.
func (m *Machine) Validate(ctx context.Context) error {
	m.mu.Lock()
	if m.step != StepInput {
		m.mu.Unlock()
		return nil
	}
	res := m.resolved
	amountInput := m.amountInput
	suggested := m.amountSuggested
	m.mu.Unlock()

	external := res != nil && res.Kind == recipient.KindExternalBank
	if !external {
		if res == nil || (res.Kind != recipient.KindInternalHandle && res.Kind != recipient.KindInternalAddress) {
			return m.fail(ErrNoRecipient)
		}
	}

	quote, err := m.buildQuote(ctx, res, amountInput, suggested, external)
	if err != nil {
		return m.fail(err)
	}

	snap := m.account.Snapshot()
	if quote.GrossUnits > snap.StablecoinUnits {
		return m.fail(ErrInsufficientBalance)
	}
	if snap.GasUnits < m.minGasReserve {
		return m.fail(ErrInsufficientGas)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepInput {
		return nil
	}
	m.quote = quote
	m.amountInput = money.Format(quote.GrossUnits, money.StablecoinDecimals)
	m.lastErr = nil
	m.step = StepReview
	m.notifyLocked()
	return nil
}

func (m *Machine) buildQuote(ctx context.Context, res *recipient.Resolved, amountInput string, suggested bool, external bool) (Quote, error) {
	if !external {
		gross, err := money.Parse(amountInput, money.StablecoinDecimals)
		if err != nil {
			return Quote{}, ErrInvalidAmount
		}
		fee := money.Fee(gross, m.feeNum, m.feeDen)
		return Quote{
			GrossUnits: gross,
			FeeUnits:   fee,
			TotalUnits: gross + fee,
			Currency:   m.token,
		}, nil
	}

	req := api.QuoteRequest{Country: m.country, Token: m.token}
	switch {
	case amountInput != "" && !suggested:
		gross, err := money.Parse(amountInput, money.StablecoinDecimals)
		if err != nil {
			return Quote{}, ErrInvalidAmount
		}
		req.Direction = "crypto_to_fiat"
		req.UsdcAmount = money.Format(gross, money.StablecoinDecimals)
	case res.Bank != nil && res.Bank.Amount > 0:
		req.Direction = "fiat_to_crypto"
		req.FiatAmount = res.Bank.Amount
	default:
		return Quote{}, ErrInvalidAmount
	}

	resp, err := m.backend.PaymentsQuote(ctx, req)
	if err != nil || !resp.Success {
		if err != nil {
			m.logger.Warn("external quote failed", "error", err)
		}
		return Quote{}, ErrQuoteUnavailable
	}

	gross, err := money.Parse(resp.UsdcAmount, money.StablecoinDecimals)
	if err != nil {
		return Quote{}, ErrQuoteUnavailable
	}
	fee, err := parseUnits(resp.FeeAmount.String())
	if err != nil {
		return Quote{}, ErrQuoteUnavailable
	}
	return Quote{
		GrossUnits:   gross,
		FeeUnits:     fee,
		TotalUnits:   gross + fee,
		Currency:     resp.CryptoCurrency,
		FiatAmount:   resp.FiatAmount,
		FiatCurrency: resp.FiatCurrency,
		External:     true,
	}, nil
}

// Edit returns to input from review or error, keeping what was typed.
func (m *Machine) Edit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepReview && m.step != StepError {
		return
	}
	m.step = StepInput
	m.lastErr = nil
	m.notifyLocked()
}

// Confirm executes the reviewed send. It is one-shot: only the review step
// accepts it, and a second call while sending, or after success, is ignored.
func (m *Machine) Confirm(ctx context.Context) error {
	m.mu.Lock()
	if m.step != StepReview {
		m.mu.Unlock()
		return nil
	}
	m.step = StepSending
	res := *m.resolved
	quote := m.quote
	qrString := m.qrString
	m.notifyLocked()
	m.mu.Unlock()

	var (
		digest  string
		orderID string
		err     error
	)
	if res.Kind == recipient.KindExternalBank {
		digest, orderID, err = m.sendExternal(ctx, res, quote, qrString)
	} else {
		digest, err = m.sendInternal(ctx, res, quote)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.step = StepError
		m.lastErr = err
		m.notifyLocked()
		return err
	}
	m.step = StepSuccess
	m.digest = digest
	m.orderID = orderID
	m.lastErr = nil
	m.notifyLocked()
	return nil
}

func (m *Machine) sendInternal(ctx context.Context, res recipient.Resolved, quote Quote) (string, error) {
	counterparty := res.DisplayName
	digest, err := m.account.SendStablecoin(ctx, res.Address, quote.GrossUnits, counterparty)
	if err != nil {
		m.logger.Warn("internal send failed", "to", res.Address, "error", err)
		return "", ErrOnchainSubmitFailed
	}
	m.logger.Info("internal send complete", "to", res.Address, "digest", digest)
	return digest, nil
}

func (m *Machine) sendExternal(ctx context.Context, res recipient.Resolved, quote Quote, qrString string) (string, string, error) {
	order, err := m.backend.CreatePaymentOrder(ctx, api.CreateOrderRequest{
		QrString:           qrString,
		UsdcAmount:         jsonNumber(money.Format(quote.GrossUnits, money.StablecoinDecimals)),
		PayerWalletAddress: m.account.Address(),
		Country:            m.country,
		ClientRequestID:    uuid.NewString(),
	})
	if err != nil {
		m.logger.Warn("order create failed", "error", err)
		return "", "", ErrOrderCreateFailed
	}

	totalUnits, err := strconv.ParseInt(order.PaymentInstruction.TotalCryptoRaw, 10, 64)
	if err != nil || totalUnits <= 0 {
		return "", order.ID, ErrOrderCreateFailed
	}

	counterparty := res.DisplayName
	digest, err := m.account.SendStablecoin(ctx, order.PaymentInstruction.ToAddress, totalUnits, counterparty)
	if err != nil {
		m.logger.Warn("order payment failed", "order", order.ID, "error", err)
		return "", order.ID, ErrOnchainSubmitFailed
	}

	if _, err := m.backend.ConfirmPaymentOrder(ctx, order.ID, digest); err != nil {
		m.logger.Warn("order confirm failed", "order", order.ID, "error", err)
		return digest, order.ID, ErrOrderConfirmFailed
	}

	final, err := m.pollOrder(ctx, order.ID)
	if err != nil {
		return digest, order.ID, err
	}
	if !final.Succeeded() {
		m.logger.Warn("order ended unsuccessfully", "order", order.ID, "status", final.Status)
		return digest, order.ID, ErrOrderConfirmFailed
	}
	return digest, order.ID, nil
}

func (m *Machine) fail(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepInput {
		return nil
	}
	m.lastErr = err
	m.notifyLocked()
	return err
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		Step:           m.step,
		RecipientInput: m.recipientInput,
		Resolved:       m.resolved,
		AmountInput:    m.amountInput,
		Quote:          m.quote,
		Err:            m.lastErr,
		Digest:         m.digest,
		OrderID:        m.orderID,
	}
}

func (m *Machine) notifyLocked() {
	snapshot := m.snapshotLocked()
	for _, fn := range m.subs {
		fn(snapshot)
	}
}
