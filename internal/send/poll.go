package send

import (
	"context"
	"time"

	"github.com/paypath/paypath/internal/api"
)

const (
	pollInitialBackoff = time.Second
	pollMaxBackoff     = 8 * time.Second
)

// pollOrder reads the order until it reaches a terminal status or the overall
// deadline passes. Backoff doubles from 1s and caps at 8s. Just before giving
// up it asks the backend to sync against the payout rail once.
func (m *Machine) pollOrder(ctx context.Context, orderID string) (api.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, m.pollDeadline)
	defer cancel()

	backoff := pollInitialBackoff
	for {
		order, err := m.backend.GetPaymentOrder(ctx, orderID)
		if err == nil && order.Terminal() {
			return order, nil
		}
		if err != nil {
			m.logger.Warn("order poll read failed", "order", orderID, "error", err)
		}

		if err := m.sleep(ctx, backoff); err != nil {
			break
		}
		if backoff < pollMaxBackoff {
			backoff *= 2
			if backoff > pollMaxBackoff {
				backoff = pollMaxBackoff
			}
		}
	}

	// Deadline hit. One sync attempt may surface a settlement the plain
	// read missed.
	syncCtx, syncCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer syncCancel()
	order, err := m.backend.SyncPaymentOrder(syncCtx, orderID)
	if err == nil && order.Terminal() {
		return order, nil
	}
	return api.Order{}, ErrOrderTimeout
}
