package send

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paypath/paypath/internal/api"
	"github.com/paypath/paypath/internal/logging"
)

// virtualClock advances a fake elapsed time instead of sleeping, recording
// every backoff interval.
type virtualClock struct {
	elapsed  time.Duration
	deadline time.Duration
	waits    []time.Duration
}

func (c *virtualClock) sleep(ctx context.Context, d time.Duration) error {
	c.waits = append(c.waits, d)
	c.elapsed += d
	if c.elapsed >= c.deadline {
		return context.DeadlineExceeded
	}
	return nil
}

func TestPollBackoffSchedule(t *testing.T) {
	backend := &fakeBackend{} // never terminal
	clock := &virtualClock{deadline: 60 * time.Second}
	acct, _ := newFunded(t)
	m := NewMachine(backend, acct, 0, logging.Discard(), WithSleep(clock.sleep))

	_, err := m.pollOrder(context.Background(), "ord-1")
	if !errors.Is(err, ErrOrderTimeout) {
		t.Fatalf("err = %v, want ErrOrderTimeout", err)
	}

	want := []time.Duration{1, 2, 4, 8, 8, 8, 8, 8, 8}
	for i := range want {
		want[i] *= time.Second
	}
	for i, w := range want {
		if i >= len(clock.waits) {
			t.Fatalf("waits = %v, want prefix %v", clock.waits, want)
		}
		if clock.waits[i] != w {
			t.Fatalf("wait[%d] = %v, want %v", i, clock.waits[i], w)
		}
	}
	if backend.syncCalls != 1 {
		t.Fatalf("sync calls = %d, want 1 final sync", backend.syncCalls)
	}
}

func TestPollStopsOnTerminalStatus(t *testing.T) {
	backend := &fakeBackend{
		pollPlan: []api.Order{
			{ID: "ord-1", Status: api.OrderStatusProcessing},
			{ID: "ord-1", Status: api.OrderStatusFailed},
		},
	}
	clock := &virtualClock{deadline: 60 * time.Second}
	acct, _ := newFunded(t)
	m := NewMachine(backend, acct, 0, logging.Discard(), WithSleep(clock.sleep))

	order, err := m.pollOrder(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if order.Status != api.OrderStatusFailed {
		t.Fatalf("status = %q, want failed", order.Status)
	}
	if backend.syncCalls != 0 {
		t.Fatalf("sync calls = %d, want 0", backend.syncCalls)
	}
}

func TestPollFinalSyncRescuesSettlement(t *testing.T) {
	backend := &fakeBackend{
		synced: api.Order{ID: "ord-1", Status: api.OrderStatusCompleted},
	}
	clock := &virtualClock{deadline: 3 * time.Second}
	acct, _ := newFunded(t)
	m := NewMachine(backend, acct, 0, logging.Discard(), WithSleep(clock.sleep))

	order, err := m.pollOrder(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !order.Succeeded() {
		t.Fatalf("order = %+v, want completed via sync", order)
	}
}
