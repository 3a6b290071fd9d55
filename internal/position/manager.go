package position

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Turbo503/EchoNode/internal/exchange"
	"github.com/Turbo503/EchoNode/internal/model"
)

var (
	// ErrOrderRejected means the exchange refused the order. The position is
	// unchanged.
	ErrOrderRejected = errors.New("order rejected by exchange")
	// ErrSubmissionFailed means submission or fill confirmation failed after
	// bounded retries. The position reflects only confirmed fills.
	ErrSubmissionFailed = errors.New("order submission failed")
)

// ExchangeClient is the slice of the exchange API the manager needs.
type ExchangeClient interface {
	CreateMarketOrder(ctx context.Context, symbol, side, quantity, clientOrderID string) (*exchange.OrderAck, error)
	GetOrder(ctx context.Context, symbol, orderID string) (*exchange.OrderState, error)
}

// Manager owns the position state for one symbol and converts decisions into
// zero or more market orders. A single mutex serializes whole cycles, so at
// most one order is ever PENDING.
type Manager struct {
	mu           sync.Mutex
	client       ExchangeClient
	state        model.PositionState
	filePath     string
	unit         decimal.Decimal
	maxRetries   uint64
	pollInterval time.Duration
	fillTimeout  time.Duration
}

// Report summarizes one Apply call.
type Report struct {
	Orders []model.Order
	State  model.PositionState
}

// NewManager creates a Manager, loading or initializing state from disk.
func NewManager(client ExchangeClient, filePath, symbol string, unit decimal.Decimal, maxRetries uint64) (*Manager, error) {
	if unit.Sign() <= 0 {
		return nil, fmt.Errorf("unit quantity must be positive, got %s", unit)
	}
	state, err := LoadState(filePath, symbol)
	if err != nil {
		return nil, fmt.Errorf("load position state: %w", err)
	}
	return &Manager{
		client:       client,
		state:        state,
		filePath:     filePath,
		unit:         unit,
		maxRetries:   maxRetries,
		pollInterval: 2 * time.Second,
		fillTimeout:  45 * time.Second,
	}, nil
}

// State returns a copy of the current position state.
func (m *Manager) State() model.PositionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Apply transitions the position to match the decision. It holds the manager
// lock for the whole call: the plan runs as sequential orders, each confirmed
// before the next starts. Partial progress is kept: if the flatten leg of a
// reversal fills and the reopen leg fails, the position stays FLAT.
func (m *Manager) Apply(ctx context.Context, decision model.Decision) (*Report, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("invalid decision %q", decision)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	report := &Report{State: m.state}
	steps := planTransition(m.state.Side, decision)
	if len(steps) == 0 {
		log.Printf("[INFO] position already %s, no order needed", m.state.Side)
		return report, nil
	}

	for _, st := range steps {
		order, err := m.executeOrder(ctx, st.side)
		if order != nil {
			report.Orders = append(report.Orders, *order)
		}
		if err != nil {
			report.State = m.state
			return report, err
		}
		m.applyFill(st.after)
	}
	report.State = m.state
	return report, nil
}

// executeOrder submits one market order and waits for its terminal state.
// It runs detached from the caller's cancellation: a stop signal must never
// abandon an order mid-flight, or the exchange could fill it while persisted
// state still says otherwise. Submission retries are bounded by maxRetries
// and the fill wait by fillTimeout, so the detachment cannot hang shutdown
// indefinitely.
func (m *Manager) executeOrder(ctx context.Context, side model.OrderSide) (*model.Order, error) {
	ctx = context.WithoutCancel(ctx)
	order := &model.Order{
		ClientID:    uuid.NewString(),
		Symbol:      m.state.Symbol,
		Side:        side,
		Quantity:    m.unit,
		SubmittedAt: time.Now().UTC(),
	}

	var ack *exchange.OrderAck
	submit := func() error {
		var err error
		ack, err = m.client.CreateMarketOrder(ctx, order.Symbol, string(side), m.unit.String(), order.ClientID)
		if err != nil {
			var apiErr *exchange.APIError
			if errors.As(err, &apiErr) {
				// The exchange answered and said no. Retrying won't help.
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), m.maxRetries), ctx)
	if err := backoff.Retry(submit, policy); err != nil {
		var apiErr *exchange.APIError
		if errors.As(err, &apiErr) {
			order.Status = model.OrderRejected
			return order, fmt.Errorf("%w: %v", ErrOrderRejected, err)
		}
		order.Status = model.OrderFailed
		return order, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	order.ExchangeID = ack.OrderID
	order.Status = model.OrderPending
	log.Printf("[INFO] order submitted side=%s qty=%s client_id=%s exchange_id=%s",
		side, m.unit, order.ClientID, order.ExchangeID)

	return m.awaitFill(ctx, order)
}

// awaitFill polls the order-status endpoint until the order reaches a
// terminal state or the fill timeout expires. An unconfirmed fill is treated
// as a submission failure: the manager never assumes a fill it did not
// confirm.
func (m *Manager) awaitFill(ctx context.Context, order *model.Order) (*model.Order, error) {
	pollCtx, cancel := context.WithTimeout(ctx, m.fillTimeout)
	defer cancel()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		state, err := m.client.GetOrder(pollCtx, order.Symbol, order.ExchangeID)
		if err != nil {
			log.Printf("[WARN] order status check failed: %v", err)
		} else {
			switch state.Status {
			case "FILLED":
				order.Status = model.OrderFilled
				log.Printf("[INFO] order filled exchange_id=%s executed=%.8f", order.ExchangeID, state.ExecutedQty)
				return order, nil
			case "REJECTED", "CANCELED", "EXPIRED":
				order.Status = model.OrderRejected
				return order, fmt.Errorf("%w: status %s", ErrOrderRejected, state.Status)
			}
		}

		select {
		case <-pollCtx.Done():
			order.Status = model.OrderFailed
			return order, fmt.Errorf("%w: fill unconfirmed after %s", ErrSubmissionFailed, m.fillTimeout)
		case <-ticker.C:
		}
	}
}

// applyFill mutates the position after a confirmed fill and persists it.
func (m *Manager) applyFill(after model.Decision) {
	now := time.Now().UTC()
	m.state.Side = after
	m.state.UpdatedAt = now
	if after == model.Flat {
		m.state.Quantity = decimal.Zero
		m.state.OpenedAt = time.Time{}
	} else {
		m.state.Quantity = m.unit
		m.state.OpenedAt = now
	}
	if err := SaveState(m.filePath, m.state); err != nil {
		log.Printf("[ERROR] failed to save position state: %v", err)
	}
}
