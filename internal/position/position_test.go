package position

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Turbo503/EchoNode/internal/exchange"
	"github.com/Turbo503/EchoNode/internal/model"
)

type createdOrder struct {
	side     string
	quantity string
	clientID string
}

// fakeExchange scripts CreateMarketOrder responses per call and answers
// status polls from a scripted sequence, falling back to a fixed status.
type fakeExchange struct {
	mu        sync.Mutex
	creates   []createdOrder
	createErr []error  // consumed one per create; nil entries succeed
	status    string   // defaults to FILLED
	statusSeq []string // consumed one per poll before status applies
	getErr    error
	onCreate  func()   // runs after a successful create

	inFlight int32
	maxSeen  int32
}

func (f *fakeExchange) CreateMarketOrder(ctx context.Context, symbol, side, quantity, clientOrderID string) (*exchange.OrderAck, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, n) {
			break
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if len(f.createErr) > 0 {
		err = f.createErr[0]
		f.createErr = f.createErr[1:]
	}
	if err != nil {
		return nil, err
	}
	f.creates = append(f.creates, createdOrder{side: side, quantity: quantity, clientID: clientOrderID})
	if f.onCreate != nil {
		f.onCreate()
	}
	return &exchange.OrderAck{OrderID: "ex-1", ClientOrderID: clientOrderID}, nil
}

func (f *fakeExchange) GetOrder(ctx context.Context, symbol, orderID string) (*exchange.OrderState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	var status string
	if len(f.statusSeq) > 0 {
		status = f.statusSeq[0]
		f.statusSeq = f.statusSeq[1:]
	} else {
		status = f.status
	}
	if status == "" {
		status = "FILLED"
	}
	return &exchange.OrderState{OrderID: orderID, Status: status, ExecutedQty: 0.001}, nil
}

func newTestManager(t *testing.T, client ExchangeClient) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "position.json")
	mgr, err := NewManager(client, path, "BTC/USDT", decimal.RequireFromString("0.001"), 0)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	mgr.pollInterval = time.Millisecond
	mgr.fillTimeout = 50 * time.Millisecond
	return mgr
}

func TestApply_SameSideNoOrders(t *testing.T) {
	fake := &fakeExchange{}
	mgr := newTestManager(t, fake)

	report, err := mgr.Apply(context.Background(), model.Flat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Orders) != 0 || len(fake.creates) != 0 {
		t.Errorf("expected no orders for FLAT->FLAT, got %d", len(report.Orders))
	}
}

func TestApply_FlatToLong(t *testing.T) {
	fake := &fakeExchange{}
	mgr := newTestManager(t, fake)

	report, err := mgr.Apply(context.Background(), model.Long)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(report.Orders))
	}
	if fake.creates[0].side != "BUY" || fake.creates[0].quantity != "0.001" {
		t.Errorf("unexpected order %+v", fake.creates[0])
	}
	if report.Orders[0].Status != model.OrderFilled {
		t.Errorf("expected FILLED, got %s", report.Orders[0].Status)
	}
	if got := mgr.State(); got.Side != model.Long || !got.Quantity.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("unexpected state %+v", got)
	}
}

func TestApply_LongToShortReversal(t *testing.T) {
	fake := &fakeExchange{}
	mgr := newTestManager(t, fake)

	if _, err := mgr.Apply(context.Background(), model.Long); err != nil {
		t.Fatalf("open long: %v", err)
	}
	fake.creates = nil

	report, err := mgr.Apply(context.Background(), model.Short)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Orders) != 2 {
		t.Fatalf("expected 2 orders for reversal, got %d", len(report.Orders))
	}
	if fake.creates[0].side != "SELL" || fake.creates[1].side != "SELL" {
		t.Errorf("expected two SELL legs, got %+v", fake.creates)
	}
	if got := mgr.State(); got.Side != model.Short {
		t.Errorf("expected SHORT after reversal, got %s", got.Side)
	}
}

func TestApply_RejectedOrderLeavesStateUnchanged(t *testing.T) {
	fake := &fakeExchange{
		createErr: []error{&exchange.APIError{StatusCode: 400, Code: 20001, Message: "insufficient balance"}},
	}
	mgr := newTestManager(t, fake)

	report, err := mgr.Apply(context.Background(), model.Long)
	if !errors.Is(err, ErrOrderRejected) {
		t.Fatalf("expected ErrOrderRejected, got %v", err)
	}
	if len(report.Orders) != 1 || report.Orders[0].Status != model.OrderRejected {
		t.Errorf("expected one REJECTED order in report, got %+v", report.Orders)
	}
	if got := mgr.State(); got.Side != model.Flat || !got.Quantity.IsZero() {
		t.Errorf("state changed despite rejection: %+v", got)
	}
}

func TestApply_SubmissionFailureLeavesStateUnchanged(t *testing.T) {
	fake := &fakeExchange{createErr: []error{errors.New("connection reset")}}
	mgr := newTestManager(t, fake)

	_, err := mgr.Apply(context.Background(), model.Long)
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}
	if got := mgr.State(); got.Side != model.Flat {
		t.Errorf("state changed despite submission failure: %+v", got)
	}
}

func TestApply_PartialReversalKeepsFlat(t *testing.T) {
	fake := &fakeExchange{}
	mgr := newTestManager(t, fake)

	if _, err := mgr.Apply(context.Background(), model.Long); err != nil {
		t.Fatalf("open long: %v", err)
	}

	// Flatten leg fills, reopen leg is rejected.
	fake.createErr = []error{nil, &exchange.APIError{StatusCode: 400, Code: 20001, Message: "insufficient balance"}}
	report, err := mgr.Apply(context.Background(), model.Short)
	if !errors.Is(err, ErrOrderRejected) {
		t.Fatalf("expected ErrOrderRejected, got %v", err)
	}
	if len(report.Orders) != 2 {
		t.Fatalf("expected both legs in report, got %d", len(report.Orders))
	}
	if report.Orders[0].Status != model.OrderFilled {
		t.Errorf("expected flatten leg FILLED, got %s", report.Orders[0].Status)
	}
	if got := mgr.State(); got.Side != model.Flat || !got.Quantity.IsZero() {
		t.Errorf("expected FLAT after partial reversal, got %+v", got)
	}
}

func TestApply_UnconfirmedFillIsSubmissionFailure(t *testing.T) {
	fake := &fakeExchange{status: "NEW"}
	mgr := newTestManager(t, fake)

	report, err := mgr.Apply(context.Background(), model.Long)
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed on timeout, got %v", err)
	}
	if len(report.Orders) != 1 || report.Orders[0].Status != model.OrderFailed {
		t.Errorf("expected one FAILED order, got %+v", report.Orders)
	}
	if got := mgr.State(); got.Side != model.Flat {
		t.Errorf("fill never confirmed but state changed: %+v", got)
	}
}

func TestApply_StopSignalDoesNotAbandonPendingOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	// The stop signal arrives the instant the order is submitted; the first
	// poll still shows it pending and the second confirms the fill.
	fake := &fakeExchange{statusSeq: []string{"NEW", "FILLED"}, onCreate: cancel}
	mgr := newTestManager(t, fake)

	report, err := mgr.Apply(ctx, model.Long)
	if err != nil {
		t.Fatalf("expected fill confirmed despite cancellation, got %v", err)
	}
	if len(report.Orders) != 1 || report.Orders[0].Status != model.OrderFilled {
		t.Fatalf("expected one FILLED order, got %+v", report.Orders)
	}
	if got := mgr.State(); got.Side != model.Long {
		t.Errorf("expected LONG recorded after confirmed fill, got %+v", got)
	}
}

func TestApply_SerializesConcurrentCalls(t *testing.T) {
	fake := &fakeExchange{}
	mgr := newTestManager(t, fake)

	var wg sync.WaitGroup
	for _, target := range []model.Decision{model.Long, model.Short, model.Flat, model.Long} {
		wg.Add(1)
		go func(d model.Decision) {
			defer wg.Done()
			if _, err := mgr.Apply(context.Background(), d); err != nil {
				t.Errorf("apply %s: %v", d, err)
			}
		}(target)
	}
	wg.Wait()

	if max := atomic.LoadInt32(&fake.maxSeen); max > 1 {
		t.Errorf("expected at most one in-flight order, saw %d", max)
	}
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "position.json")

	state, err := LoadState(path, "BTC/USDT")
	if err != nil {
		t.Fatalf("load fresh: %v", err)
	}
	if state.Side != model.Flat || state.Symbol != "BTC/USDT" {
		t.Fatalf("unexpected fresh state %+v", state)
	}

	state.Side = model.Long
	state.Quantity = decimal.RequireFromString("0.001")
	state.OpenedAt = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	if err := SaveState(path, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadState(path, "BTC/USDT")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Side != model.Long || !loaded.Quantity.Equal(state.Quantity) || !loaded.OpenedAt.Equal(state.OpenedAt) {
		t.Errorf("state mangled in round trip: %+v", loaded)
	}
}
