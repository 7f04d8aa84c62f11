package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glossly/dealdesk/internal/core/domain"
	"github.com/glossly/dealdesk/internal/port"
)

// mockOrderStore is an in-memory stand-in for the remote order store. A
// non-nil gate makes Transition block until the gate is closed, which lets
// tests hold a mutation in flight.
type mockOrderStore struct {
	mu sync.Mutex

	orders  map[string]domain.Order
	listErr error

	transitionErr   error
	transitionCalls int
	gate            chan struct{}
	entered         chan struct{}

	markOpenedErr   error
	markOpenedCalls int
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{orders: make(map[string]domain.Order)}
}

func (m *mockOrderStore) put(o domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

func (m *mockOrderStore) get(id string) domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id]
}

func (m *mockOrderStore) ListByDealer(ctx context.Context, dealerID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Order
	for _, o := range m.orders {
		if o.DealerID == dealerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderStore) Create(ctx context.Context, req domain.NewOrderRequest) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	o := domain.Order{
		ID:            fmt.Sprintf("order-%d", len(m.orders)+1),
		GigID:         req.GigID,
		ClientID:      req.ClientID,
		DealerID:      req.DealerID,
		ProposedPrice: req.ProposedPrice,
		Notes:         req.Notes,
		ScheduledDate: req.ScheduledDate,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *mockOrderStore) Transition(ctx context.Context, orderID string, actor domain.Actor, target domain.Status, agreedPrice *decimal.Decimal) (domain.Order, error) {
	m.mu.Lock()
	m.transitionCalls++
	// gate and entered are one-shot: only the first gated call blocks.
	gate := m.gate
	entered := m.entered
	m.gate = nil
	m.entered = nil
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transitionErr != nil {
		return domain.Order{}, m.transitionErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, ErrOrderNotFound
	}
	o.Status = target
	if agreedPrice != nil {
		p := *agreedPrice
		o.AgreedPrice = &p
	}
	o.UpdatedAt = time.Now().UTC()
	m.orders[orderID] = o
	return o, nil
}

func (m *mockOrderStore) MarkOpened(ctx context.Context, orderID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markOpenedCalls++
	if m.markOpenedErr != nil {
		return m.markOpenedErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if o.OpenedAt == nil {
		stamp := at
		o.OpenedAt = &stamp
		m.orders[orderID] = o
	}
	return nil
}

// mockFeed hands out a single channel the test writes events into.
// Unsubscribing closes the channel.
type mockFeed struct {
	mu           sync.Mutex
	events       chan port.OrderEvent
	unsubscribed bool
}

func newMockFeed() *mockFeed {
	return &mockFeed{events: make(chan port.OrderEvent, 16)}
}

func (f *mockFeed) Subscribe(ctx context.Context, dealerID string) (<-chan port.OrderEvent, func() error, error) {
	return f.events, func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.unsubscribed {
			f.unsubscribed = true
			close(f.events)
		}
		return nil
	}, nil
}

// mockDB backs OrderService tests.
type mockDB struct {
	mu sync.Mutex

	orders      map[string]domain.Order
	insertErr   error
	updateErr   error
	updateCalls int
}

func newMockDB() *mockDB {
	return &mockDB{orders: make(map[string]domain.Order)}
}

func (m *mockDB) Insert(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockDB) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *mockDB) ListByDealer(ctx context.Context, dealerID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.DealerID == dealerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockDB) UpdateStatus(ctx context.Context, orderID string, expected, target domain.Status, agreedPrice *decimal.Decimal, updatedAt time.Time) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Status != expected {
		return nil, port.ErrStatusConflict
	}
	o.Status = target
	if agreedPrice != nil {
		p := *agreedPrice
		o.AgreedPrice = &p
	}
	o.UpdatedAt = updatedAt
	m.orders[orderID] = o
	return &o, nil
}

func (m *mockDB) SetOpenedAt(ctx context.Context, orderID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if o.OpenedAt == nil {
		stamp := at
		o.OpenedAt = &stamp
		m.orders[orderID] = o
	}
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	err    error
	events []port.OrderEvent
	topics []string
}

func (p *mockPublisher) Publish(ctx context.Context, dealerID string, event port.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	p.topics = append(p.topics, dealerID)
	return nil
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func testOrder(id, dealerID string, status domain.Status) domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:            id,
		GigID:         "gig-" + id,
		ClientID:      "client-1",
		DealerID:      dealerID,
		ProposedPrice: dec(120),
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
