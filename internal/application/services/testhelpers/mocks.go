// Package testhelpers provides in-memory stores and a PayPal client mock for
// service and worker tests.
package testhelpers

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockPayPalClient
type MockPayPalClient struct {
	mock.Mock
}

var _ application.PayPalClient = (*MockPayPalClient)(nil)

func (m *MockPayPalClient) CreateOrder(ctx context.Context, req paypal.CreateOrderRequest) (*paypal.Order, error) {
	args := m.Called(ctx, req)
	order, _ := args.Get(0).(*paypal.Order)
	return order, args.Error(1)
}

func (m *MockPayPalClient) GetOrder(ctx context.Context, orderID string) (*paypal.Order, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*paypal.Order)
	return order, args.Error(1)
}

func (m *MockPayPalClient) CaptureOrder(ctx context.Context, orderID string) (*paypal.Order, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*paypal.Order)
	return order, args.Error(1)
}

func (m *MockPayPalClient) Refund(ctx context.Context, captureID string, req paypal.RefundRequest) (*paypal.Refund, error) {
	args := m.Called(ctx, captureID, req)
	refund, _ := args.Get(0).(*paypal.Refund)
	return refund, args.Error(1)
}

func (m *MockPayPalClient) VerifyWebhookSignature(ctx context.Context, headers map[string]string, body []byte, webhookID string) (*paypal.VerifyWebhookResponse, error) {
	args := m.Called(ctx, headers, body, webhookID)
	resp, _ := args.Get(0).(*paypal.VerifyWebhookResponse)
	return resp, args.Error(1)
}

// MockPaymentStore keeps orders and payments in memory and enforces the same
// one-payment-per-capture-id rule as the database.
type MockPaymentStore struct {
	mu        sync.RWMutex
	payments  map[uuid.UUID]*domain.Payment
	orders    map[uuid.UUID]*domain.Order
	byCapture map[string]uuid.UUID

	// Delay is slept inside UpsertCaptureResult before taking the lock.
	Delay time.Duration

	UpsertCaptureResultFn func(ctx context.Context, rec application.CaptureRecord) (*domain.Payment, bool, error)
	AppendRefundFn        func(ctx context.Context, paymentID uuid.UUID, refund json.RawMessage) (*domain.Payment, error)
	FindByIDFn            func(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	UpsertCalls int
}

var _ application.PaymentStore = (*MockPaymentStore)(nil)

func NewMockPaymentStore() *MockPaymentStore {
	return &MockPaymentStore{
		payments:  make(map[uuid.UUID]*domain.Payment),
		orders:    make(map[uuid.UUID]*domain.Order),
		byCapture: make(map[string]uuid.UUID),
	}
}

// Seed stores p (and its order, when given) as-is.
func (m *MockPaymentStore) Seed(p *domain.Payment, o *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = p
	if p.ProviderCaptureID != nil {
		m.byCapture[*p.ProviderCaptureID] = p.ID
	}
	if o != nil {
		m.orders[o.ID] = o
	}
}

func (m *MockPaymentStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

func (m *MockPaymentStore) UpsertCaptureResult(ctx context.Context, rec application.CaptureRecord) (*domain.Payment, bool, error) {
	if m.UpsertCaptureResultFn != nil {
		return m.UpsertCaptureResultFn(ctx, rec)
	}
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++

	if id, ok := m.byCapture[rec.CaptureID]; ok {
		return m.payments[id], false, nil
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:          uuid.New(),
		OrderNumber: domain.OrderNumberFor(rec.ProviderOrderID),
		TotalAmount: rec.Amount,
		Currency:    rec.Currency,
		Status:      rec.OrderStatus,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	captureID := rec.CaptureID
	payment := &domain.Payment{
		ID:                uuid.New(),
		OrderID:           &order.ID,
		Provider:          domain.ProviderPayPal,
		ProviderOrderID:   rec.ProviderOrderID,
		ProviderCaptureID: &captureID,
		Amount:            rec.Amount,
		Currency:          rec.Currency,
		Status:            rec.PaymentStatus,
		PayerName:         rec.Payer.Name,
		PayerEmail:        rec.Payer.Email,
		PayerID:           rec.Payer.ID,
		RawResponse:       rec.RawResponse,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	m.orders[order.ID] = order
	m.payments[payment.ID] = payment
	m.byCapture[captureID] = payment.ID
	return payment, true, nil
}

func (m *MockPaymentStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		return p, nil
	}
	return nil, domain.NewPaymentNotFoundError(id.String())
}

func (m *MockPaymentStore) FindByCaptureID(ctx context.Context, captureID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byCapture[captureID]; ok {
		return m.payments[id], nil
	}
	return nil, domain.NewPaymentNotFoundError(captureID)
}

func (m *MockPaymentStore) MarkCaptureCompleted(ctx context.Context, captureID string) (*domain.Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byCapture[captureID]
	if !ok {
		return nil, false, domain.NewPaymentNotFoundError(captureID)
	}
	p := m.payments[id]
	if !p.CompletePendingCapture(time.Now().UTC()) {
		return p, false, nil
	}
	if p.OrderID != nil {
		if o, ok := m.orders[*p.OrderID]; ok && o.Status == domain.OrderPending {
			o.Status = domain.OrderPaid
		}
	}
	return p, true, nil
}

func (m *MockPaymentStore) List(ctx context.Context, limit, offset int) ([]*domain.Payment, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*domain.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return []*domain.Payment{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *MockPaymentStore) FindOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, domain.NewOrderNotFoundError(id.String())
}

func (m *MockPaymentStore) AppendRefund(ctx context.Context, paymentID uuid.UUID, refund json.RawMessage) (*domain.Payment, error) {
	if m.AppendRefundFn != nil {
		return m.AppendRefundFn(ctx, paymentID, refund)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[paymentID]
	if !ok {
		return nil, domain.NewPaymentNotFoundError(paymentID.String())
	}
	if err := p.ApplyRefund(refund, time.Now().UTC()); err != nil {
		return nil, err
	}
	if p.OrderID != nil {
		if o, ok := m.orders[*p.OrderID]; ok {
			o.Status = domain.OrderRefunded
		}
	}
	return p, nil
}

// MockWebhookStore
type MockWebhookStore struct {
	mu     sync.Mutex
	events map[string]*domain.WebhookEvent

	InsertIfAbsentFn func(ctx context.Context, event *domain.WebhookEvent) (*domain.WebhookEvent, bool, error)
}

var _ application.WebhookStore = (*MockWebhookStore)(nil)

func NewMockWebhookStore() *MockWebhookStore {
	return &MockWebhookStore{events: make(map[string]*domain.WebhookEvent)}
}

func (m *MockWebhookStore) InsertIfAbsent(ctx context.Context, event *domain.WebhookEvent) (*domain.WebhookEvent, bool, error) {
	if m.InsertIfAbsentFn != nil {
		return m.InsertIfAbsentFn(ctx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.events[event.EventID]; ok {
		return existing, false, nil
	}
	m.events[event.EventID] = event
	return event, true, nil
}

func (m *MockWebhookStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// MockAttemptStore
type MockAttemptStore struct {
	mu       sync.Mutex
	Attempts map[string]*domain.CaptureAttempt

	FindDueFn func(ctx context.Context, now time.Time, limit int) ([]*domain.CaptureAttempt, error)
}

var _ application.CaptureAttemptStore = (*MockAttemptStore)(nil)

func NewMockAttemptStore() *MockAttemptStore {
	return &MockAttemptStore{Attempts: make(map[string]*domain.CaptureAttempt)}
}

func (m *MockAttemptStore) Get(providerOrderID string) (domain.CaptureAttempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Attempts[providerOrderID]
	if !ok {
		return domain.CaptureAttempt{}, false
	}
	return *a, true
}

func (m *MockAttemptStore) RecordAttempt(ctx context.Context, providerOrderID, lastErr string, nextRetryAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	a, ok := m.Attempts[providerOrderID]
	if !ok {
		a = &domain.CaptureAttempt{ProviderOrderID: providerOrderID, CreatedAt: now}
		m.Attempts[providerOrderID] = a
	}
	a.Status = domain.AttemptPending
	a.LastError = &lastErr
	a.NextRetryAt = nextRetryAt
	a.UpdatedAt = now
	return nil
}

func (m *MockAttemptStore) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.CaptureAttempt, error) {
	if m.FindDueFn != nil {
		return m.FindDueFn(ctx, now, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*domain.CaptureAttempt
	for _, a := range m.Attempts {
		if a.Status == domain.AttemptPending && !a.NextRetryAt.After(now) {
			cp := *a
			due = append(due, &cp)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (m *MockAttemptStore) MarkResolved(ctx context.Context, providerOrderID string) error {
	return m.setStatus(providerOrderID, domain.AttemptResolved, nil)
}

func (m *MockAttemptStore) ScheduleRetry(ctx context.Context, providerOrderID, lastErr string, nextRetryAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Attempts[providerOrderID]; ok {
		a.AttemptCount++
		a.LastError = &lastErr
		a.NextRetryAt = nextRetryAt
	}
	return nil
}

func (m *MockAttemptStore) MarkAbandoned(ctx context.Context, providerOrderID, lastErr string) error {
	return m.setStatus(providerOrderID, domain.AttemptAbandoned, &lastErr)
}

func (m *MockAttemptStore) setStatus(providerOrderID string, status domain.CaptureAttemptStatus, lastErr *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Attempts[providerOrderID]; ok {
		a.Status = status
		if lastErr != nil {
			a.LastError = lastErr
		}
	}
	return nil
}
