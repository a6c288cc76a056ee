//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"audio-commerce/internal/domain"
	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/adapter"
	"audio-commerce/internal/domain/ports/repository"
)

// ---- Mock CartRepository ----

type MockCartRepo struct {
	mu    sync.Mutex
	items []*model.CartItem

	ListByUserFunc func(ctx context.Context, qx any, userID string) ([]*model.CartItem, error)
	ClearFunc      func(ctx context.Context, qx any, userID string) error

	Cleared int
}

var _ repository.CartRepository = (*MockCartRepo)(nil)

func NewMockCartRepo() *MockCartRepo { return &MockCartRepo{} }

func (r *MockCartRepo) ListByUser(ctx context.Context, qx any, userID string) ([]*model.CartItem, error) {
	if r.ListByUserFunc != nil {
		return r.ListByUserFunc(ctx, qx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.CartItem
	for _, it := range r.items {
		if it.UserID == userID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockCartRepo) Add(ctx context.Context, qx any, item *model.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.items = append(r.items, &cp)
	return nil
}

func (r *MockCartRepo) Clear(ctx context.Context, qx any, userID string) error {
	if r.ClearFunc != nil {
		return r.ClearFunc(ctx, qx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.CartItem
	for _, it := range r.items {
		if it.UserID != userID {
			kept = append(kept, it)
		}
	}
	r.items = kept
	r.Cleared++
	return nil
}

// ---- Mock CatalogRepository ----

type MockCatalogRepo struct {
	mu     sync.Mutex
	items  map[string]*model.ContentItem
	tracks map[string]*model.Track

	FindByIDFunc func(ctx context.Context, qx any, id string) (*model.ContentItem, error)
}

var _ repository.CatalogRepository = (*MockCatalogRepo)(nil)

func NewMockCatalogRepo() *MockCatalogRepo {
	return &MockCatalogRepo{items: map[string]*model.ContentItem{}, tracks: map[string]*model.Track{}}
}

func (r *MockCatalogRepo) Seed(item *model.ContentItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.items[item.ID] = &cp
}

func (r *MockCatalogRepo) SeedTrack(track *model.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *track
	r.tracks[track.ID] = &cp
}

func (r *MockCatalogRepo) FindByID(ctx context.Context, qx any, id string) (*model.ContentItem, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, qx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.items[id]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockCatalogRepo) FindTrackByID(ctx context.Context, qx any, id string) (*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tracks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

// ---- Mock UserRepository ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{users: map[string]*model.User{}}
}

func (r *MockUserRepo) FindByID(ctx context.Context, qx any, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) Save(ctx context.Context, qx any, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

// ---- Mock PurchaseRepository ----

type MockPurchaseRepo struct {
	mu   sync.Mutex
	data map[string]*model.Purchase

	SaveAllFunc               func(ctx context.Context, qx any, purchases []*model.Purchase) error
	FindByProviderOrderIDFunc func(ctx context.Context, qx any, providerOrderID string) ([]*model.Purchase, error)
	CompleteIfPendingFunc     func(ctx context.Context, qx any, id string, pricePaidCents int64, captureID string, purchasedAt time.Time) (bool, error)
}

var _ repository.PurchaseRepository = (*MockPurchaseRepo)(nil)

func NewMockPurchaseRepo() *MockPurchaseRepo {
	return &MockPurchaseRepo{data: map[string]*model.Purchase{}}
}

func (r *MockPurchaseRepo) Seed(p *model.Purchase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
}

func (r *MockPurchaseRepo) Get(id string) *model.Purchase {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (r *MockPurchaseRepo) SaveAll(ctx context.Context, qx any, purchases []*model.Purchase) error {
	if r.SaveAllFunc != nil {
		return r.SaveAllFunc(ctx, qx, purchases)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range purchases {
		cp := *p
		r.data[p.ID] = &cp
	}
	return nil
}

func (r *MockPurchaseRepo) FindByProviderOrderID(ctx context.Context, qx any, providerOrderID string) ([]*model.Purchase, error) {
	if r.FindByProviderOrderIDFunc != nil {
		return r.FindByProviderOrderIDFunc(ctx, qx, providerOrderID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Purchase
	for _, p := range r.data {
		if p.ProviderOrderID == providerOrderID {
			cp := *p
			out = append(out, &cp)
		}
	}
	// keep insertion order deterministic by ULID
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].ID > out[j].ID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

func (r *MockPurchaseRepo) CompleteIfPending(ctx context.Context, qx any, id string, pricePaidCents int64, captureID string, purchasedAt time.Time) (bool, error) {
	if r.CompleteIfPendingFunc != nil {
		return r.CompleteIfPendingFunc(ctx, qx, id, pricePaidCents, captureID, purchasedAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PurchaseStatusPending {
		return false, nil
	}
	p.Status = model.PurchaseStatusCompleted
	p.PricePaidCents = pricePaidCents
	p.ProviderCaptureID = captureID
	t := purchasedAt
	p.PurchasedAt = &t
	return true, nil
}

func (r *MockPurchaseRepo) FailPendingByProviderOrder(ctx context.Context, qx any, providerOrderID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.data {
		if p.ProviderOrderID == providerOrderID && p.Status == model.PurchaseStatusPending {
			p.Status = model.PurchaseStatusFailed
			n++
		}
	}
	return n, nil
}

func (r *MockPurchaseRepo) RefundIfCompleted(ctx context.Context, qx any, captureID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refunded := false
	for _, p := range r.data {
		if p.ProviderCaptureID == captureID && p.Status == model.PurchaseStatusCompleted {
			p.Status = model.PurchaseStatusRefunded
			refunded = true
		}
	}
	return refunded, nil
}

func (r *MockPurchaseRepo) FindCompletedByUserAndItem(ctx context.Context, qx any, userID, contentItemID string) (*model.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.UserID == userID && p.ContentItemID == contentItemID && p.Status == model.PurchaseStatusCompleted {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPurchaseRepo) ListByUser(ctx context.Context, qx any, userID string) ([]*model.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Purchase
	for _, p := range r.data {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPurchaseRepo) ListPendingOlderThan(ctx context.Context, qx any, olderThan time.Time, limit int) ([]*model.Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Purchase
	for _, p := range r.data {
		if p.Status == model.PurchaseStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MockPurchaseRepo) FailIfPending(ctx context.Context, qx any, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PurchaseStatusPending {
		return false, nil
	}
	p.Status = model.PurchaseStatusFailed
	return true, nil
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[string]*model.Subscription

	FindCurrentByUserFunc func(ctx context.Context, qx any, userID string) (*model.Subscription, error)
	UpdateStatusIfFunc    func(ctx context.Context, qx any, id string, from []model.SubscriptionStatus, to model.SubscriptionStatus, canceledAt *time.Time, periodStart, periodEnd *time.Time) (bool, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{subs: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Seed(s *model.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.subs[s.ID] = &cp
}

func (r *MockSubscriptionRepo) Get(id string) *model.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.subs[id]; ok {
		cp := *s
		return &cp
	}
	return nil
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, qx any, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, qx any, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.subs[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindByProviderSubscriptionID(ctx context.Context, qx any, providerSubID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.ProviderSubscriptionID == providerSubID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) FindCurrentByUser(ctx context.Context, qx any, userID string) (*model.Subscription, error) {
	if r.FindCurrentByUserFunc != nil {
		return r.FindCurrentByUserFunc(ctx, qx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *model.Subscription
	for _, s := range r.subs {
		if s.UserID != userID {
			continue
		}
		if best == nil || s.CurrentPeriodEnd.After(best.CurrentPeriodEnd) {
			best = s
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *MockSubscriptionRepo) UpdateStatusIf(ctx context.Context, qx any, id string, from []model.SubscriptionStatus, to model.SubscriptionStatus, canceledAt *time.Time, periodStart, periodEnd *time.Time) (bool, error) {
	if r.UpdateStatusIfFunc != nil {
		return r.UpdateStatusIfFunc(ctx, qx, id, from, to, canceledAt, periodStart, periodEnd)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, f := range from {
		if s.Status == f {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	s.Status = to
	if canceledAt != nil {
		t := *canceledAt
		s.CanceledAt = &t
	}
	if periodStart != nil {
		s.CurrentPeriodStart = *periodStart
	}
	if periodEnd != nil {
		s.CurrentPeriodEnd = *periodEnd
	}
	s.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockSubscriptionRepo) ListActiveEndedBefore(ctx context.Context, qx any, before time.Time, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.subs {
		switch s.Status {
		case model.SubscriptionStatusActive, model.SubscriptionStatusPastDue, model.SubscriptionStatusCanceled:
		default:
			continue
		}
		if s.CurrentPeriodEnd.Before(before) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock SubscriptionPlanRepository ----

type MockPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.SubscriptionPlan
}

var _ repository.SubscriptionPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{plans: map[string]*model.SubscriptionPlan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, qx any, plan *model.SubscriptionPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *plan
	r.plans[plan.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, qx any, id string) (*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.plans[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPlanRepo) ListAll(ctx context.Context, qx any) ([]*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionPlan
	for _, p := range r.plans {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// ---- Mock DiscountRepository ----

type MockDiscountRepo struct {
	mu     sync.Mutex
	codes  map[string]*model.DiscountCode
	usages []*model.DiscountCodeUsage

	IncrementUsedCountFunc func(ctx context.Context, qx any, discountCodeID string) (bool, error)
	InsertUsageFunc        func(ctx context.Context, qx any, usage *model.DiscountCodeUsage) error
}

var _ repository.DiscountRepository = (*MockDiscountRepo)(nil)

func NewMockDiscountRepo() *MockDiscountRepo {
	return &MockDiscountRepo{codes: map[string]*model.DiscountCode{}}
}

func (r *MockDiscountRepo) Seed(dc *model.DiscountCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *dc
	r.codes[dc.ID] = &cp
}

func (r *MockDiscountRepo) Usages() []*model.DiscountCodeUsage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.DiscountCodeUsage, len(r.usages))
	copy(out, r.usages)
	return out
}

func (r *MockDiscountRepo) Save(ctx context.Context, qx any, code *model.DiscountCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *code
	r.codes[code.ID] = &cp
	return nil
}

func (r *MockDiscountRepo) FindByID(ctx context.Context, qx any, id string) (*model.DiscountCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dc, ok := r.codes[id]; ok {
		cp := *dc
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockDiscountRepo) FindByCode(ctx context.Context, qx any, code string) (*model.DiscountCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, dc := range r.codes {
		if dc.Code == code {
			cp := *dc
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockDiscountRepo) ListAll(ctx context.Context, qx any) ([]*model.DiscountCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.DiscountCode
	for _, dc := range r.codes {
		cp := *dc
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockDiscountRepo) Deactivate(ctx context.Context, qx any, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dc, ok := r.codes[id]
	if !ok {
		return domain.ErrNotFound
	}
	dc.IsActive = false
	return nil
}

func (r *MockDiscountRepo) CountUsagesByUser(ctx context.Context, qx any, discountCodeID, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.usages {
		if u.DiscountCodeID == discountCodeID && u.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MockDiscountRepo) InsertUsage(ctx context.Context, qx any, usage *model.DiscountCodeUsage) error {
	if r.InsertUsageFunc != nil {
		return r.InsertUsageFunc(ctx, qx, usage)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *usage
	r.usages = append(r.usages, &cp)
	return nil
}

func (r *MockDiscountRepo) IncrementUsedCount(ctx context.Context, qx any, discountCodeID string) (bool, error) {
	if r.IncrementUsedCountFunc != nil {
		return r.IncrementUsedCountFunc(ctx, qx, discountCodeID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	dc, ok := r.codes[discountCodeID]
	if !ok {
		return false, nil
	}
	if dc.MaxUsesTotal > 0 && dc.UsedCount >= dc.MaxUsesTotal {
		return false, nil
	}
	dc.UsedCount++
	return true, nil
}

// ---- Mock CheckoutStateRepository ----

type MockCheckoutStateRepo struct {
	mu    sync.Mutex
	state map[string]*repository.CheckoutContext

	GetFunc func(ctx context.Context, userID string) (*repository.CheckoutContext, error)
}

var _ repository.CheckoutStateRepository = (*MockCheckoutStateRepo)(nil)

func NewMockCheckoutStateRepo() *MockCheckoutStateRepo {
	return &MockCheckoutStateRepo{state: map[string]*repository.CheckoutContext{}}
}

func (r *MockCheckoutStateRepo) Set(ctx context.Context, userID string, state *repository.CheckoutContext) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *state
	r.state[userID] = &cp
	return nil
}

func (r *MockCheckoutStateRepo) Get(ctx context.Context, userID string) (*repository.CheckoutContext, error) {
	if r.GetFunc != nil {
		return r.GetFunc(ctx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.state[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (r *MockCheckoutStateRepo) Clear(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, userID)
	return nil
}

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	CreateOrderFunc        func(ctx context.Context, req adapter.CreateOrderRequest) (string, string, error)
	CaptureOrderFunc       func(ctx context.Context, orderID string) (*adapter.CaptureResult, error)
	CreateSubscriptionFunc func(ctx context.Context, providerPlanID string, priceCents int64, currency string, customID string) (string, string, error)

	LastCreateOrder *adapter.CreateOrderRequest
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (g *MockPaymentGateway) Name() string { return "mock" }

func (g *MockPaymentGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (string, string, error) {
	g.LastCreateOrder = &req
	if g.CreateOrderFunc != nil {
		return g.CreateOrderFunc(ctx, req)
	}
	return "ORDER-1", "https://pay.example/approve/ORDER-1", nil
}

func (g *MockPaymentGateway) CaptureOrder(ctx context.Context, orderID string) (*adapter.CaptureResult, error) {
	if g.CaptureOrderFunc != nil {
		return g.CaptureOrderFunc(ctx, orderID)
	}
	return &adapter.CaptureResult{OrderID: orderID, Status: adapter.CaptureStatusCompleted}, nil
}

func (g *MockPaymentGateway) CreateSubscription(ctx context.Context, providerPlanID string, priceCents int64, currency string, customID string) (string, string, error) {
	if g.CreateSubscriptionFunc != nil {
		return g.CreateSubscriptionFunc(ctx, providerPlanID, priceCents, currency, customID)
	}
	return "SUB-1", "https://pay.example/approve/SUB-1", nil
}

func (g *MockPaymentGateway) VerifyWebhookSignature(transmissionID, timestamp string, body []byte, signature string) bool {
	return signature == "valid"
}

// ---- Mock InvoiceGenerator ----

type MockInvoiceGenerator struct {
	mu       sync.Mutex
	Invoices []model.Invoice

	GenerateFunc func(ctx context.Context, inv model.Invoice) (string, error)
}

var _ adapter.InvoiceGenerator = (*MockInvoiceGenerator)(nil)

func (g *MockInvoiceGenerator) Generate(ctx context.Context, inv model.Invoice) (string, error) {
	if g.GenerateFunc != nil {
		return g.GenerateFunc(ctx, inv)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Invoices = append(g.Invoices, inv)
	return model.NewID(), nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
