//go:build !integration

package web_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/adapter"
	"audio-commerce/internal/infra/web"
	"audio-commerce/internal/usecase"
)

// ---- Stub CheckoutUseCase ----

type StubCheckoutUC struct {
	CreateOrderFunc             func(ctx context.Context, userID, discountCode string) (*usecase.OrderCreated, error)
	CaptureOrderFunc            func(ctx context.Context, providerOrderID string) (*usecase.CaptureOutcome, error)
	CreateSubscriptionOrderFunc func(ctx context.Context, userID, planID, discountCode string) (*usecase.SubscriptionOrderCreated, error)
	OnCaptureCompletedFunc      func(ctx context.Context, providerOrderID string, captures []adapter.CaptureUnit) (*usecase.CaptureOutcome, error)
	OnCaptureRefundedFunc       func(ctx context.Context, providerCaptureID string) error
}

var _ usecase.CheckoutUseCase = (*StubCheckoutUC)(nil)

func (s *StubCheckoutUC) CreateOrder(ctx context.Context, userID, discountCode string) (*usecase.OrderCreated, error) {
	return s.CreateOrderFunc(ctx, userID, discountCode)
}

func (s *StubCheckoutUC) CaptureOrder(ctx context.Context, providerOrderID string) (*usecase.CaptureOutcome, error) {
	return s.CaptureOrderFunc(ctx, providerOrderID)
}

func (s *StubCheckoutUC) CreateSubscriptionOrder(ctx context.Context, userID, planID, discountCode string) (*usecase.SubscriptionOrderCreated, error) {
	return s.CreateSubscriptionOrderFunc(ctx, userID, planID, discountCode)
}

func (s *StubCheckoutUC) OnCaptureCompleted(ctx context.Context, providerOrderID string, captures []adapter.CaptureUnit) (*usecase.CaptureOutcome, error) {
	return s.OnCaptureCompletedFunc(ctx, providerOrderID, captures)
}

func (s *StubCheckoutUC) OnCaptureRefunded(ctx context.Context, providerCaptureID string) error {
	return s.OnCaptureRefundedFunc(ctx, providerCaptureID)
}

// ---- Stub EntitlementUseCase ----

type StubEntitlementUC struct {
	ResolveByIDFunc func(ctx context.Context, userID, contentID, trackID string) (usecase.AccessDecision, error)
}

var _ usecase.EntitlementUseCase = (*StubEntitlementUC)(nil)

func (s *StubEntitlementUC) Resolve(ctx context.Context, user *model.User, item *model.ContentItem) usecase.AccessDecision {
	return usecase.AccessDecision{}
}

func (s *StubEntitlementUC) ResolveTrack(ctx context.Context, user *model.User, item *model.ContentItem, track *model.Track) usecase.AccessDecision {
	return usecase.AccessDecision{}
}

func (s *StubEntitlementUC) ResolveByID(ctx context.Context, userID, contentID, trackID string) (usecase.AccessDecision, error) {
	return s.ResolveByIDFunc(ctx, userID, contentID, trackID)
}

// ---- Stub SubscriptionUseCase ----

type StubSubscriptionUC struct {
	ActivateFromProviderFunc func(ctx context.Context, providerSubID, customID string, periodStart, periodEnd time.Time) (*model.Subscription, error)
	CancelFunc               func(ctx context.Context, subscriptionID, userID string) (*model.Subscription, error)
	ApplyProviderEventFunc   func(ctx context.Context, providerSubID, kind string, periodEnd *time.Time) error
}

var _ usecase.SubscriptionUseCase = (*StubSubscriptionUC)(nil)

func (s *StubSubscriptionUC) ActivateFromProvider(ctx context.Context, providerSubID, customID string, periodStart, periodEnd time.Time) (*model.Subscription, error) {
	return s.ActivateFromProviderFunc(ctx, providerSubID, customID, periodStart, periodEnd)
}

func (s *StubSubscriptionUC) Cancel(ctx context.Context, subscriptionID, userID string) (*model.Subscription, error) {
	return s.CancelFunc(ctx, subscriptionID, userID)
}

func (s *StubSubscriptionUC) ApplyProviderEvent(ctx context.Context, providerSubID, kind string, periodEnd *time.Time) error {
	return s.ApplyProviderEventFunc(ctx, providerSubID, kind, periodEnd)
}

func (s *StubSubscriptionUC) HasActive(ctx context.Context, userID string) (bool, error) {
	return false, nil
}

func (s *StubSubscriptionUC) GetCurrent(ctx context.Context, userID string) (*model.Subscription, error) {
	return nil, nil
}

// ---- Stub DiscountUseCase ----

type StubDiscountUC struct {
	CreateFunc     func(ctx context.Context, code *model.DiscountCode) (*model.DiscountCode, error)
	UpdateFunc     func(ctx context.Context, code *model.DiscountCode) error
	ListFunc       func(ctx context.Context) ([]*model.DiscountCode, error)
	DeactivateFunc func(ctx context.Context, id string) error
}

var _ usecase.DiscountUseCase = (*StubDiscountUC)(nil)

func (s *StubDiscountUC) Validate(ctx context.Context, qx any, code, userID string, cartTotalCents int64, forSubscription bool) (*model.DiscountCode, error) {
	return nil, nil
}

func (s *StubDiscountUC) Record(ctx context.Context, qx any, discountCodeID, userID string, purchaseID *string, amountCents int64) error {
	return nil
}

func (s *StubDiscountUC) Create(ctx context.Context, code *model.DiscountCode) (*model.DiscountCode, error) {
	return s.CreateFunc(ctx, code)
}

func (s *StubDiscountUC) Update(ctx context.Context, code *model.DiscountCode) error {
	return s.UpdateFunc(ctx, code)
}

func (s *StubDiscountUC) List(ctx context.Context) ([]*model.DiscountCode, error) {
	return s.ListFunc(ctx)
}

func (s *StubDiscountUC) Deactivate(ctx context.Context, id string) error {
	return s.DeactivateFunc(ctx, id)
}

// ---- Stub PurchaseQueryUseCase ----

type StubPurchaseQueryUC struct {
	ListByUserFunc func(ctx context.Context, userID string) ([]*model.Purchase, error)
}

var _ usecase.PurchaseQueryUseCase = (*StubPurchaseQueryUC)(nil)

func (s *StubPurchaseQueryUC) ListByUser(ctx context.Context, userID string) ([]*model.Purchase, error) {
	return s.ListByUserFunc(ctx, userID)
}

// ---- Stub PaymentGateway (signature check only) ----

type StubGateway struct{}

var _ adapter.PaymentGateway = (*StubGateway)(nil)

func (g *StubGateway) Name() string { return "stub" }

func (g *StubGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (string, string, error) {
	return "", "", nil
}

func (g *StubGateway) CaptureOrder(ctx context.Context, orderID string) (*adapter.CaptureResult, error) {
	return nil, nil
}

func (g *StubGateway) CreateSubscription(ctx context.Context, providerPlanID string, priceCents int64, currency string, customID string) (string, string, error) {
	return "", "", nil
}

func (g *StubGateway) VerifyWebhookSignature(transmissionID, timestamp string, body []byte, signature string) bool {
	return signature == "valid"
}

// ---- Stub WebhookEventRepository ----

type StubEventRepo struct {
	mu   sync.Mutex
	seen map[string]bool

	MarkProcessedFunc func(ctx context.Context, qx any, eventID, eventType string) (bool, error)
}

func NewStubEventRepo() *StubEventRepo { return &StubEventRepo{seen: map[string]bool{}} }

func (r *StubEventRepo) MarkProcessed(ctx context.Context, qx any, eventID, eventType string) (bool, error) {
	if r.MarkProcessedFunc != nil {
		return r.MarkProcessedFunc(ctx, qx, eventID, eventType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[eventID] {
		return false, nil
	}
	r.seen[eventID] = true
	return true, nil
}

func (r *StubEventRepo) ClearProcessed(ctx context.Context, qx any, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seen, eventID)
	return nil
}

// ---- server harness ----

type serverDeps struct {
	checkout  *StubCheckoutUC
	entitle   *StubEntitlementUC
	subs      *StubSubscriptionUC
	discounts *StubDiscountUC
	purchases *StubPurchaseQueryUC
	events    *StubEventRepo
	auth      *web.AuthManager
	router    chi.Router
}

func newServerDeps() *serverDeps {
	logger := zerolog.New(io.Discard)
	d := &serverDeps{
		checkout:  &StubCheckoutUC{},
		entitle:   &StubEntitlementUC{},
		subs:      &StubSubscriptionUC{},
		discounts: &StubDiscountUC{},
		purchases: &StubPurchaseQueryUC{},
		events:    NewStubEventRepo(),
		auth:      web.NewAuthManager("test-secret", time.Hour),
	}
	webhooks := web.NewWebhookHandler(&StubGateway{}, d.events, nil, d.checkout, d.subs, &logger)
	srv := web.NewServer(d.checkout, d.entitle, d.subs, d.discounts, d.purchases, webhooks, d.auth, &logger)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	d.router = r
	return d
}

func (d *serverDeps) token(userID string, role model.Role) string {
	tok, err := d.auth.Mint(userID, role)
	if err != nil {
		panic(err)
	}
	return tok
}
