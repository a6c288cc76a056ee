package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/usecase"
)

// Server owns the HTTP surface: checkout, entitlement, subscriptions,
// provider webhooks and the admin discount API.
type Server struct {
	checkoutUC    usecase.CheckoutUseCase
	entitlementUC usecase.EntitlementUseCase
	subUC         usecase.SubscriptionUseCase
	discountUC    usecase.DiscountUseCase
	purchaseUC    usecase.PurchaseQueryUseCase
	webhooks      *WebhookHandler
	auth          *AuthManager
	log           *zerolog.Logger
}

func NewServer(
	checkoutUC usecase.CheckoutUseCase,
	entitlementUC usecase.EntitlementUseCase,
	subUC usecase.SubscriptionUseCase,
	discountUC usecase.DiscountUseCase,
	purchaseUC usecase.PurchaseQueryUseCase,
	webhooks *WebhookHandler,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		checkoutUC:    checkoutUC,
		entitlementUC: entitlementUC,
		subUC:         subUC,
		discountUC:    discountUC,
		purchaseUC:    purchaseUC,
		webhooks:      webhooks,
		auth:          auth,
		log:           logger,
	}
}

// RegisterRoutes mounts all routes on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/payment", s.webhooks.Handle)

		r.Group(func(r chi.Router) {
			r.Use(s.optionalAuth)
			r.Get("/content/{contentID}/access", s.contentAccessHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/checkout/order", s.createOrderHandler)
			r.Post("/checkout/capture", s.captureOrderHandler)
			r.Post("/checkout/subscription", s.createSubscriptionOrderHandler)
			r.Post("/subscriptions/{subscriptionID}/cancel", s.cancelSubscriptionHandler)
			r.Get("/users/{userID}/purchases", s.purchaseHistoryHandler)
		})

		r.Route("/admin/discounts", func(r chi.Router) {
			r.Use(s.requireAuth, s.requireAdmin)
			r.Get("/", s.discountListHandler)
			r.Post("/", s.discountCreateHandler)
			r.Put("/{discountID}", s.discountUpdateHandler)
			r.Delete("/{discountID}", s.discountDeactivateHandler)
		})
	})
}

// optionalAuth attaches claims when a valid token is present and lets
// anonymous requests through.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, err := s.auth.ParseFromRequest(r); err == nil {
			r = r.WithContext(withClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFrom(r.Context())
		if claims == nil || claims.Role != string(model.RoleAdmin) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
