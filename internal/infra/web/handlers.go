package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"audio-commerce/internal/domain"
	"audio-commerce/internal/domain/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain sentinels to HTTP statuses. Unknown errors become
// opaque 500s so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrCurrencyMismatch):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrDiscountNotFound),
		errors.Is(err, domain.ErrDiscountInactive),
		errors.Is(err, domain.ErrDiscountNotStarted),
		errors.Is(err, domain.ErrDiscountExpired),
		errors.Is(err, domain.ErrDiscountExhausted),
		errors.Is(err, domain.ErrDiscountNotApplicable),
		errors.Is(err, domain.ErrDiscountMinPurchase),
		errors.Is(err, domain.ErrDiscountUserLimit):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrAmountMismatch):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrCaptureNotComplete):
		writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrProvider):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "payment provider unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// ===== checkout =====

type createOrderRequest struct {
	DiscountCode string `json:"discount_code"`
}

func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	var req createOrderRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // empty body means no code
	}

	order, err := s.checkoutUC.CreateOrder(r.Context(), claims.UserID(), req.DiscountCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

type captureOrderRequest struct {
	OrderID string `json:"order_id"`
}

func (s *Server) captureOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req captureOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "order_id is required"})
		return
	}

	outcome, err := s.checkoutUC.CaptureOrder(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type createSubscriptionOrderRequest struct {
	PlanID       string `json:"plan_id"`
	DiscountCode string `json:"discount_code"`
}

func (s *Server) createSubscriptionOrderHandler(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	var req createSubscriptionOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "plan_id is required"})
		return
	}

	order, err := s.checkoutUC.CreateSubscriptionOrder(r.Context(), claims.UserID(), req.PlanID, req.DiscountCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// ===== entitlement =====

type accessResponse struct {
	HasAccess bool   `json:"has_access"`
	Reason    string `json:"reason"`
}

func (s *Server) contentAccessHandler(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "contentID")
	trackID := r.URL.Query().Get("track_id")

	var userID string
	if claims := ClaimsFrom(r.Context()); claims != nil {
		userID = claims.UserID()
	}

	decision, err := s.entitlementUC.ResolveByID(r.Context(), userID, contentID, trackID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accessResponse{
		HasAccess: decision.HasAccess,
		Reason:    string(decision.Reason),
	})
}

// ===== subscriptions =====

func (s *Server) cancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	subID := chi.URLParam(r, "subscriptionID")

	sub, err := s.subUC.Cancel(r.Context(), subID, claims.UserID())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ===== purchases =====

func (s *Server) purchaseHistoryHandler(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	userID := chi.URLParam(r, "userID")

	// Users read their own history; admins read anyone's.
	if claims.UserID() != userID && claims.Role != string(model.RoleAdmin) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	purchases, err := s.purchaseUC.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := struct {
		Data []*model.Purchase `json:"data"`
	}{Data: purchases}
	writeJSON(w, http.StatusOK, response)
}

// ===== admin discounts =====

type discountRequest struct {
	Code                   string     `json:"code"`
	Type                   string     `json:"type"`
	Value                  int64      `json:"value"`
	MinPurchaseCents       int64      `json:"min_purchase_cents"`
	MaxUsesTotal           int        `json:"max_uses_total"`
	MaxUsesPerUser         int        `json:"max_uses_per_user"`
	ValidFrom              *time.Time `json:"valid_from"`
	ValidUntil             *time.Time `json:"valid_until"`
	AppliesToPurchases     bool       `json:"applies_to_purchases"`
	AppliesToSubscriptions bool       `json:"applies_to_subscriptions"`
	IsActive               bool       `json:"is_active"`
}

func (req *discountRequest) toModel(id string) *model.DiscountCode {
	dc := &model.DiscountCode{
		ID:                     id,
		Code:                   req.Code,
		Type:                   model.DiscountType(req.Type),
		Value:                  req.Value,
		MinPurchaseCents:       req.MinPurchaseCents,
		MaxUsesTotal:           req.MaxUsesTotal,
		MaxUsesPerUser:         req.MaxUsesPerUser,
		AppliesToPurchases:     req.AppliesToPurchases,
		AppliesToSubscriptions: req.AppliesToSubscriptions,
		IsActive:               req.IsActive,
	}
	dc.ValidFrom = req.ValidFrom
	dc.ValidUntil = req.ValidUntil
	return dc
}

func (s *Server) discountCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	created, err := s.discountUC.Create(r.Context(), req.toModel(""))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) discountUpdateHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "discountID")

	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.discountUC.Update(r.Context(), req.toModel(id)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) discountListHandler(w http.ResponseWriter, r *http.Request) {
	codes, err := s.discountUC.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response := struct {
		Data []*model.DiscountCode `json:"data"`
	}{Data: codes}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) discountDeactivateHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.discountUC.Deactivate(r.Context(), chi.URLParam(r, "discountID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
