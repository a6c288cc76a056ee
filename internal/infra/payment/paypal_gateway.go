package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"audio-commerce/internal/config"
	"audio-commerce/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*PayPalGateway)(nil)

// PayPalGateway implements the payment port with direct HTTP calls against
// the PayPal v2 REST API.
type PayPalGateway struct {
	name          string
	baseURL       string
	clientID      string
	clientSecret  string
	webhookSecret string
	client        *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalGateway(cfg *config.PaymentConfig) *PayPalGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Sandbox {
			baseURL = "https://api-m.sandbox.paypal.com"
		} else {
			baseURL = "https://api-m.paypal.com"
		}
	}
	name := cfg.Provider
	if name == "" {
		name = "paypal"
	}
	return &PayPalGateway{
		name:          name,
		baseURL:       baseURL,
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		webhookSecret: cfg.WebhookSecret,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *PayPalGateway) Name() string { return g.name }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (g *PayPalGateway) getAccessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.accessToken != "" && time.Now().Before(g.tokenExpiry) {
		return g.accessToken, nil
	}

	auth := base64.StdEncoding.EncodeToString([]byte(g.clientID + ":" + g.clientSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal token error %d: %s", resp.StatusCode, string(b))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	g.accessToken = tok.AccessToken
	// refresh one minute early to avoid using a token that expires in flight
	g.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return g.accessToken, nil
}

func (g *PayPalGateway) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	token, err := g.getAccessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paypal error %d: %s", resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(raw))
		}
	}
	return nil
}

func (g *PayPalGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (string, string, error) {
	items := make([]map[string]any, 0, len(req.Lines))
	for _, line := range req.Lines {
		items = append(items, map[string]any{
			"name":     line.Name,
			"quantity": "1",
			"unit_amount": map[string]string{
				"currency_code": req.Currency,
				"value":         CentsToAmount(line.PriceCents),
			},
		})
	}

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"reference_id": req.ReferenceID,
				"items":        items,
				"amount": map[string]any{
					"currency_code": req.Currency,
					"value":         CentsToAmount(req.FinalTotalCents),
					"breakdown": map[string]any{
						"item_total": map[string]string{
							"currency_code": req.Currency,
							"value":         CentsToAmount(req.ItemTotalCents),
						},
						"discount": map[string]string{
							"currency_code": req.Currency,
							"value":         CentsToAmount(req.DiscountCents),
						},
					},
				},
			},
		},
	}

	var result orderResult
	if err := g.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", payload, &result); err != nil {
		return "", "", err
	}
	return result.ID, extractApproveURL(result.Links), nil
}

func (g *PayPalGateway) CaptureOrder(ctx context.Context, orderID string) (*adapter.CaptureResult, error) {
	var result Resource
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID)
	if err := g.doJSON(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return CaptureResultFromResource(&result), nil
}

func (g *PayPalGateway) CreateSubscription(ctx context.Context, providerPlanID string, priceCents int64, currency string, customID string) (string, string, error) {
	payload := map[string]any{
		"plan_id":   providerPlanID,
		"custom_id": customID,
		"plan": map[string]any{
			"billing_cycles": []map[string]any{
				{
					"sequence": 1,
					"pricing_scheme": map[string]any{
						"fixed_price": map[string]string{
							"currency_code": currency,
							"value":         CentsToAmount(priceCents),
						},
					},
				},
			},
		},
	}

	var result orderResult
	if err := g.doJSON(ctx, http.MethodPost, "/v1/billing/subscriptions", payload, &result); err != nil {
		return "", "", err
	}
	return result.ID, extractApproveURL(result.Links), nil
}

type orderResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []Link `json:"links"`
}

func extractApproveURL(links []Link) string {
	for _, link := range links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}
