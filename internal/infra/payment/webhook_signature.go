package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyWebhookSignature authenticates a webhook delivery. The signature is
// HMAC-SHA256 over transmissionID|timestamp|body keyed with the shared
// webhook secret, hex encoded.
func (g *PayPalGateway) VerifyWebhookSignature(transmissionID, timestamp string, body []byte, signature string) bool {
	if g.webhookSecret == "" || signature == "" {
		return false
	}

	h := hmac.New(sha256.New, []byte(g.webhookSecret))
	h.Write([]byte(transmissionID))
	h.Write([]byte("|"))
	h.Write([]byte(timestamp))
	h.Write([]byte("|"))
	h.Write(body)
	expected := hex.EncodeToString(h.Sum(nil))

	return strings.EqualFold(expected, signature)
}
