package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign : HMAC-SHA256 hex des champs joints par "|"
func Sign(secret string, fields ...string) string {
	return SignPayload(secret, []byte(strings.Join(fields, "|")))
}

// VerifySignature compare en temps constant, accepte ou rejette
func VerifySignature(secret, signature string, fields ...string) bool {
	return VerifyPayload(secret, []byte(strings.Join(fields, "|")), signature)
}

func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifyPayload(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := SignPayload(secret, payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
