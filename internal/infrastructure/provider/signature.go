package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/inmova/backend/internal/domain/shared"
)

// SignatureHeader is the header carrying the provider's HMAC signature
const SignatureHeader = "Webhook-Signature"

// SignatureVerifier checks webhook body signatures against the shared secret
// agreed with the payment provider.
type SignatureVerifier struct {
	secret []byte
}

// NewSignatureVerifier creates a verifier for the given shared secret
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Verify checks the hex-encoded HMAC-SHA256 signature over the raw body.
// The comparison is constant-time.
func (v *SignatureVerifier) Verify(body []byte, signature string) error {
	if signature == "" {
		return shared.ErrInvalidSignature
	}
	if !hmac.Equal([]byte(v.Sign(body)), []byte(signature)) {
		return shared.ErrInvalidSignature
	}
	return nil
}

// Sign computes the hex-encoded HMAC-SHA256 signature of a body. Exposed so
// tests and outbound callbacks can produce valid signatures.
func (v *SignatureVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
