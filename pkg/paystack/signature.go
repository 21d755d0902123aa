package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"

	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
)

// SignatureHeader is the header Paystack signs webhook deliveries with.
const SignatureHeader = "X-Paystack-Signature"

// ComputeSignature returns the hex HMAC-SHA512 digest of body under secret.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the webhook signature before any JSON parsing. The
// comparison is constant-time.
func VerifySignature(secret string, body []byte, signature string) error {
	if signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature header missing")
	}
	expected := ComputeSignature(secret, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature mismatch")
	}
	return nil
}
