package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
)

const signaturePrefix = "sha256="

// SignatureVerifier checks inbound webhook signatures: HMAC-SHA256 over the raw body,
// hex encoded, optionally prefixed with "sha256=".
type SignatureVerifier struct {
	secret []byte
	// allowUnsigned is only set for local deployments without a secret
	allowUnsigned bool
}

func NewSignatureVerifier(cfg *config.Configuration) *SignatureVerifier {
	return &SignatureVerifier{
		secret:        []byte(cfg.Webhook.Secret),
		allowUnsigned: cfg.Webhook.Secret == "" && cfg.Deployment.Mode == types.ModeLocal,
	}
}

// Sign returns the signature header value for body
func (v *SignatureVerifier) Sign(body []byte) string {
	return signaturePrefix + ComputeSignature(v.secret, body)
}

// Verify returns ErrUnauthenticated unless signature matches body
func (v *SignatureVerifier) Verify(body []byte, signature string) error {
	if len(v.secret) == 0 {
		if v.allowUnsigned {
			return nil
		}
		return ierr.NewError("webhook secret is not configured").
			WithHint("Webhook verification is not configured on this deployment").
			Mark(ierr.ErrUnauthenticated)
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ierr.NewError("missing webhook signature").
			WithHint("Webhook signature header is required").
			Mark(ierr.ErrUnauthenticated)
	}

	got, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(signature), signaturePrefix))
	if err != nil {
		return ierr.NewError("malformed webhook signature").
			WithHint("Webhook signature must be hex encoded").
			Mark(ierr.ErrUnauthenticated)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ierr.NewError("webhook signature mismatch").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrUnauthenticated)
	}
	return nil
}

// ComputeSignature returns the hex encoded HMAC-SHA256 of body
func ComputeSignature(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
