package security

import (
	"testing"
	"time"

	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
	"github.com/settlehq/settle/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureVerifier(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Webhook.Secret = "whsec"
	v := NewSignatureVerifier(cfg)

	body := []byte(`{"transactionHash":"0xabc"}`)
	valid := ComputeSignature([]byte("whsec"), body)

	tests := []struct {
		name      string
		body      []byte
		signature string
		wantErr   bool
	}{
		{name: "bare hex", body: body, signature: valid},
		{name: "prefixed", body: body, signature: "sha256=" + valid},
		{name: "upper case", body: body, signature: "SHA256=" + valid},
		{name: "signed helper", body: body, signature: v.Sign(body)},
		{name: "tampered body", body: []byte(`{"transactionHash":"0xabd"}`), signature: valid, wantErr: true},
		{name: "missing", body: body, signature: "", wantErr: true},
		{name: "not hex", body: body, signature: "zzzz", wantErr: true},
		{name: "wrong secret", body: body, signature: ComputeSignature([]byte("other"), body), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(tt.body, tt.signature)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsUnauthenticated(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSignatureVerifierWithoutSecret(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Deployment.Mode = types.ModeAPI
	assert.Error(t, NewSignatureVerifier(cfg).Verify([]byte("{}"), ""))

	cfg.Deployment.Mode = types.ModeLocal
	assert.NoError(t, NewSignatureVerifier(cfg).Verify([]byte("{}"), ""))
}

func TestTokenValidator(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Auth.Secret = "secret"
	v := NewTokenValidator(cfg)

	token, err := v.GenerateToken("user_1", time.Hour)
	require.NoError(t, err)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.UserID)

	expired, err := v.GenerateToken("user_1", -time.Hour)
	require.NoError(t, err)
	_, err = v.ValidateToken(expired)
	assert.True(t, ierr.IsUnauthenticated(err))

	cfg.Auth.Secret = "other"
	_, err = NewTokenValidator(cfg).ValidateToken(token)
	assert.Error(t, err)
}
