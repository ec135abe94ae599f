package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/settlehq/settle/internal/config"
	ierr "github.com/settlehq/settle/internal/errors"
)

// Claims are the values carried by a bearer token
type Claims struct {
	UserID string
}

// TokenValidator checks HS256 bearer tokens issued by the account service
type TokenValidator struct {
	secret []byte
}

func NewTokenValidator(cfg *config.Configuration) *TokenValidator {
	return &TokenValidator{secret: []byte(cfg.Auth.Secret)}
}

func (t *TokenValidator) ValidateToken(token string) (*Claims, error) {
	if len(t.secret) == 0 {
		return nil, ierr.NewError("auth secret is not configured").
			WithHint("Authentication is not configured on this deployment").
			Mark(ierr.ErrUnauthenticated)
	}

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ierr.NewError("unexpected signing method").
				WithHint(fmt.Sprintf("unexpected signing method: %v", token.Header["alg"])).
				Mark(ierr.ErrUnauthenticated)
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Token parse error").
			Mark(ierr.ErrUnauthenticated)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid token claims").
			Mark(ierr.ErrUnauthenticated)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Token missing user ID").
			Mark(ierr.ErrUnauthenticated)
	}

	return &Claims{UserID: userID}, nil
}

// GenerateToken issues a token for userID. Used by scripts and tests, login lives elsewhere.
func (t *TokenValidator) GenerateToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to sign token").
			Mark(ierr.ErrSystem)
	}
	return signed, nil
}
