// Package editortoken issues and validates the signed tokens editors
// authenticate with.
package editortoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bioport/internal/platform/middleware"
	dErrors "bioport/pkg/domain-errors"
)

// Claims carries the editor identity inside the token.
type Claims struct {
	Editor string `json:"editor"`
	jwt.RegisteredClaims
}

// Service signs and validates editor tokens with a shared HMAC key.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue creates a signed token for the editor.
func (s *Service) Issue(editor string, expiresIn time.Duration) (string, error) {
	if editor == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "editor name is required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Editor: editor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign editor token")
	}
	return signed, nil
}

// ValidateToken parses the token and returns the editor claims.
// Implements the middleware validator contract.
func (s *Service) ValidateToken(tokenString string) (*middleware.EditorClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Editor == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &middleware.EditorClaims{Editor: claims.Editor}, nil
}
