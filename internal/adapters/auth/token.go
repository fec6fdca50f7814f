package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"nextfare/internal/domain"
)

type jwtClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier returns an IdentityVerifier for HS256-signed bearer tokens.
// Tokens are issued by the external identity collaborator; this backend only
// verifies them and extracts the (subject, email) pair.
func NewJWTVerifier(secret string) domain.IdentityVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) Verify(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return domain.Identity{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return domain.Identity{}, errors.New("token has no subject")
	}
	return domain.Identity{SubjectID: claims.Subject, Email: claims.Email}, nil
}
