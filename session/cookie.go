package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// CookieRepository keeps the whole record on the client as an HS256 signed
// token. Nothing is stored server side, so Delete only relies on the client
// dropping its cookie.
type CookieRepository struct {
	secret []byte
}

type cookieClaims struct {
	Kind    Kind   `json:"kind"`
	Name    string `json:"name,omitempty"`
	LoginAt int64  `json:"login_at"`
	jwt.RegisteredClaims
}

func NewCookieRepository(secret string) *CookieRepository {
	return &CookieRepository{secret: []byte(secret)}
}

func (r *CookieRepository) Save(_ context.Context, rec Record) (string, error) {
	claims := cookieClaims{
		Kind:    rec.Kind,
		Name:    rec.Name,
		LoginAt: rec.LoginTime.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rec.Identity,
			IssuedAt:  jwt.NewNumericDate(rec.LoginTime),
			ExpiresAt: jwt.NewNumericDate(rec.ExpiresAt()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

// Load verifies the signature only. Expiry is judged by Manager against its
// own clock.
func (r *CookieRepository) Load(_ context.Context, token string) (Record, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	var claims cookieClaims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("parse session token: %w", err)
	}
	if _, err := ParseKind(string(claims.Kind)); err != nil {
		return Record{}, ErrNotFound
	}
	return Record{
		Kind:      claims.Kind,
		Identity:  claims.Subject,
		Name:      claims.Name,
		LoginTime: time.UnixMilli(claims.LoginAt),
	}, nil
}

func (r *CookieRepository) Delete(context.Context, string) error {
	return nil
}
