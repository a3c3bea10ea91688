// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errInvalidToken = errors.New("invalid token")
	errTokenRevoked = errors.New("token has been revoked")
)

// tokenClaims are carried inside every bearer token we issue.
// Subject holds the Account ID and ID (jti) identifies the token
// on the denylist.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// denylist is satisfied by *revocation.Denylist
type denylist interface {
	Revoke(id string, expiresAt time.Time) error
	IsRevoked(id string) (bool, error)
}

// tokenService issues, verifies and invalidates bearer tokens.
type tokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration

	revoked denylist
	now     func() time.Time
}

func newTokenService(secret string, issuer string, ttl time.Duration, revoked denylist) (*tokenService, error) {
	if secret == "" {
		return nil, errors.New("token: empty signing secret")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token: invalid ttl %v", ttl)
	}
	if revoked == nil {
		return nil, errors.New("token: nil denylist")
	}
	return &tokenService{
		secret:  []byte(secret),
		issuer:  issuer,
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}, nil
}

// issue creates a signed token bound to the account.
func (s *tokenService) issue(a *Account) (string, *tokenClaims, error) {
	if a == nil || a.ID == "" {
		return "", nil, errors.New("token: missing account")
	}
	now := s.now()
	claims := &tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        generateID(),
			Subject:   a.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: a.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("token: sign: %v", err)
	}
	return signed, claims, nil
}

// verify checks the signature, expiry and issuer of raw and then
// consults the denylist.
func (s *tokenService) verify(raw string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, errInvalidToken
	}

	revoked, err := s.revoked.IsRevoked(claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errTokenRevoked
	}
	return claims, nil
}

// invalidate puts the token on the denylist until it would have expired.
func (s *tokenService) invalidate(claims *tokenClaims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return errors.New("token: missing claims")
	}
	return s.revoked.Revoke(claims.ID, claims.ExpiresAt.Time)
}
