// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives: password hashing and the
// session token codec.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing) from the
// authorization pipeline. Both primitives are constructed from explicit
// configuration in main.go and injected; nothing here reads the environment.
package sec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/bazaar/internal/platform/constants"
)

// # Verification Failures

var (
	// ErrMalformedToken is returned when the header is absent or the token cannot be parsed.
	ErrMalformedToken = errors.New("sec: malformed token")

	// ErrBadSignature is returned when the signature does not match the payload bytes.
	ErrBadSignature = errors.New("sec: bad token signature")

	// ErrExpired is returned when the current time is past the token expiry.
	ErrExpired = errors.New("sec: token expired")
)

// Claims is the payload embedded inside a session token.
//
// Identity and Email are abbreviated on the wire to keep the token small.
// The registered claims carry iat, exp and iss.
type Claims struct {
	jwt.RegisteredClaims

	Identity string `json:"uid,omitempty"`
	Email    string `json:"eml"`
}

// Token is a signed, compact session token together with its expiry.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec signs and verifies HS256 session tokens with a process-wide secret.
//
// Verification is purely cryptographic: it never touches a store.
type TokenCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// CodecOption customizes a [TokenCodec].
type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) CodecOption {
	return func(codec *TokenCodec) {
		codec.now = now
	}
}

// NewTokenCodec creates a codec from a signing secret and issuer.
func NewTokenCodec(secret []byte, issuer string, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) < constants.MinSecretBytes {
		return nil, fmt.Errorf("sec: signing secret must be at least %d bytes", constants.MinSecretBytes)
	}

	// Copy so later mutation of the caller's slice cannot change the key.
	key := make([]byte, len(secret))
	copy(key, secret)

	codec := &TokenCodec{secret: key, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(codec)
	}
	return codec, nil
}

// Issue signs a token for identity and email valid for ttl.
//
// A zero or negative ttl produces a token that is already expired.
func (codec *TokenCodec) Issue(identity, email string, ttl time.Duration) (Token, error) {
	issuedAt := codec.now().Truncate(jwt.TimePrecision)
	expiresAt := issuedAt.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Identity: identity,
		Email:    email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(codec.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return Token{Value: signed, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature and expiry of a compact token string.
//
// The returned error is always one of [ErrMalformedToken], [ErrBadSignature]
// or [ErrExpired], wrapped with the parser's reason.
func (codec *TokenCodec) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMalformedToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return codec.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(codec.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(codec.now),
	)
	if err != nil {
		return nil, classify(err)
	}

	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email claim", ErrMalformedToken)
	}

	return claims, nil
}

// classify maps jwt parser errors onto the three verification failures.
// The signature is checked before claims, so an altered payload never reports Expired.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		// Signature mismatch, unexpected alg, wrong issuer, not-yet-valid.
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
}

// ParseBearer extracts the token from an "Authorization: Bearer <token>" header value.
func ParseBearer(header string) (string, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, constants.BearerScheme) {
		return "", ErrMalformedToken
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMalformedToken
	}
	return token, nil
}
