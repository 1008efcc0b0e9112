package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/satriahrh/learnvoice/internal/cachekey"
)

const (
	RoleAdmin = "admin"
	RoleAudio = "audio"
)

// AudioPath is the route prefix under which self-hosted blobs are served
const AudioPath = "/api/v1/audio/"

var ErrTokenMismatch = errors.New("token does not grant access to this object")

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	Key  string `json:"key,omitempty"`
	Role string `json:"role"` // "admin" or "audio"
	jwt.RegisteredClaims
}

// Signer issues and validates HS256 tokens for admin access and audio downloads
type Signer struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

// NewSigner creates a signer. baseURL is the public origin audio URLs are built on.
func NewSigner(secret, baseURL string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is required")
	}
	return &Signer{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// GenerateAdminToken generates a JWT token for cache administration
func (s *Signer) GenerateAdminToken(ttl time.Duration) (string, error) {
	claims := &JWTClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}
	return s.sign(claims)
}

// SignURL returns a download URL for the key that stays valid for ttl
func (s *Signer) SignURL(key cachekey.Key, ttl time.Duration) (string, error) {
	claims := &JWTClaims{
		Key:  key.String(),
		Role: RoleAudio,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}

	token, err := s.sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign audio token: %w", err)
	}

	return s.baseURL + AudioPath + key.Filename() + "?token=" + url.QueryEscape(token), nil
}

// VerifyAudioToken checks that token grants access to key
func (s *Signer) VerifyAudioToken(token string, key cachekey.Key) error {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return err
	}
	if claims.Role != RoleAudio || claims.Key != key.String() {
		return ErrTokenMismatch
	}
	return nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *Signer) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}

func (s *Signer) sign(claims *JWTClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
