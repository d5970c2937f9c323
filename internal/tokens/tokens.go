package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/portfolio/portfolio/backend/go-services/internal/config"
	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/pkg/middleware"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

var ErrWrongType = errors.New("token type mismatch")

// Claims is the payload of access and refresh tokens. Refresh tokens carry
// only the user id.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret        []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(cfg config.JWTConfig) *Issuer {
	refresh := cfg.RefreshSecret
	if refresh == "" {
		refresh = cfg.Secret
	}
	return &Issuer{
		secret:        []byte(cfg.Secret),
		refreshSecret: []byte(refresh),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		now:           time.Now,
	}
}

func (i *Issuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

func (i *Issuer) sign(c *Claims, ttl time.Duration, key []byte) (string, error) {
	now := i.now()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	c.ID = uuid.NewString()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(key)
}

// GenerateAccessToken creates a signed access token for the user.
func (i *Issuer) GenerateAccessToken(u *models.User) (string, error) {
	return i.sign(&Claims{UserID: u.ID.Hex(), Email: u.Email, Role: u.Role, Type: typeAccess}, i.accessTTL, i.secret)
}

// GenerateRefreshToken creates a signed refresh token for the user.
func (i *Issuer) GenerateRefreshToken(u *models.User) (string, error) {
	return i.sign(&Claims{UserID: u.ID.Hex(), Type: typeRefresh}, i.refreshTTL, i.refreshSecret)
}

func (i *Issuer) parse(raw string, key []byte, typ string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if c.Type != typ {
		return nil, ErrWrongType
	}
	return &c, nil
}

// ParseAccessToken validates an access token and returns its claims.
func (i *Issuer) ParseAccessToken(raw string) (*Claims, error) {
	return i.parse(raw, i.secret, typeAccess)
}

// ParseRefreshToken validates a refresh token and returns its claims.
func (i *Issuer) ParseRefreshToken(raw string) (*Claims, error) {
	return i.parse(raw, i.refreshSecret, typeRefresh)
}

// Verify implements middleware.Verifier for access tokens.
func (i *Issuer) Verify(_ context.Context, raw string) (middleware.Token, error) {
	c, err := i.ParseAccessToken(raw)
	if err != nil {
		return nil, err
	}
	return verified{c}, nil
}

type verified struct{ c *Claims }

// Claims decodes the token payload into v, usually a map[string]interface{}.
func (t verified) Claims(v interface{}) error {
	b, err := json.Marshal(t.c)
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}
	return json.Unmarshal(b, v)
}
