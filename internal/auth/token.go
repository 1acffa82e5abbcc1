package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = time.Hour

// Claims are the facts embedded into every issued token.
type Claims struct {
	Email      string   `json:"email"`
	TenantID   string   `json:"tenant_id"`
	TenantName string   `json:"tenant_name"`
	Roles      []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens. Tokens are
// self-contained: no server-side session backs them, and validity is decided
// solely by signature, issuer, audience and expiry.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// TokenOption configures a TokenIssuer.
type TokenOption func(*TokenIssuer) error

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) TokenOption {
	return func(t *TokenIssuer) error {
		issuer = strings.TrimSpace(issuer)
		if issuer == "" {
			return errors.New("token issuer is required")
		}
		t.issuer = issuer
		return nil
	}
}

// WithAudience overrides the aud claim.
func WithAudience(audience string) TokenOption {
	return func(t *TokenIssuer) error {
		audience = strings.TrimSpace(audience)
		if audience == "" {
			return errors.New("token audience is required")
		}
		t.audience = audience
		return nil
	}
}

// WithTTL configures token lifetime.
func WithTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) error {
		if ttl <= 0 {
			return errors.New("token ttl must be positive")
		}
		t.ttl = ttl
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(t *TokenIssuer) error {
		if fn != nil {
			t.now = fn
		}
		return nil
	}
}

// NewTokenIssuer constructs a TokenIssuer with a 1 hour default TTL.
func NewTokenIssuer(secret string, opts ...TokenOption) (*TokenIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	t := &TokenIssuer{
		secret:   []byte(secret),
		issuer:   "cerbero",
		audience: "cerbero-api",
		ttl:      defaultTokenTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Issue signs a token for the user within the tenant. The returned expiry is
// the same instant embedded in the exp claim, not recomputed.
func (t *TokenIssuer) Issue(user User, tenant Tenant) (string, time.Time, error) {
	if strings.TrimSpace(user.ID) == "" {
		return "", time.Time{}, errors.New("user id is required")
	}
	now := t.now().UTC()
	// The exp claim carries whole seconds, so the returned expiry is
	// truncated to match it exactly.
	expiresAt := now.Add(t.ttl).Truncate(time.Second)

	claims := Claims{
		Email:      user.Email,
		TenantID:   tenant.ID,
		TenantName: tenant.Name,
		Roles:      dedupeRoles(user.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates signature, issuer, audience and expiry. Any mismatch fails
// closed with ErrInvalidToken.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return t.now().UTC() }),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	claims.Roles = dedupeRoles(claims.Roles)
	return claims, nil
}

func dedupeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	var out []string
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
