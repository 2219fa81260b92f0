package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/accessdesk/accessdesk/internal/shared"
)

// ErrMissingSigningSecret is returned when no signing secret is configured.
var ErrMissingSigningSecret = errors.New("auth: token signing secret is required")

// Claims carries the minimal identity of a token. Roles and permissions are
// deliberately absent; they are re-read from storage on privileged checks.
type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 identity tokens.
type TokenService struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(secret, issuer string, expiry time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, ErrMissingSigningSecret
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("auth: token expiry must be positive, got %s", expiry)
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, expiry: expiry, now: time.Now}, nil
}

// Issue signs a token for the user and returns it with its expiry.
func (s *TokenService) Issue(userID int64, email string) (string, time.Time, error) {
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.expiry)
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse validates the token and returns its claims. Expired tokens fail with
// shared.ErrTokenExpired; every other failure with shared.ErrTokenInvalid.
func (s *TokenService) Parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: invalid token claims", shared.ErrTokenInvalid)
	}
	return claims, nil
}

// Verify returns the identity carried by a valid token.
func (s *TokenService) Verify(token string) (shared.Identity, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return shared.Identity{}, err
	}
	return shared.Identity{UserID: claims.UserID, Email: claims.Email}, nil
}
