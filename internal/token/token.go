// Package token issues and verifies the signed access and refresh tokens
// used by the API. Both token kinds are HS256 JWTs carrying the user id
// as subject, a random jti for revocation, and the admin flag captured
// at issuance time.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TypeAccess marks tokens accepted by regular protected routes.
	TypeAccess = "access"
	// TypeRefresh marks tokens accepted only by the refresh endpoint.
	TypeRefresh = "refresh"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature,
	// expiry, or claim checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrWrongTokenType is returned when a refresh token is presented
	// to an access-only route or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims are the JWT claims carried by every issued token.
type Claims struct {
	// Type distinguishes access from refresh tokens.
	Type string `json:"typ"`

	// Admin is the user's admin flag at issuance time. Admin routes
	// re-check the persisted record, so a stale claim cannot widen
	// access.
	Admin bool `json:"adm"`

	// Fresh is true only for access tokens minted directly from a
	// credential login, never for refreshed ones.
	Fresh bool `json:"fresh"`

	jwt.RegisteredClaims
}

// Issuer mints and parses tokens with a shared HMAC secret.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewIssuer constructs an Issuer. TTLs of zero fall back to 15 minutes
// for access tokens and 30 days for refresh tokens.
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 720 * time.Hour
	}
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess mints an access token for the user.
func (i *Issuer) IssueAccess(userID int, admin, fresh bool) (string, error) {
	return i.issue(TypeAccess, userID, admin, fresh, i.accessTTL)
}

// IssueRefresh mints a refresh token for the user.
func (i *Issuer) IssueRefresh(userID int, admin bool) (string, error) {
	return i.issue(TypeRefresh, userID, admin, false, i.refreshTTL)
}

func (i *Issuer) issue(kind string, userID int, admin, fresh bool, ttl time.Duration) (string, error) {
	jti, err := newJTI()
	if err != nil {
		return "", fmt.Errorf("generate jti: %w", err)
	}

	now := time.Now()
	claims := Claims{
		Type:  kind,
		Admin: admin,
		Fresh: fresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse verifies the signature and expiry of a token and checks that it
// is of the expected kind. It returns the parsed claims.
func (i *Issuer) Parse(tokenString, expectedType string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.ID) == "" {
		return Claims{}, ErrInvalidToken
	}
	if claims.Type != expectedType {
		return Claims{}, ErrWrongTokenType
	}
	return claims, nil
}

// UserID parses the numeric subject.
func (c Claims) UserID() (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Subject))
	if err != nil || id < 1 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}

func newJTI() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
