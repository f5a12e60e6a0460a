// Package security provides the JWT authentication and per-key rate
// limiting the monitor dashboard (internal/monitor) uses to guard its
// HTTP and WebSocket endpoints, in particular the authenticated
// "retry volume" action that shells out to the translate CLI. Adapted
// from the teacher's pkg/security, unchanged in shape since JWT issuance
// and token-bucket rate limiting are domain-agnostic concerns.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload issued to a monitor dashboard operator.
type Claims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"` // "viewer", "operator" (operator may trigger retries)
	jwt.RegisteredClaims
}

// AuthService issues and validates dashboard session tokens.
type AuthService struct {
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates an auth service over the given HMAC secret.
func NewAuthService(jwtSecret string, tokenTTL time.Duration) *AuthService {
	if len(jwtSecret) < 16 {
		panic("security: jwt secret must be at least 16 characters long")
	}
	return &AuthService{
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// GenerateToken issues a signed session token for a dashboard user.
func (as *AuthService) GenerateToken(userID, username string, roles []string) (string, error) {
	if userID == "" {
		return "", errors.New("security: userID cannot be empty")
	}
	if username == "" {
		return "", errors.New("security: username cannot be empty")
	}
	if as.tokenTTL <= 0 {
		return "", errors.New("security: token TTL must be positive")
	}

	claims := Claims{
		UserID:   userID,
		Username: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(as.jwtSecret)
}

// ValidateToken parses and verifies a session token.
func (as *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("security: token cannot be empty")
	}

	start := time.Now()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("security: invalid signing method")
		}
		return as.jwtSecret, nil
	})

	if err != nil {
		elapsed := time.Since(start)
		if elapsed < 10*time.Microsecond {
			time.Sleep(10*time.Microsecond - elapsed)
		}
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("security: invalid token")
}

// RefreshToken reissues a token with a fresh expiration for the same claims.
func (as *AuthService) RefreshToken(claims *Claims) (string, error) {
	if claims == nil {
		return "", errors.New("security: claims cannot be nil")
	}

	newClaims := Claims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Roles:    claims.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, newClaims)
	return token.SignedString(as.jwtSecret)
}

// GenerateAPIKey returns a random URL-safe API key for service-to-service
// dashboard access (e.g. a CI system polling run status).
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// APIKeyInfo describes one issued API key.
type APIKeyInfo struct {
	Key       string
	UserID    string
	Name      string
	CreatedAt time.Time
	ExpiresAt *time.Time
	Active    bool
}

// APIKeyStore holds issued API keys in memory.
type APIKeyStore struct {
	keys map[string]APIKeyInfo
}

// NewAPIKeyStore creates an empty key store.
func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{keys: make(map[string]APIKeyInfo)}
}

// AddKey registers a key.
func (aks *APIKeyStore) AddKey(key string, info APIKeyInfo) {
	aks.keys[key] = info
}

// ValidateKey reports whether a key is active and unexpired.
func (aks *APIKeyStore) ValidateKey(key string) (*APIKeyInfo, bool) {
	info, ok := aks.keys[key]
	if !ok || !info.Active {
		return nil, false
	}
	if info.ExpiresAt != nil && time.Now().After(*info.ExpiresAt) {
		return nil, false
	}
	return &info, true
}

// RevokeKey deactivates a key without removing its record.
func (aks *APIKeyStore) RevokeKey(key string) {
	if info, ok := aks.keys[key]; ok {
		info.Active = false
		aks.keys[key] = info
	}
}
