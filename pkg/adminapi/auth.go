// Package adminapi exposes a small JWT-protected HTTP surface (login, who,
// scores, status) plus a read-only websocket spectator feed of board-state
// events. Grounded on the teacher's pkg/server/auth.go (AuthService,
// Claims, HS256 signing) and pkg/server/middleware.go (authMiddleware
// Bearer-token extraction), re-pointed at this system's single operator
// admin password instead of per-player MUSH credentials.
package adminapi

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the JWT payload issued to an authenticated admin client.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// AuthService issues and validates HS256 JWTs for the admin API.
type AuthService struct {
	adminHash []byte
	jwtKey    []byte
	expiry    time.Duration
}

// NewAuthService creates an auth service. adminPass is the operator's
// configured plaintext admin password; it is bcrypt-hashed once here and
// the plaintext is never retained, matching pkg/credstore's handling of
// player passwords. If jwtSecret is empty, a random 32-byte
// key is generated (tokens from a prior process restart will not validate,
// which is acceptable for a single operator credential).
func NewAuthService(adminPass, jwtSecret string, expirySeconds int) *AuthService {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.DefaultCost)
	if err != nil {
		// Only possible if adminPass exceeds bcrypt's 72-byte input limit;
		// fall back to an empty hash, which CompareHashAndPassword always
		// rejects, so Login simply always fails rather than panicking on
		// startup.
		hash = make([]byte, 0)
	}
	var key []byte
	if jwtSecret != "" {
		key = []byte(jwtSecret)
	} else {
		key = make([]byte, 32)
		rand.Read(key)
	}
	expiry := 24 * time.Hour
	if expirySeconds > 0 {
		expiry = time.Duration(expirySeconds) * time.Second
	}
	return &AuthService{adminHash: hash, jwtKey: key, expiry: expiry}
}

// Login checks password against the configured admin password's bcrypt
// hash and, on success, returns a signed JWT.
func (a *AuthService) Login(password string) (string, error) {
	if password == "" || bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)) != nil {
		return "", fmt.Errorf("invalid credentials")
	}
	now := time.Now()
	claims := Claims{
		Subject: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
			Issuer:    "tactoechat",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtKey)
}

// ValidateToken parses and validates a JWT string.
func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
