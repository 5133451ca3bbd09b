package auth

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

// Claims is the payload embedded in a session token.
type Claims struct {
	UserID int64  `json:"uid,string"`
	Email  string `json:"email"`
	Serial string `json:"serial"`
	jwt.RegisteredClaims
}

// IssueToken signs a 24h session token for the given user identity.
func IssueToken(secret string, userID int64, email, serial string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Serial: serial,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "caisse",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken decodes a token and returns its claims when the token is
// well formed and not yet expired. Malformed or expired tokens yield nil,
// never an error; an unusable token is the same as no token.
func ValidateToken(secret, tokenString string) *Claims {
	if strings.TrimSpace(tokenString) == "" {
		return nil
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// TokenStore persists the session token on the client side, surviving
// process restarts. The session itself never enters the durable store.
type TokenStore struct {
	path string
}

func NewTokenStore(workdir string) *TokenStore {
	return &TokenStore{path: filepath.Join(workdir, "session.token")}
}

func (t *TokenStore) Save(token string) error {
	return os.WriteFile(t.path, []byte(token), 0o600)
}

// Load returns the persisted token, or empty when absent.
func (t *TokenStore) Load() string {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (t *TokenStore) Clear() error {
	err := os.Remove(t.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
