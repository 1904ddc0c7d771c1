package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vuminh/blogapi/backend/internal/models"
)

// TokenCookie is the cookie carrying the signed token for browser clients.
const TokenCookie = "token"

// ErrInvalidToken covers bad signatures, malformed tokens, expired
// tokens, and missing claims.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the decoded claim set attached to authenticated requests.
type Identity struct {
	ID      string
	Email   string
	Name    string
	TokenID string
}

// Tokens signs and verifies the compact claim set carried by clients.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// TTL reports the configured token lifetime.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs an HS256 token for the user. Every token carries iat/exp
// and a unique jti so it can be revoked at logout.
func (t *Tokens) Issue(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"jti":   uuid.New().String(),
		"iat":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the decoded identity.
func (t *Tokens) Verify(tokenStr string) (*Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	id, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	jti, _ := claims["jti"].(string)
	if id == "" || email == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{ID: id, Email: email, Name: name, TokenID: jti}, nil
}
