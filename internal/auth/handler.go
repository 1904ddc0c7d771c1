package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/vuminh/blogapi/backend/internal/models"
	"github.com/vuminh/blogapi/backend/internal/store"
	"github.com/vuminh/blogapi/backend/internal/web"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, email, hashedPw, name string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Revoker invalidates issued tokens before their natural expiry.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users   UserStore
	tokens  *Tokens
	revoked Revoker
}

func NewHandler(users UserStore, tokens *Tokens, revoked Revoker) *Handler {
	return &Handler{users: users, tokens: tokens, revoked: revoked}
}

// TokenFromRequest extracts the credential for the request's client
// type: non-browser clients send it in the Authorization header, with
// or without a "Bearer " prefix; browsers carry it in the token cookie.
func TokenFromRequest(r *http.Request) string {
	if r.Header.Get("client") == "not-browser" {
		raw := r.Header.Get("Authorization")
		return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// Register creates a new user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		web.Fail(w, http.StatusBadRequest, "email and password are required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("hash password")
		web.Fail(w, http.StatusInternalServerError, "server error")
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Email, string(hashed), req.Name)
	if errors.Is(err, store.ErrDuplicateEmail) {
		web.Fail(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("create user")
		web.Fail(w, http.StatusInternalServerError, "server error")
		return
	}

	web.OK(w, http.StatusCreated, "account created", user)
}

// Login authenticates a user and issues a signed token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		web.Fail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("lookup user")
		web.Fail(w, http.StatusInternalServerError, "server error")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		web.Fail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		log.Error().Err(err).Msg("issue token")
		web.Fail(w, http.StatusInternalServerError, "server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.tokens.TTL() / time.Second),
	})

	web.OK(w, http.StatusOK, "logged in", map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Logout revokes the presented token and clears the cookie. The cookie
// is cleared even when no valid token was presented.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if raw := TokenFromRequest(r); raw != "" {
		if id, err := h.tokens.Verify(raw); err == nil && id.TokenID != "" {
			if err := h.revoked.Revoke(r.Context(), id.TokenID, h.tokens.TTL()); err != nil {
				log.Error().Err(err).Msg("revoke token")
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	web.OK(w, http.StatusOK, "logged out", nil)
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	if id == nil {
		web.Fail(w, http.StatusForbidden, "Unauthorized")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), id.ID)
	if errors.Is(err, store.ErrNotFound) {
		web.Fail(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("lookup user")
		web.Fail(w, http.StatusInternalServerError, "server error")
		return
	}

	web.OK(w, http.StatusOK, "current user", user)
}
