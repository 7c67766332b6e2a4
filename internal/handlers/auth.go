package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopcart/apiserver/internal/services"
	"github.com/shopcart/apiserver/internal/store"
	"github.com/shopcart/apiserver/internal/token"
	"github.com/shopcart/apiserver/types"
)

// Blocklist revokes token identifiers and answers revocation checks.
// Both the Redis and the Postgres backends satisfy it.
type Blocklist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthHandler provides registration, login and token lifecycle endpoints.
type AuthHandler struct {
	userService *services.UserService
	issuer      *token.Issuer
	blocklist   Blocklist
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, issuer *token.Issuer, blocklist Blocklist) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		issuer:      issuer,
		blocklist:   blocklist,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, issuer *token.Issuer, blocklist Blocklist) {
	handler := NewAuthHandler(userService, issuer, blocklist)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(RequireRefresh(issuer, blocklist)).Get("/refresh", handler.Refresh)
	r.With(RequireAuth(issuer, blocklist)).Get("/logout", handler.Logout)
}

// RequireAuth enforces a valid, non-revoked access token and injects its
// claims into the request context.
func RequireAuth(issuer *token.Issuer, blocklist Blocklist) func(http.Handler) http.Handler {
	return requireToken(issuer, blocklist, token.TypeAccess)
}

// RequireRefresh enforces a valid, non-revoked refresh token; only the
// refresh endpoint uses it.
func RequireRefresh(issuer *token.Issuer, blocklist Blocklist) func(http.Handler) http.Handler {
	return requireToken(issuer, blocklist, token.TypeRefresh)
}

func requireToken(issuer *token.Issuer, blocklist Blocklist, kind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := issuer.Parse(tokenString, kind)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			revoked, err := blocklist.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to check token")
				return
			}
			if revoked {
				writeError(w, http.StatusUnauthorized, "token has been revoked")
				return
			}

			ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route on the persisted admin flag of the current
// user. The token's admin claim alone is not trusted, so demotions take
// effect on the next request.
func RequireAdmin(userService *services.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := userIDFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := userService.GetByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to load user")
				return
			}

			if !user.IsAdmin {
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Register creates an account and returns a fresh token pair.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "full_name, email and password are required")
		return
	}

	user, err := h.userService.Register(r.Context(), req.FullName, req.Email, req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	h.writeTokenPair(w, http.StatusCreated, user, true)
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
		}
		return
	}

	h.writeTokenPair(w, http.StatusOK, user, true)
}

// Refresh mints a new non-fresh access token from a refresh token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Admin status is re-read so a promoted or demoted user does not
	// keep refreshing a stale claim.
	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	accessToken, err := h.issuer.IssueAccess(user.ID, user.IsAdmin, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{AccessToken: accessToken})
}

// Logout revokes the presented access token until its natural expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expiresAt := time.Now().Add(time.Minute)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := h.blocklist.Revoke(r.Context(), claims.ID, expiresAt); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "successfully logged out"})
}

func (h *AuthHandler) writeTokenPair(w http.ResponseWriter, status int, user types.User, fresh bool) {
	accessToken, err := h.issuer.IssueAccess(user.ID, user.IsAdmin, fresh)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	refreshToken, err := h.issuer.IssueRefresh(user.ID, user.IsAdmin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	writeJSON(w, status, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         types.User `json:"user"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", errors.New("invalid authorization")
	}
	return tokenString, nil
}
