package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/vantage-intel/vantage-intel/internal/platform/httpx"
	"github.com/vantage-intel/vantage-intel/internal/session"
	"github.com/vantage-intel/vantage-intel/internal/shared"
)

// Metrics is the slice of observability the handler records into.
type Metrics interface {
	ObserveLogin(outcome string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	metrics   Metrics
	sessionMW session.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, metrics Metrics, sessionMW session.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		metrics:   metrics,
		sessionMW: sessionMW,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router. Credential
// endpoints carry a tighter per-IP rate limit than the global stack.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
	})
	r.Post("/logout", h.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(h.sessionMW.Require)
		r.Get("/me", h.handleMe)
		r.Delete("/sessions", h.handleLogoutAll)
	})
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "username, password, and role are required")
		return
	}
	if err := h.service.Register(r.Context(), req.Username, req.Password, req.Role); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{
		"username": NormalizeUsername(req.Username),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "username and password are required")
		return
	}
	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		// Unknown user and wrong password produce the same response so
		// the endpoint cannot be used to enumerate usernames.
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrBadCredentials) {
			h.observeLogin("failure")
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		h.observeLogin("error")
		httpx.RespondError(w, err)
		return
	}
	h.observeLogin("success")
	httpx.JSON(w, http.StatusOK, loginResponse{Token: result.Token, Role: result.Role})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := session.BearerToken(r)
	if token != "" {
		h.service.Logout(r.Context(), token)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if id == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing or expired session")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"username": id.Username,
		"role":     id.Role,
	})
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if id == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing or expired session")
		return
	}
	revoked, err := h.service.LogoutAll(r.Context(), id.Username)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"revoked": revoked})
}

func (h *Handler) observeLogin(outcome string) {
	if h.metrics == nil {
		return
	}
	h.metrics.ObserveLogin(outcome)
}
