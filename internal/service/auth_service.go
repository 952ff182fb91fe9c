package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jmolina/divvy/internal/auth"
	"github.com/jmolina/divvy/internal/models"
)

// AuthService exposes registration and login. Both endpoints are public;
// everything else in the API sits behind the auth middleware.
type AuthService struct {
	authenticator *auth.PasswordAuthenticator
	jwtManager    *auth.JWTManager
}

// NewAuthService creates an AuthService.
func NewAuthService(authenticator *auth.PasswordAuthenticator, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{authenticator: authenticator, jwtManager: jwtManager}
}

// Routes registers the public auth endpoints on mux.
func (s *AuthService) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

func (s *AuthService) respond(w http.ResponseWriter, status int, user *models.User) {
	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	var resp authResponse
	resp.Token = token
	resp.User.ID = user.ID
	resp.User.Email = user.Email
	resp.User.Name = user.Name
	writeJSON(w, status, resp)
}

func (s *AuthService) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Name == "" {
		writeBadRequest(w, "email and name are required")
		return
	}

	user, err := s.authenticator.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrEmailExists):
			writeBadRequest(w, err.Error())
		default:
			slog.Error("registration failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}

	slog.Info("user registered", "user_id", user.ID)
	s.respond(w, http.StatusCreated, user)
}

func (s *AuthService) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": auth.ErrInvalidCredentials.Error()})
		return
	}

	s.respond(w, http.StatusOK, user)
}
