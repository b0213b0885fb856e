package api

import (
	"encoding/json"
	"net/http"

	"github.com/erdemdnmz2/WebQuery/internal/core"
	"github.com/erdemdnmz2/WebQuery/internal/logger"
	"github.com/erdemdnmz2/WebQuery/internal/pool"
	"github.com/erdemdnmz2/WebQuery/internal/service"
)

// AuthHandler owns login, logout and registration. On login the verified
// plaintext password goes into the credential cache (it is also the user's
// database credential); on logout the credential is dropped and the user's
// idle pool handles are closed.
type AuthHandler struct {
	auth        *service.AuthService
	credentials *service.CredentialCache
	pool        *pool.Pool
	loginLogs   core.LoginLogRepository
	sessions    *SessionAuth
}

func NewAuthHandler(auth *service.AuthService, credentials *service.CredentialCache, p *pool.Pool, loginLogs core.LoginLogRepository, sessions *SessionAuth) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		credentials: credentials,
		pool:        p,
		loginLogs:   loginLogs,
		sessions:    sessions,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Reason: "bad_request"})
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username and password are required", Reason: "bad_request"})
		return
	}

	user, err := h.auth.Register(req.Username, req.Email, req.Password)
	if err != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Reason: "registration_failed"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user_id": user.ID,
		"message": "Registration successful! Redirecting to login page...",
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Reason: "bad_request"})
		return
	}

	user, err := h.auth.Authenticate(req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid username or password", Reason: "invalid_credentials"})
		return
	}

	// The login password doubles as the database credential; cache it for
	// the session so queries can re-authenticate downstream as this user.
	if err := h.credentials.Store(user.ID, req.Password); err != nil {
		writeError(w, err)
		return
	}

	loginLogID, err := h.loginLogs.Create(user.ID, extractIP(r))
	if err != nil {
		logger.Error.Printf("auth: failed to record login for %s: %v", user.Username, err)
	}

	session, _ := h.sessions.Store().Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["login_log_id"] = loginLogID
	if err := session.Save(r, w); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"user_id":  user.ID,
		"username": user.Username,
		"is_admin": user.IsAdmin,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Store().Get(r, sessionName)

	if userID, ok := session.Values["user_id"].(int64); ok && userID != 0 {
		h.credentials.Remove(userID)
		h.pool.EvictOwner(userID)
	}
	if logID, ok := session.Values["login_log_id"].(int64); ok && logID != 0 {
		if err := h.loginLogs.Close(logID); err != nil {
			logger.Error.Printf("auth: failed to close login log %d: %v", logID, err)
		}
	}

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
