package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/erdemdnmz2/WebQuery/internal/core"
	"github.com/erdemdnmz2/WebQuery/internal/logger"
)

const sessionName = "webquery-session"

// Context keys
type key int

const (
	userKey key = iota
)

// UserFromContext returns the authenticated user set by SessionAuth.
func UserFromContext(ctx context.Context) *core.User {
	u, _ := ctx.Value(userKey).(*core.User)
	return u
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		rw := &responseWriter{w, http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		logger.Info.Printf("%s %s %d %v", r.Method, r.URL.Path, rw.status, duration)
	})
}

// Custom response writer to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// SessionAuth authenticates requests from the session cookie and loads the
// user onto the request context.
type SessionAuth struct {
	store *sessions.CookieStore
	users core.UserRepository
}

func NewSessionAuth(sessionKey string, users core.UserRepository) *SessionAuth {
	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		Secure:   false, // Set to true if HTTPS
	}
	return &SessionAuth{store: store, users: users}
}

// Store exposes the cookie store to the auth handler.
func (a *SessionAuth) Store() *sessions.CookieStore { return a.store }

// Middleware requires an authenticated session.
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, _ := a.store.Get(r, sessionName)
		userID, ok := session.Values["user_id"].(int64)
		if !ok || userID == 0 {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required", Reason: "unauthenticated"})
			return
		}

		user, err := a.users.GetByID(userID)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unknown user", Reason: "unauthenticated"})
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware requires the session user be an administrator. Must run
// after Middleware.
func (a *SessionAuth) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			writeError(w, core.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
