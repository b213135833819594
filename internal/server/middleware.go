package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fd-manager/fdm/internal/session"
)

var errLoginRequired = errors.New("login required")

type ctxKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// requireAuth rejects requests without an authenticated session and puts
// the session id in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessionFrom(r)
		if !ok || !sess.Authenticated {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errLoginRequired.Error()})
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sessionFrom(r *http.Request) (session.Session, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return session.Session{}, false
	}
	return s.store.Get(c.Value)
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
