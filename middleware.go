package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"agrohub/models"
	"agrohub/requests"
)

type ctxKey string

const principalKey ctxKey = "principal"

// authMiddleware extracts and validates the Bearer token and injects the
// authenticated principal into the request context.
func (a *App) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}
		raw := strings.TrimPrefix(authz, "Bearer ")
		uid, role, err := parseJWT(a.cfg.JWTSecret, raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token", nil)
			return
		}
		p := requests.Principal{ID: uid, Role: requests.Role(role)}
		ctx := context.WithValue(r.Context(), principalKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole allows only the given roles through.
func requireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := mustPrincipal(r)
			for _, role := range roles {
				if requests.Role(role) == p.Role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondError(w, http.StatusForbidden, "forbidden", nil)
		})
	}
}

// mustPrincipal returns the principal from context; zero value if missing.
func mustPrincipal(r *http.Request) requests.Principal {
	val := r.Context().Value(principalKey)
	if val == nil {
		return requests.Principal{}
	}
	return val.(requests.Principal)
}

// requestLogger logs one line per request with method, path, status and
// duration.
func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		a.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("http")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
