package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/blackfang-intel/fangauth"
	"github.com/blackfang-intel/fangauth/jwt"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the access claims stored by Guard.
func ClaimsFromContext(ctx context.Context) (*jwt.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.AccessClaims)
	return claims, ok && claims != nil
}

// Guard answers 401 unless the request carries a valid bearer access token.
func Guard(engine *fangauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w, "Could not validate credentials")
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				unauthorized(w, "Not authenticated")
				return
			}

			claims, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				msg := "Could not validate credentials"
				if errors.Is(err, fangauth.ErrTokenExpired) {
					msg = "Token has expired"
				}
				unauthorized(w, msg)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	const bearer = "bearer "
	value := r.Header.Get("Authorization")
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
