package api

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"call-audit-platform/internal/infra/logging"
)

// Auth verifies the bearer token and stores the caller identity on the
// request context. Tokens are HS256 with the subject claim holding the
// caller id.
func Auth(secret string) Middleware {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" || raw == r.Header.Get("Authorization") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return key, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := logging.WithCallerID(r.Context(), sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
