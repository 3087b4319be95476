package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/simplecms/api/internal/access"
	"github.com/simplecms/api/internal/response"
)

// Authenticate returns middleware that resolves a Bearer JWT to a principal
// and injects it into the request context. Requests without an Authorization
// header pass through anonymously; the access layer decides whether the
// route tolerates that. A header that is present but malformed or carries an
// invalid token is rejected with 401 before any handler runs.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				response.Unauthorized(w, "invalid token claims")
				return
			}

			sub, _ := claims["sub"].(string)
			username, _ := claims["username"].(string)
			isStaff, _ := claims["is_staff"].(bool)
			scope, _ := claims["scope"].(string)

			p := &access.Principal{
				ID:       sub,
				Username: username,
				IsStaff:  isStaff,
				Scopes:   strings.Fields(scope),
			}
			next.ServeHTTP(w, r.WithContext(access.WithPrincipal(r.Context(), p)))
		})
	}
}
