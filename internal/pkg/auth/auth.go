package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"dlc_store/internal/models"
)

type contextKey string

// ContextUserID is the request context key holding the authenticated user id.
const ContextUserID contextKey = "contextUserID"

// UserID returns the user id stored by CheckJWTMiddleware.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ContextUserID).(string)
	return userID, ok && userID != ""
}

// CheckJWTMiddleware requires a valid "Authorization: Bearer <token>" header and stores the
// token's user id in the request context. Rejected requests get a failed envelope with 401.
func CheckJWTMiddleware() func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "authorization required")
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeUnauthorized(w, "invalid auth header")
				return
			}

			claims, err := ParseToken(parts[1])
			if err != nil {
				writeUnauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextUserID, claims.UserID)
			h.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

func writeUnauthorized(res http.ResponseWriter, message string) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(res).Encode(models.Fail[struct{}](message))
}
