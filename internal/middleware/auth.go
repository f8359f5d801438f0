package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/GiorgiUbiria/banking_backoffice/configs"
	"github.com/GiorgiUbiria/banking_backoffice/internal/httputil"
	"github.com/GiorgiUbiria/banking_backoffice/internal/logger"
	"github.com/GiorgiUbiria/banking_backoffice/internal/policy"
	"github.com/golang-jwt/jwt/v5"
)

const ActorContextKey = "actor"

// Authenticated verifies the bearer token and stores the acting user as a
// policy.Actor in the request context. The role claim is validated here so
// downstream code never sees an unknown role string.
func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		tokenStr := parts[1]

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(configs.AppConfig.JWT.SECRET), nil
		})
		if err != nil || !token.Valid {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}

		sub, ok := claims["sub"].(float64)
		if !ok {
			logger.Log.Error("jwt subject missing or wrong type")
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token payload")
			return
		}
		roleStr, ok := claims["role"].(string)
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token payload")
			return
		}
		role, ok := policy.ParseRole(roleStr)
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token payload")
			return
		}

		actor := policy.Actor{ID: uint64(sub), Role: role}

		ctx := context.WithValue(r.Context(), ActorContextKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// StaffOnly gates back-office surfaces (pending queues, approvals) to
// employees and managers. The fine-grained tier decision still happens in
// the policy engine; this only keeps customers off staff routes.
func StaffOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !actor.Role.Staff() {
			httputil.WriteError(w, http.StatusForbidden, "staff only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFrom extracts the authenticated actor placed by Authenticated.
func ActorFrom(ctx context.Context) (policy.Actor, bool) {
	actor, ok := ctx.Value(ActorContextKey).(policy.Actor)
	return actor, ok
}
