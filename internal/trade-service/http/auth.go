package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleOperator no claim "role" libera as rotas de operador
const RoleOperator = "admin"

// Identity é o que o serviço de identidade externo afirma sobre o chamador
type Identity struct {
	UserID     string
	IsOperator bool
}

type ctxKey struct{}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Authenticated valida o Bearer HS256 e coloca a Identity no contexto
func Authenticated(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "Authorization token missing or invalid")
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				writeError(w, http.StatusUnauthorized, "Invalid token payload")
				return
			}
			role, _ := claims["role"].(string)

			ctx := context.WithValue(r.Context(), ctxKey{}, Identity{UserID: sub, IsOperator: role == RoleOperator})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorOnly exige Identity de operador; usar depois de Authenticated
func OperatorOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authorization token missing or invalid")
			return
		}
		if !id.IsOperator {
			writeError(w, http.StatusForbidden, "Access denied: operators only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IssueToken assina um token de teste/demo no mesmo formato do emissor externo
func IssueToken(secret []byte, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
