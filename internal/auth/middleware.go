// internal/auth/middleware.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

type operatorKey struct{}

// WithOperator returns a copy of ctx that carries the operator name.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operator)
}

// OperatorFrom returns the operator stored by RequireOperator, or "".
func OperatorFrom(ctx context.Context) string {
	op, _ := ctx.Value(operatorKey{}).(string)
	return op
}

// BearerOperator validates the request's bearer token and returns the
// operator it was issued to.
func BearerOperator(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrMissingToken
	}
	claims, err := ValidateToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.Operator, nil
}

// RequireOperator only lets through requests carrying a valid token. Runs
// started behind it are attributed to the token's operator.
func RequireOperator(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator, err := BearerOperator(r)
			if err != nil {
				log.WithFields(logrus.Fields{
					"remote": r.RemoteAddr,
					"path":   r.URL.Path,
				}).WithError(err).Warn("[Auth] Request rejected")

				challenge := `Bearer realm="loadgen"`
				if errors.Is(err, ErrInvalidToken) {
					challenge += `, error="invalid_token"`
				}
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), operator)))
		})
	}
}
