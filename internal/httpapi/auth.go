package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingAuthHeader and ErrInvalidToken are the two ways bearer
// verification fails; both map to 401.
var (
	ErrMissingAuthHeader = errors.New("missing bearer authorization header")
	ErrInvalidToken      = errors.New("invalid or expired bearer token")
)

// verifyBearer checks the Authorization header against secret. No
// application claims are inspected; jwt.Parse still applies its standard
// exp/nbf/iat checks when those claims are present, so an expired token is
// rejected. The signing method is pinned to HS256, to reject alg-confusion.
func verifyBearer(r *http.Request, secret string) error {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ErrMissingAuthHeader
	}

	tokenString := strings.TrimPrefix(header, "Bearer ")

	_, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return ErrInvalidToken
	}

	return nil
}

// requireBearer wraps next so it only runs once verifyBearer succeeds.
func requireBearer(secret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := r.Header.Get("X-Job-ID")

		if err := verifyBearer(r, secret); err != nil {
			JSONError(w, err, "", jobID, http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}
