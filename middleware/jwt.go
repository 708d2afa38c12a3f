package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/tieubaoca/email-summarizer-be/types"
)

// TokenValidator validates Azure AD access tokens against the tenant's JWKS.
// Distinct failure modes map to distinct messages so clients can tell an
// expired token from a misconfigured one.
type TokenValidator struct {
	keyfunc  jwt.Keyfunc
	audience string
	issuer   string
}

// NewTokenValidator fetches the tenant's signing keys. The keyfunc refreshes
// them in the background for the lifetime of ctx.
func NewTokenValidator(ctx context.Context, tenantID, clientID string) (*TokenValidator, error) {
	jwksURL := fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", tenantID)
	log.Info().Str("jwks_url", jwksURL).Msg("Loading Azure AD signing keys")

	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("could not fetch authentication keys from provider: %w", err)
	}
	return NewTokenValidatorWithKeyfunc(k.Keyfunc, clientID, fmt.Sprintf("https://sts.windows.net/%s/", tenantID)), nil
}

// NewTokenValidatorWithKeyfunc wires an explicit key source, used by tests.
func NewTokenValidatorWithKeyfunc(kf jwt.Keyfunc, audience, issuer string) *TokenValidator {
	return &TokenValidator{keyfunc: kf, audience: audience, issuer: issuer}
}

// Validate checks signature, expiry, audience and issuer, returning the
// claims on success.
func (v *TokenValidator) Validate(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(
		tokenString,
		v.keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Warn().Msg("Token validation failed: expired signature")
			return nil, errors.New("Token has expired")
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			log.Warn().Msg("Token validation failed: invalid audience")
			return nil, errors.New("Invalid token audience")
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			log.Warn().Msg("Token validation failed: invalid issuer")
			return nil, errors.New("Invalid token issuer")
		default:
			log.Warn().Err(err).Msg("Token validation failed")
			return nil, errors.New("Invalid token")
		}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("Invalid token")
	}
	return claims, nil
}

type contextKey string

const claimsKey contextKey = "claims"

// ClaimsFromContext returns the validated claims stored by the middleware.
func ClaimsFromContext(ctx context.Context) (jwt.MapClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(jwt.MapClaims)
	return claims, ok
}

// Middleware rejects requests without a valid bearer token.
func (v *TokenValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeAuthError(w, "Not authenticated")
			return
		}
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			writeAuthError(w, "Invalid authorization header")
			return
		}

		claims, err := v.Validate(tokenString)
		if err != nil {
			writeAuthError(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(types.ErrorResponse{Detail: message})
}
