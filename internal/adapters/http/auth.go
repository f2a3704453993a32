package httpadapter

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/solar-equipment-parser/internal/config"
)

const (
	apiKeyHeader       = "X-API-Key"
	organizationHeader = "X-Organization-Id"
	defaultOrgID       = "default"
)

var errUnauthenticated = errors.New("unauthenticated")

// principal is the authenticated caller. Every catalog and job operation is scoped to OrganizationID.
type principal struct {
	OrganizationID string
	Subject        string
}

type principalContextKey struct{}

func principalFromContext(ctx context.Context) principal {
	p, _ := ctx.Value(principalContextKey{}).(principal)
	return p
}

type authenticator interface {
	authenticate(r *http.Request) (principal, error)
}

func newAuthenticator(cfg config.Config) authenticator {
	switch cfg.AuthMode {
	case config.AuthModeNone:
		return openAuthenticator{}
	case config.AuthModeAPIKey:
		keys, _ := cfg.APIKeyOrganizations()
		return apiKeyAuthenticator{keys: keys}
	default:
		return jwtAuthenticator{secret: []byte(cfg.JWTSecret)}
	}
}

// orgClaims is the bearer token payload. org_id is mandatory.
type orgClaims struct {
	jwt.RegisteredClaims
	OrganizationID string `json:"org_id"`
}

type jwtAuthenticator struct {
	secret []byte
}

func (a jwtAuthenticator) authenticate(r *http.Request) (principal, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok || len(a.secret) == 0 {
		return principal{}, errUnauthenticated
	}

	claims := &orgClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v (only HS256 allowed)", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return principal{}, errUnauthenticated
	}
	if strings.TrimSpace(claims.OrganizationID) == "" {
		return principal{}, errUnauthenticated
	}
	return principal{OrganizationID: claims.OrganizationID, Subject: claims.Subject}, nil
}

type apiKeyAuthenticator struct {
	keys map[string]string
}

func (a apiKeyAuthenticator) authenticate(r *http.Request) (principal, error) {
	presented := strings.TrimSpace(r.Header.Get(apiKeyHeader))
	if presented == "" {
		presented, _ = bearerToken(r.Header.Get("Authorization"))
	}
	if presented == "" {
		return principal{}, errUnauthenticated
	}
	for key, org := range a.keys {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
			return principal{OrganizationID: org, Subject: "api-key"}, nil
		}
	}
	return principal{}, errUnauthenticated
}

// openAuthenticator is for local runs: the organization comes from a header.
type openAuthenticator struct{}

func (openAuthenticator) authenticate(r *http.Request) (principal, error) {
	org := strings.TrimSpace(r.Header.Get(organizationHeader))
	if org == "" {
		org = defaultOrgID
	}
	return principal{OrganizationID: org}, nil
}

func (rt *Router) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := rt.auth.authenticate(r)
		if err != nil {
			rt.reject("unauthorized")
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), principalContextKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(headerValue string) (string, bool) {
	headerValue = strings.TrimSpace(headerValue)
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
	return token, token != ""
}
