// Package auth issues and verifies the gateway's JWT credentials and gates
// handlers by participant role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const contextKeyClaims contextKey = "jwt_claims"

// Role represents an authorized persona within the gateway.
type Role string

// Supported roles.
const (
	RoleCompany  Role = "company"
	RoleVerifier Role = "verifier"
	RoleAdmin    Role = "admin"
)

var allowedRoles = map[Role]struct{}{
	RoleCompany:  {},
	RoleVerifier: {},
	RoleAdmin:    {},
}

// Claims is the identity extracted from a verified token.
type Claims struct {
	ParticipantID uuid.UUID
	Role          Role
}

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
)

// Issuer signs and verifies gateway tokens with an HS256 secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer constructs an Issuer. TTL defaults to 7 days, matching the
// session lifetime companies expect between reporting rounds.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: jwt secret required")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue mints a token for the participant.
func (i *Issuer) Issue(participantID uuid.UUID, role Role) (string, error) {
	if _, ok := allowedRoles[role]; !ok {
		return "", fmt.Errorf("auth: unknown role %q", role)
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  participantID.String(),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(i.ttl).Unix(),
	})
	return token.SignedString(i.secret)
}

// Verify parses and validates a token string.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	sub, _ := mapClaims["sub"].(string)
	participantID, err := uuid.Parse(sub)
	if err != nil {
		return nil, errInvalidToken
	}
	roleStr, _ := mapClaims["role"].(string)
	role := Role(roleStr)
	if _, ok := allowedRoles[role]; !ok {
		return nil, errInvalidToken
	}
	return &Claims{ParticipantID: participantID, Role: role}, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// claims in the request context.
func (i *Issuer) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, errMissingToken.Error(), http.StatusUnauthorized)
			return
		}
		claims, err := i.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			http.Error(w, errInvalidToken.Error(), http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole restricts a route to the listed roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := FromContext(r.Context())
			if err != nil {
				http.Error(w, "missing identity", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FromContext retrieves the verified claims placed by Authenticate.
func FromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(contextKeyClaims).(*Claims)
	if !ok || claims == nil {
		return nil, errors.New("no claims in context")
	}
	return claims, nil
}
