package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/accessdesk/accessdesk/internal/platform/httpx"
	"github.com/accessdesk/accessdesk/internal/shared"
)

// Authorization outcomes reported to the Recorder.
const (
	OutcomeAllowed         = "allowed"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeForbidden       = "forbidden"
	OutcomeError           = "error"
)

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(token string) (shared.Identity, error)
}

// PrincipalStore loads the caller's current account and role from storage.
type PrincipalStore interface {
	LoadPrincipal(ctx context.Context, userID int64) (Principal, error)
}

// Recorder receives gate decisions, typically Prometheus counters.
type Recorder interface {
	AuthzDecision(outcome string)
	TokenVerification(result string)
}

// Middleware is the authorization gate. Authenticate establishes identity from
// the bearer token; RequireRole and RequirePermission re-derive the caller's
// role from storage and never trust token contents for privilege.
type Middleware struct {
	Tokens         TokenVerifier
	Principals     PrincipalStore
	Resolver       *Resolver
	Responder      httpx.Responder
	Logger         *slog.Logger
	Recorder       Recorder
	SuperAdminRole string
}

var errMissingBearer = shared.Unauthenticatedf("missing or malformed authorization header")

// invalidToken is the caller-visible failure for both invalid and expired tokens.
var invalidToken = shared.Unauthenticatedf("invalid or expired token")

// Authenticate verifies the bearer token and stores the identity in context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			m.deny(w, r, OutcomeUnauthenticated, errMissingBearer)
			return
		}
		identity, err := m.Tokens.Verify(token)
		if err != nil {
			result := "invalid"
			if errors.Is(err, shared.ErrTokenExpired) {
				result = "expired"
			}
			m.tokenVerification(result)
			m.log(slog.LevelInfo, "token rejected",
				slog.String("result", result),
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
			m.deny(w, r, OutcomeUnauthenticated, invalidToken)
			return
		}
		m.tokenVerification("valid")
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}

// RequireRole allows the request only when the caller currently holds one of roles.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := m.principal(w, r)
			if !ok {
				return
			}
			if !principal.HasRole(roles...) {
				m.log(slog.LevelWarn, "role required",
					slog.Int64("user_id", principal.UserID),
					slog.Any("required", roles),
				)
				m.deny(w, r, OutcomeForbidden, shared.ElevatedRoleRequired("this action requires an elevated role"))
				return
			}
			m.allow(w, r, next, principal)
		})
	}
}

// RequirePermission allows the request when the caller's role grants
// resource.action. Holders of the super admin role always pass.
func (m Middleware) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := m.principal(w, r)
			if !ok {
				return
			}
			if principal.HasRole(m.SuperAdminRole) {
				m.allow(w, r, next, principal)
				return
			}
			matrix, err := m.Resolver.ResolveForRole(r.Context(), principal.RoleID)
			if err != nil {
				m.fail(w, r, err)
				return
			}
			if !matrix.Allows(resource, action) {
				m.log(slog.LevelInfo, "permission denied",
					slog.Int64("user_id", principal.UserID),
					slog.String("permission", shared.PermissionName(resource, action)),
				)
				m.deny(w, r, OutcomeForbidden, shared.Forbiddenf("missing permission %s", shared.PermissionName(resource, action)))
				return
			}
			m.allow(w, r, next, principal)
		})
	}
}

// principal loads the caller from storage. It writes the failure response and
// returns false when the request must stop.
func (m Middleware) principal(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		m.deny(w, r, OutcomeUnauthenticated, shared.Unauthenticatedf("authentication required"))
		return Principal{}, false
	}
	principal, err := m.Principals.LoadPrincipal(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			m.deny(w, r, OutcomeUnauthenticated, shared.Unauthenticatedf("account no longer exists"))
			return Principal{}, false
		}
		m.fail(w, r, err)
		return Principal{}, false
	}
	if !principal.IsActive {
		m.deny(w, r, OutcomeUnauthenticated, shared.Unauthenticatedf("account is disabled"))
		return Principal{}, false
	}
	return principal, true
}

func (m Middleware) allow(w http.ResponseWriter, r *http.Request, next http.Handler, p Principal) {
	m.decision(OutcomeAllowed)
	next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, outcome string, err error) {
	m.decision(outcome)
	m.Responder.Error(w, r, err)
}

func (m Middleware) fail(w http.ResponseWriter, r *http.Request, err error) {
	m.decision(OutcomeError)
	m.log(slog.LevelError, "rbac authorize", slog.Any("error", err))
	m.Responder.Error(w, r, err)
}

func (m Middleware) decision(outcome string) {
	if m.Recorder != nil {
		m.Recorder.AuthzDecision(outcome)
	}
}

func (m Middleware) tokenVerification(result string) {
	if m.Recorder != nil {
		m.Recorder.TokenVerification(result)
	}
}

func (m Middleware) log(level slog.Level, msg string, attrs ...slog.Attr) {
	if m.Logger != nil {
		m.Logger.LogAttrs(context.Background(), level, msg, attrs...)
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
