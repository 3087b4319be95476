// Package access implements role- and scope-based authorization for API
// resources. Every request is evaluated statelessly against the caller's
// principal, the target resource, and the action.
package access

import (
	"context"
	"net/http"

	"github.com/simplecms/api/internal/response"
)

// Resource identifies an API resource collection.
type Resource string

const (
	ResourceCustomers Resource = "customers"
	ResourceUsers     Resource = "users"
)

// Action identifies an operation on a resource.
type Action string

const (
	ActionList     Action = "list"
	ActionCreate   Action = "create"
	ActionRetrieve Action = "retrieve"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
)

// Token scopes. Read actions need ScopeRead, mutating actions ScopeWrite.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
)

// Principal is the authenticated identity behind a request. A nil *Principal
// means the request is anonymous.
type Principal struct {
	ID       string
	Username string
	IsStaff  bool
	Scopes   []string
}

// HasScope reports whether the principal's credential carries the scope.
func (p *Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Decision is a single predicate's verdict.
type Decision int

const (
	Abstain Decision = iota
	Allow
	Deny
)

// Predicate evaluates one authorization rule. Predicates abstain on
// resources or concerns they do not cover.
type Predicate func(p *Principal, res Resource, act Action) Decision

// Chain is an ordered list of predicates. Evaluate denies if any predicate
// denies, and otherwise requires at least one explicit allow.
type Chain []Predicate

// Evaluate applies the chain to one request.
func (c Chain) Evaluate(p *Principal, res Resource, act Action) bool {
	allowed := false
	for _, pred := range c {
		switch pred(p, res, act) {
		case Deny:
			return false
		case Allow:
			allowed = true
		}
	}
	return allowed
}

// CustomerAccess allows any authenticated principal on the customers resource.
func CustomerAccess(p *Principal, res Resource, act Action) Decision {
	if res != ResourceCustomers {
		return Abstain
	}
	if p == nil {
		return Deny
	}
	return Allow
}

// UserAccess restricts the users resource to staff principals.
func UserAccess(p *Principal, res Resource, act Action) Decision {
	if res != ResourceUsers {
		return Abstain
	}
	if p == nil || !p.IsStaff {
		return Deny
	}
	return Allow
}

// ScopeAccess denies principals whose credential lacks the scope the action
// needs. It never allows on its own: the role predicates stay authoritative,
// and scope is an independent second check.
func ScopeAccess(p *Principal, res Resource, act Action) Decision {
	if p == nil {
		return Abstain
	}
	if !p.HasScope(requiredScope(act)) {
		return Deny
	}
	return Abstain
}

func requiredScope(act Action) string {
	switch act {
	case ActionList, ActionRetrieve:
		return ScopeRead
	default:
		return ScopeWrite
	}
}

// Rules is the chain evaluated for every API request.
var Rules = Chain{CustomerAccess, UserAccess, ScopeAccess}

type contextKey struct{}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the request's principal, or nil for anonymous requests.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextKey{}).(*Principal)
	return p
}

// Require returns middleware enforcing Rules for the given resource and
// action: 401 for anonymous requests, 403 for authenticated principals the
// chain denies. No handler runs and no side effect is attempted on rejection.
func Require(res Resource, act Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := FromContext(r.Context())
			if p == nil {
				response.Unauthorized(w, "authentication required")
				return
			}
			if !Rules.Evaluate(p, res, act) {
				response.Forbidden(w, "insufficient role or scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
