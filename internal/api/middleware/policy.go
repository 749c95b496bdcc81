package middleware

import (
	"fmt"
	"path"
	"strings"

	"github.com/atendimento/servicedesk/internal/core/domain"
)

// Access is what a route demands of a request. Public routes need no token;
// otherwise an empty Roles means any authenticated role.
type Access struct {
	Public bool
	Roles  []domain.Role
}

// Permits reports whether a principal holding role satisfies a.
func (a Access) Permits(role domain.Role) bool {
	if a.Public || len(a.Roles) == 0 {
		return true
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Access) String() string {
	switch {
	case a.Public:
		return "PUBLIC"
	case len(a.Roles) == 0:
		return "AUTHENTICATED"
	}
	names := make([]string, len(a.Roles))
	for i, r := range a.Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}

// Rule binds a route pattern to an access requirement. Patterns are exact
// paths, paths ending in "/**" (the prefix and everything below it), or
// path.Match globs such as "/swagger/*".
type Rule struct {
	Pattern string
	Access  Access
}

func PublicRoute(pattern string) Rule {
	return Rule{Pattern: pattern, Access: Access{Public: true}}
}

func AuthenticatedRoute(pattern string) Rule {
	return Rule{Pattern: pattern}
}

func RoleRoute(pattern string, roles ...domain.Role) Rule {
	return Rule{Pattern: pattern, Access: Access{Roles: append([]domain.Role(nil), roles...)}}
}

// Policy is an ordered route table, first match wins. Anything unmatched
// requires authentication with any role. A Policy is immutable once built.
type Policy struct {
	rules []Rule
}

// NewPolicy copies rules into a new Policy.
func NewPolicy(rules ...Rule) *Policy {
	p := &Policy{rules: make([]Rule, len(rules))}
	for i, r := range rules {
		p.rules[i] = Rule{Pattern: r.Pattern, Access: Access{Public: r.Access.Public, Roles: append([]domain.Role(nil), r.Access.Roles...)}}
	}
	return p
}

// DefaultPolicy is the service-desk route table.
func DefaultPolicy() *Policy {
	return NewPolicy(
		PublicRoute("/auth/**"),
		PublicRoute("/health/**"),
		PublicRoute("/metrics"),
		PublicRoute("/swagger/**"),
		RoleRoute("/admin/**", domain.RoleAdmin),
		RoleRoute("/user/**", domain.RoleUser, domain.RoleAdmin),
		RoleRoute("/service-requests/**", domain.RoleUser, domain.RoleAdmin),
		RoleRoute("/supervisor/**", domain.RoleSupervisor),
	)
}

// Classify returns the access requirement for urlPath and the pattern that
// produced it ("" for the authenticated default).
func (p *Policy) Classify(urlPath string) (Access, string) {
	clean := cleanPath(urlPath)
	for _, r := range p.rules {
		if matchPattern(r.Pattern, clean) {
			return r.Access, r.Pattern
		}
	}
	return Access{}, ""
}

// RequiredRoles lists the roles admitted to urlPath. It is nil for public
// routes and for routes open to any authenticated role.
func (p *Policy) RequiredRoles(urlPath string) []domain.Role {
	a, _ := p.Classify(urlPath)
	if a.Public {
		return nil
	}
	return append([]domain.Role(nil), a.Roles...)
}

// Verify checks that a handler declaring roles is mounted on a route whose
// table entry demands exactly those roles.
func (p *Policy) Verify(urlPath string, roles []domain.Role) error {
	a, pattern := p.Classify(urlPath)
	if a.Public && len(roles) > 0 {
		return fmt.Errorf("%w: %s is public by %q but handler requires %v", domain.ErrPolicyMismatch, urlPath, pattern, roles)
	}
	if !sameRoles(a.Roles, roles) {
		return fmt.Errorf("%w: %s requires %s by %q but handler requires %v", domain.ErrPolicyMismatch, urlPath, a, pattern, roles)
	}
	return nil
}

func sameRoles(a, b []domain.Role) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[domain.Role]struct{}, len(a))
	for _, r := range a {
		set[r] = struct{}{}
	}
	for _, r := range b {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}

func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	}
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := path.Match(pattern, p)
		return err == nil && ok
	}
	return p == pattern
}

// cleanPath resolves dot segments so "/auth/../admin" is classified as
// "/admin".
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	c := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && c != "/" {
		c += "/"
	}
	return c
}
