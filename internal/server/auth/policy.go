package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/farmtrack/internal/server/models"
)

// Level is the access level a route requires.
type Level string

const (
	LevelAdmin         Level = "admin"
	LevelAuthenticated Level = "authenticated"
	LevelPublic        Level = "public"
)

// precedence is the fixed evaluation order; the first tier with a matching
// rule decides.
var precedence = []Level{LevelAdmin, LevelAuthenticated, LevelPublic}

// Decision is the outcome of evaluating a request against the policy.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// AnyMethod matches every HTTP method.
const AnyMethod = "*"

var knownMethods = map[string]struct{}{
	http.MethodGet: {}, http.MethodHead: {}, http.MethodPost: {}, http.MethodPut: {},
	http.MethodPatch: {}, http.MethodDelete: {}, http.MethodOptions: {}, AnyMethod: {},
}

// Rule maps a method and path pattern to a required level.
type Rule struct {
	Method  string
	Pattern string
	Level   Level
}

type compiledRule struct {
	method  string
	pattern pathPattern
}

func (r compiledRule) matches(method, path string) bool {
	return (r.method == AnyMethod || r.method == method) && r.pattern.match(path)
}

// covers reports whether r matches every request o matches.
func (r compiledRule) covers(o compiledRule) bool {
	return (r.method == AnyMethod || r.method == o.method) && r.pattern.covers(o.pattern)
}

func (r compiledRule) String() string {
	return r.method + " " + r.pattern.raw
}

type tieredRule struct {
	compiledRule
	level Level
	rank  int
}

// Policy is the route authorization table. It is built once and only read
// afterwards, so it is safe for concurrent use without locking.
type Policy struct {
	tiers map[Level][]compiledRule
}

// NewPolicy validates rules and builds a Policy. It fails on unknown
// methods or levels, malformed patterns, the same method+pattern appearing
// more than once, and overlapping rules: a rule hidden by a rule of a
// higher tier can never decide, and two rules of one tier where one
// contains the other are ambiguous.
func NewPolicy(rules []Rule) (*Policy, error) {
	p := &Policy{tiers: make(map[Level][]compiledRule, len(precedence))}
	seen := make(map[string]Level, len(rules))
	var accepted []tieredRule
	var errs []error

	for _, r := range rules {
		method := strings.ToUpper(strings.TrimSpace(r.Method))
		if _, ok := knownMethods[method]; !ok {
			errs = append(errs, fmt.Errorf("rule %s %s: unknown method", r.Method, r.Pattern))
			continue
		}
		switch r.Level {
		case LevelAdmin, LevelAuthenticated, LevelPublic:
		default:
			errs = append(errs, fmt.Errorf("rule %s %s: unknown level %q", method, r.Pattern, r.Level))
			continue
		}
		pattern, err := compilePattern(strings.TrimSpace(r.Pattern))
		if err != nil {
			errs = append(errs, err)
			continue
		}

		key := method + " " + pattern.raw
		if prev, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("rule %s declared twice (%s and %s)", key, prev, r.Level))
			continue
		}
		seen[key] = r.Level

		cur := tieredRule{compiledRule: compiledRule{method: method, pattern: pattern}, level: r.Level, rank: rank(r.Level)}
		if err := checkOverlap(cur, accepted); err != nil {
			errs = append(errs, err)
			continue
		}
		accepted = append(accepted, cur)

		p.tiers[r.Level] = append(p.tiers[r.Level], cur.compiledRule)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

func rank(l Level) int {
	for i, level := range precedence {
		if level == l {
			return i
		}
	}
	return len(precedence)
}

func checkOverlap(cur tieredRule, accepted []tieredRule) error {
	for _, prev := range accepted {
		switch {
		case prev.rank == cur.rank:
			if prev.covers(cur.compiledRule) || cur.covers(prev.compiledRule) {
				return fmt.Errorf("rules %s and %s overlap in %s", prev, cur, cur.level)
			}
		case prev.rank < cur.rank && prev.covers(cur.compiledRule):
			return fmt.Errorf("%s rule %s is unreachable: hidden by %s rule %s", cur.level, cur, prev.level, prev)
		case cur.rank < prev.rank && cur.covers(prev.compiledRule):
			return fmt.Errorf("%s rule %s is unreachable: hidden by %s rule %s", prev.level, prev, cur.level, cur)
		}
	}
	return nil
}

// Level resolves the access level for a request. Requests matching no rule
// require authentication.
func (p *Policy) Level(method, path string) Level {
	for _, level := range precedence {
		for _, r := range p.tiers[level] {
			if r.matches(method, path) {
				return level
			}
		}
	}
	return LevelAuthenticated
}

// IsPublic reports whether the request needs no credentials at all.
func (p *Policy) IsPublic(method, path string) bool {
	return p.Level(method, path) == LevelPublic
}

// Evaluate decides a request. principal is nil for anonymous requests.
func (p *Policy) Evaluate(method, path string, principal *Principal) Decision {
	level := p.Level(method, path)
	if level == LevelPublic {
		return Allow
	}
	if principal == nil {
		return DenyUnauthenticated
	}
	if level == LevelAdmin && !principal.HasRole(string(models.RoleAdmin)) {
		return DenyForbidden
	}
	return Allow
}
