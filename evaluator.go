package authorization

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// MethodAny matches every HTTP method.
const MethodAny = "*"

// Rule maps a set of methods and path patterns to a required-role
// predicate. Patterns use doublestar syntax.
type Rule struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	Methods     []string    `json:"methods"`
	Patterns    []string    `json:"patterns"`
	Requirement Requirement `json:"requirement"`
}

// Requirement is a boolean expr expression evaluated against a
// RouteRequest ("method", "path", "roles").
type Requirement struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

func Public() Requirement {
	return Requirement{Name: "public", Expression: "true"}
}

func Authenticated() Requirement {
	return Requirement{Name: "authenticated", Expression: "len(roles) > 0"}
}

func RequireRole(role string) Requirement {
	return Requirement{Name: role, Expression: fmt.Sprintf("%q in roles", role)}
}

// Matrix decides coarse, route-based access.
type Matrix interface {
	AuthorizeRoute(req RouteRequest) Decision
	Rules() []Rule
}

type compiledRule struct {
	rule     Rule
	methods  map[string]struct{}
	literals []string
	globs    []string
	program  *vm.Program
}

type matrix struct {
	rules []compiledRule
}

// NewMatrix compiles rules once. Rule order is significant: literal
// patterns are tried first across all rules in declaration order, then
// glob patterns in declaration order, and the first match decides.
func NewMatrix(rules []Rule) (Matrix, error) {
	m := &matrix{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cr, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %q: %w", r.ID, err)
		}
		m.rules = append(m.rules, cr)
	}
	return m, nil
}

func compileRule(r Rule) (compiledRule, error) {
	if len(r.Methods) == 0 {
		return compiledRule{}, fmt.Errorf("no methods")
	}
	if len(r.Patterns) == 0 {
		return compiledRule{}, fmt.Errorf("no patterns")
	}
	cr := compiledRule{rule: r, methods: make(map[string]struct{}, len(r.Methods))}
	for _, method := range r.Methods {
		cr.methods[strings.ToUpper(method)] = struct{}{}
	}
	for _, p := range r.Patterns {
		if !doublestar.ValidatePattern(p) {
			return compiledRule{}, fmt.Errorf("invalid pattern %q", p)
		}
		if isLiteral(p) {
			cr.literals = append(cr.literals, NormalizePath(p))
		} else {
			cr.globs = append(cr.globs, p)
		}
	}
	program, err := expr.Compile(r.Requirement.Expression, expr.Env(RouteRequest{}), expr.AsBool())
	if err != nil {
		return compiledRule{}, fmt.Errorf("requirement %q: %w", r.Requirement.Name, err)
	}
	cr.program = program
	return cr, nil
}

func isLiteral(pattern string) bool {
	return !strings.ContainsAny(pattern, `*?[{\`)
}

func (m *matrix) AuthorizeRoute(req RouteRequest) Decision {
	req = req.WithMethod(req.Method).WithPath(req.Path)

	// Literal paths win over globs regardless of declaration order.
	for _, cr := range m.rules {
		if cr.matchesMethod(req.Method) && matchesLiteral(cr.literals, req.Path) {
			return cr.decide(req)
		}
	}
	for _, cr := range m.rules {
		if cr.matchesMethod(req.Method) && matchesGlob(cr.globs, req.Path) {
			return cr.decide(req)
		}
	}

	return deny(ReasonRouteForbidden, "no matching rule found, access denied by default", nil)
}

func (m *matrix) Rules() []Rule {
	rules := make([]Rule, len(m.rules))
	for i, cr := range m.rules {
		rules[i] = cr.rule
	}
	return rules
}

func (cr compiledRule) matchesMethod(method string) bool {
	if _, ok := cr.methods[MethodAny]; ok {
		return true
	}
	_, ok := cr.methods[method]
	return ok
}

// decide evaluates the rule requirement. An evaluation failure denies.
func (cr compiledRule) decide(req RouteRequest) Decision {
	id := cr.rule.ID
	res, err := expr.Run(cr.program, req)
	if err != nil {
		return deny(ReasonRouteForbidden, fmt.Sprintf("failed to evaluate requirement of rule %q: %s", id, err), &id)
	}
	if ok, _ := res.(bool); ok {
		return allow(fmt.Sprintf("allowed by rule %q", id), &id)
	}
	return deny(ReasonRouteForbidden, fmt.Sprintf("rule %q requires %s", id, cr.rule.Requirement.Name), &id)
}

func matchesLiteral(literals []string, p string) bool {
	for _, l := range literals {
		if l == p {
			return true
		}
	}
	return false
}

func matchesGlob(globs []string, p string) bool {
	for _, g := range globs {
		if matched, _ := doublestar.Match(g, p); matched {
			return true
		}
	}
	return false
}
