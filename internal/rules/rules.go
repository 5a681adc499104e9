// Package rules provides ordered, precompiled pattern tables that map a
// transaction's payee or description to a ledger account.
package rules

import (
	"fmt"
	"regexp"

	"github.com/Veraticus/bean-flow/internal/model"
)

// Resolver turns a matched transaction into an account label.
// Implementations ignore the fields they do not need.
type Resolver interface {
	Resolve(payee, description string, when *model.Moment) string
}

// Account is a resolver that always returns itself.
type Account string

// Resolve implements Resolver.
func (a Account) Resolve(string, string, *model.Moment) string {
	return string(a)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(payee, description string, when *model.Moment) string

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(payee, description string, when *model.Moment) string {
	return f(payee, description, when)
}

// Kind selects how a RuleSet compares its patterns.
type Kind int

const (
	// Exact compares the payee for literal equality.
	Exact Kind = iota
	// Regex searches the description with an unanchored regular expression.
	Regex
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Regex:
		return "regex"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Rule pairs a pattern with the resolver used when it matches.
type Rule struct {
	Resolver Resolver
	Pattern  string
}

// Static builds a rule that resolves to a fixed account.
func Static(pattern, account string) Rule {
	return Rule{Pattern: pattern, Resolver: Account(account)}
}

// Dynamic builds a rule that resolves through r.
func Dynamic(pattern string, r Resolver) Rule {
	return Rule{Pattern: pattern, Resolver: r}
}

type compiledRule struct {
	re *regexp.Regexp
	Rule
}

// RuleSet is an immutable, ordered table of compiled rules.
// It is safe for concurrent use.
type RuleSet struct {
	exact map[string]int
	rules []compiledRule
	kind  Kind
}

// Compile builds a RuleSet from rules in declaration order.
func Compile(kind Kind, rules []Rule) (*RuleSet, error) {
	rs := &RuleSet{
		kind:  kind,
		rules: make([]compiledRule, 0, len(rules)),
	}
	if kind == Exact {
		rs.exact = make(map[string]int, len(rules))
	}

	for i, r := range rules {
		if r.Resolver == nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, r.Pattern, ErrNoResolver)
		}
		cr := compiledRule{Rule: r}

		switch kind {
		case Exact:
			// The first declaration of a payee wins.
			if _, dup := rs.exact[r.Pattern]; !dup {
				rs.exact[r.Pattern] = len(rs.rules)
			}
		case Regex:
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %d (%q): %w", i, r.Pattern, err)
			}
			cr.re = re
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
		}

		rs.rules = append(rs.rules, cr)
	}

	return rs, nil
}

// MustCompile is like Compile but panics on error. It is meant for
// built-in tables.
func MustCompile(kind Kind, rules []Rule) *RuleSet {
	rs, err := Compile(kind, rules)
	if err != nil {
		panic(err)
	}
	return rs
}

// Match returns the account for the first rule that matches.
func (rs *RuleSet) Match(payee, description string, when *model.Moment) (string, bool) {
	if rs == nil {
		return "", false
	}

	if rs.kind == Exact {
		i, ok := rs.exact[payee]
		if !ok {
			return "", false
		}
		return rs.rules[i].Resolver.Resolve(payee, description, when), true
	}

	for _, r := range rs.rules {
		if r.re.FindStringIndex(description) != nil {
			return r.Resolver.Resolve(payee, description, when), true
		}
	}
	return "", false
}

// Kind reports how the set compares patterns.
func (rs *RuleSet) Kind() Kind {
	return rs.kind
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Rules returns a copy of the rules in declaration order.
func (rs *RuleSet) Rules() []Rule {
	if rs == nil {
		return nil
	}
	out := make([]Rule, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = r.Rule
	}
	return out
}
