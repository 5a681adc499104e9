package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/bean-flow/internal/classify"
	"github.com/Veraticus/bean-flow/internal/rules"
)

// ErrInvalidRule marks a rule file entry that cannot be compiled.
var ErrInvalidRule = errors.New("invalid rule")

// RuleEntry is one rule as written in a rule file. Exactly one of Account
// and Resolver is set.
type RuleEntry struct {
	Pattern  string `yaml:"pattern"`
	Account  string `yaml:"account,omitempty"`
	Resolver string `yaml:"resolver,omitempty"`
}

// RuleFile holds user rules that take precedence over the built-in tables.
//
//	payees:
//	  - pattern: 盒马鲜生
//	    account: Expenses:Food:Groceries
//	descriptions:
//	  - pattern: 夜宵
//	    resolver: dining
type RuleFile struct {
	Payees       []RuleEntry `yaml:"payees"`
	Descriptions []RuleEntry `yaml:"descriptions"`
	Fallbacks    []RuleEntry `yaml:"fallbacks"`
	Incomes      []RuleEntry `yaml:"incomes"`
}

// LoadRuleFile reads a YAML rule file. A leading ~ or $VAR in path is expanded.
func LoadRuleFile(path string) (*RuleFile, error) {
	f, err := os.Open(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open rule file: %w", err)
	}
	defer func() { _ = f.Close() }()

	rf, err := ParseRuleFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rf, nil
}

// ParseRuleFile decodes a YAML rule file.
func ParseRuleFile(r io.Reader) (*RuleFile, error) {
	var rf RuleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	return &rf, nil
}

// Tables converts the file into rule tables, looking dynamic resolvers up in reg.
func (f *RuleFile) Tables(reg rules.Registry) (classify.Tables, error) {
	var (
		t   classify.Tables
		err error
	)
	if t.Payees, err = convertEntries("payees", f.Payees, reg); err != nil {
		return classify.Tables{}, err
	}
	if t.Descriptions, err = convertEntries("descriptions", f.Descriptions, reg); err != nil {
		return classify.Tables{}, err
	}
	if t.Fallbacks, err = convertEntries("fallbacks", f.Fallbacks, reg); err != nil {
		return classify.Tables{}, err
	}
	if t.Incomes, err = convertEntries("incomes", f.Incomes, reg); err != nil {
		return classify.Tables{}, err
	}
	return t, nil
}

// Apply returns base with the file's rules placed ahead of it in every table.
func (f *RuleFile) Apply(base classify.Tables, reg rules.Registry) (classify.Tables, error) {
	extra, err := f.Tables(reg)
	if err != nil {
		return classify.Tables{}, err
	}
	return base.Prepend(extra), nil
}

// Len returns the number of rules in the file.
func (f *RuleFile) Len() int {
	return len(f.Payees) + len(f.Descriptions) + len(f.Fallbacks) + len(f.Incomes)
}

func convertEntries(table string, entries []RuleEntry, reg rules.Registry) ([]rules.Rule, error) {
	out := make([]rules.Rule, 0, len(entries))
	for i, e := range entries {
		if e.Pattern == "" {
			return nil, fmt.Errorf("%w: %s[%d] has no pattern", ErrInvalidRule, table, i)
		}
		account, resolver := strings.TrimSpace(e.Account), strings.TrimSpace(e.Resolver)
		switch {
		case account != "" && resolver != "":
			return nil, fmt.Errorf("%w: %s[%d] %q sets both account and resolver", ErrInvalidRule, table, i, e.Pattern)
		case account != "":
			out = append(out, rules.Static(e.Pattern, account))
		case resolver != "":
			res, err := reg.Lookup(resolver)
			if err != nil {
				return nil, fmt.Errorf("%s[%d] %q: %w", table, i, e.Pattern, err)
			}
			out = append(out, rules.Dynamic(e.Pattern, res))
		default:
			return nil, fmt.Errorf("%w: %s[%d] %q needs an account or resolver", ErrInvalidRule, table, i, e.Pattern)
		}
	}
	return out, nil
}
