// Package classify assigns ledger accounts to statement transactions using
// layered rule tables.
package classify

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/bean-flow/internal/model"
	"github.com/Veraticus/bean-flow/internal/rules"
)

// Input is what the classifier sees of a transaction.
type Input struct {
	When        *model.Moment
	Payee       string
	Description string
}

// Source names the table that produced a decision.
type Source string

// Decision sources, in precedence order.
const (
	SourcePayee       Source = "payee"
	SourceDescription Source = "description"
	SourceFallback    Source = "fallback"
	SourceDefault     Source = "default"
)

// Decision is a classification result with the table that produced it.
type Decision struct {
	Account string
	Source  Source
}

// Classifier resolves accounts with fixed precedence: exact payee,
// description patterns, fallback merchant patterns, then a default account.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	payees         *rules.RuleSet
	descriptions   *rules.RuleSet
	fallbacks      *rules.RuleSet
	incomes        *rules.RuleSet
	defaultAccount string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithDefaultAccount overrides the account used when nothing matches.
func WithDefaultAccount(account string) Option {
	return func(c *Classifier) {
		if account != "" {
			c.defaultAccount = account
		}
	}
}

// New compiles tables into a Classifier.
func New(tables Tables, opts ...Option) (*Classifier, error) {
	c := &Classifier{defaultAccount: DefaultAccount}

	var err error
	if c.payees, err = rules.Compile(rules.Exact, tables.Payees); err != nil {
		return nil, fmt.Errorf("payee table: %w", err)
	}
	if c.descriptions, err = rules.Compile(rules.Regex, tables.Descriptions); err != nil {
		return nil, fmt.Errorf("description table: %w", err)
	}
	if c.fallbacks, err = rules.Compile(rules.Regex, tables.Fallbacks); err != nil {
		return nil, fmt.Errorf("fallback table: %w", err)
	}
	if c.incomes, err = rules.Compile(rules.Regex, tables.Incomes); err != nil {
		return nil, fmt.Errorf("income table: %w", err)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Classify returns the account for in. It never returns an empty string.
func (c *Classifier) Classify(in Input) string {
	return c.Decide(in).Account
}

// Decide is Classify with the deciding table reported.
func (c *Classifier) Decide(in Input) Decision {
	if account, ok := c.payees.Match(in.Payee, in.Description, in.When); ok {
		return Decision{Account: account, Source: SourcePayee}
	}
	if account, ok := c.descriptions.Match(in.Payee, in.Description, in.When); ok {
		return Decision{Account: account, Source: SourceDescription}
	}
	if account, ok := c.fallbacks.Match(in.Payee, in.Description, in.When); ok {
		return Decision{Account: account, Source: SourceFallback}
	}

	slog.Debug("No rule matched, using default account",
		"payee", in.Payee,
		"description", in.Description,
		"account", c.defaultAccount)
	return Decision{Account: c.defaultAccount, Source: SourceDefault}
}

// ClassifyIncome resolves the counterparty of an income transaction from
// the income table alone. ok is false when no income rule matches.
func (c *Classifier) ClassifyIncome(in Input) (string, bool) {
	return c.incomes.Match(in.Payee, in.Description, in.When)
}

// DefaultAccount returns the account used when nothing matches.
func (c *Classifier) DefaultAccount() string {
	return c.defaultAccount
}

// Table is one named, compiled rule table.
type Table struct {
	Set  *rules.RuleSet
	Name Source
}

// Tables returns the compiled tables in precedence order, with the income
// table last.
func (c *Classifier) Tables() []Table {
	return []Table{
		{Name: SourcePayee, Set: c.payees},
		{Name: SourceDescription, Set: c.descriptions},
		{Name: SourceFallback, Set: c.fallbacks},
		{Name: "income", Set: c.incomes},
	}
}
