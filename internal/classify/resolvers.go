package classify

import (
	"github.com/Veraticus/bean-flow/internal/model"
	"github.com/Veraticus/bean-flow/internal/rules"
)

// Dining accounts chosen by time of day.
const (
	AccountDiet       = "Expenses:Dining:Diet"
	AccountLateNight  = "Expenses:Eating:Nightingale"
	AccountBreakfast  = "Expenses:Eating:Breakfast"
	AccountLunch      = "Expenses:Eating:Lunch"
	AccountSupper     = "Expenses:Eating:Supper"
	UnknownCreditCard = "Unknown"
)

// Names of the built-in dynamic resolvers.
const (
	ResolverDining     = "dining"
	ResolverCreditCard = "credit_card"
)

// DiningByHour picks a meal account from the local hour of when.
// Without an hour it falls back to the generic diet account.
//
//	21:00-03:59  late night
//	04:00-10:59  breakfast
//	11:00-16:59  lunch
//	17:00-20:59  supper
func DiningByHour(_, _ string, when *model.Moment) string {
	hour, ok := when.Hour()
	switch {
	case !ok:
		return AccountDiet
	case hour <= 3 || hour >= 21:
		return AccountLateNight
	case hour <= 10:
		return AccountBreakfast
	case hour <= 16:
		return AccountLunch
	default:
		return AccountSupper
	}
}

// CreditCardRepayment resolves a repayment by looking the payee up in
// cards. Unlisted payees yield the literal "Unknown".
func CreditCardRepayment(cards map[string]string) rules.Resolver {
	table := make(map[string]string, len(cards))
	for k, v := range cards {
		table[k] = v
	}
	return rules.ResolverFunc(func(payee, _ string, _ *model.Moment) string {
		if account, ok := table[payee]; ok {
			return account
		}
		return UnknownCreditCard
	})
}

// Resolvers returns the registry of built-in dynamic resolvers.
func Resolvers() rules.Registry {
	reg := rules.Registry{}
	reg.Register(ResolverDining, rules.Named(ResolverDining, rules.ResolverFunc(DiningByHour)))
	reg.Register(ResolverCreditCard, rules.Named(ResolverCreditCard, CreditCardRepayment(CreditCards)))
	return reg
}
