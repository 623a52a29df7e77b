package service

import (
	"unicode"
	"unicode/utf8"
)

// Rule names reported in PolicyResult.Failures.
const (
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RuleUpper     = "upper"
	RuleLower     = "lower"
	RuleDigit     = "digit"
	RuleSymbol    = "symbol"
)

// MaxScore is the highest strength score Evaluate returns.
const MaxScore = 5

// Policy describes the rules a password must satisfy.
type Policy struct {
	MinLength     int
	MaxLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// PolicyResult is the outcome of checking one password.
type PolicyResult struct {
	Length   int
	Score    int
	Valid    bool
	Failures []string
}

// Evaluate checks password against the policy. The score counts the
// character classes present plus one for a length of at least 12, capped at
// MaxScore. Failures lists broken rules in a fixed order.
func (p Policy) Evaluate(password string) PolicyResult {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	length := utf8.RuneCountInString(password)
	res := PolicyResult{Length: length}

	if length < p.MinLength {
		res.Failures = append(res.Failures, RuleMinLength)
	}
	if p.MaxLength > 0 && length > p.MaxLength {
		res.Failures = append(res.Failures, RuleMaxLength)
	}
	if p.RequireUpper && !hasUpper {
		res.Failures = append(res.Failures, RuleUpper)
	}
	if p.RequireLower && !hasLower {
		res.Failures = append(res.Failures, RuleLower)
	}
	if p.RequireDigit && !hasDigit {
		res.Failures = append(res.Failures, RuleDigit)
	}
	if p.RequireSymbol && !hasSymbol {
		res.Failures = append(res.Failures, RuleSymbol)
	}

	for _, present := range []bool{hasUpper, hasLower, hasDigit, hasSymbol, length >= 12} {
		if present {
			res.Score++
		}
	}
	res.Score = min(res.Score, MaxScore)
	res.Valid = len(res.Failures) == 0
	return res
}
