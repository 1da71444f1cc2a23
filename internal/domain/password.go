package domain

import (
	"strings"
	"unicode"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// PasswordRule names a single password policy requirement.
type PasswordRule string

const (
	RuleMinLength   PasswordRule = "min_length"
	RuleMaxLength   PasswordRule = "max_length"
	RuleUpper       PasswordRule = "uppercase"
	RuleLower       PasswordRule = "lowercase"
	RuleDigit       PasswordRule = "digit"
	RuleWeakPattern PasswordRule = "weak_pattern"
)

var ruleDescriptions = map[PasswordRule]string{
	RuleMinLength:   "password must be at least 8 characters",
	RuleMaxLength:   "password must be at most 128 characters",
	RuleUpper:       "password must include an uppercase letter",
	RuleLower:       "password must include a lowercase letter",
	RuleDigit:       "password must include a digit",
	RuleWeakPattern: "password includes a weak pattern",
}

// PasswordPolicyError lists every rule a candidate password failed.
type PasswordPolicyError struct {
	Rules []PasswordRule
}

func (e *PasswordPolicyError) Error() string {
	parts := make([]string, 0, len(e.Rules))
	for _, rule := range e.Rules {
		parts = append(parts, ruleDescriptions[rule])
	}
	return ErrPasswordPolicy.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets callers match any policy failure with errors.Is(err, ErrPasswordPolicy).
func (e *PasswordPolicyError) Is(target error) bool {
	return target == ErrPasswordPolicy
}

// ValidatePassword enforces the intranet password policy.
func ValidatePassword(password string) error {
	var rules []PasswordRule
	if len(password) < minPasswordLength {
		rules = append(rules, RuleMinLength)
	}
	if len(password) > maxPasswordLength {
		rules = append(rules, RuleMaxLength)
	}

	var (
		hasUpper bool
		hasLower bool
		hasDigit bool
	)
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		rules = append(rules, RuleUpper)
	}
	if !hasLower {
		rules = append(rules, RuleLower)
	}
	if !hasDigit {
		rules = append(rules, RuleDigit)
	}

	lowered := strings.ToLower(password)
	for _, banned := range []string{"password", "qwerty", "123456", "letmein"} {
		if strings.Contains(lowered, banned) {
			rules = append(rules, RuleWeakPattern)
			break
		}
	}

	if len(rules) > 0 {
		return &PasswordPolicyError{Rules: rules}
	}
	return nil
}
