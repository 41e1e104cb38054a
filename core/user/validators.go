package user

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/mobashi/surv/core"
)

// password policy (applies to password-bearing accounts, i.e. operators;
// respondents are passwordless)
var (
	pwdMinLen         = 8
	pwdMinLenText     = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)
	pwdNoSpaceText    = "password must not contain whitespace"
	pwdNotAllNumText  = "password cannot be entirely numeric"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	pwdAttrSimText    = "password cannot be similar to user attributes"

	specialRegex = regexp.MustCompile("[^A-Za-z0-9]")
	pwdMaxSim    = .7
)

// ValidatePassword applies the password policy:
// - minLen: 8
// - no whitespace
// - not all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no similarity to user attributes
func ValidatePassword(pwd string, attrs ...string) error {
	reportErr := func(text string) error {
		return core.NewValidationError(errors.New(text), core.FieldError{Field: "password", Error: text})
	}

	var (
		digitCount         int
		hasUpper, hasLower bool
	)

	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		return reportErr(pwdMinLenText)
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return reportErr(pwdNoSpaceText)
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == pwdLen {
		return reportErr(pwdNotAllNumText)
	}

	if !(hasUpper && hasLower && digitCount > 0 && specialRegex.MatchString(pwd)) {
		return reportErr(pwdComplexityText)
	}

	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return reportErr(pwdAttrSimText)
		}
	}
	return nil
}
