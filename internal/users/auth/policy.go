// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"unicode"

	"github.com/taibuivan/bazaar/internal/platform/apperr"
	"github.com/taibuivan/bazaar/internal/platform/sec"
	"github.com/taibuivan/bazaar/internal/platform/validate"
	"github.com/taibuivan/bazaar/internal/users/pipeline"
)

// PasswordPolicy is the complexity rule set applied to submitted passwords.
//
// Every policy also caps passwords at [sec.MaxPasswordBytes], the most the
// hasher accepts.
type PasswordPolicy struct {
	MinLength     int
	RequireUpper  bool
	RequireDigit  bool
	RequireSymbol bool
}

// Check returns one field error per violated rule, or nil when password complies.
func (policy PasswordPolicy) Check(password string) []apperr.FieldError {
	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	field := pipeline.FieldPassword
	validator := &validate.Validator{}
	validator.
		MinLen(field, password, policy.MinLength).
		MaxBytes(field, password, sec.MaxPasswordBytes).
		Custom(field, policy.RequireUpper && !hasUpper, "Must contain an uppercase letter").
		Custom(field, policy.RequireDigit && !hasDigit, "Must contain a digit").
		Custom(field, policy.RequireSymbol && !hasSymbol, "Must contain a symbol")

	return validator.FieldErrors()
}
