// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"errors"
	"fmt"

	"github.com/taibuivan/bazaar/internal/platform/apperr"
)

// Kind classifies why a pipeline stopped.
type Kind int

const (
	KindInternal Kind = iota
	KindMalformedToken
	KindBadSignature
	KindExpired
	KindNotAuthorized
	KindBadCredentials
	KindAlreadyRegistered
	KindWeakPassword
	KindInvalidOrExpiredCode
	KindCodeDispatchFailed
)

var kindNames = map[Kind]string{
	KindInternal:             "internal",
	KindMalformedToken:       "malformed_token",
	KindBadSignature:         "bad_signature",
	KindExpired:              "expired",
	KindNotAuthorized:        "not_authorized",
	KindBadCredentials:       "bad_credentials",
	KindAlreadyRegistered:    "already_registered",
	KindWeakPassword:         "weak_password",
	KindInvalidOrExpiredCode: "invalid_or_expired_code",
	KindCodeDispatchFailed:   "code_dispatch_failed",
}

// String returns the snake_case label used in logs and metrics.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Failure is the typed outcome of a step that halts the pipeline.
//
// Steps return it as an error. Anything else a step returns is treated
// as an unclassified internal error by the composer.
type Failure struct {
	Kind Kind

	// Step is filled in by the composer with the name of the halting step.
	Step string

	// Violations lists the broken password rules for KindWeakPassword.
	Violations []apperr.FieldError

	// Cause is kept for server-side logging only.
	Cause error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("pipeline: %s at %q: %v", f.Kind, f.Step, f.Cause)
	}
	return fmt.Sprintf("pipeline: %s at %q", f.Kind, f.Step)
}

// Unwrap exposes the cause to [errors.Is] and [errors.As].
func (f *Failure) Unwrap() error { return f.Cause }

// Fail creates a [Failure] of the given kind.
func Fail(kind Kind) *Failure {
	return &Failure{Kind: kind}
}

// Internal wraps an unexpected collaborator error.
func Internal(cause error) *Failure {
	return &Failure{Kind: KindInternal, Cause: cause}
}

// Weak creates a KindWeakPassword failure listing the violated rules.
func Weak(violations []apperr.FieldError) *Failure {
	return &Failure{Kind: KindWeakPassword, Violations: violations}
}

// AsFailure extracts a [Failure] from err, reporting whether one was found.
func AsFailure(err error) (*Failure, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

// # Status Mapping

// Client-facing messages. They never reveal which check failed beyond the kind.
const (
	msgMalformedToken   = "Missing or malformed token"
	msgInvalidToken     = "Wrong token or token expired"
	msgNotAuthorized    = "Not authorized"
	msgBadCredentials   = "Bad credentials"
	msgAlreadyExists    = "User already exists"
	msgWeakPassword     = "Password does not meet complexity requirements"
	msgInvalidCode      = "Invalid or expired code"
	msgDispatchUnusable = "Verification code could not be sent"
)

// AppError maps the failure to its fixed HTTP representation.
//
// The mapping is total. Internal failures keep their cause for logging and
// expose only a generic message.
func (f *Failure) AppError() *apperr.AppError {
	switch f.Kind {
	case KindMalformedToken:
		return apperr.Forbidden(msgMalformedToken)
	case KindBadSignature, KindExpired:
		return apperr.Unauthorized(msgInvalidToken)
	case KindNotAuthorized:
		return apperr.Forbidden(msgNotAuthorized)
	case KindBadCredentials:
		return apperr.BadRequest(msgBadCredentials)
	case KindAlreadyRegistered:
		return apperr.BadRequest(msgAlreadyExists)
	case KindWeakPassword:
		return apperr.BadRequest(msgWeakPassword, f.Violations...)
	case KindInvalidOrExpiredCode:
		return apperr.BadRequest(msgInvalidCode)
	case KindCodeDispatchFailed:
		return apperr.ServiceUnavailable(msgDispatchUnusable).WithCause(f.Cause)
	default:
		cause := f.Cause
		if cause == nil {
			cause = errors.New(f.Error())
		}
		return apperr.Internal(cause)
	}
}
