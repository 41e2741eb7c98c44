// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/taibuivan/bazaar/internal/platform/sec"
	"github.com/taibuivan/bazaar/internal/platform/validate"
	"github.com/taibuivan/bazaar/internal/users/pipeline"
	"github.com/taibuivan/bazaar/pkg/pointer"
)

// # Contracts

// TokenCodec issues and verifies bearer tokens.
type TokenCodec interface {
	Issue(identity, email string, ttl time.Duration) (sec.Token, error)
	Verify(tokenString string) (*sec.Claims, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plainTextPassword string) (string, error)
	Verify(plainTextPassword, existingHash string) bool
}

// Steps builds the named authorization steps over their collaborators.
//
// Steps holds no per-request state and is safe for concurrent use.
type Steps struct {
	accounts   CredentialStore
	codes      CodeStore
	dispatcher CodeDispatcher
	activity   ActivityRecorder
	hasher     PasswordHasher
	tokens     TokenCodec
	tokenTTL   time.Duration
}

// NewSteps constructs the step factory. tokenTTL is used when no step sets a
// shorter lifetime.
func NewSteps(
	accounts CredentialStore,
	codes CodeStore,
	dispatcher CodeDispatcher,
	activity ActivityRecorder,
	hasher PasswordHasher,
	tokens TokenCodec,
	tokenTTL time.Duration,
) *Steps {
	return &Steps{
		accounts:   accounts,
		codes:      codes,
		dispatcher: dispatcher,
		activity:   activity,
		hasher:     hasher,
		tokens:     tokens,
		tokenTTL:   tokenTTL,
	}
}

// # Token Steps

/*
VerifyToken checks the bearer token and loads identity and email from it.

Failures:
  - MalformedToken: header absent, not Bearer, or undecodable token
  - BadSignature: signature, algorithm or issuer mismatch
  - Expired: token past its expiry
*/
func (s *Steps) VerifyToken() pipeline.Step {
	return pipeline.Step{Name: StepVerifyToken, Run: func(_ context.Context, rc *pipeline.RequestContext) error {
		raw, err := sec.ParseBearer(rc.Authorization)
		if err != nil {
			return pipeline.Fail(pipeline.KindMalformedToken)
		}

		claims, err := s.tokens.Verify(raw)
		switch {
		case err == nil:
		case errors.Is(err, sec.ErrExpired):
			return pipeline.Fail(pipeline.KindExpired)
		case errors.Is(err, sec.ErrMalformedToken):
			return pipeline.Fail(pipeline.KindMalformedToken)
		default:
			return pipeline.Fail(pipeline.KindBadSignature)
		}

		rc.Identity = claims.Identity
		rc.Email = claims.Email
		return nil
	}}
}

// RequireIdentity halts requests whose token carries no account identity,
// such as registration tokens.
func (s *Steps) RequireIdentity() pipeline.Step {
	return pipeline.Step{Name: StepRequireIdentity, Run: func(_ context.Context, rc *pipeline.RequestContext) error {
		if rc.Identity == "" {
			return pipeline.Fail(pipeline.KindNotAuthorized)
		}
		return nil
	}}
}

/*
IssueToken signs a token for the identity and email gathered so far.

The lifetime is the context's TokenExpiry when a step set one, otherwise the
configured default.
*/
func (s *Steps) IssueToken() pipeline.Step {
	return pipeline.Step{Name: StepIssueToken, Run: func(_ context.Context, rc *pipeline.RequestContext) error {
		ttl := pointer.Fallback(rc.TokenExpiry, s.tokenTTL)

		token, err := s.tokens.Issue(rc.Identity, rc.Email, ttl)
		if err != nil {
			return pipeline.Internal(err)
		}

		rc.Token = &token
		return nil
	}}
}

// # Account Steps

/*
CheckActive requires an active account for the caller.

Once a token has set an identity, the token email is checked and the account
found must carry that identity. Otherwise the body email is used.

Failures:
  - NotAuthorized: no email, no active account under it, or an account other than the token's
  - Internal: store failure
*/
func (s *Steps) CheckActive() pipeline.Step {
	return pipeline.Step{Name: StepCheckActive, Run: func(ctx context.Context, rc *pipeline.RequestContext) error {
		email := rc.EmailOrBody()
		if rc.Identity != "" {
			email = rc.Email
		}
		if email == "" {
			return pipeline.Fail(pipeline.KindNotAuthorized)
		}

		account, err := s.accounts.FindByEmail(ctx, email, ActiveOnly)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return pipeline.Fail(pipeline.KindNotAuthorized)
			}
			return pipeline.Internal(err)
		}

		if rc.Identity != "" && account.ID != rc.Identity {
			return pipeline.Fail(pipeline.KindNotAuthorized)
		}
		return nil
	}}
}

/*
CheckCredentials verifies the submitted password against the active account.

The cleartext credential is cleared on every exit path. On success identity,
email and permissions come from the account record.

An unknown account and a wrong password fail identically.

Failures:
  - BadCredentials: credential or email missing, no active account, or password mismatch
  - Internal: store failure
*/
func (s *Steps) CheckCredentials() pipeline.Step {
	return pipeline.Step{Name: StepCheckCredentials, Run: func(ctx context.Context, rc *pipeline.RequestContext) error {
		password, ok := rc.Credential()
		defer rc.ClearCredential()

		email := rc.EmailOrBody()
		if !ok || email == "" {
			return pipeline.Fail(pipeline.KindBadCredentials)
		}

		account, err := s.accounts.FindByEmail(ctx, email, ActiveOnly)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return pipeline.Fail(pipeline.KindBadCredentials)
			}
			return pipeline.Internal(err)
		}

		if !s.hasher.Verify(password, account.PasswordHash) {
			return pipeline.Fail(pipeline.KindBadCredentials)
		}

		rc.Identity = account.ID
		rc.Email = account.Email
		rc.Permissions = account.Role
		return nil
	}}
}

/*
CheckEmailUnregistered requires that no account, active or not, uses the email.

Failures:
  - AlreadyRegistered: an account exists
  - NotAuthorized: no email to check
  - Internal: store failure
*/
func (s *Steps) CheckEmailUnregistered() pipeline.Step {
	return pipeline.Step{Name: StepCheckEmailUnregistered, Run: func(ctx context.Context, rc *pipeline.RequestContext) error {
		email := rc.EmailOrBody()
		if email == "" {
			return pipeline.Fail(pipeline.KindNotAuthorized)
		}

		_, err := s.accounts.FindByEmail(ctx, email, AnyStatus)
		switch {
		case err == nil:
			return pipeline.Fail(pipeline.KindAlreadyRegistered)
		case !errors.Is(err, ErrAccountNotFound):
			return pipeline.Internal(err)
		}

		rc.Email = email
		return nil
	}}
}

// # Credential Steps

// PasswordComplexity rejects a submitted password that breaks policy.
// It must run before any step that consumes the credential.
func (s *Steps) PasswordComplexity(policy PasswordPolicy) pipeline.Step {
	return pipeline.Step{Name: StepPasswordComplexity, Run: func(_ context.Context, rc *pipeline.RequestContext) error {
		password, _ := rc.Credential()
		if violations := policy.Check(password); len(violations) > 0 {
			return pipeline.Weak(violations)
		}
		return nil
	}}
}

// HashCredential replaces the submitted password with its hash for account
// creation. The cleartext credential is cleared on every exit path. A password
// the hasher cannot accept fails as WeakPassword.
func (s *Steps) HashCredential() pipeline.Step {
	return pipeline.Step{Name: StepHashCredential, Run: func(_ context.Context, rc *pipeline.RequestContext) error {
		password, ok := rc.Credential()
		defer rc.ClearCredential()

		if !ok {
			return pipeline.Fail(pipeline.KindBadCredentials)
		}

		hash, err := s.hasher.Hash(password)
		if errors.Is(err, sec.ErrPasswordTooLong) {
			validator := &validate.Validator{}
			return pipeline.Weak(validator.MaxBytes(pipeline.FieldPassword, password, sec.MaxPasswordBytes).FieldErrors())
		}
		if err != nil {
			return pipeline.Internal(err)
		}

		rc.PasswordHash = hash
		return nil
	}}
}

// # One-Time Code Steps

/*
SendCode issues a registration code for the context email and dispatches it.

The token issued later in the same pipeline lives exactly as long as the code.

Failures:
  - CodeDispatchFailed: the code could not be stored or delivered
*/
func (s *Steps) SendCode() pipeline.Step {
	return pipeline.Step{Name: StepSendCode, Run: func(ctx context.Context, rc *pipeline.RequestContext) error {
		code, err := s.codes.Issue(ctx, rc.Email)
		if err != nil {
			return &pipeline.Failure{Kind: pipeline.KindCodeDispatchFailed, Cause: err}
		}

		if err := s.dispatcher.Dispatch(ctx, code); err != nil {
			return &pipeline.Failure{Kind: pipeline.KindCodeDispatchFailed, Cause: err}
		}

		rc.TokenExpiry = pointer.To(code.TTL)
		return nil
	}}
}

/*
CheckCode consumes the submitted registration code for the context email.

Failures:
  - InvalidOrExpiredCode: no code submitted, or absent, mismatched or expired
  - Internal: store failure
*/
func (s *Steps) CheckCode() pipeline.Step {
	return pipeline.Step{Name: StepCheckCode, Run: func(ctx context.Context, rc *pipeline.RequestContext) error {
		if rc.SubmittedCode == "" {
			return pipeline.Fail(pipeline.KindInvalidOrExpiredCode)
		}

		ok, err := s.codes.ValidateAndConsume(ctx, rc.Email, rc.SubmittedCode)
		if err != nil {
			return pipeline.Internal(err)
		}
		if !ok {
			return pipeline.Fail(pipeline.KindInvalidOrExpiredCode)
		}
		return nil
	}}
}

// # Audit Steps

// RecordActivity appends an audit entry labelled action.
func (s *Steps) RecordActivity(action string) pipeline.Step {
	return pipeline.Step{Name: StepRecordActivity, Run: func(ctx context.Context, rc *pipeline.RequestContext) error {
		err := s.activity.Record(ctx, &Activity{
			AccountID: rc.Identity,
			Email:     rc.EmailOrBody(),
			Action:    action,
			IPAddress: rc.ClientIP,
			UserAgent: rc.UserAgent,
		})
		if err != nil {
			return pipeline.Internal(err)
		}
		return nil
	}}
}
