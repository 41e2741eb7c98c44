// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/bazaar/internal/platform/constants"
	"github.com/taibuivan/bazaar/internal/platform/sec"
	"github.com/taibuivan/bazaar/internal/users/auth"
	"github.com/taibuivan/bazaar/internal/users/pipeline"
)

func loginContext(password string) *pipeline.RequestContext {
	rc := pipeline.NewRequestContext(password)
	rc.BodyEmail = testEmail
	rc.ClientIP = "203.0.113.7:51000"
	rc.UserAgent = "test-agent"
	return rc
}

// # Pipeline Order

/*
TestPipelines_Order pins the step order of every route.
*/
func TestPipelines_Order(t *testing.T) {
	pipelines := newFixture(t).handler(nil).Pipelines()

	assert.Equal(t, []string{
		auth.StepCheckActive, auth.StepPasswordComplexity, auth.StepCheckCredentials,
		auth.StepRecordActivity, auth.StepIssueToken,
	}, pipelines[auth.PipelineLogin].Steps())

	assert.Equal(t, []string{
		auth.StepCheckEmailUnregistered, auth.StepSendCode, auth.StepRecordActivity, auth.StepIssueToken,
	}, pipelines[auth.PipelineRegisterRequest].Steps())

	assert.Equal(t, []string{
		auth.StepVerifyToken, auth.StepCheckEmailUnregistered, auth.StepCheckCode,
		auth.StepPasswordComplexity, auth.StepHashCredential, auth.StepRecordActivity,
	}, pipelines[auth.PipelineRegisterUser].Steps())

	assert.Equal(t, []string{
		auth.StepVerifyToken, auth.StepRequireIdentity, auth.StepCheckActive,
	}, pipelines[auth.PipelineGetData].Steps())

	assert.Equal(t, []string{
		auth.StepVerifyToken, auth.StepRequireIdentity, auth.StepCheckActive, auth.StepRecordActivity,
	}, pipelines[auth.PipelineEditUser].Steps())
}

// # Login

/*
TestLogin_InactiveAccount halts at check_active and never reaches the credential check.
*/
func TestLogin_InactiveAccount(t *testing.T) {
	f := newFixture(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.ActiveOnly).Return(nil, auth.ErrAccountNotFound).Once()

	failure := f.handler(nil).Pipelines()[auth.PipelineLogin].Run(context.Background(), loginContext(testPassword))

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindNotAuthorized, failure.Kind)
	assert.Equal(t, auth.StepCheckActive, failure.Step)
	assert.Equal(t, http.StatusForbidden, failure.AppError().HTTPStatus)

	f.accounts.AssertNumberOfCalls(t, "FindByEmail", 1)
	f.activity.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

/*
TestLogin_WrongPassword fails with BadCredentials and leaves no credential behind.
*/
func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.ActiveOnly).Return(f.account(t, true), nil)

	rc := loginContext("Wrong1234")
	failure := f.handler(nil).Pipelines()[auth.PipelineLogin].Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindBadCredentials, failure.Kind)
	assert.Equal(t, auth.StepCheckCredentials, failure.Step)
	assert.Equal(t, http.StatusBadRequest, failure.AppError().HTTPStatus)

	_, present := rc.Credential()
	assert.False(t, present)
	assert.Empty(t, rc.Identity)
	f.activity.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

/*
TestLogin_WeakPassword halts before the credential is consumed.
*/
func TestLogin_WeakPassword(t *testing.T) {
	f := newFixture(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.ActiveOnly).Return(f.account(t, true), nil).Once()

	failure := f.handler(nil).Pipelines()[auth.PipelineLogin].Run(context.Background(), loginContext("short"))

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindWeakPassword, failure.Kind)
	assert.Equal(t, auth.StepPasswordComplexity, failure.Step)
	assert.Len(t, failure.Violations, 3)
	f.accounts.AssertNumberOfCalls(t, "FindByEmail", 1)
}

/*
TestLogin_Success issues a token carrying the account identity and email.
*/
func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, true)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.ActiveOnly).Return(account, nil)
	f.activity.On("Record", mock.Anything, mock.MatchedBy(func(activity *auth.Activity) bool {
		return activity.Action == auth.ActivityStartSession &&
			activity.AccountID == account.ID &&
			activity.IPAddress == "203.0.113.7:51000"
	})).Return(nil).Once()

	rc := loginContext(testPassword)
	require.Nil(t, f.handler(nil).Pipelines()[auth.PipelineLogin].Run(context.Background(), rc))

	require.NotNil(t, rc.Token)
	assert.Equal(t, f.now.Add(testTokenTTL), rc.Token.ExpiresAt)
	assert.Equal(t, sec.RoleSeller, rc.Permissions)

	claims, err := f.codec.Verify(rc.Token.Value)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.Identity)
	assert.Equal(t, testEmail, claims.Email)

	_, present := rc.Credential()
	assert.False(t, present)
	f.activity.AssertExpectations(t)
}

/*
TestCheckCredentials_UnknownAccount is indistinguishable from a wrong password.
*/
func TestCheckCredentials_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.ActiveOnly).Return(nil, auth.ErrAccountNotFound)

	rc := loginContext(testPassword)
	failure := pipeline.New("check", f.steps(nil).CheckCredentials()).Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindBadCredentials, failure.Kind)
	_, present := rc.Credential()
	assert.False(t, present)
}

/*
TestCheckCredentials_StoreError is internal and still clears the credential.
*/
func TestCheckCredentials_StoreError(t *testing.T) {
	f := newFixture(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.ActiveOnly).Return(nil, errors.New("connection reset"))

	rc := loginContext(testPassword)
	failure := pipeline.New("check", f.steps(nil).CheckCredentials()).Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindInternal, failure.Kind)
	_, present := rc.Credential()
	assert.False(t, present)
}

/*
TestCheckCredentials_MissingInputs fails without touching the store.
*/
func TestCheckCredentials_MissingInputs(t *testing.T) {
	f := newFixture(t)
	check := pipeline.New("check", f.steps(nil).CheckCredentials())

	noPassword := loginContext("")
	failure := check.Run(context.Background(), noPassword)
	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindBadCredentials, failure.Kind)

	noEmail := pipeline.NewRequestContext(testPassword)
	failure = check.Run(context.Background(), noEmail)
	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindBadCredentials, failure.Kind)
	_, present := noEmail.Credential()
	assert.False(t, present)

	f.accounts.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything, mock.Anything)
}

// # Registration

/*
TestRegisterRequest_AlreadyRegistered fails before any code is issued or dispatched.
*/
func TestRegisterRequest_AlreadyRegistered(t *testing.T) {
	f := newFixture(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.AnyStatus).Return(f.account(t, false), nil)

	rc := pipeline.NewRequestContext("")
	rc.BodyEmail = testEmail
	failure := f.handler(nil).Pipelines()[auth.PipelineRegisterRequest].Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindAlreadyRegistered, failure.Kind)
	assert.Equal(t, auth.StepCheckEmailUnregistered, failure.Step)
	f.codes.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
	f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

/*
TestRegisterRequest_Success issues a registration token that lives as long as the code.
*/
func TestRegisterRequest_Success(t *testing.T) {
	f := newFixture(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.AnyStatus).Return(nil, auth.ErrAccountNotFound)
	code := auth.Code{Email: testEmail, Value: "042917", TTL: testCodeTTL, ExpiresAt: f.now.Add(testCodeTTL)}
	f.codes.On("Issue", mock.Anything, testEmail).Return(code, nil).Once()
	f.dispatcher.On("Dispatch", mock.Anything, code).Return(nil).Once()
	f.activity.On("Record", mock.Anything, mock.Anything).Return(nil).Once()

	rc := pipeline.NewRequestContext("")
	rc.BodyEmail = testEmail
	require.Nil(t, f.handler(nil).Pipelines()[auth.PipelineRegisterRequest].Run(context.Background(), rc))

	require.NotNil(t, rc.Token)
	assert.Equal(t, f.now.Add(testCodeTTL), rc.Token.ExpiresAt)

	claims, err := f.codec.Verify(rc.Token.Value)
	require.NoError(t, err)
	assert.Empty(t, claims.Identity)
	assert.Equal(t, testEmail, claims.Email)
	f.dispatcher.AssertExpectations(t)
}

/*
TestRegisterRequest_DispatchFailed maps delivery errors to CodeDispatchFailed.
*/
func TestRegisterRequest_DispatchFailed(t *testing.T) {
	f := newFixture(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.AnyStatus).Return(nil, auth.ErrAccountNotFound)
	f.codes.On("Issue", mock.Anything, testEmail).Return(auth.Code{Email: testEmail, Value: "111111", TTL: testCodeTTL}, nil)
	f.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	rc := pipeline.NewRequestContext("")
	rc.BodyEmail = testEmail
	failure := f.handler(nil).Pipelines()[auth.PipelineRegisterRequest].Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindCodeDispatchFailed, failure.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, failure.AppError().HTTPStatus)
	assert.Nil(t, rc.Token)
	f.activity.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

/*
TestRegisterUser_ExpiredCode fails with InvalidOrExpiredCode and runs nothing after it.
*/
func TestRegisterUser_ExpiredCode(t *testing.T) {
	f := newFixture(t)
	codes, mr := newCodeStore(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.AnyStatus).Return(nil, auth.ErrAccountNotFound)

	code, err := codes.Issue(context.Background(), testEmail)
	require.NoError(t, err)
	mr.FastForward(testCodeTTL + time.Second)

	rc := pipeline.NewRequestContext(testPassword)
	rc.Authorization = f.bearer(t, "", testEmail, time.Hour)
	rc.SubmittedCode = code.Value

	failure := f.handler(codes).Pipelines()[auth.PipelineRegisterUser].Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindInvalidOrExpiredCode, failure.Kind)
	assert.Equal(t, auth.StepCheckCode, failure.Step)
	assert.Empty(t, rc.PasswordHash)
	f.activity.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

/*
TestRegisterUser_WrongCodeNotConsumed keeps the stored code usable after a mismatch.
*/
func TestRegisterUser_WrongCodeNotConsumed(t *testing.T) {
	f := newFixture(t)
	codes, mr := newCodeStore(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.AnyStatus).Return(nil, auth.ErrAccountNotFound)

	code, err := codes.Issue(context.Background(), testEmail)
	require.NoError(t, err)

	wrong := "000000"
	if code.Value == wrong {
		wrong = "999999"
	}

	rc := pipeline.NewRequestContext(testPassword)
	rc.Authorization = f.bearer(t, "", testEmail, time.Hour)
	rc.SubmittedCode = wrong

	failure := f.handler(codes).Pipelines()[auth.PipelineRegisterUser].Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindInvalidOrExpiredCode, failure.Kind)

	stored, err := mr.Get(constants.RedisPrefixRegisterCode + testEmail)
	require.NoError(t, err)
	assert.Equal(t, code.Value, stored)
}

/*
TestRegisterUser_Success consumes the code, hashes the password and clears the credential.
*/
func TestRegisterUser_Success(t *testing.T) {
	f := newFixture(t)
	codes, mr := newCodeStore(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.AnyStatus).Return(nil, auth.ErrAccountNotFound)
	f.activity.On("Record", mock.Anything, mock.MatchedBy(func(activity *auth.Activity) bool {
		return activity.Action == auth.ActivityRegisterUser && activity.Email == testEmail
	})).Return(nil).Once()

	code, err := codes.Issue(context.Background(), testEmail)
	require.NoError(t, err)

	rc := pipeline.NewRequestContext(testPassword)
	rc.Authorization = f.bearer(t, "", testEmail, testCodeTTL)
	rc.SubmittedCode = code.Value

	require.Nil(t, f.handler(codes).Pipelines()[auth.PipelineRegisterUser].Run(context.Background(), rc))

	assert.Equal(t, testEmail, rc.Email)
	assert.True(t, f.hasher.Verify(testPassword, rc.PasswordHash))
	_, present := rc.Credential()
	assert.False(t, present)
	assert.False(t, mr.Exists(constants.RedisPrefixRegisterCode+testEmail))
}

/*
TestCheckCode_Missing fails without consulting the store.
*/
func TestCheckCode_Missing(t *testing.T) {
	f := newFixture(t)

	rc := pipeline.NewRequestContext("")
	rc.Email = testEmail
	failure := pipeline.New("code", f.steps(nil).CheckCode()).Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindInvalidOrExpiredCode, failure.Kind)
	f.codes.AssertNotCalled(t, "ValidateAndConsume", mock.Anything, mock.Anything, mock.Anything)
}

// # Token Verification

/*
TestVerifyToken_Failures classifies header and token problems.
*/
func TestVerifyToken_Failures(t *testing.T) {
	f := newFixture(t)
	verify := pipeline.New("verify", f.steps(nil).VerifyToken())

	expired := f.bearer(t, "acc-1", testEmail, 0)

	foreignCodec, err := sec.NewTokenCodec([]byte(strings.Repeat("z", 32)), testIssuer)
	require.NoError(t, err)
	foreign, err := foreignCodec.Issue("acc-1", testEmail, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		kind   pipeline.Kind
		status int
	}{
		{"missing_header", "", pipeline.KindMalformedToken, http.StatusForbidden},
		{"wrong_scheme", "Basic abc", pipeline.KindMalformedToken, http.StatusForbidden},
		{"garbage", "Bearer not-a-token", pipeline.KindMalformedToken, http.StatusForbidden},
		{"foreign_secret", "Bearer " + foreign.Value, pipeline.KindBadSignature, http.StatusUnauthorized},
		{"expired", expired, pipeline.KindExpired, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := pipeline.NewRequestContext("")
			rc.Authorization = tt.header

			failure := verify.Run(context.Background(), rc)

			require.NotNil(t, failure)
			assert.Equal(t, tt.kind, failure.Kind)
			assert.Equal(t, tt.status, failure.AppError().HTTPStatus)
			assert.Empty(t, rc.Identity)
		})
	}
}

/*
TestGetData_RegistrationToken rejects a token without an identity.
*/
func TestGetData_RegistrationToken(t *testing.T) {
	f := newFixture(t)

	rc := pipeline.NewRequestContext("")
	rc.Authorization = f.bearer(t, "", testEmail, time.Hour)

	failure := f.handler(nil).Pipelines()[auth.PipelineGetData].Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindNotAuthorized, failure.Kind)
	assert.Equal(t, auth.StepRequireIdentity, failure.Step)
	f.accounts.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything, mock.Anything)
}

/*
TestGetData_DeactivatedAfterIssue re-checks activation even with a valid token.
*/
func TestGetData_DeactivatedAfterIssue(t *testing.T) {
	f := newFixture(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.ActiveOnly).Return(nil, auth.ErrAccountNotFound)

	rc := pipeline.NewRequestContext("")
	rc.Authorization = f.bearer(t, "acc-1", testEmail, time.Hour)

	failure := f.handler(nil).Pipelines()[auth.PipelineGetData].Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindNotAuthorized, failure.Kind)
	assert.Equal(t, auth.StepCheckActive, failure.Step)
}

/*
TestGetData_BodyEmailIgnored checks the token email, not a body email naming another account.
*/
func TestGetData_BodyEmailIgnored(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, false)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.ActiveOnly).Return(nil, auth.ErrAccountNotFound)

	rc := pipeline.NewRequestContext("")
	rc.Authorization = f.bearer(t, account.ID, testEmail, time.Hour)
	rc.BodyEmail = "other@x.com"

	failure := f.handler(nil).Pipelines()[auth.PipelineGetData].Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindNotAuthorized, failure.Kind)
	assert.Equal(t, auth.StepCheckActive, failure.Step)
	f.accounts.AssertNotCalled(t, "FindByEmail", mock.Anything, "other@x.com", mock.Anything)
}

/*
TestEditUser_IdentityMismatch rejects a token whose identity differs from the account under its email.
*/
func TestEditUser_IdentityMismatch(t *testing.T) {
	f := newFixture(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.ActiveOnly).Return(f.account(t, true), nil)

	rc := pipeline.NewRequestContext("")
	rc.Authorization = f.bearer(t, "0192f5a4-7c1e-7000-8000-0000000000ff", testEmail, time.Hour)

	failure := f.handler(nil).Pipelines()[auth.PipelineEditUser].Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindNotAuthorized, failure.Kind)
	assert.Equal(t, auth.StepCheckActive, failure.Step)
	f.activity.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

// # Password Length

/*
TestRegisterUser_PasswordTooLong fails as WeakPassword before hashing.
*/
func TestRegisterUser_PasswordTooLong(t *testing.T) {
	f := newFixture(t)
	codes, _ := newCodeStore(t)
	f.accounts.On("FindByEmail", mock.Anything, testEmail, auth.AnyStatus).Return(nil, auth.ErrAccountNotFound)

	code, err := codes.Issue(context.Background(), testEmail)
	require.NoError(t, err)

	rc := pipeline.NewRequestContext("Aa1" + strings.Repeat("x", 80))
	rc.Authorization = f.bearer(t, "", testEmail, testCodeTTL)
	rc.SubmittedCode = code.Value

	failure := f.handler(codes).Pipelines()[auth.PipelineRegisterUser].Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindWeakPassword, failure.Kind)
	assert.Equal(t, auth.StepPasswordComplexity, failure.Step)
	assert.Equal(t, http.StatusBadRequest, failure.AppError().HTTPStatus)
	require.Len(t, failure.Violations, 1)
	assert.Equal(t, "Maximum 72 bytes", failure.Violations[0].Message)
	assert.Empty(t, rc.PasswordHash)
}

/*
TestHashCredential_TooLong reports a hasher length rejection as WeakPassword.
*/
func TestHashCredential_TooLong(t *testing.T) {
	f := newFixture(t)

	rc := pipeline.NewRequestContext(strings.Repeat("x", sec.MaxPasswordBytes+1))
	failure := pipeline.New("hash", f.steps(nil).HashCredential()).Run(context.Background(), rc)

	require.NotNil(t, failure)
	assert.Equal(t, pipeline.KindWeakPassword, failure.Kind)
	assert.Equal(t, pipeline.FieldPassword, failure.Violations[0].Field)
	assert.Equal(t, http.StatusBadRequest, failure.AppError().HTTPStatus)
	_, present := rc.Credential()
	assert.False(t, present)
}
