// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Registration Codes

const (
	// CodeDigits is the length of a one-time registration code.
	CodeDigits = 6

	// CodeEventType names the event published for every issued code.
	CodeEventType = "auth.registration_code.requested"
)

// # Profile Constraints

const (
	// MaxDisplayNameLength caps the display name in runes.
	MaxDisplayNameLength = 80
)

// # Pipeline Names

const (
	PipelineLogin           = "login"
	PipelineRegisterRequest = "register_request"
	PipelineRegisterUser    = "register_user"
	PipelineGetData         = "get_data"
	PipelineEditUser        = "edit_user"
)

// # Step Names

const (
	StepVerifyToken            = "verify_token"
	StepRequireIdentity        = "require_identity"
	StepCheckActive            = "check_active"
	StepCheckCredentials       = "check_credentials"
	StepCheckEmailUnregistered = "check_email_unregistered"
	StepPasswordComplexity     = "password_complexity"
	StepHashCredential         = "hash_credential"
	StepSendCode               = "send_code"
	StepCheckCode              = "check_code"
	StepRecordActivity         = "record_activity"
	StepIssueToken             = "issue_token"
)

// # Activity Labels

const (
	ActivityStartSession    = "start session"
	ActivityRegisterRequest = "register request"
	ActivityRegisterUser    = "register new user"
	ActivityEditUser        = "edit user data"
)
