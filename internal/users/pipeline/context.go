// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/taibuivan/bazaar/internal/platform/sec"
)

// RequestContext is the per-request state threaded through a pipeline.
//
// A fresh value is built for every request and owned exclusively by that
// request's goroutine. It is never shared and never outlives the request.
//
// # Credential Handling
//
// The cleartext password is unexported. Steps read it through [RequestContext.Credential]
// and the step that consumes it must call [RequestContext.ClearCredential] on every
// exit path. LogValue never renders it.
type RequestContext struct {
	// Inputs decoded by the transport.
	BodyEmail     string
	SubmittedCode string
	Authorization string
	ClientIP      string
	UserAgent     string

	// Payload holds the remaining body fields for the business handler.
	// Credential fields are stripped before it is populated.
	Payload map[string]json.RawMessage

	credential    string
	hasCredential bool

	// Enriched by steps.
	Email        string
	Identity     string
	Permissions  sec.UserRole
	TokenExpiry  *time.Duration
	PasswordHash string
	Token        *sec.Token
}

// NewRequestContext creates a context carrying the submitted cleartext credential.
// An empty credential is treated as absent.
func NewRequestContext(credential string) *RequestContext {
	return &RequestContext{
		credential:    credential,
		hasCredential: credential != "",
	}
}

// Credential returns the cleartext password and whether it is still present.
func (rc *RequestContext) Credential() (string, bool) {
	return rc.credential, rc.hasCredential
}

// ClearCredential drops the cleartext password. It is idempotent.
func (rc *RequestContext) ClearCredential() {
	rc.credential = ""
	rc.hasCredential = false
}

// EmailOrBody returns the email from the body if present, else the one already
// set by an earlier step (e.g. token verification).
func (rc *RequestContext) EmailOrBody() string {
	if rc.BodyEmail != "" {
		return rc.BodyEmail
	}
	return rc.Email
}

// LogValue implements slog.LogValuer with secrets redacted.
func (rc *RequestContext) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", rc.Email),
		slog.String("identity", rc.Identity),
		slog.Bool("has_credential", rc.hasCredential),
		slog.Bool("has_token", rc.Token != nil),
	)
}
