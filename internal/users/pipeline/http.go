// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"encoding/json"
	"net/http"

	"github.com/taibuivan/bazaar/internal/platform/constants"
	"github.com/taibuivan/bazaar/internal/platform/ctxutil"
	"github.com/taibuivan/bazaar/internal/platform/middleware"
	requestutil "github.com/taibuivan/bazaar/internal/platform/request"
	"github.com/taibuivan/bazaar/internal/platform/respond"
	"github.com/taibuivan/bazaar/internal/platform/validate"
	"github.com/taibuivan/bazaar/pkg/email"
)

// Body fields consumed by the transport. They never reach [RequestContext.Payload].
const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldCode     = "code"
)

// FinalHandler is the business handler reached only when every step passed.
type FinalHandler func(writer http.ResponseWriter, request *http.Request, rc *RequestContext)

/*
Handler adapts a pipeline and its business handler to net/http.

For each request it decodes the JSON body, builds a fresh [RequestContext],
runs the pipeline and either renders the failure or calls final. The
cleartext credential is cleared before final runs.
*/
func Handler(p *Pipeline, final FinalHandler) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		rc, err := decodeRequest(writer, request)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		ctx := request.Context()
		if failure := p.Run(ctx, rc); failure != nil {
			respond.Error(writer, request, failure.AppError())
			return
		}

		rc.ClearCredential()

		if rc.Identity != "" {
			request = request.WithContext(ctxutil.WithIdentity(ctx, rc.Identity))
		}
		final(writer, request, rc)
	}
}

// decodeRequest splits the body into pipeline inputs and the business payload.
func decodeRequest(writer http.ResponseWriter, request *http.Request) (*RequestContext, error) {
	var body map[string]json.RawMessage
	if err := requestutil.DecodeJSON(writer, request, &body); err != nil {
		return nil, err
	}

	var bodyEmail, password, code string
	for field, target := range map[string]*string{
		FieldEmail:    &bodyEmail,
		FieldPassword: &password,
		FieldCode:     &code,
	} {
		raw, ok := body[field]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, validate.ErrInvalidJSON
		}
		delete(body, field)
	}

	rc := NewRequestContext(password)
	rc.SubmittedCode = code
	rc.Authorization = request.Header.Get(constants.HeaderAuthorization)
	rc.ClientIP = middleware.RealIP(request)
	rc.UserAgent = request.UserAgent()
	rc.Payload = body

	if bodyEmail != "" {
		canonical := email.Canonical(bodyEmail)
		if err := new(validate.Validator).Email(FieldEmail, canonical).Err(); err != nil {
			return nil, err
		}
		rc.BodyEmail = canonical
	}

	return rc, nil
}
