// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/bazaar/internal/platform/ctxutil"
	"github.com/taibuivan/bazaar/internal/platform/respond"
	"github.com/taibuivan/bazaar/internal/platform/sec"
	"github.com/taibuivan/bazaar/internal/platform/validate"
	"github.com/taibuivan/bazaar/internal/users/pipeline"
)

// # Definitions & Constructors

// Handler binds the session and registration routes to their pipelines.
//
// # Scope
//
// Every route runs its pipeline first. The methods below are the final
// handlers and only ever see a request that passed every step.
type Handler struct {
	accounts CredentialStore

	login           *pipeline.Pipeline
	registerRequest *pipeline.Pipeline
	registerUser    *pipeline.Pipeline
	getData         *pipeline.Pipeline
	editUser        *pipeline.Pipeline
}

// NewHandler composes the route pipelines from steps.
//
// The step order of each pipeline is part of its security contract.
func NewHandler(steps *Steps, accounts CredentialStore, policy PasswordPolicy, metrics *pipeline.Metrics) *Handler {
	return &Handler{
		accounts: accounts,

		login: pipeline.New(PipelineLogin,
			steps.CheckActive(),
			steps.PasswordComplexity(policy),
			steps.CheckCredentials(),
			steps.RecordActivity(ActivityStartSession),
			steps.IssueToken(),
		).WithMetrics(metrics),

		registerRequest: pipeline.New(PipelineRegisterRequest,
			steps.CheckEmailUnregistered(),
			steps.SendCode(),
			steps.RecordActivity(ActivityRegisterRequest),
			steps.IssueToken(),
		).WithMetrics(metrics),

		registerUser: pipeline.New(PipelineRegisterUser,
			steps.VerifyToken(),
			steps.CheckEmailUnregistered(),
			steps.CheckCode(),
			steps.PasswordComplexity(policy),
			steps.HashCredential(),
			steps.RecordActivity(ActivityRegisterUser),
		).WithMetrics(metrics),

		getData: pipeline.New(PipelineGetData,
			steps.VerifyToken(),
			steps.RequireIdentity(),
			steps.CheckActive(),
		).WithMetrics(metrics),

		editUser: pipeline.New(PipelineEditUser,
			steps.VerifyToken(),
			steps.RequireIdentity(),
			steps.CheckActive(),
			steps.RecordActivity(ActivityEditUser),
		).WithMetrics(metrics),
	}
}

// Pipelines returns every route pipeline keyed by name.
func (handler *Handler) Pipelines() map[string]*pipeline.Pipeline {
	return map[string]*pipeline.Pipeline{
		PipelineLogin:           handler.login,
		PipelineRegisterRequest: handler.registerRequest,
		PipelineRegisterUser:    handler.registerUser,
		PipelineGetData:         handler.getData,
		PipelineEditUser:        handler.editUser,
	}
}

// Routes returns a [chi.Router] with the authentication routes.
//
// # Endpoints
//   - POST /login                 : Issues a session token.
//   - POST /user/register_request : Sends a registration code, issues a registration token.
//   - POST /user/register_user    : Creates the account.
//   - POST /user/get_data         : Returns the caller's account.
//   - POST /user/edit_user        : Updates the caller's profile.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", pipeline.Handler(handler.login, handler.issueToken("Token created successfully")))

	router.Route("/user", func(r chi.Router) {
		r.Post("/register_request", pipeline.Handler(handler.registerRequest, handler.issueToken("Code sent successfully")))
		r.Post("/register_user", pipeline.Handler(handler.registerUser, handler.createAccount))
		r.Post("/get_data", pipeline.Handler(handler.getData, handler.getAccount))
		r.Post("/edit_user", pipeline.Handler(handler.editUser, handler.updateAccount))
	})

	return router
}

// # Responses

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type profileRequest struct {
	DisplayName string
}

/*
issueToken renders the token produced by the IssueToken step.

Response:
  - 201: tokenResponse
*/
func (handler *Handler) issueToken(message string) pipeline.FinalHandler {
	return func(writer http.ResponseWriter, _ *http.Request, rc *pipeline.RequestContext) {
		respond.Created(writer, message, tokenResponse{
			Token:     rc.Token.Value,
			ExpiresAt: rc.Token.ExpiresAt,
		})
	}
}

/*
createAccount persists the account whose email and code were verified.

POST /api/v1/user/register_user

Response:
  - 201: Account
  - 400: Invalid display name
  - 409: Email registered concurrently
*/
func (handler *Handler) createAccount(writer http.ResponseWriter, request *http.Request, rc *pipeline.RequestContext) {
	input, err := decodeProfile(rc)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account := &Account{
		Email:        rc.Email,
		PasswordHash: rc.PasswordHash,
		DisplayName:  input.DisplayName,
		Role:         sec.RoleMember,
		IsActive:     true,
	}

	if err := handler.accounts.Create(request.Context(), account); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, "User created successfully", account)
}

/*
getAccount returns the account named by the verified token.

POST /api/v1/user/get_data

Response:
  - 200: Account
  - 404: Account removed since the token was issued
*/
func (handler *Handler) getAccount(writer http.ResponseWriter, request *http.Request, _ *pipeline.RequestContext) {
	ctx := request.Context()
	account, err := handler.accounts.FindByID(ctx, ctxutil.GetIdentity(ctx))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldAccount: account})
}

/*
updateAccount applies profile changes for the account named by the token.

POST /api/v1/user/edit_user

Response:
  - 200: Account
  - 400: Invalid display name
*/
func (handler *Handler) updateAccount(writer http.ResponseWriter, request *http.Request, rc *pipeline.RequestContext) {
	input, err := decodeProfile(rc)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	ctx := request.Context()
	account, err := handler.accounts.FindByID(ctx, ctxutil.GetIdentity(ctx))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account.DisplayName = input.DisplayName
	if err := handler.accounts.UpdateProfile(ctx, account); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldAccount: account})
}

// decodeProfile reads the profile fields from the business payload.
func decodeProfile(rc *pipeline.RequestContext) (profileRequest, error) {
	var input profileRequest

	if raw, ok := rc.Payload[FieldDisplayName]; ok {
		if err := json.Unmarshal(raw, &input.DisplayName); err != nil {
			return input, validate.ErrInvalidJSON
		}
	}

	validator := &validate.Validator{}
	validator.MaxLen(FieldDisplayName, input.DisplayName, MaxDisplayNameLength)
	return input, validator.Err()
}
