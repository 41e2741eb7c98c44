// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/bazaar/internal/platform/apperr"
)

// ErrAccountNotFound is returned by [CredentialStore] lookups that match no row.
var ErrAccountNotFound = apperr.NotFound("Account")

// AccountFilter narrows a credential lookup.
type AccountFilter int

const (
	// ActiveOnly matches accounts whose active flag is set.
	ActiveOnly AccountFilter = iota
	// AnyStatus matches accounts regardless of their active flag.
	AnyStatus
)

// # Account Data Access

// CredentialStore defines the data access contract for marketplace accounts.
type CredentialStore interface {

	/*
		FindByEmail returns the account registered under email.

		Parameters:
		  - context: context.Context
		  - email: string (canonical form)
		  - filter: AccountFilter

		Returns:
		  - *Account: Hydrated entity
		  - error: ErrAccountNotFound or database failures
	*/
	FindByEmail(context context.Context, email string, filter AccountFilter) (*Account, error)

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Account: Hydrated entity
		  - error: ErrAccountNotFound or database failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		Create persists a brand-new account.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: apperr.Conflict when the email is taken, or persistence failures
	*/
	Create(context context.Context, account *Account) error

	/*
		UpdateProfile persists changes to the mutable profile fields of account.

		Parameters:
		  - context: context.Context
		  - account: *Account

		Returns:
		  - error: ErrAccountNotFound or persistence failures
	*/
	UpdateProfile(context context.Context, account *Account) error
}

// # Volatile Data Access

// Code is a freshly issued one-time registration code.
type Code struct {
	Email     string
	Value     string
	TTL       time.Duration
	ExpiresAt time.Time
}

// CodeStore keeps one-time registration codes keyed by email.
type CodeStore interface {

	/*
		Issue creates a new code for email, replacing any previous one.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - Code: The stored code and its lifetime
		  - error: Storage failures
	*/
	Issue(context context.Context, email string) (Code, error)

	/*
		ValidateAndConsume checks code against the stored one and deletes it on match.

		A code is consumed at most once. A mismatch leaves the stored code intact
		until the store's attempt limit is reached, after which it is discarded.

		Parameters:
		  - context: context.Context
		  - email: string
		  - code: string

		Returns:
		  - bool: true if the code matched and was consumed
		  - error: Storage failures
	*/
	ValidateAndConsume(context context.Context, email, code string) (bool, error)
}

// CodeDispatcher delivers an issued code to its recipient.
type CodeDispatcher interface {
	Dispatch(context context.Context, code Code) error
}

// ActivityRecorder appends audit entries for guarded routes.
type ActivityRecorder interface {
	Record(context context.Context, activity *Activity) error
}
