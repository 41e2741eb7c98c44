// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the marketplace's identity checks and their collaborators.

It defines the account record, the stores the authorization steps consult,
the steps themselves and the thin handlers behind the session and
registration routes.

# Architecture

  - Stores: Postgres accounts and activity, Redis one-time codes.
  - Dispatch: Kafka (or log) delivery of registration codes.
  - Steps: named checks composed into pipelines per route.
  - Handler: binds routes to pipelines and their final handlers.
*/
package auth

import (
	"time"

	"github.com/taibuivan/bazaar/internal/platform/sec"
)

// # Domain Entities

// Account represents a registered marketplace user.
type Account struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string       `json:"display_name"`
	Role         sec.UserRole `json:"role"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Activity is a single audit entry written when a guarded route is reached.
type Activity struct {
	ID        string
	AccountID string
	Email     string
	Action    string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// # Field Identifiers

// Response and payload field names for the authentication routes.
const (
	FieldDisplayName = "display_name"
	FieldAccount     = "account"
)
