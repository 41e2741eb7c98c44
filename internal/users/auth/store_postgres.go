// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/bazaar/internal/platform/database/schema"
	"github.com/taibuivan/bazaar/internal/platform/dberr"
	"github.com/taibuivan/bazaar/internal/platform/sec"
	"github.com/taibuivan/bazaar/pkg/uuid"
)

// Querier is the subset of [pgxpool.Pool] the Postgres stores use.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// # Account Repository

// PostgresCredentialStore implements [CredentialStore] over users.account.
type PostgresCredentialStore struct {
	db  Querier
	now func() time.Time
}

// NewCredentialStore creates a new PostgreSQL implementation of the CredentialStore.
func NewCredentialStore(db Querier) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db, now: time.Now}
}

var (
	accountTable = schema.UserAccount

	selectAccount = fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s, %s, %s FROM %s`,
		accountTable.ID, accountTable.Email, accountTable.Password, accountTable.DisplayName,
		accountTable.Role, accountTable.IsActive, accountTable.CreatedAt, accountTable.UpdatedAt,
		accountTable.Table)
)

/*
FindByEmail retrieves an account by its canonical email.

Description: ActiveOnly additionally requires the active flag to be set.

Parameters:
  - context: context.Context
  - email: string
  - filter: AccountFilter

Returns:
  - *Account: Hydrated account entity
  - error: ErrAccountNotFound or database errors
*/
func (repository *PostgresCredentialStore) FindByEmail(context context.Context, email string, filter AccountFilter) (*Account, error) {
	query := fmt.Sprintf(`%s WHERE %s = $1`, selectAccount, accountTable.Email)
	if filter == ActiveOnly {
		query += fmt.Sprintf(` AND %s = TRUE`, accountTable.IsActive)
	}

	account, err := scanAccount(repository.db.QueryRow(context, query, email))
	if err != nil {
		return nil, fmt.Errorf("postgres_account_find_by_email_failed: %w", err)
	}
	return account, nil
}

/*
FindByID retrieves an account by its unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Account: Hydrated account entity
  - error: ErrAccountNotFound or database errors
*/
func (repository *PostgresCredentialStore) FindByID(context context.Context, id string) (*Account, error) {
	query := fmt.Sprintf(`%s WHERE %s = $1`, selectAccount, accountTable.ID)

	account, err := scanAccount(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, fmt.Errorf("postgres_account_find_by_id_failed: %w", err)
	}
	return account, nil
}

/*
Create persists a new account into the users.account table.

Description: Generates the ID when empty, defaults the role to member and
initializes timestamps. A duplicate email surfaces as apperr.Conflict.

Parameters:
  - context: context.Context
  - account: *Account (Entity to persist)

Returns:
  - error: apperr.Conflict, or wrapped database errors
*/
func (repository *PostgresCredentialStore) Create(context context.Context, account *Account) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		accountTable.Table,
		accountTable.ID, accountTable.Email, accountTable.Password, accountTable.DisplayName,
		accountTable.Role, accountTable.IsActive, accountTable.CreatedAt, accountTable.UpdatedAt)

	if account.ID == "" {
		account.ID = uuid.New()
	}
	if account.Role == "" {
		account.Role = sec.RoleMember
	}

	now := repository.now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := repository.db.Exec(context, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.DisplayName,
		string(account.Role),
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return dberr.Wrap(err, "postgres_account_create_failed")
}

/*
UpdateProfile writes the display name and bumps updatedat.

Parameters:
  - context: context.Context
  - account: *Account (ID selects the row)

Returns:
  - error: ErrAccountNotFound when no row matched, or database errors
*/
func (repository *PostgresCredentialStore) UpdateProfile(context context.Context, account *Account) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		accountTable.Table, accountTable.DisplayName, accountTable.UpdatedAt, accountTable.ID)

	account.UpdatedAt = repository.now()

	tag, err := repository.db.Exec(context, query, account.ID, account.DisplayName, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres_account_update_profile_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	var role string

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.DisplayName,
		&role,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	account.Role = sec.UserRole(role)
	if !account.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q for account %s", role, account.ID)
	}
	return account, nil
}

// # Activity Repository

// PostgresActivityRecorder implements [ActivityRecorder] over users.activity.
type PostgresActivityRecorder struct {
	db  Querier
	now func() time.Time
}

// NewActivityRecorder creates a new PostgreSQL implementation of the ActivityRecorder.
func NewActivityRecorder(db Querier) *PostgresActivityRecorder {
	return &PostgresActivityRecorder{db: db, now: time.Now}
}

// Record appends one activity row.
func (repository *PostgresActivityRecorder) Record(context context.Context, activity *Activity) error {
	table := schema.UserActivity
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s) VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7)`,
		table.Table, table.ID, table.AccountID, table.Email, table.Action, table.IPAddress, table.UserAgent, table.CreatedAt)

	if activity.ID == "" {
		activity.ID = uuid.New()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = repository.now()
	}

	_, err := repository.db.Exec(context, query,
		activity.ID,
		activity.AccountID,
		activity.Email,
		activity.Action,
		activity.IPAddress,
		activity.UserAgent,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_activity_record_failed: %w", err)
	}
	return nil
}
