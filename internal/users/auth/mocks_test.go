// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/bazaar/internal/platform/sec"
	"github.com/taibuivan/bazaar/internal/users/auth"
)

// # Mocks

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) FindByEmail(ctx context.Context, email string, filter auth.AccountFilter) (*auth.Account, error) {
	args := m.Called(ctx, email, filter)
	account, _ := args.Get(0).(*auth.Account)
	return account, args.Error(1)
}

func (m *mockAccounts) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*auth.Account)
	return account, args.Error(1)
}

func (m *mockAccounts) Create(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockAccounts) UpdateProfile(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

type mockCodes struct{ mock.Mock }

func (m *mockCodes) Issue(ctx context.Context, email string) (auth.Code, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(auth.Code), args.Error(1)
}

func (m *mockCodes) ValidateAndConsume(ctx context.Context, email, code string) (bool, error) {
	args := m.Called(ctx, email, code)
	return args.Bool(0), args.Error(1)
}

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Dispatch(ctx context.Context, code auth.Code) error {
	return m.Called(ctx, code).Error(0)
}

type mockActivity struct{ mock.Mock }

func (m *mockActivity) Record(ctx context.Context, activity *auth.Activity) error {
	return m.Called(ctx, activity).Error(0)
}

// # Fixture

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testIssuer   = "bazaar.test"
	testEmail    = "a@x.com"
	testPassword = "Secret123"
	testTokenTTL = 24 * time.Hour
	testCodeTTL  = 10 * time.Minute

	testCodeAttempts = 3
)

var testPolicy = auth.PasswordPolicy{MinLength: 8, RequireUpper: true, RequireDigit: true}

type fixture struct {
	accounts   *mockAccounts
	codes      *mockCodes
	dispatcher *mockDispatcher
	activity   *mockActivity
	hasher     *sec.PasswordHasher
	codec      *sec.TokenCodec
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hasher, err := sec.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	f := &fixture{
		accounts:   &mockAccounts{},
		codes:      &mockCodes{},
		dispatcher: &mockDispatcher{},
		activity:   &mockActivity{},
		hasher:     hasher,
		now:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	f.codec, err = sec.NewTokenCodec([]byte(testSecret), testIssuer, sec.WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)

	return f
}

// steps wires the mocks. codes may be replaced with a real store.
func (f *fixture) steps(codes auth.CodeStore) *auth.Steps {
	if codes == nil {
		codes = f.codes
	}
	return auth.NewSteps(f.accounts, codes, f.dispatcher, f.activity, f.hasher, f.codec, testTokenTTL)
}

func (f *fixture) handler(codes auth.CodeStore) *auth.Handler {
	return auth.NewHandler(f.steps(codes), f.accounts, testPolicy, nil)
}

func (f *fixture) account(t *testing.T, active bool) *auth.Account {
	t.Helper()
	hash, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)

	return &auth.Account{
		ID:           "0192f5a4-7c1e-7000-8000-000000000001",
		Email:        testEmail,
		PasswordHash: hash,
		DisplayName:  "Alice",
		Role:         sec.RoleSeller,
		IsActive:     active,
	}
}

func (f *fixture) bearer(t *testing.T, identity, email string, ttl time.Duration) string {
	t.Helper()
	token, err := f.codec.Issue(identity, email, ttl)
	require.NoError(t, err)
	return "Bearer " + token.Value
}

func newCodeStore(t *testing.T) (*auth.RedisCodeStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return auth.NewCodeStore(client, testCodeTTL, testCodeAttempts), mr
}
