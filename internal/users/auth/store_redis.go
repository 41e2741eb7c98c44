// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/bazaar/internal/platform/constants"
)

// consumeScript deletes the code (KEYS[1]) and its miss counter (KEYS[2]) when
// the stored code equals ARGV[1]. A miss increments the counter, which expires
// with the code, and burns the code once the counter reaches ARGV[2].
var consumeScript = redis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if not stored then
	return 0
end
if stored == ARGV[1] then
	redis.call("DEL", KEYS[1], KEYS[2])
	return 1
end
local misses = redis.call("INCR", KEYS[2])
local ttl = redis.call("PTTL", KEYS[1])
if misses == 1 and ttl > 0 then
	redis.call("PEXPIRE", KEYS[2], ttl)
end
if misses >= tonumber(ARGV[2]) then
	redis.call("DEL", KEYS[1], KEYS[2])
end
return 0
`)

// RedisCodeStore implements [CodeStore] using Redis key expiry.
type RedisCodeStore struct {
	client      *redis.Client
	ttl         time.Duration
	maxAttempts int
	random      io.Reader
	now         func() time.Time
}

// NewCodeStore creates a new Redis-backed CodeStore whose codes live for ttl
// and are discarded after maxAttempts mismatched submissions.
func NewCodeStore(client *redis.Client, ttl time.Duration, maxAttempts int) *RedisCodeStore {
	return &RedisCodeStore{
		client:      client,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		random:      rand.Reader,
		now:         time.Now,
	}
}

// TTL returns the lifetime given to every issued code.
func (repository *RedisCodeStore) TTL() time.Duration {
	return repository.ttl
}

/*
Issue generates a fresh code for email and stores it with the configured TTL.

Description: Any previous code for the same email is overwritten and its
miss counter reset.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - Code: Value and lifetime of the new code
  - error: Entropy or Redis failures
*/
func (repository *RedisCodeStore) Issue(context context.Context, email string) (Code, error) {
	value, err := generateCode(repository.random)
	if err != nil {
		return Code{}, err
	}

	_, err = repository.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.Set(context, codeKey(email), value, repository.ttl)
		pipe.Del(context, attemptsKey(email))
		return nil
	})
	if err != nil {
		return Code{}, fmt.Errorf("redis_register_code_set_failed: %w", err)
	}

	return Code{
		Email:     email,
		Value:     value,
		TTL:       repository.ttl,
		ExpiresAt: repository.now().Add(repository.ttl),
	}, nil
}

/*
ValidateAndConsume deletes the stored code for email if it equals code.

Description: Absent or expired codes and mismatches all report false.
A mismatch keeps the stored code until maxAttempts mismatches have been
counted, then the code is deleted and a new one must be requested.

Parameters:
  - context: context.Context
  - email: string
  - code: string

Returns:
  - bool: true if the code matched and was consumed
  - error: Redis failures
*/
func (repository *RedisCodeStore) ValidateAndConsume(context context.Context, email, code string) (bool, error) {
	if len(code) != CodeDigits {
		return false, nil
	}

	keys := []string{codeKey(email), attemptsKey(email)}
	deleted, err := consumeScript.Run(context, repository.client, keys, code, repository.maxAttempts).Int()
	if err != nil {
		return false, fmt.Errorf("redis_register_code_consume_failed: %w", err)
	}

	return deleted == 1, nil
}

func codeKey(email string) string {
	return constants.RedisPrefixRegisterCode + email
}

func attemptsKey(email string) string {
	return constants.RedisPrefixRegisterAttempts + email
}

// generateCode returns a uniformly distributed zero-padded decimal code.
func generateCode(random io.Reader) (string, error) {
	upper := big.NewInt(1)
	for range CodeDigits {
		upper.Mul(upper, big.NewInt(10))
	}

	n, err := rand.Int(random, upper)
	if err != nil {
		return "", fmt.Errorf("register_code_entropy_failed: %w", err)
	}

	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}
