// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/bazaar/internal/users/auth"
)

func TestPasswordPolicy_Check(t *testing.T) {
	strict := auth.PasswordPolicy{MinLength: 8, RequireUpper: true, RequireDigit: true, RequireSymbol: true}

	tests := []struct {
		name     string
		policy   auth.PasswordPolicy
		password string
		messages []string
	}{
		{"compliant", testPolicy, "Secret123", nil},
		{"empty", testPolicy, "", []string{"Minimum 8 characters", "Must contain an uppercase letter", "Must contain a digit"}},
		{"short", testPolicy, "Sec123", []string{"Minimum 8 characters"}},
		{"no upper", testPolicy, "secret123", []string{"Must contain an uppercase letter"}},
		{"no digit", testPolicy, "SecretPass", []string{"Must contain a digit"}},
		{"symbol optional", testPolicy, "Secret123", nil},
		{"symbol required", strict, "Secret123", []string{"Must contain a symbol"}},
		{"symbol present", strict, "Secret12!", nil},
		{"counts runes", auth.PasswordPolicy{MinLength: 4}, "日本語!", nil},
		{"no rules", auth.PasswordPolicy{}, "", nil},
		{"max bytes", testPolicy, "Aa1" + strings.Repeat("x", 69), nil},
		{"over max bytes", testPolicy, "Aa1" + strings.Repeat("x", 80), []string{"Maximum 72 bytes"}},
		{"bytes not runes", auth.PasswordPolicy{MinLength: 4}, strings.Repeat("日", 25), []string{"Maximum 72 bytes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := tt.policy.Check(tt.password)

			var messages []string
			for _, violation := range violations {
				assert.Equal(t, "password", violation.Field)
				messages = append(messages, violation.Message)
			}
			assert.Equal(t, tt.messages, messages)
		})
	}
}
