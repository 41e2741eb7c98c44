// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package email canonicalizes email addresses before they are used as lookup keys.
//
// # Usage
//
// Accounts, one-time codes and tokens are all keyed by email. Two spellings of
// the same address must map to the same key, or a registration check could be
// bypassed by changing letter case or Unicode composition.
package email

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// # Transformation Pipeline
//
// 1. Trims surrounding whitespace.
// 2. Normalizes to NFKC (compatibility forms such as full-width letters collapse).
// 3. Applies Unicode case folding.

// Canonical returns the lookup form of an email address.
func Canonical(address string) string {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return ""
	}
	return folder.String(norm.NFKC.String(trimmed))
}
