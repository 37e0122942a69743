// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrWeakCredential is wrapped by CredentialPolicy.Check failures.
var ErrWeakCredential = errors.New("credential does not meet minimum strength")

// CredentialPolicy is the minimum strength check applied to new secrets.
type CredentialPolicy struct {
	// MinLength is counted in characters, not bytes.
	MinLength int

	// MinCharClasses is how many of upper, lower, digit and symbol must appear.
	MinCharClasses int

	// ForbidCommon rejects secrets on the common-secret list.
	ForbidCommon bool

	// ForbidLoginName rejects secrets that contain the login name.
	ForbidLoginName bool
}

// DefaultCredentialPolicy returns the policy used when no config is loaded.
func DefaultCredentialPolicy() CredentialPolicy {
	return defaultConfig().Credentials.Policy()
}

// CredentialCheckResult lists every rule a secret failed.
type CredentialCheckResult struct {
	Valid  bool
	Errors []string
}

// charClassCount returns how many character classes appear in s.
func charClassCount(s string) int {
	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r):
			symbol = true
		}
	}
	n := 0
	for _, ok := range []bool{upper, lower, digit, symbol} {
		if ok {
			n++
		}
	}
	return n
}

// Validate checks secret against the policy. loginName may be empty.
func (p CredentialPolicy) Validate(secret, loginName string) CredentialCheckResult {
	result := CredentialCheckResult{Valid: true}
	fail := func(msg string) {
		result.Valid = false
		result.Errors = append(result.Errors, msg)
	}

	if strings.TrimSpace(secret) == "" {
		fail("secret must not be blank")
		return result
	}
	if n := utf8.RuneCountInString(secret); n < p.MinLength {
		fail(fmt.Sprintf("secret must be at least %d characters (got %d)", p.MinLength, n))
	}
	if p.MinCharClasses > 0 && charClassCount(secret) < p.MinCharClasses {
		fail(fmt.Sprintf("secret must mix at least %d of: upper case, lower case, digits, symbols", p.MinCharClasses))
	}
	if p.ForbidCommon && isCommonSecret(secret) {
		fail("secret is too common and easily guessable")
	}
	if p.ForbidLoginName && loginName != "" &&
		strings.Contains(strings.ToLower(secret), strings.ToLower(strings.TrimSpace(loginName))) {
		fail("secret must not contain the login name")
	}

	return result
}

// Check returns an error wrapping ErrWeakCredential if validation fails.
func (p CredentialPolicy) Check(secret, loginName string) error {
	result := p.Validate(secret, loginName)
	if !result.Valid {
		return fmt.Errorf("%w: %s", ErrWeakCredential, strings.Join(result.Errors, "; "))
	}
	return nil
}

// commonSecrets holds widely breached secrets plus school-specific guesses.
var commonSecrets = map[string]bool{
	"password":    true,
	"password1":   true,
	"password123": true,
	"passw0rd":    true,
	"12345678":    true,
	"123456789":   true,
	"1234567890":  true,
	"qwerty123":   true,
	"qwertyuiop":  true,
	"iloveyou":    true,
	"welcome1":    true,
	"welcome123":  true,
	"letmein1":    true,
	"abc12345":    true,
	"11111111":    true,
	"changeme":    true,
	"changeme1":   true,
	"admin123":    true,
	"teacher1":    true,
	"teacher123":  true,
	"school123":   true,
	"escola123":   true,
	"professor1":  true,
	"student1":    true,
}

// isCommonSecret checks the secret against the common-secret list.
func isCommonSecret(secret string) bool {
	return commonSecrets[strings.ToLower(secret)]
}
