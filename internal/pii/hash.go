// Package pii normalizes user-identifying fields into the canonical digests
// Meta's matching algorithm expects. All functions are pure: no side effects,
// no failure modes for string input.
package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/pixelmeter/capi-relay/internal/models"
)

// digest returns the lowercase hex SHA-256 of s. The empty string is a valid
// input with a stable digest, not an error.
func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NormalizeEmail trims surrounding whitespace and lowercases.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone strips every non-digit character. Country-code digits are
// kept: whatever digits remain are what gets hashed.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeName trims and lowercases. Also used for city, state, country and
// gender, which share the same rule.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeZip trims, lowercases, then removes internal whitespace
// (e.g. "SW1A 1AA" → "sw1a1aa").
func NormalizeZip(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeDateOfBirth trims only; the value is expected pre-formatted as
// YYYYMMDD and case never applies.
func NormalizeDateOfBirth(s string) string {
	return strings.TrimSpace(s)
}

// hashField applies norm then digest to *raw when present, returning nil for
// an absent field so the output key is omitted rather than emitted empty.
func hashField(raw *string, norm func(string) string) *string {
	if raw == nil {
		return nil
	}
	h := digest(norm(*raw))
	return &h
}

// identity is the no-normalization rule (external_id hashes the raw string).
func identity(s string) string { return s }

// Hash converts raw identity fields into their hashed wire form and copies
// pass-through context fields verbatim. For every input field present the
// corresponding output key is present; absent fields produce no key.
// Calling Hash twice on the same input yields identical output.
func Hash(raw models.RawUserData) models.NormalizedUserData {
	return models.NormalizedUserData{
		Em:         hashField(raw.Email, NormalizeEmail),
		Ph:         hashField(raw.Phone, NormalizePhone),
		Fn:         hashField(raw.FirstName, NormalizeName),
		Ln:         hashField(raw.LastName, NormalizeName),
		Ge:         hashField(raw.Gender, NormalizeName),
		Db:         hashField(raw.DateOfBirth, NormalizeDateOfBirth),
		Ct:         hashField(raw.City, NormalizeName),
		St:         hashField(raw.State, NormalizeName),
		Zp:         hashField(raw.Zip, NormalizeZip),
		Country:    hashField(raw.Country, NormalizeName),
		ExternalID: hashField(raw.ExternalID, identity),

		ClientIPAddress: raw.ClientIPAddress,
		ClientUserAgent: raw.ClientUserAgent,
		FBC:             raw.FBC,
		FBP:             raw.FBP,
		SubscriptionID:  raw.SubscriptionID,
		FBLoginID:       raw.FBLoginID,
		LeadID:          raw.LeadID,
	}
}

// Raw copies identity fields into the abbreviated-key slots WITHOUT hashing.
// This is the "broken" mode body: it intentionally reproduces the real-world
// misconfiguration of sending plaintext PII so the playground can contrast it
// with Hash. Never route production traffic through it.
func Raw(raw models.RawUserData) models.NormalizedUserData {
	return models.NormalizedUserData{
		Em:         raw.Email,
		Ph:         raw.Phone,
		Fn:         raw.FirstName,
		Ln:         raw.LastName,
		Ge:         raw.Gender,
		Db:         raw.DateOfBirth,
		Ct:         raw.City,
		St:         raw.State,
		Zp:         raw.Zip,
		Country:    raw.Country,
		ExternalID: raw.ExternalID,

		ClientIPAddress: raw.ClientIPAddress,
		ClientUserAgent: raw.ClientUserAgent,
		FBC:             raw.FBC,
		FBP:             raw.FBP,
		SubscriptionID:  raw.SubscriptionID,
		FBLoginID:       raw.FBLoginID,
		LeadID:          raw.LeadID,
	}
}
