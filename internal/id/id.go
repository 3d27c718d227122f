// Package id generates identifiers for Folio entities.
//
// Entities that end up in per-book metadata files (books, bookmarks,
// highlights, excerpts) use UUIDs so the on-disk format stays stable and
// portable. Short-lived identifiers that never leave the process (SSE client
// IDs, lookup request tokens) use NanoIDs, which are more compact.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewUUID returns a random UUID string for a persisted entity.
func NewUUID() string {
	return uuid.NewString()
}

// NewToken creates a prefixed NanoID for an ephemeral identifier.
// Format: prefix-nanoid (e.g., "sse-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random
// generation.
func NewToken(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustToken is like NewToken but panics if ID generation fails.
// Use this only when failure should crash the program (e.g., during
// initialization).
func MustToken(prefix string) string {
	id, err := NewToken(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
