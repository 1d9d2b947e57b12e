// Package ledger tracks the single valid refresh-token-id per user and
// detects reuse of rotated refresh tokens.
package ledger

import (
	"context"
	"time"
)

// Result is the outcome of checking a refresh-token-id against the ledger.
type Result int

const (
	// Invalid means the presented id is empty or malformed.
	Invalid Result = iota
	// Valid means the id is the user's current one.
	Valid
	// Reused means the id does not match the current one, or the user has no
	// current id. Either way the token was rotated or revoked before.
	Reused
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Reused:
		return "reused"
	default:
		return "invalid"
	}
}

// Ledger stores user id -> current refresh-token-id with a TTL.
type Ledger interface {
	// Insert records tokenID as the user's current id, replacing any other.
	Insert(ctx context.Context, userID int64, tokenID string, ttl time.Duration) error

	// Validate checks tokenID without changing state.
	Validate(ctx context.Context, userID int64, tokenID string) (Result, error)

	// Rotate replaces oldID with newID in one atomic step and returns Valid.
	// When oldID is not current the entry is removed and Reused returned, so
	// a replayed token also kills the id that replaced it. Of two concurrent
	// calls with the same oldID at most one returns Valid.
	Rotate(ctx context.Context, userID int64, oldID, newID string, ttl time.Duration) (Result, error)

	// Invalidate removes the user's entry.
	Invalidate(ctx context.Context, userID int64) error
}

// MaxTokenIDLength bounds accepted ids; anything longer is Invalid.
const MaxTokenIDLength = 128

func malformed(tokenID string) bool {
	return tokenID == "" || len(tokenID) > MaxTokenIDLength
}
