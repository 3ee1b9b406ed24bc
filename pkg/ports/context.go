package ports

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// ErrContextNotFound is returned by ContextStore lookups that match nothing.
var ErrContextNotFound = errors.New("context not found")

// Message is one turn of a stored conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContextKey derives the content key for a message history: the
// first 16 hex characters of the SHA-256 of the compact JSON
// encoding. Every ContextStore implementation must use this
// derivation so keys stay portable across backends.
func ContextKey(messages []Message) string {
	normalized := make([]Message, len(messages))
	copy(normalized, messages)
	// Struct encoding is deterministic: fixed field order, no
	// whitespace. Marshalling []Message cannot fail.
	content, _ := json.Marshal(normalized)
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}

// ContextStore is content-addressable storage for conversation
// history. Store derives the key from the content, so identical
// histories share one entry and a key always denotes the same
// immutable snapshot.
type ContextStore interface {
	// Store persists the messages and returns their content key.
	Store(ctx context.Context, messages []Message) (string, error)

	// Load retrieves the messages behind a content key.
	// Returns ErrContextNotFound if the key is unknown or expired.
	Load(ctx context.Context, key string) ([]Message, error)
}
