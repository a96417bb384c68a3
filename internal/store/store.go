// Package store defines the persistent message table consumed by the sync
// engine, together with its insert-notification feed. Two implementations
// are provided: an embedded bbolt store for single-binary deployments and a
// PostgreSQL store for a shared database.
package store

import (
	"context"
	"strings"

	"moodchat/internal/chaterr"
	"moodchat/internal/message"
)

// Row is the caller-supplied part of a message; the store assigns id and
// created_at on insert.
type Row struct {
	Sender        message.Role `json:"sender"`
	Body          string       `json:"body"`
	AttachmentURL string       `json:"attachment_url,omitempty"`
	RepliedTo     *int64       `json:"replied_to,omitempty"`
}

// Store is an append-only message table with a change-notification feed.
// Implementations never mutate or delete rows.
type Store interface {
	// Insert persists the row and returns the stored message with its
	// server-assigned id and timestamp.
	Insert(ctx context.Context, row Row) (message.Message, error)
	// ListAll returns the full history ordered ascending by created_at,
	// ties broken by insertion order.
	ListAll(ctx context.Context) ([]message.Message, error)
	// SubscribeOnInsert registers a payload-free invalidation callback
	// fired after each successful insert.
	SubscribeOnInsert(fn func()) *Subscription
	Close() error
}

// ValidateRow enforces the invariant that a message carries a non-empty
// body or an attachment, and a known sender.
func ValidateRow(row Row) error {
	if !row.Sender.Valid() {
		return chaterr.InvalidArg("sender must be user or admin")
	}
	if strings.TrimSpace(row.Body) == "" && row.AttachmentURL == "" {
		return chaterr.InvalidArg("message needs a body or an attachment")
	}
	return nil
}
