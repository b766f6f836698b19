// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store defines the persistence contract for the directory
// service: messages, conversations, and profiles.
//
// Two implementations exist:
//
//   - Memory (memory.go): in-memory reference implementation, used by
//     tests and by the messaging core's documented semantics.
//   - badgerstore: embedded BadgerDB-backed store for single-node
//     deployments.
//
// # Error Contract
//
// Lookups for absent records return [ErrNotFound]. Transient persistence
// failures are wrapped in [*StoreError] so callers can distinguish
// "retry the whole operation" from "fix your input".
//
// # Ordering
//
// ListMessagesByConversation returns messages in ascending CreatedAt
// order with ascending ID as the tie-break, a total order that makes
// rendering deterministic even when two messages share a timestamp.
// ListConversationsForUser returns conversations in descending UpdatedAt
// order. Implementations own these guarantees; callers do not re-sort.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appraiserlink/appraiserlink/services/directory/datatypes"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// StoreError wraps a transient persistence failure. The caller may retry
// the whole operation; the store itself never retries.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err as a transient store failure for operation op.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// MessageStore persists message records.
//
// Messages are created once and only ever mutated to set ReadAt. The
// ReadAt transition is one-way: MarkMessageRead applies it at most once
// and only when the reader is the recipient.
type MessageStore interface {
	// InsertMessage persists a fully-populated message. The caller
	// assigns ID and CreatedAt before insert.
	InsertMessage(ctx context.Context, msg *datatypes.Message) error

	// GetMessage returns the message with the given ID, or ErrNotFound.
	GetMessage(ctx context.Context, id string) (*datatypes.Message, error)

	// ListMessagesByConversation returns every message in the
	// conversation, ascending CreatedAt with ID tie-break.
	ListMessagesByConversation(ctx context.Context, conversationID string) ([]datatypes.Message, error)

	// CountUnread returns the number of messages in the conversation
	// addressed to recipientID with ReadAt unset.
	CountUnread(ctx context.Context, conversationID, recipientID string) (int, error)

	// ListUnreadForRecipient returns every unread message addressed to
	// the recipient, including public messages that belong to no
	// conversation, ascending CreatedAt with ID tie-break.
	ListUnreadForRecipient(ctx context.Context, recipientID string) ([]datatypes.Message, error)

	// MarkMessageRead sets ReadAt on the message if and only if the
	// message exists, readerID equals its RecipientID, and ReadAt is
	// still unset. Returns whether the transition applied. A skipped
	// message (missing, already read, or addressed to someone else) is
	// not an error.
	MarkMessageRead(ctx context.Context, id, readerID string, readAt time.Time) (bool, error)
}

// ConversationStore persists conversation records.
type ConversationStore interface {
	// FindOrCreateConversation returns the conversation for the
	// unordered (userA, userB) pair, creating it atomically when absent.
	// The uniqueness of the pair is enforced here, not by the caller:
	// two racing first sends between the same pair must converge on one
	// conversation. candidateID and now are used only on creation.
	FindOrCreateConversation(ctx context.Context, userA, userB, candidateID string, now time.Time) (*datatypes.Conversation, bool, error)

	// GetConversation returns the conversation with the given ID, or
	// ErrNotFound.
	GetConversation(ctx context.Context, id string) (*datatypes.Conversation, error)

	// ListConversationsForUser returns every conversation in which the
	// user occupies either participant slot, descending UpdatedAt.
	ListConversationsForUser(ctx context.Context, userID string) ([]datatypes.Conversation, error)

	// TouchConversation advances UpdatedAt and LastMessageID after a
	// new message lands in the conversation.
	TouchConversation(ctx context.Context, id, lastMessageID string, updatedAt time.Time) error
}

// ProfileStore persists directory profiles. The messaging core only
// reads from it; the directory handlers own writes.
type ProfileStore interface {
	// GetProfile returns the profile with the given ID, or ErrNotFound.
	GetProfile(ctx context.Context, id string) (*datatypes.Profile, error)

	// ListProfiles returns profiles matching the filter, ascending by
	// name for stable directory rendering.
	ListProfiles(ctx context.Context, filter datatypes.ProfileFilter) ([]datatypes.Profile, error)

	// PutProfile inserts or replaces a profile.
	PutProfile(ctx context.Context, profile *datatypes.Profile) error

	// DeleteProfile removes a profile, or returns ErrNotFound. Existing
	// conversations and messages referencing the profile are untouched;
	// readers degrade to an absent counterpart.
	DeleteProfile(ctx context.Context, id string) error
}

// Store aggregates the three record stores behind one handle.
type Store interface {
	MessageStore
	ConversationStore
	ProfileStore

	// Close releases the store's resources. Safe to call once.
	Close() error
}
