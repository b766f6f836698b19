// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package messaging implements the directory's messaging core: the
// rules governing who may send what to whom, how conversations are
// identified, how unread state transitions, and how new messages reach
// an open conversation view without polling.
//
// # Description
//
// Two send paths exist. The authenticated path requires a known sender
// and recipient, lazily creates the conversation for the unordered
// participant pair, and advances the conversation's UpdatedAt and
// LastMessageID on every message. The public path accepts denormalized
// visitor contact details, writes a one-shot message with no
// conversation, and offers no continuation mechanism inside the system.
//
// Read state is a single mechanism: the ReadAt timestamp, set at most
// once and never cleared. The legacy per-message status field is
// derived from it, not stored.
//
// Caller identity is always an explicit parameter. The core performs no
// hidden session lookups, which keeps it testable without a session
// provider.
//
// # Thread Safety
//
// Service is safe for concurrent use; all mutable state lives in the
// store and the broker, both of which synchronize internally.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appraiserlink/appraiserlink/services/directory/datatypes"
	"github.com/appraiserlink/appraiserlink/services/directory/observability"
	"github.com/appraiserlink/appraiserlink/services/directory/store"
)

// Service is the messaging core. Construct with NewService.
type Service struct {
	store   store.Store
	broker  *Broker
	clock   Clock
	metrics *observability.MessagingMetrics
}

// NewService creates a messaging core over the given store and broker.
// A nil clock falls back to the system clock; a nil metrics handle
// disables metrics.
func NewService(st store.Store, broker *Broker, clock Clock, metrics *observability.MessagingMetrics) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{store: st, broker: broker, clock: clock, metrics: metrics}
}

// Broker returns the live-update broker backing this service.
func (s *Service) Broker() *Broker {
	return s.broker
}

// Store returns the persistence layer backing this service.
func (s *Service) Store() store.Store {
	return s.store
}

// SendAuthenticatedMessage sends a message from one known user to
// another.
//
// # Description
//
// Validates that content is non-empty after trimming and that both
// parties exist in the profile directory, then finds or creates the
// conversation for the unordered (sender, recipient) pair, persists the
// message, and advances the conversation's UpdatedAt and LastMessageID.
// The new message is published to live subscribers after the store
// commit succeeds.
//
// # Outputs
//
//   - *datatypes.Message: the persisted message, ReadAt unset,
//     IsPublic false.
//   - error: *ValidationError for empty content or a self-send,
//     *NotFoundError for an unknown party, *store.StoreError passed
//     through from the persistence layer.
func (s *Service) SendAuthenticatedMessage(ctx context.Context, senderID, recipientID, content string) (*datatypes.Message, error) {
	start := s.clock.Now()

	content = strings.TrimSpace(content)
	if content == "" {
		s.metrics.SendFailed(observability.ChannelAuthenticated, "validation")
		return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if senderID == "" {
		s.metrics.SendFailed(observability.ChannelAuthenticated, "validation")
		return nil, &ValidationError{Field: "sender_id", Reason: "must not be empty"}
	}
	if senderID == recipientID {
		s.metrics.SendFailed(observability.ChannelAuthenticated, "validation")
		return nil, &ValidationError{Field: "recipient_id", Reason: "cannot message yourself"}
	}

	if err := s.requireProfile(ctx, "sender", senderID); err != nil {
		s.metrics.SendFailed(observability.ChannelAuthenticated, failureReason(err))
		return nil, err
	}
	if err := s.requireProfile(ctx, "recipient", recipientID); err != nil {
		s.metrics.SendFailed(observability.ChannelAuthenticated, failureReason(err))
		return nil, err
	}

	now := s.clock.Now()
	conv, created, err := s.store.FindOrCreateConversation(ctx, senderID, recipientID, uuid.NewString(), now)
	if err != nil {
		s.metrics.SendFailed(observability.ChannelAuthenticated, "store")
		return nil, err
	}
	if created {
		slog.Info("Created conversation on first message",
			"conversationId", conv.ID, "senderId", senderID, "recipientId", recipientID)
	}

	msg := &datatypes.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		Content:        content,
		CreatedAt:      now,
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		s.metrics.SendFailed(observability.ChannelAuthenticated, "store")
		return nil, err
	}
	if err := s.store.TouchConversation(ctx, conv.ID, msg.ID, now); err != nil {
		s.metrics.SendFailed(observability.ChannelAuthenticated, "store")
		return nil, fmt.Errorf("advance conversation %s: %w", conv.ID, err)
	}

	s.broker.Publish(*msg)
	s.metrics.MessageSent(observability.ChannelAuthenticated, s.clock.Now().Sub(start).Seconds())
	return msg, nil
}

// SendPublicMessage sends a one-shot message from an unauthenticated
// visitor to a profile owner.
//
// # Description
//
// The visitor's name, email, and optional phone are denormalized onto
// the message row so the recipient can reply outside the system. No
// conversation is created or updated: the public channel has no
// continuation mechanism by design.
//
// # Outputs
//
//   - *datatypes.Message: the persisted message, IsPublic true, no
//     SenderID, no ConversationID, ReadAt unset.
//   - error: *ValidationError for missing required fields,
//     *NotFoundError when the recipient does not exist,
//     *store.StoreError passed through.
func (s *Service) SendPublicMessage(ctx context.Context, recipientID, senderName, senderEmail, senderPhone, content string) (*datatypes.Message, error) {
	start := s.clock.Now()

	content = strings.TrimSpace(content)
	senderName = strings.TrimSpace(senderName)
	senderEmail = strings.TrimSpace(senderEmail)

	for _, check := range []struct{ field, value string }{
		{"content", content},
		{"sender_name", senderName},
		{"sender_email", senderEmail},
	} {
		if check.value == "" {
			s.metrics.SendFailed(observability.ChannelPublic, "validation")
			return nil, &ValidationError{Field: check.field, Reason: "must not be empty"}
		}
	}

	if err := s.requireProfile(ctx, "recipient", recipientID); err != nil {
		s.metrics.SendFailed(observability.ChannelPublic, failureReason(err))
		return nil, err
	}

	msg := &datatypes.Message{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Content:     content,
		CreatedAt:   s.clock.Now(),
		IsPublic:    true,
		SenderName:  senderName,
		SenderEmail: senderEmail,
		SenderPhone: strings.TrimSpace(senderPhone),
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		s.metrics.SendFailed(observability.ChannelPublic, "store")
		return nil, err
	}

	s.broker.Publish(*msg)
	s.metrics.MessageSent(observability.ChannelPublic, s.clock.Now().Sub(start).Seconds())
	return msg, nil
}

// MarkAsRead applies the one-way ReadAt transition to each qualifying
// message and returns how many transitions applied.
//
// # Description
//
// A message qualifies when it exists, is addressed to readerID, and has
// no ReadAt yet. Everything else is silently skipped: the operation is
// idempotent and safe under concurrent invocation, because the store
// applies the check-and-set atomically per message.
func (s *Service) MarkAsRead(ctx context.Context, messageIDs []string, readerID string) (int, error) {
	return s.markAsReadAt(ctx, messageIDs, readerID, s.clock.Now())
}

// markAsReadAt is MarkAsRead with an explicit timestamp, so callers that
// also report ReadAt back to the viewer can use the exact stamp that was
// persisted.
func (s *Service) markAsReadAt(ctx context.Context, messageIDs []string, readerID string, now time.Time) (int, error) {
	if readerID == "" {
		return 0, &ValidationError{Field: "reader_id", Reason: "must not be empty"}
	}

	applied := 0
	seen := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		ok, err := s.store.MarkMessageRead(ctx, id, readerID, now)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
	s.metrics.MarkedRead(applied)
	return applied, nil
}

// ListMessages returns the conversation's messages in ascending
// CreatedAt order with ID as the tie-break. Returns *NotFoundError when
// the conversation does not exist.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]datatypes.Message, error) {
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Kind: "conversation", ID: conversationID}
		}
		return nil, err
	}
	return s.store.ListMessagesByConversation(ctx, conversationID)
}

// LoadConversation opens a conversation view for a participant: it
// returns the full ordered history and marks every unread message
// addressed to the viewer as read, mirroring the transition a reader
// makes by looking at the thread.
//
// # Outputs
//
//   - []datatypes.Message: ordered history with the viewer's freshly
//     read messages reflecting their new ReadAt.
//   - int: number of messages transitioned to read by this load.
//   - error: *NotFoundError for a missing conversation,
//     ErrNotParticipant when the viewer is not a party to it.
func (s *Service) LoadConversation(ctx context.Context, conversationID, viewerID string) ([]datatypes.Message, int, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, 0, &NotFoundError{Kind: "conversation", ID: conversationID}
		}
		return nil, 0, err
	}
	if !conv.HasParticipant(viewerID) {
		return nil, 0, ErrNotParticipant
	}

	msgs, err := s.store.ListMessagesByConversation(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}

	unread := make([]string, 0)
	for i := range msgs {
		if msgs[i].RecipientID == viewerID && msgs[i].ReadAt == nil {
			unread = append(unread, msgs[i].ID)
		}
	}
	if len(unread) == 0 {
		return msgs, 0, nil
	}

	now := s.clock.Now()
	marked, err := s.markAsReadAt(ctx, unread, viewerID, now)
	if err != nil {
		// History already loaded; report it with the read state we have.
		slog.Error("Failed to mark conversation messages read",
			"conversationId", conversationID, "viewerId", viewerID, "error", err)
		return msgs, 0, nil
	}

	// Reflect the transition in the returned history without a second
	// store round trip, using the same stamp the store persisted.
	for i := range msgs {
		if msgs[i].RecipientID == viewerID && msgs[i].ReadAt == nil {
			t := now
			msgs[i].ReadAt = &t
		}
	}
	return msgs, marked, nil
}

// UnreadMessages returns every unread message addressed to the user,
// including public contact messages, ascending by CreatedAt.
func (s *Service) UnreadMessages(ctx context.Context, userID string) ([]datatypes.Message, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	return s.store.ListUnreadForRecipient(ctx, userID)
}

// requireProfile resolves kind/id to a NotFoundError when absent and
// passes store failures through.
func (s *Service) requireProfile(ctx context.Context, kind, id string) error {
	if id == "" {
		return &ValidationError{Field: kind + "_id", Reason: "must not be empty"}
	}
	_, err := s.store.GetProfile(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return err
}

// failureReason maps an error to a metrics label.
func failureReason(err error) string {
	switch {
	case IsValidationError(err):
		return "validation"
	case IsNotFoundError(err):
		return "not_found"
	default:
		return "store"
	}
}
