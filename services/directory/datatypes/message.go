// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the directory service.
//
// This file contains the Message record and the request types for the
// authenticated and public send paths. Conversation types live in
// conversation.go, profile types in profile.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants for Security Compliance
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message body.
	// Checked in bytes, not runes, to bound memory for hostile payloads.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxMarkReadBatch is the maximum number of message IDs accepted by a
	// single mark-read request.
	MaxMarkReadBatch = 500
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// messageValidate is the validator instance for message datatypes.
// Initialized in init() with custom validators.
var messageValidate *validator.Validate

func init() {
	messageValidate = validator.New()
	_ = messageValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes validates that a string field does not exceed
// MaxMessageContentBytes. Byte length, not rune count.
func validateMaxBytes(fl validator.FieldLevel) bool {
	content := fl.Field().String()
	return len(content) <= MaxMessageContentBytes
}

// Validator returns the shared validator for message datatypes.
// Handlers use it to validate request bodies after binding.
func Validator() *validator.Validate {
	return messageValidate
}

// =============================================================================
// Message Record
// =============================================================================

// MessageStatus is the derived read state of a message. It is computed
// from ReadAt and never stored; the store's single source of read truth
// is the ReadAt timestamp.
type MessageStatus string

const (
	// StatusUnread means the recipient has not yet viewed the message.
	StatusUnread MessageStatus = "unread"

	// StatusRead means ReadAt has been set. The transition is one-way.
	StatusRead MessageStatus = "read"
)

// Message is a single message record, authenticated or public.
//
// # Fields
//
//   - ID: Unique identifier, assigned at insert time (UUID v4).
//   - ConversationID: Groups messages between exactly two parties.
//     Empty for public messages, which never join a conversation.
//   - SenderID: The authenticated sender. Empty for public messages.
//   - RecipientID: The intended recipient. Always present.
//   - Content: Non-empty text body, at most 32KB.
//   - CreatedAt: Server-assigned at insert time. Immutable.
//   - ReadAt: Set exactly once, when the recipient views the message.
//     Never cleared or overwritten.
//   - IsPublic: True when the message came through the unauthenticated
//     contact channel.
//   - SenderName/SenderEmail/SenderPhone: Denormalized contact details,
//     present only on public messages so the recipient can reply
//     outside the system.
//
// # Invariants
//
// A message has either a SenderID (authenticated path) or sender contact
// fields (public path), never neither. RecipientID is always required.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id,omitempty"`
	SenderID       string     `json:"sender_id,omitempty"`
	RecipientID    string     `json:"recipient_id"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	IsPublic       bool       `json:"is_public"`
	SenderName     string     `json:"sender_name,omitempty"`
	SenderEmail    string     `json:"sender_email,omitempty"`
	SenderPhone    string     `json:"sender_phone,omitempty"`
}

// Status derives the read state from ReadAt.
func (m *Message) Status() MessageStatus {
	if m.ReadAt != nil {
		return StatusRead
	}
	return StatusUnread
}

// IsRead reports whether the recipient has viewed the message.
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}

// =============================================================================
// Request Types
// =============================================================================

// SendMessageRequest is the body for POST /v1/messages.
//
// The sender identity is NOT part of the body: it comes from the
// authenticated session resolved by the auth middleware, so the
// messaging core receives it as an explicit parameter.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid4"`
	Content     string `json:"content" validate:"required,maxbytes"`
}

// SendPublicMessageRequest is the body for POST /v1/contact/:profileId.
//
// Visitors have no account; their contact details are denormalized onto
// the message row so the profile owner can reply by email or phone.
type SendPublicMessageRequest struct {
	SenderName  string `json:"sender_name" validate:"required,max=200"`
	SenderEmail string `json:"sender_email" validate:"required,email"`
	SenderPhone string `json:"sender_phone" validate:"omitempty,max=40"`
	Content     string `json:"content" validate:"required,maxbytes"`
}

// MarkReadRequest is the body for POST /v1/messages/read.
// The reader identity comes from the session, not the body.
type MarkReadRequest struct {
	MessageIDs []string `json:"message_ids" validate:"required,min=1,max=500,dive,uuid4"`
}

// Validate checks the request against its validation tags.
func (r *SendMessageRequest) Validate() error {
	return messageValidate.Struct(r)
}

// Validate checks the request against its validation tags.
func (r *SendPublicMessageRequest) Validate() error {
	return messageValidate.Struct(r)
}

// Validate checks the request against its validation tags.
func (r *MarkReadRequest) Validate() error {
	return messageValidate.Struct(r)
}
