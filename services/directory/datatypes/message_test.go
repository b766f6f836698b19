// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// SendMessageRequest Validation Tests
// =============================================================================

func TestSendMessageRequest_Validate_Success(t *testing.T) {
	req := &SendMessageRequest{
		RecipientID: "550e8400-e29b-41d4-a716-446655440000",
		Content:     "Hello",
	}

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got error: %v", err)
	}
}

func TestSendMessageRequest_Validate_MissingRecipient(t *testing.T) {
	req := &SendMessageRequest{Content: "Hello"}

	if err := req.Validate(); err == nil {
		t.Error("expected error for missing recipient_id, got nil")
	}
}

func TestSendMessageRequest_Validate_InvalidRecipientID(t *testing.T) {
	req := &SendMessageRequest{
		RecipientID: "not-a-uuid",
		Content:     "Hello",
	}

	if err := req.Validate(); err == nil {
		t.Error("expected error for invalid recipient_id, got nil")
	}
}

func TestSendMessageRequest_Validate_EmptyContent(t *testing.T) {
	req := &SendMessageRequest{
		RecipientID: "550e8400-e29b-41d4-a716-446655440000",
	}

	if err := req.Validate(); err == nil {
		t.Error("expected error for empty content, got nil")
	}
}

func TestSendMessageRequest_Validate_ContentTooLarge(t *testing.T) {
	req := &SendMessageRequest{
		RecipientID: "550e8400-e29b-41d4-a716-446655440000",
		Content:     strings.Repeat("a", MaxMessageContentBytes+1),
	}

	if err := req.Validate(); err == nil {
		t.Error("expected error for oversized content, got nil")
	}
}

func TestSendMessageRequest_Validate_ContentAtLimit(t *testing.T) {
	req := &SendMessageRequest{
		RecipientID: "550e8400-e29b-41d4-a716-446655440000",
		Content:     strings.Repeat("a", MaxMessageContentBytes),
	}

	if err := req.Validate(); err != nil {
		t.Errorf("expected content at the byte limit to validate, got: %v", err)
	}
}

// =============================================================================
// SendPublicMessageRequest Validation Tests
// =============================================================================

func TestSendPublicMessageRequest_Validate_Success(t *testing.T) {
	req := &SendPublicMessageRequest{
		SenderName:  "Jane Visitor",
		SenderEmail: "jane@example.com",
		Content:     "Interested in an appraisal",
	}

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got error: %v", err)
	}
}

func TestSendPublicMessageRequest_Validate_PhoneOptional(t *testing.T) {
	req := &SendPublicMessageRequest{
		SenderName:  "Jane Visitor",
		SenderEmail: "jane@example.com",
		SenderPhone: "555-0100",
		Content:     "Interested in an appraisal",
	}

	if err := req.Validate(); err != nil {
		t.Errorf("expected request with phone to validate, got: %v", err)
	}
}

func TestSendPublicMessageRequest_Validate_MissingName(t *testing.T) {
	req := &SendPublicMessageRequest{
		SenderEmail: "jane@example.com",
		Content:     "Hello",
	}

	if err := req.Validate(); err == nil {
		t.Error("expected error for missing sender_name, got nil")
	}
}

func TestSendPublicMessageRequest_Validate_BadEmail(t *testing.T) {
	req := &SendPublicMessageRequest{
		SenderName:  "Jane Visitor",
		SenderEmail: "not-an-email",
		Content:     "Hello",
	}

	if err := req.Validate(); err == nil {
		t.Error("expected error for malformed sender_email, got nil")
	}
}

// =============================================================================
// MarkReadRequest Validation Tests
// =============================================================================

func TestMarkReadRequest_Validate_Success(t *testing.T) {
	req := &MarkReadRequest{
		MessageIDs: []string{"550e8400-e29b-41d4-a716-446655440000"},
	}

	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got error: %v", err)
	}
}

func TestMarkReadRequest_Validate_Empty(t *testing.T) {
	req := &MarkReadRequest{MessageIDs: []string{}}

	if err := req.Validate(); err == nil {
		t.Error("expected error for empty message_ids, got nil")
	}
}

func TestMarkReadRequest_Validate_BadID(t *testing.T) {
	req := &MarkReadRequest{MessageIDs: []string{"nope"}}

	if err := req.Validate(); err == nil {
		t.Error("expected error for non-uuid message id, got nil")
	}
}

// =============================================================================
// Message Status Tests
// =============================================================================

func TestMessage_Status_DerivedFromReadAt(t *testing.T) {
	msg := &Message{}
	if msg.Status() != StatusUnread {
		t.Errorf("expected unread status for nil ReadAt, got %q", msg.Status())
	}
	if msg.IsRead() {
		t.Error("expected IsRead false for nil ReadAt")
	}

	now := time.Now()
	msg.ReadAt = &now
	if msg.Status() != StatusRead {
		t.Errorf("expected read status after ReadAt set, got %q", msg.Status())
	}
	if !msg.IsRead() {
		t.Error("expected IsRead true after ReadAt set")
	}
}
