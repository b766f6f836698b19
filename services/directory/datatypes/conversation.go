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
	"time"
)

// Conversation is a persistent grouping of messages exchanged between
// exactly two authenticated parties.
//
// The two participant slots carry no directional meaning. The canonical
// identity of a conversation is the unordered pair, materialized as
// PairKey, which the store enforces as unique so that two simultaneous
// first messages between the same pair cannot double-create a
// conversation.
//
// Conversations are created lazily on the first authenticated message
// between two parties and never deleted by normal operation. UpdatedAt
// and LastMessageID advance on every new message and UpdatedAt is the
// sort key for conversation lists.
type Conversation struct {
	ID             string    `json:"id"`
	Participant1ID string    `json:"participant1_id"`
	Participant2ID string    `json:"participant2_id"`
	LastMessageID  string    `json:"last_message_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PairKey returns the canonical unordered-pair key for two user IDs.
// Both orderings of the same pair produce the same key.
func PairKey(userA, userB string) string {
	if strings.Compare(userA, userB) > 0 {
		userA, userB = userB, userA
	}
	return userA + "|" + userB
}

// PairKey returns the canonical key for this conversation's participants.
func (c *Conversation) PairKey() string {
	return PairKey(c.Participant1ID, c.Participant2ID)
}

// HasParticipant reports whether the user occupies either slot.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

// OtherParticipant returns the participant that is not userID. Returns
// the empty string when userID is not a participant at all.
func (c *Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.Participant1ID:
		return c.Participant2ID
	case c.Participant2ID:
		return c.Participant1ID
	default:
		return ""
	}
}

// ConversationSummary is one row of the conversation list projection:
// the conversation joined with the other participant's profile, the last
// message preview, and a derived unread count.
//
// UnreadCount is always computed from the message set (RecipientID ==
// viewer and ReadAt nil), never stored, so it cannot drift from the
// underlying messages.
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	Participant  *Profile     `json:"participant,omitempty"`
	LastMessage  *Message     `json:"last_message,omitempty"`
	UnreadCount  int          `json:"unread_count"`
}
