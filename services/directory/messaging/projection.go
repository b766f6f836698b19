// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/appraiserlink/appraiserlink/services/directory/datatypes"
	"github.com/appraiserlink/appraiserlink/services/directory/store"
)

// ConversationsForUser builds the inbox view: every conversation the
// user participates in, enriched with the other participant's profile,
// the latest message, and a derived unread count.
//
// # Description
//
// The unread count is always computed from message state at read time,
// never stored, so it cannot drift from the ReadAt transitions that
// define it. A deleted counterpart profile yields a nil Participant
// rather than an error; the conversation history still belongs to the
// user. A missing last message likewise degrades to nil.
//
// Ordering is most recently active first: descending UpdatedAt with
// ascending conversation ID as the tie-break, matching the store
// contract.
func (s *Service) ConversationsForUser(ctx context.Context, userID string) ([]datatypes.ConversationSummary, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}

	convs, err := s.store.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]datatypes.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := datatypes.ConversationSummary{Conversation: conv}

		otherID := conv.OtherParticipant(userID)
		if otherID == "" {
			return nil, fmt.Errorf("conversation %s does not include user %s", conv.ID, userID)
		}
		profile, err := s.store.GetProfile(ctx, otherID)
		switch {
		case err == nil:
			summary.Participant = profile
		case errors.Is(err, store.ErrNotFound):
			// Counterpart deleted their profile; keep the thread.
		default:
			return nil, err
		}

		if conv.LastMessageID != "" {
			last, err := s.store.GetMessage(ctx, conv.LastMessageID)
			switch {
			case err == nil:
				summary.LastMessage = last
			case errors.Is(err, store.ErrNotFound):
				// Dangling pointer after a purge; degrade to no preview.
			default:
				return nil, err
			}
		}

		unread, err := s.store.CountUnread(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		summaries = append(summaries, summary)
	}
	return summaries, nil
}
