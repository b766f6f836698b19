// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/appraiserlink/appraiserlink/services/directory/datatypes"
)

// Memory is the in-memory reference implementation of Store.
//
// It is the behavioral baseline the badger-backed store is tested
// against, and the store handler tests run on. All maps are guarded by
// one RWMutex; records are copied on the way in and out so callers can
// never alias internal state.
//
// Thread Safety: safe for concurrent use.
type Memory struct {
	mu            sync.RWMutex
	messages      map[string]datatypes.Message
	conversations map[string]datatypes.Conversation
	pairIndex     map[string]string // PairKey -> conversation ID
	profiles      map[string]datatypes.Profile
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		messages:      make(map[string]datatypes.Message),
		conversations: make(map[string]datatypes.Conversation),
		pairIndex:     make(map[string]string),
		profiles:      make(map[string]datatypes.Profile),
	}
}

var _ Store = (*Memory)(nil)

// sortMessagesAscending orders messages by CreatedAt with ID tie-break.
// This is the total order every message listing guarantees.
func sortMessagesAscending(msgs []datatypes.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// =============================================================================
// MessageStore
// =============================================================================

func (m *Memory) InsertMessage(_ context.Context, msg *datatypes.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ID] = *msg
	return nil
}

func (m *Memory) GetMessage(_ context.Context, id string) (*datatypes.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := msg
	return &out, nil
}

func (m *Memory) ListMessagesByConversation(_ context.Context, conversationID string) ([]datatypes.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]datatypes.Message, 0)
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && conversationID != "" {
			out = append(out, msg)
		}
	}
	sortMessagesAscending(out)
	return out, nil
}

func (m *Memory) CountUnread(_ context.Context, conversationID, recipientID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID && conversationID != "" &&
			msg.RecipientID == recipientID && msg.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *Memory) ListUnreadForRecipient(_ context.Context, recipientID string) ([]datatypes.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]datatypes.Message, 0)
	for _, msg := range m.messages {
		if msg.RecipientID == recipientID && msg.ReadAt == nil {
			out = append(out, msg)
		}
	}
	sortMessagesAscending(out)
	return out, nil
}

func (m *Memory) MarkMessageRead(_ context.Context, id, readerID string, readAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok || msg.RecipientID != readerID || msg.ReadAt != nil {
		return false, nil
	}
	t := readAt
	msg.ReadAt = &t
	m.messages[id] = msg
	return true, nil
}

// =============================================================================
// ConversationStore
// =============================================================================

func (m *Memory) FindOrCreateConversation(_ context.Context, userA, userB, candidateID string, now time.Time) (*datatypes.Conversation, bool, error) {
	key := datatypes.PairKey(userA, userB)

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.pairIndex[key]; ok {
		conv := m.conversations[id]
		out := conv
		return &out, false, nil
	}

	conv := datatypes.Conversation{
		ID:             candidateID,
		Participant1ID: userA,
		Participant2ID: userB,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.conversations[conv.ID] = conv
	m.pairIndex[key] = conv.ID
	out := conv
	return &out, true, nil
}

func (m *Memory) GetConversation(_ context.Context, id string) (*datatypes.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := conv
	return &out, nil
}

func (m *Memory) ListConversationsForUser(_ context.Context, userID string) ([]datatypes.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]datatypes.Conversation, 0)
	for _, conv := range m.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, conv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *Memory) TouchConversation(_ context.Context, id, lastMessageID string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.LastMessageID = lastMessageID
	conv.UpdatedAt = updatedAt
	m.conversations[id] = conv
	return nil
}

// =============================================================================
// ProfileStore
// =============================================================================

func (m *Memory) GetProfile(_ context.Context, id string) (*datatypes.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := profile
	return &out, nil
}

func (m *Memory) ListProfiles(_ context.Context, filter datatypes.ProfileFilter) ([]datatypes.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]datatypes.Profile, 0)
	for _, profile := range m.profiles {
		p := profile
		if filter.Matches(&p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *Memory) PutProfile(_ context.Context, profile *datatypes.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.ID] = *profile
	return nil
}

func (m *Memory) DeleteProfile(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[id]; !ok {
		return ErrNotFound
	}
	delete(m.profiles, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}
