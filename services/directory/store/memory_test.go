// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appraiserlink/appraiserlink/services/directory/datatypes"
)

func testMessage(id, conv, sender, recipient string, at time.Time) *datatypes.Message {
	return &datatypes.Message{
		ID:             id,
		ConversationID: conv,
		SenderID:       sender,
		RecipientID:    recipient,
		Content:        "hello",
		CreatedAt:      at,
	}
}

func TestMemory_GetMessage_NotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.GetMessage(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListMessagesByConversation_Ordering(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of chronological order.
	require.NoError(t, m.InsertMessage(ctx, testMessage("m3", "c1", "a", "b", base.Add(2*time.Second))))
	require.NoError(t, m.InsertMessage(ctx, testMessage("m1", "c1", "a", "b", base)))
	require.NoError(t, m.InsertMessage(ctx, testMessage("m2", "c1", "b", "a", base.Add(time.Second))))
	require.NoError(t, m.InsertMessage(ctx, testMessage("mx", "c2", "a", "b", base)))

	msgs, err := m.ListMessagesByConversation(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "m3", msgs[2].ID)
}

func TestMemory_ListMessagesByConversation_TieBreakByID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Identical timestamps (clock coarseness): order must still be
	// deterministic, ascending by ID.
	require.NoError(t, m.InsertMessage(ctx, testMessage("bbb", "c1", "a", "b", at)))
	require.NoError(t, m.InsertMessage(ctx, testMessage("aaa", "c1", "a", "b", at)))

	msgs, err := m.ListMessagesByConversation(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "aaa", msgs[0].ID)
	assert.Equal(t, "bbb", msgs[1].ID)
}

func TestMemory_PublicMessagesExcludedFromConversations(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	public := testMessage("p1", "", "", "bob", time.Now())
	public.IsPublic = true
	public.SenderName = "Jane"
	public.SenderEmail = "jane@x.com"
	require.NoError(t, m.InsertMessage(ctx, public))

	// A public message has no conversation, so no conversation listing
	// may ever return it, not even for an empty conversation ID.
	msgs, err := m.ListMessagesByConversation(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// It still shows up in the recipient's unread feed.
	unread, err := m.ListUnreadForRecipient(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "p1", unread[0].ID)
}

func TestMemory_MarkMessageRead_Transitions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, m.InsertMessage(ctx, testMessage("m1", "c1", "alice", "bob", now)))

	// Wrong reader: skipped, not an error.
	applied, err := m.MarkMessageRead(ctx, "m1", "alice", now)
	require.NoError(t, err)
	assert.False(t, applied)

	// Missing message: skipped.
	applied, err = m.MarkMessageRead(ctx, "ghost", "bob", now)
	require.NoError(t, err)
	assert.False(t, applied)

	// Recipient reads: applies once.
	applied, err = m.MarkMessageRead(ctx, "m1", "bob", now)
	require.NoError(t, err)
	assert.True(t, applied)

	// Second read: no-op, ReadAt unchanged.
	later := now.Add(time.Hour)
	applied, err = m.MarkMessageRead(ctx, "m1", "bob", later)
	require.NoError(t, err)
	assert.False(t, applied)

	msg, err := m.GetMessage(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, msg.ReadAt)
	assert.True(t, msg.ReadAt.Equal(now), "ReadAt must never be overwritten")
}

func TestMemory_CountUnread(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, m.InsertMessage(ctx, testMessage("m1", "c1", "alice", "bob", now)))
	require.NoError(t, m.InsertMessage(ctx, testMessage("m2", "c1", "alice", "bob", now.Add(time.Second))))
	require.NoError(t, m.InsertMessage(ctx, testMessage("m3", "c1", "bob", "alice", now.Add(2*time.Second))))

	count, err := m.CountUnread(ctx, "c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = m.MarkMessageRead(ctx, "m1", "bob", now)
	require.NoError(t, err)

	count, err = m.CountUnread(ctx, "c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemory_FindOrCreateConversation_PairUniqueness(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	conv1, created, err := m.FindOrCreateConversation(ctx, "alice", "bob", "conv-a", now)
	require.NoError(t, err)
	assert.True(t, created)

	// Reversed order must find the same conversation.
	conv2, created, err := m.FindOrCreateConversation(ctx, "bob", "alice", "conv-b", now)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv1.ID, conv2.ID)
}

func TestMemory_FindOrCreateConversation_ConcurrentFirstSends(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	const racers = 16
	ids := make([]string, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "alice", "bob"
			if i%2 == 1 {
				a, b = b, a
			}
			conv, _, err := m.FindOrCreateConversation(ctx, a, b, fmt.Sprintf("cand-%d", i), now)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			ids[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < racers; i++ {
		assert.Equal(t, ids[0], ids[i], "all racers must converge on one conversation")
	}
}

func TestMemory_ListConversationsForUser_EitherSlotAndOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older, _, err := m.FindOrCreateConversation(ctx, "alice", "bob", "c-old", base)
	require.NoError(t, err)
	newer, _, err := m.FindOrCreateConversation(ctx, "carol", "alice", "c-new", base)
	require.NoError(t, err)
	_, _, err = m.FindOrCreateConversation(ctx, "dave", "erin", "c-other", base)
	require.NoError(t, err)

	require.NoError(t, m.TouchConversation(ctx, newer.ID, "m9", base.Add(time.Hour)))

	convs, err := m.ListConversationsForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 2, "user must see conversations from both participant slots")
	assert.Equal(t, newer.ID, convs[0].ID, "descending UpdatedAt")
	assert.Equal(t, older.ID, convs[1].ID)
}

func TestMemory_TouchConversation_Missing(t *testing.T) {
	m := NewMemory()
	err := m.TouchConversation(context.Background(), "ghost", "m1", time.Now())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemory_ListProfiles_FilterAndOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.PutProfile(ctx, &datatypes.Profile{ID: "p1", Name: "Zoe Alvarez", Role: datatypes.RoleAppraiser, State: "TX"}))
	require.NoError(t, m.PutProfile(ctx, &datatypes.Profile{ID: "p2", Name: "Amir Khan", Role: datatypes.RoleUmpire, State: "TX"}))
	require.NoError(t, m.PutProfile(ctx, &datatypes.Profile{ID: "p3", Name: "Bea Long", Role: datatypes.RoleBoth, State: "FL"}))

	all, err := m.ListProfiles(ctx, datatypes.ProfileFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Amir Khan", all[0].Name, "ascending by name")

	appraisers, err := m.ListProfiles(ctx, datatypes.ProfileFilter{Role: datatypes.RoleAppraiser})
	require.NoError(t, err)
	require.Len(t, appraisers, 2, "'both' profiles match appraiser queries")

	texans, err := m.ListProfiles(ctx, datatypes.ProfileFilter{State: "tx"})
	require.NoError(t, err)
	assert.Len(t, texans, 2)
}

func TestMemory_CopiesOnReadAndWrite(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	original := testMessage("m1", "c1", "a", "b", time.Now())
	require.NoError(t, m.InsertMessage(ctx, original))
	original.Content = "mutated after insert"

	got, err := m.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content, "store must not alias caller memory")

	got.Content = "mutated after read"
	again, err := m.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Content)
}
