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
	"log/slog"
	"sync"

	"github.com/appraiserlink/appraiserlink/services/directory/datatypes"
)

// defaultSubscriptionBuffer is the channel depth for a subscription.
// A consumer that falls further behind than this starts losing events
// and must reload the conversation history to resynchronize.
const defaultSubscriptionBuffer = 64

// Subscription is a live-update channel for newly inserted messages
// matching a filter. Receive from C until it is closed; call Cancel to
// unregister. Cancel is idempotent and closes C exactly once.
//
// Delivery order is not guaranteed to match CreatedAt for
// near-simultaneous sends from multiple senders: consumers must
// insert-in-position rather than blindly append.
type Subscription struct {
	C <-chan datatypes.Message

	ch     chan datatypes.Message
	cancel func(id uint64)
	id     uint64
	once   sync.Once
}

// Cancel unregisters the subscription and closes its channel. Safe to
// call more than once and safe to call concurrently with Publish.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.cancel(s.id)
		close(s.ch)
	})
}

// subscriptionScope selects which messages a subscription receives.
type subscriptionScope struct {
	conversationID string // match messages in this conversation
	recipientID    string // match messages addressed to this user
}

func (f subscriptionScope) matches(msg *datatypes.Message) bool {
	if f.conversationID != "" {
		return msg.ConversationID == f.conversationID
	}
	return msg.RecipientID == f.recipientID
}

// Broker fans newly inserted messages out to live subscriptions.
//
// There is no history and no replay: a subscription only sees messages
// published after it was created. Views load history through
// ListMessages and use the subscription for increments, which is why
// re-entering a view always creates a fresh subscription instead of
// resuming a stale one.
//
// Thread Safety: safe for concurrent use.
type Broker struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*brokerEntry
}

type brokerEntry struct {
	scope subscriptionScope
	ch    chan datatypes.Message
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]*brokerEntry)}
}

// SubscribeConversation registers for every message inserted into the
// given conversation.
func (b *Broker) SubscribeConversation(conversationID string) *Subscription {
	return b.subscribe(subscriptionScope{conversationID: conversationID})
}

// SubscribeRecipient registers for every message addressed to the given
// user, across conversations and including public contact messages.
func (b *Broker) SubscribeRecipient(recipientID string) *Subscription {
	return b.subscribe(subscriptionScope{recipientID: recipientID})
}

func (b *Broker) subscribe(scope subscriptionScope) *Subscription {
	ch := make(chan datatypes.Message, defaultSubscriptionBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = &brokerEntry{scope: scope, ch: ch}
	b.mu.Unlock()

	return &Subscription{
		C:      ch,
		ch:     ch,
		id:     id,
		cancel: b.unsubscribe,
	}
}

func (b *Broker) unsubscribe(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Publish delivers msg to every subscription whose scope matches. The
// send never blocks: events for a full subscription are dropped, since
// a stalled websocket must not hold up the send path.
func (b *Broker) Publish(msg datatypes.Message) {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, entry := range b.subs {
		if !entry.scope.matches(&msg) {
			continue
		}
		select {
		case entry.ch <- msg:
		default:
			slog.Warn("dropping live update for slow subscriber",
				"messageId", msg.ID, "conversationId", msg.ConversationID)
		}
	}
}

// SubscriberCount returns the number of active subscriptions. Exposed
// for the active-subscriptions gauge.
func (b *Broker) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
