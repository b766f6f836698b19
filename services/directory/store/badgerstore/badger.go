// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badgerstore implements the directory store on BadgerDB.
//
// BadgerDB gives single-node deployments low-latency embedded storage
// with serializable transactions. The transactional guarantees carry two
// of the store contract's invariants:
//
//   - Conversation pair uniqueness: the find-or-create upsert reads and
//     writes the pair index key inside one transaction, so two racing
//     first sends between the same pair commit at most one conversation
//     (the loser hits ErrConflict and retries onto the winner's row).
//   - ReadAt monotonicity: the conditional mark-read update checks and
//     sets ReadAt inside one transaction.
//
// # Key Layout
//
//	msg/<id>                              message record (JSON)
//	midx/<conversationID>/<nanos>/<id>    conversation ordering index
//	conv/<id>                             conversation record (JSON)
//	pair/<pairKey>                        unordered-pair uniqueness index
//	prof/<id>                             profile record (JSON)
//
// The ordering index key embeds the creation time as zero-padded
// nanoseconds followed by the message ID, so a prefix scan yields the
// ascending CreatedAt order with ID tie-break directly.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/appraiserlink/appraiserlink/services/directory/datatypes"
	"github.com/appraiserlink/appraiserlink/services/directory/store"
)

const (
	msgPrefix  = "msg/"
	midxPrefix = "midx/"
	convPrefix = "conv/"
	pairPrefix = "pair/"
	profPrefix = "prof/"

	// conflictRetries bounds the retry loop for serializable-transaction
	// conflicts on the hot upsert paths.
	conflictRetries = 8
)

// Config holds configuration for the badger-backed store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required for persistent databases. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// Logger is the logger for BadgerDB operations.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns configuration optimized for testing.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is the BadgerDB-backed implementation of store.Store.
//
// Thread Safety: safe for concurrent use; BadgerDB transactions provide
// isolation and the conflict-retry loops handle racing writers.
type Store struct {
	db *badger.DB
}

var _ store.Store = (*Store)(nil)

// Open creates and opens a badger-backed store with the given
// configuration. Creates the directory if it doesn't exist.
// The caller must call Close when done.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an in-memory store for testing.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// update runs fn in a read-write transaction, retrying a bounded number
// of times on serializable-transaction conflicts.
func (s *Store) update(ctx context.Context, op string, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return store.NewStoreError(op, err)
	}
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return store.NewStoreError(op, err)
	}
	return nil
}

func getJSON[T any](txn *badger.Txn, key string, out *T) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

// midxKey builds the conversation ordering index key. Zero-padded
// nanoseconds keep lexicographic scan order equal to chronological
// order; the trailing ID is the deterministic tie-break.
func midxKey(conversationID string, createdAt time.Time, id string) string {
	return fmt.Sprintf("%s%s/%020d/%s", midxPrefix, conversationID, createdAt.UnixNano(), id)
}

// =============================================================================
// MessageStore
// =============================================================================

func (s *Store) InsertMessage(ctx context.Context, msg *datatypes.Message) error {
	return s.update(ctx, "insert message", func(txn *badger.Txn) error {
		if err := setJSON(txn, msgPrefix+msg.ID, msg); err != nil {
			return err
		}
		if msg.ConversationID != "" {
			idxKey := midxKey(msg.ConversationID, msg.CreatedAt, msg.ID)
			if err := txn.Set([]byte(idxKey), []byte(msg.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetMessage(ctx context.Context, id string) (*datatypes.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError("get message", err)
	}
	var msg datatypes.Message
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, msgPrefix+id, &msg)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("get message", err)
	}
	return &msg, nil
}

func (s *Store) ListMessagesByConversation(ctx context.Context, conversationID string) ([]datatypes.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError("list messages", err)
	}
	if conversationID == "" {
		return []datatypes.Message{}, nil
	}

	out := make([]datatypes.Message, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(midxPrefix + conversationID + "/")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			var msg datatypes.Message
			if err := getJSON(txn, msgPrefix+id, &msg); err != nil {
				return err
			}
			out = append(out, msg)
		}
		return nil
	})
	if err != nil {
		return nil, store.NewStoreError("list messages", err)
	}
	return out, nil
}

func (s *Store) CountUnread(ctx context.Context, conversationID, recipientID string) (int, error) {
	msgs, err := s.ListMessagesByConversation(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range msgs {
		if msgs[i].RecipientID == recipientID && msgs[i].ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListUnreadForRecipient(ctx context.Context, recipientID string) ([]datatypes.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError("list unread", err)
	}

	out := make([]datatypes.Message, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(msgPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var msg datatypes.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			}); err != nil {
				return err
			}
			if msg.RecipientID == recipientID && msg.ReadAt == nil {
				out = append(out, msg)
			}
		}
		return nil
	})
	if err != nil {
		return nil, store.NewStoreError("list unread", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) MarkMessageRead(ctx context.Context, id, readerID string, readAt time.Time) (bool, error) {
	applied := false
	err := s.update(ctx, "mark message read", func(txn *badger.Txn) error {
		applied = false
		var msg datatypes.Message
		err := getJSON(txn, msgPrefix+id, &msg)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // skipped, not an error
		}
		if err != nil {
			return err
		}
		if msg.RecipientID != readerID || msg.ReadAt != nil {
			return nil
		}
		t := readAt
		msg.ReadAt = &t
		if err := setJSON(txn, msgPrefix+id, &msg); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// =============================================================================
// ConversationStore
// =============================================================================

func (s *Store) FindOrCreateConversation(ctx context.Context, userA, userB, candidateID string, now time.Time) (*datatypes.Conversation, bool, error) {
	pairKey := pairPrefix + datatypes.PairKey(userA, userB)

	var result datatypes.Conversation
	created := false
	err := s.update(ctx, "find or create conversation", func(txn *badger.Txn) error {
		created = false

		item, err := txn.Get([]byte(pairKey))
		if err == nil {
			var existingID string
			if err := item.Value(func(val []byte) error {
				existingID = string(val)
				return nil
			}); err != nil {
				return err
			}
			return getJSON(txn, convPrefix+existingID, &result)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		result = datatypes.Conversation{
			ID:             candidateID,
			Participant1ID: userA,
			Participant2ID: userB,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := setJSON(txn, convPrefix+result.ID, &result); err != nil {
			return err
		}
		if err := txn.Set([]byte(pairKey), []byte(result.ID)); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &result, created, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*datatypes.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError("get conversation", err)
	}
	var conv datatypes.Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, convPrefix+id, &conv)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("get conversation", err)
	}
	return &conv, nil
}

func (s *Store) ListConversationsForUser(ctx context.Context, userID string) ([]datatypes.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError("list conversations", err)
	}

	out := make([]datatypes.Conversation, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(convPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var conv datatypes.Conversation
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &conv)
			}); err != nil {
				return err
			}
			if conv.HasParticipant(userID) {
				out = append(out, conv)
			}
		}
		return nil
	})
	if err != nil {
		return nil, store.NewStoreError("list conversations", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) TouchConversation(ctx context.Context, id, lastMessageID string, updatedAt time.Time) error {
	missing := false
	err := s.update(ctx, "touch conversation", func(txn *badger.Txn) error {
		missing = false
		var conv datatypes.Conversation
		err := getJSON(txn, convPrefix+id, &conv)
		if errors.Is(err, badger.ErrKeyNotFound) {
			missing = true
			return nil
		}
		if err != nil {
			return err
		}
		conv.LastMessageID = lastMessageID
		conv.UpdatedAt = updatedAt
		return setJSON(txn, convPrefix+id, &conv)
	})
	if err != nil {
		return err
	}
	if missing {
		return store.ErrNotFound
	}
	return nil
}

// =============================================================================
// ProfileStore
// =============================================================================

func (s *Store) GetProfile(ctx context.Context, id string) (*datatypes.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError("get profile", err)
	}
	var profile datatypes.Profile
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, profPrefix+id, &profile)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("get profile", err)
	}
	return &profile, nil
}

func (s *Store) ListProfiles(ctx context.Context, filter datatypes.ProfileFilter) ([]datatypes.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.NewStoreError("list profiles", err)
	}

	out := make([]datatypes.Profile, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(profPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var profile datatypes.Profile
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &profile)
			}); err != nil {
				return err
			}
			if filter.Matches(&profile) {
				out = append(out, profile)
			}
		}
		return nil
	})
	if err != nil {
		return nil, store.NewStoreError("list profiles", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return strings.Compare(out[i].Name, out[j].Name) < 0
	})
	return out, nil
}

func (s *Store) PutProfile(ctx context.Context, profile *datatypes.Profile) error {
	return s.update(ctx, "put profile", func(txn *badger.Txn) error {
		return setJSON(txn, profPrefix+profile.ID, profile)
	})
}

func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	missing := false
	err := s.update(ctx, "delete profile", func(txn *badger.Txn) error {
		missing = false
		key := []byte(profPrefix + id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				missing = true
				return nil
			}
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}
	if missing {
		return store.ErrNotFound
	}
	return nil
}
