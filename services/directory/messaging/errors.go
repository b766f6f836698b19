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
	"errors"
	"fmt"
)

// The messaging error taxonomy, mapped by handlers onto HTTP statuses:
//
//   - ValidationError: the caller's input is wrong; correcting the input
//     is the only fix, retrying the same call is pointless. 400.
//   - NotFoundError: a referenced recipient or conversation does not
//     exist. 404.
//   - ErrNotParticipant: the caller asked about a conversation they are
//     not a party to. 403.
//   - store.StoreError passes through unmodified: the persistence layer
//     failed transiently and the caller may retry the whole operation.
//     The core never retries on its own.

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Kind string // "recipient", "sender", "conversation"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ErrNotParticipant is returned when a caller addresses a conversation
// they do not participate in.
var ErrNotParticipant = errors.New("not a participant in this conversation")

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFoundError reports whether err is a NotFoundError.
func IsNotFoundError(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
