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

// ProfileRole classifies a directory profile.
type ProfileRole string

const (
	RoleAppraiser ProfileRole = "appraiser"
	RoleUmpire    ProfileRole = "umpire"
	RoleBoth      ProfileRole = "both"
)

// Profile is a directory listing for an insurance appraiser or umpire.
//
// The messaging core treats profiles as a read-only lookup keyed by ID:
// it resolves recipients before sending and renders the other party in
// conversation lists. The directory endpoints own the full record.
type Profile struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Role      ProfileRole `json:"role"`
	Company   string      `json:"company,omitempty"`
	State     string      `json:"state,omitempty"`
	Bio       string      `json:"bio,omitempty"`
	Email     string      `json:"email,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	ImageURL  string      `json:"image_url,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ProfileFilter holds the directory's composable list filters. Zero
// values mean "no constraint"; all set fields are AND-composed.
type ProfileFilter struct {
	// Role matches profiles with exactly this role, except that
	// RoleBoth profiles match appraiser and umpire queries too.
	Role ProfileRole

	// State matches the two-letter state code, case-insensitive.
	State string

	// Search matches case-insensitive substrings of name or company.
	Search string
}

// Matches reports whether the profile satisfies every set filter field.
func (f ProfileFilter) Matches(p *Profile) bool {
	if f.Role != "" && p.Role != f.Role && p.Role != RoleBoth {
		return false
	}
	if f.State != "" && !strings.EqualFold(f.State, p.State) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Company), needle) {
			return false
		}
	}
	return true
}

// UpsertProfileRequest is the body for PUT /v1/profiles/:id.
type UpsertProfileRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Role    string `json:"role" validate:"required,oneof=appraiser umpire both"`
	Company string `json:"company" validate:"omitempty,max=200"`
	State   string `json:"state" validate:"omitempty,len=2"`
	Bio     string `json:"bio" validate:"omitempty,max=4000"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,max=40"`
}

// Validate checks the request against its validation tags.
func (r *UpsertProfileRequest) Validate() error {
	return messageValidate.Struct(r)
}
