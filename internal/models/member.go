package models

// Member is a roommate belonging to a household.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string

	// HouseholdID is the owning household.
	HouseholdID string

	// RoomID is the member's room; empty when unassigned.
	RoomID string

	// Name is the display name.
	Name string

	// UserID links the member to a registered user; empty when the
	// roommate has no account. A linked user gets access to the household.
	UserID string

	// CreatedAt is the Unix timestamp when the member was added.
	CreatedAt int64
}
