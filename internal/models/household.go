package models

// Household is the tenant that owns rooms, members and expenses.
type Household struct {
	// ID is the unique identifier for the household (UUID format).
	ID string

	// Name is the display name (e.g., "Flat 4B").
	Name string

	// CreatedBy is the user ID of the creator. The creator always has access.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the household was created.
	CreatedAt int64
}

// Room groups members inside a household. An expense without explicit
// shares is split among everyone in the payer's room.
type Room struct {
	ID          string
	HouseholdID string
	Name        string
	CreatedAt   int64
}
