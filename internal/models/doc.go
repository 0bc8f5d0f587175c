// Package models defines the persisted records of roomsplit.
//
// # Records
//
//   - User: registered account used for authentication
//   - Household: top-level tenant owning rooms, members and expenses
//   - Room: a group label inside a household (default split target)
//   - Member: a roommate, optionally linked to a User
//   - Expense: a shared cost paid by one member and split by weighted shares
//   - PaymentStatus: advisory paid flag for a computed transfer
//
// Balances and transfers are not records; they are derived by package
// ledger from the current members and expenses.
//
// # Conventions
//
// IDs are UUID strings, timestamps are Unix seconds, amounts are whole
// currency units. Relationships are by ID string, never by pointer.
// Optional references use the empty string for "absent".
package models
