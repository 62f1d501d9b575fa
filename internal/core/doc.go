// Package core provides the business logic for managing buyer leads.
//
// The package is independent of any transport or storage. Web handlers and
// the CLI talk to a [Service]; persistence is reached through the [Store]
// interface.
//
// # Pipeline
//
// Every write goes through the same steps:
//
//  1. [MapLegacyRow] converts legacy CSV shorthand ("2", "0-3m", "a,b") to
//     canonical values. JSON requests skip this step.
//  2. [ValidateBuyer] checks each field, then the cross-field rules, and
//     returns every failing field as [ValidationErrors].
//  3. [DiffBuyers] compares the stored and the new record on update. Only
//     non-empty diffs are written, together with one [History] entry.
//
// Imports are all-or-nothing: one bad row rejects the file with an
// [ImportError] and no row is stored.
//
// # Error Handling
//
// Sentinel errors ([ErrNotFound], [ErrConflict], [ErrValidation],
// [ErrCapacity], ...) are matched with errors.Is. [MapError] turns any error
// into a user-facing message with a support code.
package core
