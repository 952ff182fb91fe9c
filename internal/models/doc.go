// Package models defines the core domain models for Divvy.
//
// # Models
//
//   - Snapshot: the complete persisted/shared state (version + people +
//     transactions + history)
//   - Transaction: one recorded monetary event, a tagged union of the
//     expense, adjustment and transfer variants
//   - HistoryEntry: an archived copy of a prior division, frozen at save time
//   - User: a registered account owning one snapshot
//
// Participants are identified by display name (strings). A name is valid only
// while it appears in the snapshot's people roster; removing a person cascades
// to every transaction that references them, so a well-formed snapshot never
// contains dangling names.
//
// # Design Principles
//
//  1. **One transaction struct, one discriminant**: the Type field selects
//     which variant fields are meaningful. Consumers switch on Type and must
//     treat an unknown tag as an error, never skip it silently.
//  2. **Wire compatibility**: JSON tags reproduce the snapshot shape the web
//     client has always written, so stored and shared blobs keep decoding.
//  3. **Avoid aliasing**: history entries deep-copy people and transactions;
//     mutating the live division never rewrites an archive.
package models
