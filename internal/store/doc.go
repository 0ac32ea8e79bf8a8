// Package store provides SQLite-backed durable storage for the wallet.
//
// The store holds three independently indexed collections:
//   - Credentials: primary key id; indexed by issued_at and issuer name
//   - Proofs: primary key id; indexed by credential_id, verifier_id, timestamp
//   - Settings: primary key key
//
// # Record Layout
//
// Each row keeps the full record as a JSON body plus the indexed fields as
// columns. Rows also carry seq, an AUTOINCREMENT insertion counter; every list
// query orders by seq so results come back in insertion order.
//
// # Absence Is Not An Error
//
//   - Get* returns found=false for a missing key
//   - Delete* on a missing key is a no-op
//   - MustGet* is the only family that reports ErrNotFound
//
// # Orphaned Proofs
//
// Proofs reference credentials by id without a foreign key. Removing a
// credential never removes its proofs. OrphanedProofs and PruneOrphanedProofs
// let a caller find and clear them explicitly.
//
// # Schema Versions
//
// PRAGMA user_version records the applied schema version. Migrations are
// additive and run in order inside their own transaction, so a database
// written by any earlier version opens without losing records. A database
// from a newer version is refused with ErrSchemaTooNew.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity where declared
//   - One open connection: SQLite serializes all writes through it
package store
