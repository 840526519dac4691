// Package store provides the SQLite-backed run ledger.
//
// Every convert or apply run gets one row in runs; every transition the
// pipeline makes during that run gets one row in events:
//   - Runs: kind (convert, apply), status (running, succeeded, partial,
//     failed), start and finish time
//   - Events: stage, subject (procedure or artifact file), outcome,
//     correction attempt and detail
//
// Events are ordered by seq, an INTEGER assigned on insert, never by
// timestamp. Listing a run's events always returns them in the order the
// pipeline produced them.
//
// The ledger is history only. Resumption is driven by the artifact files;
// deleting the database never changes what the next run does.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
