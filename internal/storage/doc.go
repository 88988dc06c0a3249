// Package storage provides the small key/value persistence layer used by the
// reminder engine.
//
// It backs:
//   - The notification history (one JSON array under a single key)
//   - The user profile lookup (goal selection)
//
// Drivers: memory, file (snapshot + journal), sqlite and badger.
package storage
