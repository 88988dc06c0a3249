// Package history keeps the durable list of notifications shown to the user.
//
// The list is stored as one JSON array under a single KV key, newest first,
// unique by id and capped (300 by default). Every mutation is persisted before
// subscribers are called, and each subscriber receives the full list rather
// than a delta.
package history
