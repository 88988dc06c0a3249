// Package reminder is the reminder scheduling engine.
//
// Pieces, bottom-up:
//   - Catalog: meal windows and per-goal hydration plans (static data)
//   - FireTime: target date + slot + now -> fire timestamp, with rollover
//   - DeriveID / ParseID: stable trigger identifiers
//   - Materializer: cancel-before-create against a platform.Gateway
//   - Dispatcher: delivered/action events from both execution contexts
//   - Lifecycle: ensure-ready, bootstrap and acknowledge
package reminder
