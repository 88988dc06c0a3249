// Package logx configures nutricare's structured logging.
//
// The engine uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Sinks swappable at runtime when the config file is reloaded
package logx
