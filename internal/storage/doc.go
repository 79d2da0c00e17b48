package storage

// Package storage persists reminders.
//
// Three drivers sit behind the same Store interface:
//   - sqlite: single database file, the recommended production driver
//   - file:   dependency-free jsonl journal + snapshot
//   - memory: ephemeral, for tests and development
