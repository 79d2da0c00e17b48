package storage

import (
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrNotFound = errors.New("reminder not found")
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//   - "file":   dependency-free file backend (jsonl journal + snapshot)
//   - "memory": in-process only (dev/tests)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Reminder is the persisted record for one scheduled notification.
//
// Recipient is a channel-prefixed address ("telegram:12345",
// "whatsapp:+15551234567"). All fields except Delivered are immutable after
// creation; Delivered flips to true exactly once.
type Reminder struct {
	ID        int64
	Recipient string
	Task      string
	DueAt     time.Time
	Delivered bool
	CreatedAt time.Time
}
