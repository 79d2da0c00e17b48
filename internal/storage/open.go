package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "remindbot/pkg/logx"
)

// Store is the persistence API used by intake and the dispatcher.
//
// Implementations must be safe for concurrent callers, and MarkDelivered must
// be an atomic flag flip: when two dispatcher cycles race on the same id, at
// most one transition happens and the second call is a no-op success.
type Store interface {
	// Create persists a new pending reminder and assigns its id and
	// creation timestamp.
	Create(ctx context.Context, recipient, task string, dueAt time.Time) (Reminder, error)

	// FindDuePending returns reminders with DueAt <= now (inclusive) that
	// have not been delivered, in creation order.
	FindDuePending(ctx context.Context, now time.Time) ([]Reminder, error)

	// MarkDelivered flips the delivered flag. Calling it again for an
	// already-delivered id is a no-op success; an unknown id returns
	// ErrNotFound.
	MarkDelivered(ctx context.Context, id int64) error

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "none":
		return nil, ErrDisabled
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "file":
		return openFile(cfg, log)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
