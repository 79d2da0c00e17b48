package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	logx "remindbot/pkg/logx"
)

func openTestStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fileStore, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "reminders")}, logx.Nop())
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	sqliteStore, err := Open(Config{Driver: "sqlite", Path: filepath.Join(dir, "reminders.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}

	stores := map[string]Store{
		"memory": NewMemory(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreContract(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range openTestStores(t) {
		s := s
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			past, err := s.Create(ctx, "telegram:1", "call mom", now.Add(-time.Hour))
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			exact, err := s.Create(ctx, "whatsapp:+155", "pay bills", now)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			future, err := s.Create(ctx, "telegram:2", "stretch", now.Add(time.Minute))
			if err != nil {
				t.Fatalf("Create: %v", err)
			}

			due, err := s.FindDuePending(ctx, now)
			if err != nil {
				t.Fatalf("FindDuePending: %v", err)
			}
			// DueAt == now is included (inclusive boundary); the future one is not.
			if len(due) != 2 {
				t.Fatalf("due count = %d, want 2", len(due))
			}
			if due[0].ID != past.ID || due[1].ID != exact.ID {
				t.Fatalf("unexpected order: %d, %d", due[0].ID, due[1].ID)
			}
			for _, r := range due {
				if r.Delivered {
					t.Fatalf("reminder %d already delivered", r.ID)
				}
			}

			// Idempotent mark: second call is a no-op success.
			if err := s.MarkDelivered(ctx, past.ID); err != nil {
				t.Fatalf("MarkDelivered: %v", err)
			}
			if err := s.MarkDelivered(ctx, past.ID); err != nil {
				t.Fatalf("second MarkDelivered: %v", err)
			}
			if err := s.MarkDelivered(ctx, future.ID+1000); !errors.Is(err, ErrNotFound) {
				t.Fatalf("MarkDelivered(unknown) = %v, want ErrNotFound", err)
			}

			due, err = s.FindDuePending(ctx, now)
			if err != nil {
				t.Fatalf("FindDuePending: %v", err)
			}
			if len(due) != 1 || due[0].ID != exact.ID {
				t.Fatalf("after delivery, due = %+v", due)
			}

			// The future reminder becomes due once now passes its target.
			due, err = s.FindDuePending(ctx, now.Add(time.Minute))
			if err != nil {
				t.Fatalf("FindDuePending: %v", err)
			}
			if len(due) != 2 {
				t.Fatalf("due count = %d, want 2", len(due))
			}
		})
	}
}

func TestFileStoreSurvivesRestart(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "reminders")
	ctx := context.Background()
	due := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	s, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	kept, err := s.Create(ctx, "telegram:1", "water plants", due)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	done, err := s.Create(ctx, "telegram:1", "old task", due)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.MarkDelivered(ctx, done.ID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen: the journal replays and the pending reminder is still due.
	s2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	found, err := s2.FindDuePending(ctx, due)
	if err != nil {
		t.Fatalf("FindDuePending: %v", err)
	}
	if len(found) != 1 || found[0].ID != kept.ID {
		t.Fatalf("after restart, due = %+v", found)
	}
	if found[0].Task != "water plants" || found[0].Recipient != "telegram:1" {
		t.Fatalf("record fields not preserved: %+v", found[0])
	}

	// New ids keep increasing after restart.
	again, err := s2.Create(ctx, "telegram:1", "new task", due)
	if err != nil {
		t.Fatalf("Create after restart: %v", err)
	}
	if again.ID <= done.ID {
		t.Fatalf("id %d not monotonic after restart (last was %d)", again.ID, done.ID)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "bogus"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(Config{}, logx.Nop()); !errors.Is(err, ErrDisabled) {
		t.Fatalf("empty driver = %v, want ErrDisabled", err)
	}
}
