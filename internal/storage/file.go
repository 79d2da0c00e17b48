package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	logx "remindbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.snapshot.json (periodic snapshot of all reminders)
//   - <prefix>.journal.jsonl (append-only journal since the snapshot)
//
// The journal is periodically compacted into the snapshot.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	snapshotPath string
	journalPath  string
	journalFile  *os.File

	nextID int64
	items  map[int64]Reminder

	writes int
}

const fileCompactEvery = 1000

type journalRecord struct {
	Op        string `json:"op"` // "create" | "delivered"
	ID        int64  `json:"id"`
	Recipient string `json:"recipient,omitempty"`
	Task      string `json:"task,omitempty"`
	DueAt     int64  `json:"due_at,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type snapshotFile struct {
	NextID    int64           `json:"next_id"`
	Reminders []journalRecord `json:"reminders"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{
		log:          log,
		snapshotPath: prefix + ".snapshot.json",
		journalPath:  prefix + ".journal.jsonl",
		nextID:       1,
		items:        map[int64]Reminder{},
	}

	_ = s.loadSnapshot()
	_ = s.replayJournal()

	jf, err := os.OpenFile(s.journalPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	s.journalFile = jf
	return s, nil
}

func (s *fileStore) loadSnapshot() error {
	b, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		return err
	}
	var snap snapshotFile
	if err := json.Unmarshal(b, &snap); err != nil {
		return err
	}
	if snap.NextID > s.nextID {
		s.nextID = snap.NextID
	}
	for _, rec := range snap.Reminders {
		s.applyRecord(rec)
	}
	return nil
}

func (s *fileStore) replayJournal() error {
	f, err := os.Open(s.journalPath)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec journalRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// A torn last line after a crash is expected; skip it.
			s.log.Debug("skipping unreadable journal line", logx.Err(err))
			continue
		}
		s.applyRecord(rec)
	}
	return sc.Err()
}

func (s *fileStore) applyRecord(rec journalRecord) {
	switch rec.Op {
	case "create":
		s.items[rec.ID] = Reminder{
			ID:        rec.ID,
			Recipient: rec.Recipient,
			Task:      rec.Task,
			DueAt:     time.UnixMilli(rec.DueAt).UTC(),
			CreatedAt: time.UnixMilli(rec.CreatedAt).UTC(),
		}
		if rec.ID >= s.nextID {
			s.nextID = rec.ID + 1
		}
	case "delivered":
		if r, ok := s.items[rec.ID]; ok {
			r.Delivered = true
			s.items[rec.ID] = r
		}
	}
}

func (s *fileStore) appendLocked(rec journalRecord) error {
	if s.journalFile == nil {
		return errors.New("journal closed")
	}
	enc := json.NewEncoder(s.journalFile)
	if err := enc.Encode(rec); err != nil {
		return err
	}
	s.writes++
	if s.writes%fileCompactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("journal compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) compactLocked() error {
	snap := snapshotFile{NextID: s.nextID}
	for _, r := range s.items {
		rec := journalRecord{
			Op:        "create",
			ID:        r.ID,
			Recipient: r.Recipient,
			Task:      r.Task,
			DueAt:     r.DueAt.UnixMilli(),
			CreatedAt: r.CreatedAt.UnixMilli(),
		}
		snap.Reminders = append(snap.Reminders, rec)
		if r.Delivered {
			snap.Reminders = append(snap.Reminders, journalRecord{Op: "delivered", ID: r.ID})
		}
	}

	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}

	// Snapshot holds everything; restart the journal.
	if s.journalFile != nil {
		_ = s.journalFile.Close()
	}
	jf, err := os.OpenFile(s.journalPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		s.journalFile = nil
		return err
	}
	s.journalFile = jf
	return nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return nil
	}
	err := s.journalFile.Close()
	s.journalFile = nil
	return err
}

func (s *fileStore) Create(ctx context.Context, recipient, task string, dueAt time.Time) (Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	r := Reminder{
		ID:        s.nextID,
		Recipient: recipient,
		Task:      task,
		DueAt:     dueAt,
		CreatedAt: time.Now().UTC(),
	}

	rec := journalRecord{
		Op:        "create",
		ID:        r.ID,
		Recipient: r.Recipient,
		Task:      r.Task,
		DueAt:     r.DueAt.UnixMilli(),
		CreatedAt: r.CreatedAt.UnixMilli(),
	}
	if err := s.appendLocked(rec); err != nil {
		return Reminder{}, err
	}

	s.nextID++
	s.items[r.ID] = r
	return r, nil
}

func (s *fileStore) FindDuePending(ctx context.Context, now time.Time) ([]Reminder, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Reminder
	for _, r := range s.items {
		if !r.Delivered && !r.DueAt.After(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fileStore) MarkDelivered(ctx context.Context, id int64) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	if r.Delivered {
		return nil
	}

	if err := s.appendLocked(journalRecord{Op: "delivered", ID: id}); err != nil {
		return err
	}
	r.Delivered = true
	s.items[id] = r
	return nil
}
