package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nerrad567/intravision-core/internal/infrastructure/config"
	"github.com/nerrad567/intravision-core/internal/infrastructure/database"
	"github.com/nerrad567/intravision-core/migrations"
)

// setupJournal opens an in-memory database with the embedded migrations applied.
func setupJournal(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck // Test cleanup
	})

	if err := db.Migrate(context.Background(), migrations.Source()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestRecordAndHistory(t *testing.T) {
	repo := setupJournal(t)
	ctx := context.Background()

	payload := json.RawMessage(`{"Event":"DeviceUpdate","Data":{"Name":"Light1"}}`)
	err := repo.Record(ctx, Entry{
		EntityID: "light-1",
		SystemID: "room-1",
		Event:    "DeviceUpdate",
		Payload:  payload,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.History(ctx, "light-1", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}

	e := entries[0]
	if e.ID == 0 {
		t.Error("ID should be assigned")
	}
	if e.EntityID != "light-1" || e.SystemID != "room-1" || e.Event != "DeviceUpdate" {
		t.Errorf("entry = %+v", e)
	}
	if string(e.Payload) != string(payload) {
		t.Errorf("Payload = %s, want %s", e.Payload, payload)
	}
	if time.Since(e.CreatedAt) > time.Minute {
		t.Errorf("CreatedAt = %v, want about now", e.CreatedAt)
	}
}

func TestHistory_NewestFirstAndLimited(t *testing.T) {
	repo := setupJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Record(ctx, Entry{
			EntityID: "light-1",
			Event:    "DeviceUpdate",
			Payload:  json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)),
		}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := repo.Record(ctx, Entry{EntityID: "other", Event: "DeviceUpdate"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.History(ctx, "light-1", 3)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if string(entries[0].Payload) != `{"n":4}` {
		t.Errorf("first entry = %s, want newest", entries[0].Payload)
	}
	for _, e := range entries {
		if e.EntityID != "light-1" {
			t.Errorf("entry for %s leaked into light-1 history", e.EntityID)
		}
	}
}

func TestRecord_Validation(t *testing.T) {
	repo := setupJournal(t)
	ctx := context.Background()

	if err := repo.Record(ctx, Entry{Event: "DeviceUpdate"}); !errors.Is(err, ErrMissingEntityID) {
		t.Errorf("Record(no entity) error = %v, want ErrMissingEntityID", err)
	}
	if err := repo.Record(ctx, Entry{EntityID: "x"}); !errors.Is(err, ErrMissingEvent) {
		t.Errorf("Record(no event) error = %v, want ErrMissingEvent", err)
	}
	if _, err := repo.History(ctx, "", 10); !errors.Is(err, ErrMissingEntityID) {
		t.Errorf("History(\"\") error = %v, want ErrMissingEntityID", err)
	}
}

func TestRecord_NilPayload(t *testing.T) {
	repo := setupJournal(t)
	ctx := context.Background()

	if err := repo.Record(ctx, Entry{EntityID: "x", Event: "Initialisation"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	entries, err := repo.History(ctx, "x", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 || string(entries[0].Payload) != "null" {
		t.Errorf("entries = %+v, want one null payload", entries)
	}
}

func TestPrune(t *testing.T) {
	repo := setupJournal(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	if err := repo.Record(ctx, Entry{EntityID: "x", Event: "DeviceUpdate", CreatedAt: old}); err != nil {
		t.Fatalf("Record(old) error = %v", err)
	}
	if err := repo.Record(ctx, Entry{EntityID: "x", Event: "DeviceUpdate"}); err != nil {
		t.Fatalf("Record(new) error = %v", err)
	}

	n, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Prune() removed %d, want 1", n)
	}

	entries, err := repo.History(ctx, "x", 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("len(entries) = %d after prune, want 1", len(entries))
	}

	if _, err := repo.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) should fail")
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultHistoryLimit},
		{-5, DefaultHistoryLimit},
		{10, 10},
		{MaxHistoryLimit + 1, MaxHistoryLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
