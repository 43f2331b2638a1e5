package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/threeworlds/loopshift/internal/config"
)

// newTestRepo connects to LOOPSHIFT_TEST_DSN and migrates it. The slot it
// returns is unique to the test and removed afterwards.
func newTestRepo(t *testing.T, keep int) (*SlotRepo, string) {
	t.Helper()
	dsn := os.Getenv("LOOPSHIFT_TEST_DSN")
	if dsn == "" {
		t.Skip("LOOPSHIFT_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := NewDB(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 4}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(db.Close)
	if _, err := RunMigrations(ctx, db); err != nil {
		t.Fatal(err)
	}

	repo := NewSlotRepo(db, keep)
	slot := fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano())
	t.Cleanup(func() { _ = repo.Delete(context.Background(), slot) })
	return repo, slot
}

func loopCountOf(t *testing.T, payload []byte) int {
	t.Helper()
	var v struct {
		LoopCount int `json:"loopCount"`
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		t.Fatalf("payload %q: %v", payload, err)
	}
	return v.LoopCount
}

func TestSlotRepo_LoadSaveDelete(t *testing.T) {
	repo, slot := newTestRepo(t, 0)
	ctx := context.Background()

	if _, ok, err := repo.Load(ctx, slot); ok || err != nil {
		t.Fatalf("missing slot: ok=%v err=%v", ok, err)
	}
	for n := 1; n <= 2; n++ {
		if err := repo.Save(ctx, slot, []byte(fmt.Sprintf(`{"loopCount":%d,"persistentHints":[]}`, n))); err != nil {
			t.Fatal(err)
		}
	}
	got, ok, err := repo.Load(ctx, slot)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if n := loopCountOf(t, got); n != 2 {
		t.Fatalf("loopCount %d, want 2", n)
	}

	if err := repo.Delete(ctx, slot); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := repo.Load(ctx, slot); ok {
		t.Fatal("slot survived delete")
	}
	if h, err := repo.History(ctx, slot, 10); err != nil || len(h) != 0 {
		t.Fatalf("history after delete: %d rows, err %v", len(h), err)
	}
}

func TestSlotRepo_HistoryKeepsNewest(t *testing.T) {
	const keep = 3
	repo, slot := newTestRepo(t, keep)
	ctx := context.Background()

	for n := 1; n <= 5; n++ {
		if err := repo.Save(ctx, slot, []byte(fmt.Sprintf(`{"loopCount":%d}`, n))); err != nil {
			t.Fatal(err)
		}
	}
	h, err := repo.History(ctx, slot, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != keep {
		t.Fatalf("history has %d revisions, want %d", len(h), keep)
	}
	for i, rv := range h {
		want := int64(5 - i)
		if rv.Revision != want || loopCountOf(t, rv.Payload) != int(want) {
			t.Fatalf("history[%d] = rev %d payload %s, want rev %d", i, rv.Revision, rv.Payload, want)
		}
	}

	if h, _ := repo.History(ctx, slot, 1); len(h) != 1 || h[0].Revision != 5 {
		t.Fatalf("limited history %+v", h)
	}
}
