package persist

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_RoundTripAndMissing(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.Load(ctx, "slot"); ok || err != nil {
		t.Fatalf("missing slot: ok=%v err=%v", ok, err)
	}
	payload := []byte(`{"loopCount":3,"persistentHints":[]}`)
	if err := s.Save(ctx, "slot", payload); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Load(ctx, "slot")
	if err != nil || !ok || string(got) != string(payload) {
		t.Fatalf("load = %q %v %v", got, ok, err)
	}
	if err := s.Delete(ctx, "slot"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "slot"); err != nil {
		t.Fatal("second delete should succeed")
	}
}

func TestFileStore_RejectsTamperedFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "slot", []byte(`{"loopCount":1}`)); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "slot.sav")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-2] = '9'
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Load(ctx, "slot"); !errors.Is(err, ErrChecksum) {
		t.Fatalf("err = %v, want ErrChecksum", err)
	}
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Load(ctx, "slot"); !errors.Is(err, ErrChecksum) {
		t.Fatalf("headerless file: err = %v", err)
	}
}

func TestFileStore_SlotNames(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, bad := range []string{"", "..", "a/b", `a\b`} {
		if err := s.Save(context.Background(), bad, nil); !errors.Is(err, ErrSlotName) {
			t.Errorf("slot %q: err = %v", bad, err)
		}
	}
}

func TestMigrationFS(t *testing.T) {
	fsys, err := MigrationFS()
	if err != nil {
		t.Fatal(err)
	}
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("migrations %v %v", files, err)
	}
}
