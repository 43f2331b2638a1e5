package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/threeworlds/loopshift/internal/persist"
)

func fileEnv(t *testing.T) (*env, *bytes.Buffer) {
	t.Helper()
	fs, err := persist.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	return &env{store: fs, slot: "TestSlot", out: &out}, &out
}

func TestImportShowExportDelete(t *testing.T) {
	e, out := fileEnv(t)
	ctx := context.Background()
	dir := t.TempDir()

	in := filepath.Join(dir, "in.json")
	blob := `{"loopCount":3,"persistentHints":[{"id":"vault","text":"look up","persistent":true,"state":"Present","loopToUnlock":2}]}`
	if err := os.WriteFile(in, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cmdImport(ctx, e, []string{in}); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	if err := cmdShow(ctx, e, nil); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"loop_count: 3", "id: vault", "state: Present"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("show output missing %q:\n%s", want, out.String())
		}
	}

	exported := filepath.Join(dir, "out.json")
	if err := cmdExport(ctx, e, []string{exported}); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(exported)
	if err != nil || string(got) != blob {
		t.Fatalf("export %q %v", got, err)
	}

	if err := cmdDelete(ctx, e, nil); err != nil {
		t.Fatal(err)
	}
	if err := cmdShow(ctx, e, nil); err == nil {
		t.Fatal("deleted slot still shows")
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	e, _ := fileEnv(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cmdImport(context.Background(), e, []string{bad}); err == nil {
		t.Fatal("garbage imported")
	}
}

func TestHistoryNeedsPostgres(t *testing.T) {
	e, _ := fileEnv(t)
	if err := cmdHistory(context.Background(), e, nil); err == nil {
		t.Fatal("history on file backend should fail")
	}
}
