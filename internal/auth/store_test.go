package auth_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"staybook/internal/auth"
	"staybook/internal/domain"
)

func TestFileStore_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staybook", "credentials.yaml")
	fs := auth.NewFileStore(path)
	ctx := context.Background()

	if c, err := fs.Load(ctx); err != nil || !c.Empty() {
		t.Fatalf("missing file should load empty: %+v %v", c, err)
	}
	want := domain.Credentials{Access: "a1", Refresh: "r1"}
	if err := fs.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Errorf("perm = %v, want 0600", st.Mode().Perm())
	}
	got, err := fs.Load(ctx)
	if err != nil || got != want {
		t.Fatalf("load: %+v %v", got, err)
	}
	if err := fs.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := fs.Clear(ctx); err != nil {
		t.Fatalf("clear twice: %v", err)
	}
}

func TestFallbackStore_HydratesFromDurable(t *testing.T) {
	ctx := context.Background()
	durable := auth.NewFileStore(filepath.Join(t.TempDir(), "c.yaml"))
	if err := durable.Save(ctx, domain.Credentials{Access: "a", Refresh: "r"}); err != nil {
		t.Fatal(err)
	}
	fb := auth.NewFallbackStore(durable)

	got, err := fb.Load(ctx)
	if err != nil || got.Access != "a" {
		t.Fatalf("expected hydration from file: %+v %v", got, err)
	}

	// memory now wins even if the file disappears
	if err := durable.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := fb.Load(ctx); got.Access != "a" {
		t.Fatalf("memory copy should be served: %+v", got)
	}

	if err := fb.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := fb.Load(ctx); !got.Empty() {
		t.Fatalf("expected empty after clear: %+v", got)
	}
}
