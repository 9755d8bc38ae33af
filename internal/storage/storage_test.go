package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	ctx := context.Background()

	if err := s.Save(ctx, "conv-1.csv", strings.NewReader("data,descricao\n")); err != nil {
		t.Fatalf("save: %v", err)
	}

	rc, err := s.Open(ctx, "conv-1.csv")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "data,descricao\n" {
		t.Errorf("content = %q", got)
	}
}

func TestLocalStoreOpenMissing(t *testing.T) {
	s, _ := NewLocalStore(t.TempDir())

	_, err := s.Open(context.Background(), "missing.csv")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	s, _ := NewLocalStore(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		if err := s.Save(ctx, key, strings.NewReader("x")); err == nil {
			t.Errorf("Save(%q) accepted an invalid key", key)
		}
		if _, err := s.Open(ctx, key); err == nil {
			t.Errorf("Open(%q) accepted an invalid key", key)
		}
	}
}

func TestLocalStoreDelete(t *testing.T) {
	s, _ := NewLocalStore(t.TempDir())
	ctx := context.Background()

	s.Save(ctx, "conv-1.csv", strings.NewReader("x"))
	if err := s.Delete(ctx, "conv-1.csv"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Open(ctx, "conv-1.csv"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}

	// Deleting a missing key is a no-op.
	if err := s.Delete(ctx, "conv-1.csv"); err != nil {
		t.Errorf("delete missing: %v", err)
	}
}
