package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/daniel-lxs/bettersubs/internal/apperrors"
)

func TestMemoryStore_PutGet(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, "n1", "subtitle content"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	content, err := store.Get(ctx, "n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if content != "subtitle content" {
		t.Errorf("content = %q", content)
	}
}

func TestMemoryStore_MissIsNotFound(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "absent")
	if !errors.Is(err, &apperrors.ErrNotFound{}) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
