package asset

import (
	"errors"
	"testing"

	"edv/internal/id"
)

func TestAddAndGet(t *testing.T) {
	r := NewRegistry()
	assetID := r.Add("/media/a.mov", Metadata{Kind: KindVideo})

	got, err := r.Get(assetID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Path != "/media/a.mov" {
		t.Fatalf("got %v want /media/a.mov", got.Path)
	}
}

func TestGetMissing(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get(id.New()); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestRemoveAndRestorePreservesID(t *testing.T) {
	r := NewRegistry()
	assetID := r.Add("/media/a.mov", Metadata{Kind: KindVideo})

	removed, err := r.Remove(assetID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Has(assetID) {
		t.Fatal("expected asset to be gone")
	}

	if err := r.Restore(removed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Has(assetID) {
		t.Fatal("expected asset restored under the same id")
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	r := NewRegistry()
	a := r.Add("/media/a.mov", Metadata{})
	b := r.Add("/media/b.mov", Metadata{})
	c := r.Add("/media/c.mov", Metadata{})

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("got %d assets, want 3", len(list))
	}
	if list[0].ID != a || list[1].ID != b || list[2].ID != c {
		t.Fatal("List did not preserve insertion order")
	}
}

func TestRestoreDuplicateFails(t *testing.T) {
	r := NewRegistry()
	assetID := r.Add("/media/a.mov", Metadata{})
	a, _ := r.Get(assetID)

	if err := r.Restore(*a); !errors.Is(err, ErrDuplicateAsset) {
		t.Fatalf("expected ErrDuplicateAsset, got %v", err)
	}
}
