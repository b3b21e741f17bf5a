package history

import (
	"errors"
	"testing"

	"edv/internal/id"
	"edv/pkg/asset"
	"edv/pkg/multitrack"
	"edv/pkg/timecode"
	"edv/pkg/timeline"
	"edv/pkg/track"
)

// fakeTarget adapts pkg/timeline.Timeline and pkg/asset.Registry to the
// history.Target interface, exactly as pkg/project's Project will.
type fakeTarget struct {
	tl     *timeline.Timeline
	assets *asset.Registry
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{tl: timeline.New(), assets: asset.NewRegistry()}
}

func (f *fakeTarget) ReplayClipChanges(c []timeline.Change) error { return f.tl.ReplayClipChanges(c) }
func (f *fakeTarget) UndoClipChanges(c []timeline.Change) error   { return f.tl.UndoClipChanges(c) }
func (f *fakeTarget) RestoreTrack(t *track.Track, index int) error {
	return f.tl.RestoreTrack(t, index)
}
func (f *fakeTarget) RemoveTrackByID(trackID id.ID) (*track.Track, int, error) {
	return f.tl.RemoveTrack(trackID)
}
func (f *fakeTarget) AddRelationship(source, target id.ID, label multitrack.Label) error {
	return f.tl.AddRelationship(source, target, label)
}
func (f *fakeTarget) RemoveRelationship(source, target id.ID) {
	f.tl.RemoveRelationship(source, target)
}
func (f *fakeTarget) RestoreAsset(a asset.Asset) error { return f.assets.Restore(a) }
func (f *fakeTarget) RemoveAssetByID(assetID id.ID) (asset.Asset, error) {
	return f.assets.Remove(assetID)
}

func mustClip(t *testing.T, pos, start, end float64) track.Clip {
	t.Helper()
	c, err := track.NewClip(id.New(), timecode.FromSeconds(pos), timecode.FromSeconds(start), timecode.FromSeconds(end))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestUndoRedoSingleAction(t *testing.T) {
	target := newFakeTarget()
	v1 := target.tl.AddTrack(track.KindVideo, "v1")
	h := New(0)

	clip := mustClip(t, 0, 2, 7)
	changes, err := target.tl.AddClip(v1.ID, clip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.Record(&ClipChangeAction{Changes: changes, Desc: "add clip"})

	if target.tl.Duration().Seconds() != 5 {
		t.Fatal("expected duration 5 before undo")
	}
	if err := h.Undo(target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.tl.Duration().Seconds() != 0 {
		t.Fatal("expected duration 0 after undo")
	}
	if err := h.Redo(target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.tl.Duration().Seconds() != 5 {
		t.Fatal("expected duration 5 after redo")
	}
}

func TestUndoEmptyStackFails(t *testing.T) {
	target := newFakeTarget()
	h := New(0)
	if err := h.Undo(target); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestRedoEmptyStackFails(t *testing.T) {
	target := newFakeTarget()
	h := New(0)
	if err := h.Redo(target); !errors.Is(err, ErrNothingToRedo) {
		t.Fatalf("expected ErrNothingToRedo, got %v", err)
	}
}

func TestRecordClearsRedoStack(t *testing.T) {
	target := newFakeTarget()
	v1 := target.tl.AddTrack(track.KindVideo, "v1")
	h := New(0)

	c1, err := target.tl.AddClip(v1.ID, mustClip(t, 0, 0, 3))
	if err != nil {
		t.Fatal(err)
	}
	h.Record(&ClipChangeAction{Changes: c1})
	if err := h.Undo(target); err != nil {
		t.Fatal(err)
	}
	if !h.CanRedo() {
		t.Fatal("expected a redo entry after undo")
	}

	c2, err := target.tl.AddClip(v1.ID, mustClip(t, 5, 0, 2))
	if err != nil {
		t.Fatal(err)
	}
	h.Record(&ClipChangeAction{Changes: c2})
	if h.CanRedo() {
		t.Fatal("expected redo stack cleared by a new recorded action")
	}
}

func TestTransactionCommitGroupsActionsAsOneEntry(t *testing.T) {
	target := newFakeTarget()
	v1 := target.tl.AddTrack(track.KindVideo, "v1")
	v2 := target.tl.AddTrack(track.KindVideo, "v2")
	h := New(0)

	if err := h.BeginTransaction("add two clips"); err != nil {
		t.Fatal(err)
	}
	c1, err := target.tl.AddClip(v1.ID, mustClip(t, 0, 0, 3))
	if err != nil {
		t.Fatal(err)
	}
	h.Record(&ClipChangeAction{Changes: c1})
	c2, err := target.tl.AddClip(v2.ID, mustClip(t, 0, 0, 2))
	if err != nil {
		t.Fatal(err)
	}
	h.Record(&ClipChangeAction{Changes: c2})
	if err := h.CommitTransaction(); err != nil {
		t.Fatal(err)
	}

	if err := h.Undo(target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.tl.Duration().Seconds() != 0 {
		t.Fatal("expected both clips removed by a single undo")
	}
}

func TestBeginTransactionTwiceFails(t *testing.T) {
	h := New(0)
	if err := h.BeginTransaction(""); err != nil {
		t.Fatal(err)
	}
	if err := h.BeginTransaction(""); !errors.Is(err, ErrTransactionAlreadyActive) {
		t.Fatalf("expected ErrTransactionAlreadyActive, got %v", err)
	}
}

func TestCommitWithoutActiveTransactionFails(t *testing.T) {
	h := New(0)
	if err := h.CommitTransaction(); !errors.Is(err, ErrNoActiveTransaction) {
		t.Fatalf("expected ErrNoActiveTransaction, got %v", err)
	}
}

func TestRollbackTransactionReversesActions(t *testing.T) {
	target := newFakeTarget()
	v1 := target.tl.AddTrack(track.KindVideo, "v1")
	h := New(0)

	if err := h.BeginTransaction(""); err != nil {
		t.Fatal(err)
	}
	c1, err := target.tl.AddClip(v1.ID, mustClip(t, 0, 0, 3))
	if err != nil {
		t.Fatal(err)
	}
	h.Record(&ClipChangeAction{Changes: c1})
	if err := h.RollbackTransaction(target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.tl.Duration().Seconds() != 0 {
		t.Fatal("expected rollback to undo the recorded action")
	}
	if h.CanUndo() {
		t.Fatal("a rolled-back transaction must not land on the undo stack")
	}
}

func TestCapacityEvictsOldestUndoEntries(t *testing.T) {
	target := newFakeTarget()
	v1 := target.tl.AddTrack(track.KindVideo, "v1")
	h := New(2)

	for i := 0; i < 3; i++ {
		changes, err := target.tl.AddClip(v1.ID, mustClip(t, float64(i*10), 0, 1))
		if err != nil {
			t.Fatal(err)
		}
		h.Record(&ClipChangeAction{Changes: changes})
	}

	if len(h.undoStack) != 2 {
		t.Fatalf("got %d undo entries, want 2 (capacity-bounded)", len(h.undoStack))
	}
}
