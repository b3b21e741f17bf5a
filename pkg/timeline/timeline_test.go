package timeline

import (
	"errors"
	"testing"

	"edv/internal/id"
	"edv/pkg/multitrack"
	"edv/pkg/timecode"
	"edv/pkg/track"
)

func newClip(t *testing.T, assetID id.ID, pos, start, end float64) track.Clip {
	t.Helper()
	c, err := track.NewClip(assetID, timecode.FromSeconds(pos), timecode.FromSeconds(start), timecode.FromSeconds(end))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestLinearTrimDuration(t *testing.T) {
	tl := New()
	v1 := tl.AddTrack(track.KindVideo, "v1")
	asset := id.New()
	clip := newClip(t, asset, 0, 2, 7)

	if _, err := tl.AddClip(v1.ID, clip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tl.Duration().Seconds(); got != 5 {
		t.Fatalf("got %v want 5", got)
	}
}

func TestSplitThenMerge(t *testing.T) {
	tl := New()
	v1 := tl.AddTrack(track.KindVideo, "v1")
	asset := id.New()
	clip := newClip(t, asset, 0, 2, 7)
	if _, err := tl.AddClip(v1.ID, clip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, left, right, err := tl.SplitClip(v1.ID, clip.ID, timecode.FromSeconds(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if left.Position.Seconds() != 0 || left.Duration.Seconds() != 3 {
		t.Fatalf("unexpected left clip: %+v", left)
	}
	if right.Position.Seconds() != 3 || right.Duration.Seconds() != 2 {
		t.Fatalf("unexpected right clip: %+v", right)
	}
	if left.SourceStart.Seconds() != 2 || left.SourceEnd.Seconds() != 5 {
		t.Fatalf("unexpected left source range: %+v", left)
	}
	if right.SourceStart.Seconds() != 5 || right.SourceEnd.Seconds() != 7 {
		t.Fatalf("unexpected right source range: %+v", right)
	}
	if got := tl.Duration().Seconds(); got != 5 {
		t.Fatalf("duration after split: got %v want 5", got)
	}

	_, merged, err := tl.MergeClips(v1.ID, left.ID, right.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged.Position.Seconds() != 0 || merged.Duration.Seconds() != 5 {
		t.Fatalf("unexpected merged clip: %+v", merged)
	}
	if merged.SourceStart.Seconds() != 2 || merged.SourceEnd.Seconds() != 7 {
		t.Fatalf("unexpected merged source range: %+v", merged)
	}
	if got := tl.Duration().Seconds(); got != 5 {
		t.Fatalf("duration after merge: got %v want 5", got)
	}
}

func TestSplitRejectsBoundary(t *testing.T) {
	tl := New()
	v1 := tl.AddTrack(track.KindVideo, "v1")
	clip := newClip(t, id.New(), 0, 2, 7)
	if _, err := tl.AddClip(v1.ID, clip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, _, err := tl.SplitClip(v1.ID, clip.ID, timecode.FromSeconds(0)); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation at clip start, got %v", err)
	}
	if _, _, _, err := tl.SplitClip(v1.ID, clip.ID, timecode.FromSeconds(5)); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation at clip end, got %v", err)
	}
}

func TestMergeRejectsNonContiguous(t *testing.T) {
	tl := New()
	v1 := tl.AddTrack(track.KindVideo, "v1")
	asset := id.New()
	left := newClip(t, asset, 0, 0, 3)
	right := newClip(t, asset, 5, 3, 5)
	if _, err := tl.AddClip(v1.ID, left); err != nil {
		t.Fatal(err)
	}
	if _, err := tl.AddClip(v1.ID, right); err != nil {
		t.Fatal(err)
	}
	if _, _, err := tl.MergeClips(v1.ID, left.ID, right.ID); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestLockedPropagationAddAndRollback(t *testing.T) {
	tl := New()
	v1 := tl.AddTrack(track.KindVideo, "v1")
	v2 := tl.AddTrack(track.KindVideo, "v2")
	if err := tl.AddRelationship(v1.ID, v2.ID, multitrack.Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clip := newClip(t, id.New(), 0, 0, 3)
	changes, err := tl.AddClip(v1.ID, clip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2 (primary + mirror)", len(changes))
	}

	v2clips := v2.Clips()
	if len(v2clips) != 1 {
		t.Fatalf("expected v2 to have the mirrored clip, got %d clips", len(v2clips))
	}
	if v2clips[0].Position != clip.Position || v2clips[0].Duration != clip.Duration {
		t.Fatalf("mirrored clip does not match source: %+v", v2clips[0])
	}
}

func TestLockedPropagationMirrorFailureRollsBackPrimary(t *testing.T) {
	tl := New()
	v1 := tl.AddTrack(track.KindVideo, "v1")
	v2 := tl.AddTrack(track.KindVideo, "v2")
	if err := tl.AddRelationship(v1.ID, v2.ID, multitrack.Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Occupy the mirror position on v2 so the Locked mirror add collides.
	if _, err := tl.AddClip(v2.ID, newClip(t, id.New(), 0, 0, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clip := newClip(t, id.New(), 0, 0, 3)
	_, err := tl.AddClip(v1.ID, clip)
	if err == nil {
		t.Fatal("expected mirrored add to fail")
	}
	if len(v1.Clips()) != 0 {
		t.Fatal("expected primary add to be rolled back")
	}
}

func TestCycleRejectionLeavesGraphUnchanged(t *testing.T) {
	tl := New()
	v1 := tl.AddTrack(track.KindVideo, "v1")
	v2 := tl.AddTrack(track.KindVideo, "v2")
	v3 := tl.AddTrack(track.KindVideo, "v3")

	if err := tl.AddRelationship(v1.ID, v2.ID, multitrack.Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tl.AddRelationship(v2.ID, v3.ID, multitrack.Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tl.AddRelationship(v3.ID, v1.ID, multitrack.Locked); !errors.Is(err, multitrack.ErrCircularDependency) {
		t.Fatalf("expected ErrCircularDependency, got %v", err)
	}
	if label, ok := tl.GetRelationship(v3.ID, v1.ID); ok {
		t.Fatalf("expected no v3->v1 edge, got %v", label)
	}
}

func TestRemoveTrackClearsRelationshipsAndAllowsUndo(t *testing.T) {
	tl := New()
	v1 := tl.AddTrack(track.KindVideo, "v1")
	v2 := tl.AddTrack(track.KindVideo, "v2")
	if err := tl.AddRelationship(v1.ID, v2.ID, multitrack.Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot, index, err := tl.RemoveTrack(v2.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tl.GetDependentTracks(v1.ID)) != 0 {
		t.Fatal("expected relationship to be removed with the track")
	}

	if err := tl.RestoreTrack(snapshot, index); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tl.Track(v2.ID); err != nil {
		t.Fatalf("expected restored track to be found: %v", err)
	}
	if len(tl.GetDependentTracks(v1.ID)) != 0 {
		t.Fatal("restoring a track must not resurrect its former relationships")
	}
}

func TestMoveClipToTrackRejectsKindMismatch(t *testing.T) {
	tl := New()
	v1 := tl.AddTrack(track.KindVideo, "v1")
	a1 := tl.AddTrack(track.KindAudio, "a1")
	clip := newClip(t, id.New(), 0, 0, 3)
	if _, err := tl.AddClip(v1.ID, clip); err != nil {
		t.Fatal(err)
	}
	if _, _, err := tl.MoveClipToTrack(v1.ID, clip.ID, a1.ID, timecode.FromSeconds(0)); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestMoveClipRejectsOverlap(t *testing.T) {
	tl := New()
	v1 := tl.AddTrack(track.KindVideo, "v1")
	a := newClip(t, id.New(), 0, 0, 3)
	b := newClip(t, id.New(), 5, 0, 2)
	if _, err := tl.AddClip(v1.ID, a); err != nil {
		t.Fatal(err)
	}
	if _, err := tl.AddClip(v1.ID, b); err != nil {
		t.Fatal(err)
	}
	var overlapErr *track.ClipOverlapError
	_, err := tl.MoveClip(v1.ID, b.ID, timecode.FromSeconds(1))
	if !errors.As(err, &overlapErr) {
		t.Fatalf("expected *ClipOverlapError, got %v", err)
	}
}
