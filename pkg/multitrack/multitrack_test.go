package multitrack

import (
	"errors"
	"testing"

	"edv/internal/id"
	"edv/pkg/timecode"
	"edv/pkg/track"
)

// fakeReader implements TrackReader over a plain map, for tests only.
type fakeReader struct {
	tracks map[id.ID]*track.Track
}

func newFakeReader(tracks ...*track.Track) *fakeReader {
	r := &fakeReader{tracks: make(map[id.ID]*track.Track)}
	for _, t := range tracks {
		r.tracks[t.ID] = t
	}
	return r
}

func (r *fakeReader) Clips(trackID id.ID) []track.Clip {
	t, ok := r.tracks[trackID]
	if !ok {
		return nil
	}
	return t.Clips()
}

func (r *fakeReader) HasTrack(trackID id.ID) bool {
	_, ok := r.tracks[trackID]
	return ok
}

func mustAddClip(t *testing.T, tr *track.Track, pos, start, end float64) track.Clip {
	t.Helper()
	c, err := track.NewClip(id.New(), timecode.FromSeconds(pos), timecode.FromSeconds(start), timecode.FromSeconds(end))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.AddClip(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestAddRelationshipRejectsSelfLoop(t *testing.T) {
	v1 := track.NewTrack(track.KindVideo, "v1")
	reader := newFakeReader(v1)
	m := NewManager()
	if err := m.AddRelationship(reader, v1.ID, v1.ID, Locked); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestAddRelationshipUnknownTrack(t *testing.T) {
	v1 := track.NewTrack(track.KindVideo, "v1")
	reader := newFakeReader(v1)
	m := NewManager()
	if err := m.AddRelationship(reader, v1.ID, id.New(), Locked); !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestAddRelationshipDetectsCycle(t *testing.T) {
	v1 := track.NewTrack(track.KindVideo, "v1")
	v2 := track.NewTrack(track.KindVideo, "v2")
	v3 := track.NewTrack(track.KindVideo, "v3")
	reader := newFakeReader(v1, v2, v3)
	m := NewManager()

	if err := m.AddRelationship(reader, v1.ID, v2.ID, Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.AddRelationship(reader, v2.ID, v3.ID, Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.AddRelationship(reader, v3.ID, v1.ID, Locked); !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("expected ErrCircularDependency, got %v", err)
	}
}

func TestRemoveTrackClearsBothIndexes(t *testing.T) {
	v1 := track.NewTrack(track.KindVideo, "v1")
	v2 := track.NewTrack(track.KindVideo, "v2")
	reader := newFakeReader(v1, v2)
	m := NewManager()

	if err := m.AddRelationship(reader, v1.ID, v2.ID, Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RemoveTrack(v2.ID)

	if len(m.GetDependentTracks(v1.ID)) != 0 {
		t.Fatal("expected no dependents after removing the target track")
	}
	if len(m.GetDependencies(v2.ID)) != 0 {
		t.Fatal("expected no dependencies after removing the track itself")
	}
}

func TestGetRelationshipRoundTrip(t *testing.T) {
	v1 := track.NewTrack(track.KindVideo, "v1")
	v2 := track.NewTrack(track.KindVideo, "v2")
	reader := newFakeReader(v1, v2)
	m := NewManager()

	if _, ok := m.GetRelationship(v1.ID, v2.ID); ok {
		t.Fatal("expected no relationship before AddRelationship")
	}
	if err := m.AddRelationship(reader, v1.ID, v2.ID, TimingDependent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	label, ok := m.GetRelationship(v1.ID, v2.ID)
	if !ok || label != TimingDependent {
		t.Fatalf("got (%v, %v), want (TimingDependent, true)", label, ok)
	}
}

func TestPropagateLockedAddClip(t *testing.T) {
	v1 := track.NewTrack(track.KindVideo, "v1")
	v2 := track.NewTrack(track.KindVideo, "v2")
	reader := newFakeReader(v1, v2)
	m := NewManager()
	if err := m.AddRelationship(reader, v1.ID, v2.ID, Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clip := mustAddClip(t, v1, 2, 0, 5)

	edits, err := m.Propagate(reader, PrimaryEdit{Kind: EditAddClip, Track: v1.ID, Clip: clip})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edits) != 1 {
		t.Fatalf("got %d edits, want 1", len(edits))
	}
	if edits[0].Track != v2.ID || edits[0].Kind != EditAddClip {
		t.Fatalf("unexpected propagated edit: %+v", edits[0])
	}
	if edits[0].Clip.ID == clip.ID {
		t.Fatal("mirrored clip must have a fresh id")
	}
	if edits[0].Clip.Position != clip.Position {
		t.Fatal("mirrored clip must keep the same position")
	}
}

func TestPropagateLockedRemoveClipNotFoundRollsBack(t *testing.T) {
	v1 := track.NewTrack(track.KindVideo, "v1")
	v2 := track.NewTrack(track.KindVideo, "v2")
	reader := newFakeReader(v1, v2)
	m := NewManager()
	if err := m.AddRelationship(reader, v1.ID, v2.ID, Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clip := mustAddClip(t, v1, 2, 0, 5)
	_, err := m.Propagate(reader, PrimaryEdit{Kind: EditRemoveClip, Track: v1.ID, Clip: clip})
	if !errors.Is(err, ErrMirrorClipNotFound) {
		t.Fatalf("expected ErrMirrorClipNotFound, got %v", err)
	}
}

func TestPropagateMoveTimingDependentShiftsOverlappingClips(t *testing.T) {
	v1 := track.NewTrack(track.KindVideo, "v1")
	v2 := track.NewTrack(track.KindVideo, "v2")
	reader := newFakeReader(v1, v2)
	m := NewManager()
	if err := m.AddRelationship(reader, v1.ID, v2.ID, TimingDependent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mustAddClip(t, v1, 0, 0, 5)
	dependent := mustAddClip(t, v2, 2, 0, 2)  // overlaps [0,5) originally
	untouched := mustAddClip(t, v2, 10, 0, 2) // well outside the affected range

	edits, err := m.PropagateMove(reader, MoveClipEdit{Track: v1.ID, OldPosition: 0, NewPosition: 3, Duration: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edits) != 1 {
		t.Fatalf("got %d edits, want 1: %+v", len(edits), edits)
	}
	if edits[0].ClipID != dependent.ID {
		t.Fatalf("expected shift of the overlapping clip, got %+v", edits[0])
	}
	if edits[0].NewPosition != 5 {
		t.Fatalf("got new position %v, want 5", edits[0].NewPosition)
	}
	for _, e := range edits {
		if e.ClipID == untouched.ID {
			t.Fatal("clip outside the affected interval must not shift")
		}
	}
}

func TestPropagateMoveLockedChainIsTransitive(t *testing.T) {
	v1 := track.NewTrack(track.KindVideo, "v1")
	v2 := track.NewTrack(track.KindVideo, "v2")
	v3 := track.NewTrack(track.KindVideo, "v3")
	reader := newFakeReader(v1, v2, v3)
	m := NewManager()
	if err := m.AddRelationship(reader, v1.ID, v2.ID, Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.AddRelationship(reader, v2.ID, v3.ID, Locked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mustAddClip(t, v1, 0, 0, 5)
	c2 := mustAddClip(t, v2, 0, 0, 5)
	c3 := mustAddClip(t, v3, 0, 0, 5)

	edits, err := m.PropagateMove(reader, MoveClipEdit{Track: v1.ID, OldPosition: 0, NewPosition: 4, Duration: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edits) != 2 {
		t.Fatalf("got %d edits, want 2 (v2 and v3): %+v", len(edits), edits)
	}
	byTrack := map[id.ID]PropagatedEdit{}
	for _, e := range edits {
		byTrack[e.Track] = e
	}
	if e, ok := byTrack[v2.ID]; !ok || e.ClipID != c2.ID || e.NewPosition != 4 {
		t.Fatalf("unexpected v2 propagation: %+v", e)
	}
	if e, ok := byTrack[v3.ID]; !ok || e.ClipID != c3.ID || e.NewPosition != 4 {
		t.Fatalf("unexpected v3 propagation: %+v", e)
	}
}
