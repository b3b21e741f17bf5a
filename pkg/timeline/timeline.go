// Package timeline implements the Timeline aggregate (spec.md C6):
// ownership of tracks plus the multi-track relationship manager, and
// the cross-track operations (split, merge, move-between-tracks) that
// need both.
//
// Every mutating method here applies its full effect — primary edit
// plus any multi-track propagation — atomically: on any failure deep
// in propagation, every already-applied sub-edit is rolled back before
// the error is returned, so the timeline is never left half-mutated.
// Each method also returns the ordered list of elementary Changes it
// applied, which pkg/project records as one history.ClipChangeAction
// for undo/redo.
package timeline

import (
	"fmt"

	"edv/internal/ekind"
	"edv/internal/id"
	"edv/pkg/multitrack"
	"edv/pkg/timecode"
	"edv/pkg/track"
)

// Timeline is the aggregate of tracks and the multi-track manager.
type Timeline struct {
	order   []id.ID
	byID    map[id.ID]*track.Track
	manager *multitrack.Manager
}

// New returns an empty Timeline.
func New() *Timeline {
	return &Timeline{
		byID:    make(map[id.ID]*track.Track),
		manager: multitrack.NewManager(),
	}
}

// Sentinel errors (spec.md §7).
var (
	ErrTrackNotFound    = ekind.New(ekind.TrackNotFound, "track not found")
	ErrInvalidOperation = ekind.New(ekind.InvalidOperation, "invalid operation")
)

// Clips implements multitrack.TrackReader.
func (tl *Timeline) Clips(trackID id.ID) []track.Clip {
	t, ok := tl.byID[trackID]
	if !ok {
		return nil
	}
	return t.Clips()
}

// HasTrack implements multitrack.TrackReader.
func (tl *Timeline) HasTrack(trackID id.ID) bool {
	_, ok := tl.byID[trackID]
	return ok
}

// Track returns the track with the given id.
func (tl *Timeline) Track(trackID id.ID) (*track.Track, error) {
	t, ok := tl.byID[trackID]
	if !ok {
		return nil, fmt.Errorf("track %s: %w", trackID, ErrTrackNotFound)
	}
	return t, nil
}

// Tracks returns every track in timeline order.
func (tl *Timeline) Tracks() []*track.Track {
	out := make([]*track.Track, 0, len(tl.order))
	for _, trackID := range tl.order {
		out = append(out, tl.byID[trackID])
	}
	return out
}

// AddTrack appends a new empty track of the given kind and returns it.
func (tl *Timeline) AddTrack(kind track.Kind, name string) *track.Track {
	return tl.AddTrackWithID(id.New(), kind, name)
}

// AddTrackWithID is AddTrack with the id supplied by the caller, used
// by pkg/project so track id minting goes through the project's
// injected id.Source (spec.md §6).
func (tl *Timeline) AddTrackWithID(trackID id.ID, kind track.Kind, name string) *track.Track {
	t := track.NewTrackWithID(trackID, kind, name)
	tl.order = append(tl.order, t.ID)
	tl.byID[t.ID] = t
	return t
}

// RestoreTrack reinserts a previously removed track at the given index
// (clamped to the current length), used to undo RemoveTrack. It does
// not restore relationships incident to the track: spec.md's
// RemoveTrack action snapshots the track and its clips, not its edges.
func (tl *Timeline) RestoreTrack(t *track.Track, atIndex int) error {
	if _, exists := tl.byID[t.ID]; exists {
		return fmt.Errorf("restore track %s: %w", t.ID, ErrInvalidOperation)
	}
	if atIndex < 0 || atIndex > len(tl.order) {
		atIndex = len(tl.order)
	}
	tl.order = append(tl.order, id.Nil)
	copy(tl.order[atIndex+1:], tl.order[atIndex:])
	tl.order[atIndex] = t.ID
	tl.byID[t.ID] = t
	return nil
}

// RemoveTrack removes the track and every relationship incident to it,
// returning a snapshot (and its original index) for undo.
func (tl *Timeline) RemoveTrack(trackID id.ID) (*track.Track, int, error) {
	t, ok := tl.byID[trackID]
	if !ok {
		return nil, 0, fmt.Errorf("remove track %s: %w", trackID, ErrTrackNotFound)
	}
	index := -1
	for i, existing := range tl.order {
		if existing == trackID {
			index = i
			break
		}
	}
	tl.order = append(tl.order[:index], tl.order[index+1:]...)
	delete(tl.byID, trackID)
	tl.manager.RemoveTrack(trackID)
	return t, index, nil
}

// Relationship passthroughs (spec.md §4.5).

func (tl *Timeline) AddRelationship(source, target id.ID, label multitrack.Label) error {
	return tl.manager.AddRelationship(tl, source, target, label)
}

func (tl *Timeline) RemoveRelationship(source, target id.ID) {
	tl.manager.RemoveRelationship(source, target)
}

func (tl *Timeline) GetRelationship(source, target id.ID) (multitrack.Label, bool) {
	return tl.manager.GetRelationship(source, target)
}

func (tl *Timeline) GetDependentTracks(source id.ID) []id.ID {
	return tl.manager.GetDependentTracks(source)
}

func (tl *Timeline) GetDependencies(target id.ID) []id.ID {
	return tl.manager.GetDependencies(target)
}

// ChangeKind names the elementary structural operation a Change
// records, for pkg/history to build Edit Actions from.
type ChangeKind int

// Change kinds.
const (
	ChangeAddClip ChangeKind = iota
	ChangeRemoveClip
	ChangeMoveClip
)

// Change is one elementary structural edit applied to one track,
// either the primary edit requested by the caller or a secondary edit
// produced by multi-track propagation.
type Change struct {
	Kind        ChangeKind
	Track       id.ID
	Clip        track.Clip // ChangeAddClip: clip added. ChangeRemoveClip: clip removed.
	OldPosition timecode.TimePosition
	NewPosition timecode.TimePosition
}

// AddClip adds clip to trackID and mirrors the add onto any Locked
// dependents. On any failure (including a mirror failing) every
// already-applied edit is rolled back.
func (tl *Timeline) AddClip(trackID id.ID, clip track.Clip) ([]Change, error) {
	t, err := tl.Track(trackID)
	if err != nil {
		return nil, err
	}
	if err := t.AddClip(clip); err != nil {
		return nil, fmt.Errorf("timeline: add clip to track %s: %w", trackID, err)
	}
	applied := []Change{{Kind: ChangeAddClip, Track: trackID, Clip: clip}}

	propagated, err := tl.manager.Propagate(tl, multitrack.PrimaryEdit{Kind: multitrack.EditAddClip, Track: trackID, Clip: clip})
	if err != nil {
		tl.rollback(applied)
		return nil, fmt.Errorf("timeline: propagate add clip: %w", err)
	}
	for _, pe := range propagated {
		target, err := tl.Track(pe.Track)
		if err != nil {
			tl.rollback(applied)
			return nil, err
		}
		if err := target.AddClip(pe.Clip); err != nil {
			tl.rollback(applied)
			return nil, fmt.Errorf("timeline: mirrored add clip on track %s: %w", pe.Track, err)
		}
		applied = append(applied, Change{Kind: ChangeAddClip, Track: pe.Track, Clip: pe.Clip})
	}
	return applied, nil
}

// RemoveClip removes the clip with clipID from trackID and mirrors the
// removal onto any Locked dependents.
func (tl *Timeline) RemoveClip(trackID, clipID id.ID) ([]Change, error) {
	t, err := tl.Track(trackID)
	if err != nil {
		return nil, err
	}
	clip, err := t.GetClip(clipID)
	if err != nil {
		return nil, fmt.Errorf("timeline: remove clip from track %s: %w", trackID, err)
	}
	if err := t.RemoveClip(clipID); err != nil {
		return nil, fmt.Errorf("timeline: remove clip from track %s: %w", trackID, err)
	}
	applied := []Change{{Kind: ChangeRemoveClip, Track: trackID, Clip: clip}}

	propagated, err := tl.manager.Propagate(tl, multitrack.PrimaryEdit{Kind: multitrack.EditRemoveClip, Track: trackID, Clip: clip})
	if err != nil {
		tl.rollback(applied)
		return nil, fmt.Errorf("timeline: propagate remove clip: %w", err)
	}
	for _, pe := range propagated {
		target, err := tl.Track(pe.Track)
		if err != nil {
			tl.rollback(applied)
			return nil, err
		}
		if err := target.RemoveClip(pe.ClipID); err != nil {
			tl.rollback(applied)
			return nil, fmt.Errorf("timeline: mirrored remove clip on track %s: %w", pe.Track, err)
		}
		applied = append(applied, Change{Kind: ChangeRemoveClip, Track: pe.Track, Clip: pe.Clip})
	}
	return applied, nil
}

// MoveClip repositions clipID on trackID to newPosition, rejecting the
// move if it would overlap another clip or the track is locked, and
// propagates the position delta to Locked and TimingDependent
// dependents.
func (tl *Timeline) MoveClip(trackID, clipID id.ID, newPosition timecode.TimePosition) ([]Change, error) {
	t, err := tl.Track(trackID)
	if err != nil {
		return nil, err
	}
	if t.Locked {
		return nil, fmt.Errorf("timeline: move clip on track %s: %w", trackID, ErrInvalidOperation)
	}
	original, err := t.GetClip(clipID)
	if err != nil {
		return nil, fmt.Errorf("timeline: move clip on track %s: %w", trackID, err)
	}
	moved := original
	moved.Position = newPosition
	if t.OverlapsAny(moved, clipID) {
		return nil, fmt.Errorf("timeline: move clip on track %s: %w", trackID, &track.ClipOverlapError{Position: newPosition})
	}

	applyMove(t, clipID, newPosition)
	applied := []Change{{Kind: ChangeMoveClip, Track: trackID, Clip: moved, OldPosition: original.Position, NewPosition: newPosition}}

	propagated, err := tl.manager.PropagateMove(tl, multitrack.MoveClipEdit{
		Track:       trackID,
		ClipID:      clipID,
		OldPosition: original.Position.Seconds(),
		NewPosition: newPosition.Seconds(),
		Duration:    original.Duration.Seconds(),
	})
	if err != nil {
		tl.rollback(applied)
		return nil, fmt.Errorf("timeline: propagate move clip: %w", err)
	}
	for _, pe := range propagated {
		target, err := tl.Track(pe.Track)
		if err != nil {
			tl.rollback(applied)
			return nil, err
		}
		clip, err := target.GetClip(pe.ClipID)
		if err != nil {
			tl.rollback(applied)
			return nil, fmt.Errorf("timeline: mirrored move clip on track %s: %w", pe.Track, err)
		}
		newPos := timecode.FromSeconds(pe.NewPosition)
		shifted := clip
		shifted.Position = newPos
		if target.OverlapsAny(shifted, pe.ClipID) {
			tl.rollback(applied)
			return nil, fmt.Errorf("timeline: mirrored move clip on track %s: %w", pe.Track, &track.ClipOverlapError{Position: newPos})
		}
		applyMove(target, pe.ClipID, newPos)
		applied = append(applied, Change{Kind: ChangeMoveClip, Track: pe.Track, Clip: shifted, OldPosition: clip.Position, NewPosition: newPos})
	}
	return applied, nil
}

func applyMove(t *track.Track, clipID id.ID, newPosition timecode.TimePosition) {
	clip, err := t.GetClipMut(clipID)
	if err != nil {
		// unreachable: caller always verifies existence first.
		return
	}
	clip.Position = newPosition
	t.Reorder()
}

// rollback reverses a list of already-applied Changes in LIFO order.
// Used for in-flight failure recovery within a single high-level call.
func (tl *Timeline) rollback(applied []Change) {
	_ = tl.UndoClipChanges(applied)
}

// ReplayClipChanges re-applies a previously-computed list of Changes in
// forward order without recomputing multi-track propagation. Used by
// pkg/history to redo a transaction exactly as it was first applied.
func (tl *Timeline) ReplayClipChanges(changes []Change) error {
	for _, c := range changes {
		t, err := tl.Track(c.Track)
		if err != nil {
			return err
		}
		switch c.Kind {
		case ChangeAddClip:
			if err := t.AddClip(c.Clip); err != nil {
				return err
			}
		case ChangeRemoveClip:
			if err := t.RemoveClip(c.Clip.ID); err != nil {
				return err
			}
		case ChangeMoveClip:
			applyMove(t, c.Clip.ID, c.NewPosition)
		}
	}
	return nil
}

// UndoClipChanges reverses a list of Changes in LIFO order.
func (tl *Timeline) UndoClipChanges(changes []Change) error {
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		t, err := tl.Track(c.Track)
		if err != nil {
			continue
		}
		switch c.Kind {
		case ChangeAddClip:
			_ = t.RemoveClip(c.Clip.ID)
		case ChangeRemoveClip:
			_ = t.AddClip(c.Clip)
		case ChangeMoveClip:
			applyMove(t, c.Clip.ID, c.OldPosition)
		}
	}
	return nil
}

// SplitClip replaces clipID with two contiguous clips at atTime, which
// must fall strictly inside the clip's occupancy. Composed from
// RemoveClip + two AddClip calls, so multi-track propagation applies
// to each half exactly as it would to any other add/remove.
func (tl *Timeline) SplitClip(trackID, clipID id.ID, atTime timecode.TimePosition) ([]Change, track.Clip, track.Clip, error) {
	t, err := tl.Track(trackID)
	if err != nil {
		return nil, track.Clip{}, track.Clip{}, err
	}
	original, err := t.GetClip(clipID)
	if err != nil {
		return nil, track.Clip{}, track.Clip{}, err
	}
	if !atTime.After(original.Position) || !atTime.Before(original.End()) {
		return nil, track.Clip{}, track.Clip{}, fmt.Errorf("timeline: split clip %s at %s: not strictly inside clip: %w", clipID, atTime, ErrInvalidOperation)
	}

	offset := atTime.Sub(original.Position)
	leftSourceEnd := original.SourceStart.Add(offset)
	left, err := track.NewClip(original.AssetID, original.Position, original.SourceStart, leftSourceEnd)
	if err != nil {
		return nil, track.Clip{}, track.Clip{}, fmt.Errorf("timeline: split clip: %w", err)
	}
	right, err := track.NewClip(original.AssetID, atTime, leftSourceEnd, original.SourceEnd)
	if err != nil {
		return nil, track.Clip{}, track.Clip{}, fmt.Errorf("timeline: split clip: %w", err)
	}

	var applied []Change
	removed, err := tl.RemoveClip(trackID, clipID)
	if err != nil {
		return nil, track.Clip{}, track.Clip{}, err
	}
	applied = append(applied, removed...)

	addedLeft, err := tl.AddClip(trackID, left)
	if err != nil {
		tl.rollback(applied)
		return nil, track.Clip{}, track.Clip{}, err
	}
	applied = append(applied, addedLeft...)

	addedRight, err := tl.AddClip(trackID, right)
	if err != nil {
		tl.rollback(applied)
		return nil, track.Clip{}, track.Clip{}, err
	}
	applied = append(applied, addedRight...)

	return applied, left, right, nil
}

// MergeClips replaces two contiguous, same-asset clips on the same
// track with a single clip spanning both.
func (tl *Timeline) MergeClips(trackID, leftID, rightID id.ID) ([]Change, track.Clip, error) {
	t, err := tl.Track(trackID)
	if err != nil {
		return nil, track.Clip{}, err
	}
	left, err := t.GetClip(leftID)
	if err != nil {
		return nil, track.Clip{}, err
	}
	right, err := t.GetClip(rightID)
	if err != nil {
		return nil, track.Clip{}, err
	}
	if left.AssetID != right.AssetID {
		return nil, track.Clip{}, fmt.Errorf("timeline: merge clips: different assets: %w", ErrInvalidOperation)
	}
	if right.Position != left.End() {
		return nil, track.Clip{}, fmt.Errorf("timeline: merge clips: not contiguous on the timeline: %w", ErrInvalidOperation)
	}
	if right.SourceStart != left.SourceEnd {
		return nil, track.Clip{}, fmt.Errorf("timeline: merge clips: source ranges not contiguous: %w", ErrInvalidOperation)
	}

	merged, err := track.NewClip(left.AssetID, left.Position, left.SourceStart, right.SourceEnd)
	if err != nil {
		return nil, track.Clip{}, fmt.Errorf("timeline: merge clips: %w", err)
	}

	var applied []Change
	removedRight, err := tl.RemoveClip(trackID, rightID)
	if err != nil {
		return nil, track.Clip{}, err
	}
	applied = append(applied, removedRight...)

	removedLeft, err := tl.RemoveClip(trackID, leftID)
	if err != nil {
		tl.rollback(applied)
		return nil, track.Clip{}, err
	}
	applied = append(applied, removedLeft...)

	addedMerged, err := tl.AddClip(trackID, merged)
	if err != nil {
		tl.rollback(applied)
		return nil, track.Clip{}, err
	}
	applied = append(applied, addedMerged...)

	return applied, merged, nil
}

// MoveClipToTrack moves a clip from srcTrack to dstTrack at
// newPosition, failing if the tracks differ in kind, either is locked,
// or the destination position would overlap.
func (tl *Timeline) MoveClipToTrack(srcTrackID, clipID, dstTrackID id.ID, newPosition timecode.TimePosition) ([]Change, track.Clip, error) {
	src, err := tl.Track(srcTrackID)
	if err != nil {
		return nil, track.Clip{}, err
	}
	dst, err := tl.Track(dstTrackID)
	if err != nil {
		return nil, track.Clip{}, err
	}
	if src.Kind != dst.Kind {
		return nil, track.Clip{}, fmt.Errorf("timeline: move clip to track: kind mismatch: %w", ErrInvalidOperation)
	}
	if src.Locked || dst.Locked {
		return nil, track.Clip{}, fmt.Errorf("timeline: move clip to track %s: %w", dstTrackID, ErrInvalidOperation)
	}
	original, err := src.GetClip(clipID)
	if err != nil {
		return nil, track.Clip{}, err
	}

	var applied []Change
	removed, err := tl.RemoveClip(srcTrackID, clipID)
	if err != nil {
		return nil, track.Clip{}, err
	}
	applied = append(applied, removed...)

	moved, err := track.NewClip(original.AssetID, newPosition, original.SourceStart, original.SourceEnd)
	if err != nil {
		tl.rollback(applied)
		return nil, track.Clip{}, fmt.Errorf("timeline: move clip to track: %w", err)
	}
	added, err := tl.AddClip(dstTrackID, moved)
	if err != nil {
		tl.rollback(applied)
		return nil, track.Clip{}, err
	}
	applied = append(applied, added...)

	return applied, moved, nil
}

// Duration returns the maximum track duration, or zero.
func (tl *Timeline) Duration() timecode.Duration {
	var max timecode.Duration
	for _, t := range tl.byID {
		if d := t.Duration(); d.Compare(max) > 0 {
			max = d
		}
	}
	return max
}

// OrderedTrackIDs returns track ids in current timeline order, used by
// pkg/project for deterministic serialization.
func (tl *Timeline) OrderedTrackIDs() []id.ID {
	out := make([]id.ID, len(tl.order))
	copy(out, tl.order)
	return out
}
