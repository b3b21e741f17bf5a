// Package track implements single-track editing primitives (spec.md
// C4): clip placement, overlap detection, ordering and duration
// computation.
package track

import (
	"fmt"
	"sort"

	"edv/internal/ekind"
	"edv/internal/id"
	"edv/pkg/timecode"
)

// Kind is the media kind a track carries.
type Kind string

// Track kinds (spec.md §3).
const (
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindSubtitle Kind = "subtitle"
)

// Clip is a placed slice of an asset on a track.
//
// Invariant: SourceEnd > SourceStart; Duration == SourceEnd - SourceStart
// at construction and after any mutation; Position >= 0 (guaranteed by
// timecode.TimePosition itself).
type Clip struct {
	ID          id.ID
	AssetID     id.ID
	Position    timecode.TimePosition
	Duration    timecode.Duration
	SourceStart timecode.TimePosition
	SourceEnd   timecode.TimePosition
}

// ErrInvalidTimeRange is returned when SourceEnd <= SourceStart.
var ErrInvalidTimeRange = ekind.New(ekind.InvalidTimeRange, "source end must be after source start")

// NewClip constructs a Clip with a fresh id, computing Duration from
// the source range. Fails if sourceEnd <= sourceStart.
func NewClip(assetID id.ID, position timecode.TimePosition, sourceStart, sourceEnd timecode.TimePosition) (Clip, error) {
	return NewClipWithID(id.New(), assetID, position, sourceStart, sourceEnd)
}

// NewClipWithID is NewClip with the id supplied by the caller, used by
// pkg/project so clip id minting goes through the project's injected
// id.Source (spec.md §6).
func NewClipWithID(clipID, assetID id.ID, position timecode.TimePosition, sourceStart, sourceEnd timecode.TimePosition) (Clip, error) {
	if !sourceEnd.After(sourceStart) {
		return Clip{}, ErrInvalidTimeRange
	}
	return Clip{
		ID:          clipID,
		AssetID:     assetID,
		Position:    position,
		Duration:    sourceEnd.Sub(sourceStart),
		SourceStart: sourceStart,
		SourceEnd:   sourceEnd,
	}, nil
}

// End returns the exclusive end of the clip's timeline occupancy:
// Position + Duration.
func (c Clip) End() timecode.TimePosition {
	return c.Position.Add(c.Duration)
}

// Overlaps reports whether two clips' occupancy intervals
// [Position, Position+Duration) intersect, per the strict half-open
// test in spec.md §4.4.
func (c Clip) Overlaps(other Clip) bool {
	return c.Position.Before(other.End()) && other.Position.Before(c.End())
}

// Track is an ordered, non-overlapping sequence of clips of a single
// kind.
type Track struct {
	ID     id.ID
	Kind   Kind
	Name   string
	Muted  bool
	Locked bool

	clips []Clip
}

// NewTrack constructs an empty track of the given kind.
func NewTrack(kind Kind, name string) *Track {
	return NewTrackWithID(id.New(), kind, name)
}

// NewTrackWithID is NewTrack with the id supplied by the caller, used
// by pkg/project so track id minting goes through the project's
// injected id.Source (spec.md §6).
func NewTrackWithID(trackID id.ID, kind Kind, name string) *Track {
	return &Track{ID: trackID, Kind: kind, Name: name}
}

// Sentinel errors for track operations (spec.md §7).
var (
	ErrInvalidOperation = ekind.New(ekind.InvalidOperation, "invalid operation")
	ErrClipNotFound     = ekind.New(ekind.ClipNotFound, "clip not found")
)

// errClipOverlapKind classifies every *ClipOverlapError under
// ekind.ClipOverlap without pinning its message, which carries the
// colliding position instead.
var errClipOverlapKind = ekind.New(ekind.ClipOverlap, "clip overlap")

// ClipOverlapError reports the position at which a new clip collided
// with an existing one.
type ClipOverlapError struct {
	Position timecode.TimePosition
}

func (e *ClipOverlapError) Error() string {
	return fmt.Sprintf("clip overlap at position %s", e.Position)
}

// Unwrap lets errors.Is(err, ekind errors) and ekind.Of classify
// ClipOverlapError the same way plain sentinels are classified.
func (e *ClipOverlapError) Unwrap() error {
	return errClipOverlapKind
}

// AddClip inserts clip in sorted position order. Fails with
// ErrInvalidOperation if the track is locked, or a *ClipOverlapError if
// the clip's occupancy overlaps an existing clip.
func (t *Track) AddClip(clip Clip) error {
	if t.Locked {
		return fmt.Errorf("add clip to track %s: %w", t.ID, ErrInvalidOperation)
	}
	for _, existing := range t.clips {
		if clip.Overlaps(existing) {
			return &ClipOverlapError{Position: clip.Position}
		}
	}
	t.clips = append(t.clips, clip)
	t.reorder()
	return nil
}

// RemoveClip removes the clip with the given id.
func (t *Track) RemoveClip(clipID id.ID) error {
	for i, c := range t.clips {
		if c.ID == clipID {
			t.clips = append(t.clips[:i], t.clips[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("remove clip %s: %w", clipID, ErrClipNotFound)
}

// GetClip returns a copy of the clip with the given id.
func (t *Track) GetClip(clipID id.ID) (Clip, error) {
	for _, c := range t.clips {
		if c.ID == clipID {
			return c, nil
		}
	}
	return Clip{}, fmt.Errorf("get clip %s: %w", clipID, ErrClipNotFound)
}

// GetClipMut exposes a pointer to the stored clip so callers may
// mutate timing-sensitive fields directly. Per spec.md §4.4 the caller
// is responsible for calling Reorder before relying on sorted order or
// overlap invariants again.
func (t *Track) GetClipMut(clipID id.ID) (*Clip, error) {
	for i := range t.clips {
		if t.clips[i].ID == clipID {
			return &t.clips[i], nil
		}
	}
	return nil, fmt.Errorf("get clip %s: %w", clipID, ErrClipNotFound)
}

// Reorder re-sorts clips by position. Exposed as Track.reorder()'s
// public counterpart for callers that mutated clips via GetClipMut.
func (t *Track) Reorder() {
	t.reorder()
}

func (t *Track) reorder() {
	sort.SliceStable(t.clips, func(i, j int) bool {
		return t.clips[i].Position.Before(t.clips[j].Position)
	})
}

// Clips returns a copy of the clips slice in position order.
func (t *Track) Clips() []Clip {
	out := make([]Clip, len(t.clips))
	copy(out, t.clips)
	return out
}

// SetClips replaces the track's clip list wholesale and re-sorts it.
// It performs no locked or overlap check.
func (t *Track) SetClips(clips []Clip) {
	t.clips = append([]Clip(nil), clips...)
	t.reorder()
}

// Duration returns max(position+duration) over all clips, or zero.
func (t *Track) Duration() timecode.Duration {
	var max timecode.Duration
	for _, c := range t.clips {
		end := c.End()
		d := end.Sub(timecode.TimePosition{})
		if d.Compare(max) > 0 {
			max = d
		}
	}
	return max
}

// OverlapsAny reports whether clip would overlap any clip currently on
// the track, optionally excluding one clip id (used by MoveClip, which
// checks the new position against every clip but itself).
func (t *Track) OverlapsAny(clip Clip, excluding id.ID) bool {
	for _, existing := range t.clips {
		if existing.ID == excluding {
			continue
		}
		if clip.Overlaps(existing) {
			return true
		}
	}
	return false
}
