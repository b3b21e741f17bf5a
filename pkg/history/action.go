package history

import (
	"edv/internal/ekind"
	"edv/internal/id"
	"edv/pkg/asset"
	"edv/pkg/multitrack"
	"edv/pkg/timeline"
	"edv/pkg/track"
)

// Target is the surface pkg/history needs from whatever aggregate it
// records actions against; pkg/project's Project implements it.
type Target interface {
	ReplayClipChanges(changes []timeline.Change) error
	UndoClipChanges(changes []timeline.Change) error
	RestoreTrack(t *track.Track, index int) error
	RemoveTrackByID(trackID id.ID) (*track.Track, int, error)
	AddRelationship(source, target id.ID, label multitrack.Label) error
	RemoveRelationship(source, target id.ID)
	RestoreAsset(a asset.Asset) error
	RemoveAssetByID(assetID id.ID) (asset.Asset, error)
}

// ErrUndoNotSupported is reserved for an Action whose Undo cannot
// faithfully invert (spec.md §4.7); no action in this package needs
// it today, since every one stores a full snapshot of what it
// changes, but the hook exists for any future action that doesn't.
var ErrUndoNotSupported = ekind.New(ekind.UndoNotSupported, "undo not supported")

// Action is one reversible edit (spec.md §3 Edit Action).
type Action interface {
	Apply(Target) error
	Undo(Target) error
	Description() string
}

// ClipChangeAction wraps the exact list of timeline.Change produced by
// a single Timeline operation (AddClip, RemoveClip, MoveClip,
// SplitClip, MergeClips, or MoveClipToTrack, all of which already
// compute the full set of primary-plus-propagated edits). Replaying
// the stored changes verbatim on redo, rather than recomputing
// propagation, makes redo deterministic even if the dependency graph
// changed shape since the original edit.
type ClipChangeAction struct {
	Changes []timeline.Change
	Desc    string
}

func (a *ClipChangeAction) Apply(t Target) error { return t.ReplayClipChanges(a.Changes) }
func (a *ClipChangeAction) Undo(t Target) error  { return t.UndoClipChanges(a.Changes) }
func (a *ClipChangeAction) Description() string  { return a.Desc }

// AddTrackAction records that a track was added. Undo removes it again
// by id; redo (Apply) re-inserts the original snapshot at its original
// index.
type AddTrackAction struct {
	Track *track.Track
	Index int
}

func (a *AddTrackAction) Apply(t Target) error {
	return t.RestoreTrack(a.Track, a.Index)
}

func (a *AddTrackAction) Undo(t Target) error {
	_, _, err := t.RemoveTrackByID(a.Track.ID)
	return err
}

func (a *AddTrackAction) Description() string { return "add track " + a.Track.Name }

// RemoveTrackAction records that a track (with its clips) was removed.
// Undo restores the snapshot at its original index; redo (Apply)
// removes it again.
type RemoveTrackAction struct {
	Track *track.Track
	Index int
}

func (a *RemoveTrackAction) Apply(t Target) error {
	_, _, err := t.RemoveTrackByID(a.Track.ID)
	return err
}

func (a *RemoveTrackAction) Undo(t Target) error {
	return t.RestoreTrack(a.Track, a.Index)
}

func (a *RemoveTrackAction) Description() string { return "remove track " + a.Track.Name }

// RelationshipAction records either an AddRelationship or a
// RemoveRelationship edit; Added distinguishes which.
type RelationshipAction struct {
	Source id.ID
	Target id.ID
	Label  multitrack.Label
	Added  bool
}

func (a *RelationshipAction) Apply(t Target) error {
	if a.Added {
		return t.AddRelationship(a.Source, a.Target, a.Label)
	}
	t.RemoveRelationship(a.Source, a.Target)
	return nil
}

func (a *RelationshipAction) Undo(t Target) error {
	if a.Added {
		t.RemoveRelationship(a.Source, a.Target)
		return nil
	}
	return t.AddRelationship(a.Source, a.Target, a.Label)
}

func (a *RelationshipAction) Description() string {
	if a.Added {
		return "add relationship " + a.Label.String()
	}
	return "remove relationship"
}

// AssetAction records either an AddAsset or a RemoveAsset edit; Added
// distinguishes which.
type AssetAction struct {
	Asset asset.Asset
	Added bool
}

func (a *AssetAction) Apply(t Target) error {
	if a.Added {
		return t.RestoreAsset(a.Asset)
	}
	_, err := t.RemoveAssetByID(a.Asset.ID)
	return err
}

func (a *AssetAction) Undo(t Target) error {
	if a.Added {
		_, err := t.RemoveAssetByID(a.Asset.ID)
		return err
	}
	return t.RestoreAsset(a.Asset)
}

func (a *AssetAction) Description() string {
	if a.Added {
		return "add asset " + a.Asset.Path
	}
	return "remove asset " + a.Asset.Path
}
