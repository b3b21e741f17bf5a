// Package project implements the Project aggregate and document format
// (spec.md C8): metadata, the asset registry, the timeline, and the
// edit history, wired together so every mutation either records a
// reversible action or is explicitly non-undoable.
package project

import (
	"fmt"
	"time"

	yaml "gopkg.in/yaml.v2"

	"edv/internal/ekind"
	"edv/internal/id"
	"edv/pkg/asset"
	"edv/pkg/encoder"
	"edv/pkg/history"
	"edv/pkg/multitrack"
	"edv/pkg/timecode"
	"edv/pkg/timeline"
	"edv/pkg/track"
)

// Metadata is the project's descriptive record (spec.md §3).
type Metadata struct {
	Name        string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	Description string
	Tags        []string
}

// Project aggregates the timeline, asset registry, and edit history
// behind one mutation surface (spec.md §3 Project).
type Project struct {
	ID       id.ID
	Metadata Metadata
	Timeline *timeline.Timeline
	Assets   *asset.Registry
	History  *history.History

	ids   id.Source
	clock encoder.Clock

	// extra holds top-level document keys this build doesn't recognize,
	// carried so a document written by a newer same-schema build
	// round-trips without losing them.
	extra yaml.MapSlice
}

// DefaultHistoryCapacity bounds the undo stack when callers don't
// specify one; 0 (unbounded) is used only when explicitly requested.
const DefaultHistoryCapacity = 200

// New constructs an empty project. A nil ids or clock falls back to
// the production id.System / encoder.SystemClock, but tests should
// pass their own to pin generation and timestamps (spec.md §6).
func New(name string, ids id.Source, clock encoder.Clock) *Project {
	return NewWithCapacity(name, ids, clock, DefaultHistoryCapacity)
}

// NewWithCapacity is New with an explicit history capacity (0 = unbounded).
func NewWithCapacity(name string, ids id.Source, clock encoder.Clock, capacity int) *Project {
	if ids == nil {
		ids = id.System
	}
	if clock == nil {
		clock = encoder.SystemClock{}
	}
	now := clock.Now()
	return &Project{
		ID: ids.New(),
		Metadata: Metadata{
			Name:       name,
			CreatedAt:  now,
			ModifiedAt: now,
		},
		Timeline: timeline.New(),
		Assets:   asset.NewRegistry(),
		History:  history.New(capacity),
		ids:      ids,
		clock:    clock,
	}
}

func (p *Project) touch() {
	p.Metadata.ModifiedAt = p.clock.Now()
}

// rawTarget adapts Project to history.Target using the underlying
// timeline/registry mutators directly, bypassing the recording public
// API below. It exists so Undo/Redo/RollbackTransaction never
// re-record the very actions they are replaying or reversing.
type rawTarget struct{ p *Project }

func (r rawTarget) ReplayClipChanges(c []timeline.Change) error {
	return r.p.Timeline.ReplayClipChanges(c)
}
func (r rawTarget) UndoClipChanges(c []timeline.Change) error { return r.p.Timeline.UndoClipChanges(c) }
func (r rawTarget) RestoreTrack(t *track.Track, index int) error {
	return r.p.Timeline.RestoreTrack(t, index)
}
func (r rawTarget) RemoveTrackByID(trackID id.ID) (*track.Track, int, error) {
	return r.p.Timeline.RemoveTrack(trackID)
}
func (r rawTarget) AddRelationship(source, target id.ID, label multitrack.Label) error {
	return r.p.Timeline.AddRelationship(source, target, label)
}
func (r rawTarget) RemoveRelationship(source, target id.ID) {
	r.p.Timeline.RemoveRelationship(source, target)
}
func (r rawTarget) RestoreAsset(a asset.Asset) error { return r.p.Assets.Restore(a) }
func (r rawTarget) RemoveAssetByID(assetID id.ID) (asset.Asset, error) {
	return r.p.Assets.Remove(assetID)
}

// Undo reverts the most recent undo entry.
func (p *Project) Undo() error {
	if err := p.History.Undo(rawTarget{p}); err != nil {
		return err
	}
	p.touch()
	return nil
}

// Redo re-applies the most recently undone entry.
func (p *Project) Redo() error {
	if err := p.History.Redo(rawTarget{p}); err != nil {
		return err
	}
	p.touch()
	return nil
}

// BeginTransaction/CommitTransaction/RollbackTransaction let a caller
// group several of the recording operations below into one undo entry.
func (p *Project) BeginTransaction(description string) error {
	return p.History.BeginTransaction(description)
}

func (p *Project) CommitTransaction() error {
	return p.History.CommitTransaction()
}

func (p *Project) RollbackTransaction() error {
	return p.History.RollbackTransaction(rawTarget{p})
}

// ErrAssetInUse is returned by RemoveAsset when a clip still references it.
var ErrAssetInUse = ekind.New(ekind.AssetInUse, "asset is referenced by a clip")

// AddAsset registers path+metadata under a fresh id and records an
// undoable AddAsset action.
func (p *Project) AddAsset(path string, metadata asset.Metadata) id.ID {
	assetID := p.ids.New()
	p.Assets.AddWithID(assetID, path, metadata)
	p.History.Record(&history.AssetAction{Asset: asset.Asset{ID: assetID, Path: path, Metadata: metadata}, Added: true})
	p.touch()
	return assetID
}

// RemoveAsset fails with ErrAssetInUse if any clip on any track
// references it; otherwise removes it and records the undoable action.
func (p *Project) RemoveAsset(assetID id.ID) error {
	if p.assetInUse(assetID) {
		return fmt.Errorf("remove asset %s: %w", assetID, ErrAssetInUse)
	}
	removed, err := p.Assets.Remove(assetID)
	if err != nil {
		return err
	}
	p.History.Record(&history.AssetAction{Asset: removed, Added: false})
	p.touch()
	return nil
}

func (p *Project) assetInUse(assetID id.ID) bool {
	for _, t := range p.Timeline.Tracks() {
		for _, c := range t.Clips() {
			if c.AssetID == assetID {
				return true
			}
		}
	}
	return false
}

// AddTrack appends a new empty track and records the undoable action.
func (p *Project) AddTrack(kind track.Kind, name string) *track.Track {
	trackID := p.ids.New()
	t := p.Timeline.AddTrackWithID(trackID, kind, name)
	p.History.Record(&history.AddTrackAction{Track: t, Index: len(p.Timeline.OrderedTrackIDs()) - 1})
	p.touch()
	return t
}

// RemoveTrack removes a track (and its incident relationships) and
// records the undoable action.
func (p *Project) RemoveTrack(trackID id.ID) error {
	removed, index, err := p.Timeline.RemoveTrack(trackID)
	if err != nil {
		return err
	}
	p.History.Record(&history.RemoveTrackAction{Track: removed, Index: index})
	p.touch()
	return nil
}

// AddClip constructs a clip referencing assetID and adds it to
// trackID, mirroring onto any Locked dependents, and records the
// undoable action.
func (p *Project) AddClip(trackID, assetID id.ID, position, sourceStart, sourceEnd timecode.TimePosition) (track.Clip, error) {
	if !p.Assets.Has(assetID) {
		return track.Clip{}, fmt.Errorf("add clip: %w", asset.ErrAssetNotFound)
	}
	clip, err := track.NewClipWithID(p.ids.New(), assetID, position, sourceStart, sourceEnd)
	if err != nil {
		return track.Clip{}, err
	}
	changes, err := p.Timeline.AddClip(trackID, clip)
	if err != nil {
		return track.Clip{}, err
	}
	p.History.Record(&history.ClipChangeAction{Changes: changes, Desc: "add clip"})
	p.touch()
	return clip, nil
}

// RemoveClip removes a clip and records the undoable action.
func (p *Project) RemoveClip(trackID, clipID id.ID) error {
	changes, err := p.Timeline.RemoveClip(trackID, clipID)
	if err != nil {
		return err
	}
	p.History.Record(&history.ClipChangeAction{Changes: changes, Desc: "remove clip"})
	p.touch()
	return nil
}

// MoveClip repositions a clip and records the undoable action.
func (p *Project) MoveClip(trackID, clipID id.ID, newPosition timecode.TimePosition) error {
	changes, err := p.Timeline.MoveClip(trackID, clipID, newPosition)
	if err != nil {
		return err
	}
	p.History.Record(&history.ClipChangeAction{Changes: changes, Desc: "move clip"})
	p.touch()
	return nil
}

// SplitClip splits a clip at atTime and records the undoable action.
func (p *Project) SplitClip(trackID, clipID id.ID, atTime timecode.TimePosition) (track.Clip, track.Clip, error) {
	changes, left, right, err := p.Timeline.SplitClip(trackID, clipID, atTime)
	if err != nil {
		return track.Clip{}, track.Clip{}, err
	}
	p.History.Record(&history.ClipChangeAction{Changes: changes, Desc: "split clip"})
	p.touch()
	return left, right, nil
}

// MergeClips merges two contiguous clips and records the undoable action.
func (p *Project) MergeClips(trackID, leftID, rightID id.ID) (track.Clip, error) {
	changes, merged, err := p.Timeline.MergeClips(trackID, leftID, rightID)
	if err != nil {
		return track.Clip{}, err
	}
	p.History.Record(&history.ClipChangeAction{Changes: changes, Desc: "merge clips"})
	p.touch()
	return merged, nil
}

// MoveClipToTrack moves a clip to another track and records the undoable action.
func (p *Project) MoveClipToTrack(srcTrackID, clipID, dstTrackID id.ID, newPosition timecode.TimePosition) (track.Clip, error) {
	changes, moved, err := p.Timeline.MoveClipToTrack(srcTrackID, clipID, dstTrackID, newPosition)
	if err != nil {
		return track.Clip{}, err
	}
	p.History.Record(&history.ClipChangeAction{Changes: changes, Desc: "move clip to track"})
	p.touch()
	return moved, nil
}

// AddRelationship adds a typed track relationship and records the undoable action.
func (p *Project) AddRelationship(source, target id.ID, label multitrack.Label) error {
	if err := p.Timeline.AddRelationship(source, target, label); err != nil {
		return err
	}
	p.History.Record(&history.RelationshipAction{Source: source, Target: target, Label: label, Added: true})
	p.touch()
	return nil
}

// RemoveRelationship removes a track relationship, if present, and
// records the undoable action.
func (p *Project) RemoveRelationship(source, target id.ID) {
	label, ok := p.Timeline.GetRelationship(source, target)
	if !ok {
		return
	}
	p.Timeline.RemoveRelationship(source, target)
	p.History.Record(&history.RelationshipAction{Source: source, Target: target, Label: label, Added: false})
	p.touch()
}
