// Package asset implements the Asset Registry (spec.md C3): an
// in-project registry mapping asset ids to file paths and probed
// metadata. Registry itself only tracks structure; add_asset/remove_asset's
// undo-recording and in-use checks live in pkg/project, which owns the
// clip-to-asset cross-reference.
package asset

import (
	"fmt"

	"edv/internal/ekind"
	"edv/internal/id"
	"edv/pkg/timecode"
)

// Kind loosely categorizes an asset's primary media kind; purely
// informational, never interpreted by the core beyond display.
type Kind string

// Recognized asset kinds.
const (
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindImage    Kind = "image"
	KindSubtitle Kind = "subtitle"
	KindUnknown  Kind = "unknown"
)

// Dimensions is a width/height pair, present when known.
type Dimensions struct {
	Width  int
	Height int
}

// Metadata is opaque to the core; only Duration participates in
// planner computations (spec.md C3).
type Metadata struct {
	Duration   *timecode.Duration `yaml:"duration,omitempty"`
	Dimensions *Dimensions        `yaml:"dimensions,omitempty"`
	Kind       Kind               `yaml:"kind,omitempty"`
	Extra      map[string]string  `yaml:"extra,omitempty"`
}

// Asset is a referenced external media file plus its probed metadata.
type Asset struct {
	ID       id.ID
	Path     string
	Metadata Metadata

	// Missing marks an asset whose source file was absent when the
	// project document was loaded. Its clips still occupy the timeline;
	// the planner substitutes blank (black/silent) spans for them
	// instead of failing the plan. Not persisted: every load re-checks
	// the file.
	Missing bool
}

// ErrAssetNotFound is returned by lookups for an unknown id.
var ErrAssetNotFound = ekind.New(ekind.AssetNotFound, "asset not found")

// ErrDuplicateAsset is returned when adding an asset whose id already exists
// (only reachable via document reconstruction; Add always mints a fresh id).
var ErrDuplicateAsset = ekind.New(ekind.DuplicateAsset, "duplicate asset")

// Registry holds the project's assets, preserving insertion order for
// deterministic serialization (spec.md C8: "Asset list (ordered)").
type Registry struct {
	order []id.ID
	byID  map[id.ID]*Asset
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[id.ID]*Asset)}
}

// Add assigns a fresh id, records path and metadata, and returns the id.
func (r *Registry) Add(path string, metadata Metadata) id.ID {
	return r.AddWithID(id.New(), path, metadata)
}

// AddWithID is Add with the id supplied by the caller, used by
// pkg/project so asset id minting goes through the project's injected
// id.Source (spec.md §6).
func (r *Registry) AddWithID(assetID id.ID, path string, metadata Metadata) id.ID {
	r.byID[assetID] = &Asset{ID: assetID, Path: path, Metadata: metadata}
	r.order = append(r.order, assetID)
	return assetID
}

// Restore re-inserts an asset under a specific id, used when undoing a
// RemoveAsset action or reconstructing a document. Fails with
// ErrDuplicateAsset if the id is already present.
func (r *Registry) Restore(a Asset) error {
	if _, exists := r.byID[a.ID]; exists {
		return fmt.Errorf("restore asset %s: %w", a.ID, ErrDuplicateAsset)
	}
	cp := a
	r.byID[a.ID] = &cp
	r.order = append(r.order, a.ID)
	return nil
}

// Get returns the asset with the given id.
func (r *Registry) Get(assetID id.ID) (*Asset, error) {
	a, ok := r.byID[assetID]
	if !ok {
		return nil, fmt.Errorf("get asset %s: %w", assetID, ErrAssetNotFound)
	}
	return a, nil
}

// Has reports whether assetID is present.
func (r *Registry) Has(assetID id.ID) bool {
	_, ok := r.byID[assetID]
	return ok
}

// Remove deletes the asset with the given id and returns a copy of it,
// for the caller (pkg/project) to store as undo state. The in-use
// check against referencing clips is the caller's responsibility,
// since the registry has no visibility into the timeline.
func (r *Registry) Remove(assetID id.ID) (Asset, error) {
	a, ok := r.byID[assetID]
	if !ok {
		return Asset{}, fmt.Errorf("remove asset %s: %w", assetID, ErrAssetNotFound)
	}
	removed := *a
	delete(r.byID, assetID)
	for i, existing := range r.order {
		if existing == assetID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return removed, nil
}

// List returns all assets in insertion order.
func (r *Registry) List() []Asset {
	out := make([]Asset, 0, len(r.order))
	for _, assetID := range r.order {
		out = append(out, *r.byID[assetID])
	}
	return out
}

// Len reports the number of assets.
func (r *Registry) Len() int { return len(r.order) }
