// Package multitrack implements the Multi-Track Manager (spec.md C5):
// typed directed relationships between tracks, cycle prevention, and
// change propagation.
//
// The manager never mutates a track itself (spec.md §9 Design Notes);
// it only computes an ordered list of secondary edits for the caller
// (pkg/timeline) to apply within the same transaction, so rollback on
// any downstream failure is uniform.
package multitrack

import (
	"fmt"

	"edv/internal/ekind"
	"edv/internal/id"
	"edv/pkg/track"
)

// Label names the semantics of a directed track relationship.
type Label int

// Relationship labels (spec.md §3).
const (
	Independent Label = iota
	Locked
	TimingDependent
	VisibilityDependent
)

func (l Label) String() string {
	switch l {
	case Locked:
		return "locked"
	case TimingDependent:
		return "timing_dependent"
	case VisibilityDependent:
		return "visibility_dependent"
	default:
		return "independent"
	}
}

// isEdge reports whether a label participates in the cycle graph
// and in propagation. Independent means "no edge" per spec.md §3.
func (l Label) isEdge() bool { return l != Independent }

// EditKind names the structural operation a PrimaryEdit or
// PropagatedEdit represents.
type EditKind int

// Edit kinds.
const (
	EditAddClip EditKind = iota
	EditRemoveClip
	EditMoveClip
)

// PrimaryEdit describes the edit that just happened (or is about to
// happen) on a source track, for which the caller wants computed
// secondary edits on dependent tracks.
type PrimaryEdit struct {
	Kind  EditKind
	Track id.ID
	Clip  track.Clip // AddClip: clip being added. RemoveClip: clip being removed.
}

// MoveClipEdit is the concrete shape used for EditMoveClip, since a
// move needs both the old and new position of one clip.
type MoveClipEdit struct {
	Track       id.ID
	ClipID      id.ID
	OldPosition float64 // seconds
	NewPosition float64 // seconds
	Duration    float64 // seconds, preserved across the move
}

// PropagatedEdit is one secondary structural change the timeline must
// apply, on a track other than the one the caller originally edited.
type PropagatedEdit struct {
	Kind        EditKind
	Track       id.ID
	Clip        track.Clip // for EditAddClip
	ClipID      id.ID      // for EditRemoveClip / EditMoveClip
	NewPosition float64    // seconds, for EditMoveClip
}

// TrackReader gives the manager read-only access to a track's current
// clips, used to locate the clip on a dependent track that mirrors a
// primary edit.
type TrackReader interface {
	Clips(trackID id.ID) []track.Clip
	HasTrack(trackID id.ID) bool
}

// Manager holds the relationship graph: forward edges source->target
// and a reverse index target->sources, kept consistent on every
// mutation (spec.md §4.5).
type Manager struct {
	forward map[id.ID]map[id.ID]Label
	reverse map[id.ID]map[id.ID]struct{}
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		forward: make(map[id.ID]map[id.ID]Label),
		reverse: make(map[id.ID]map[id.ID]struct{}),
	}
}

// Sentinel errors (spec.md §7).
var (
	ErrCircularDependency = ekind.New(ekind.CircularDependency, "circular dependency")
	ErrTrackNotFound      = ekind.New(ekind.TrackNotFound, "track not found")
	ErrInvalidOperation   = ekind.New(ekind.InvalidOperation, "invalid operation")
)

// AddRelationship validates both tracks exist (via reader), rejects
// self-loops, runs a cycle check on the would-be graph, and on accept
// records the edge in both indexes.
func (m *Manager) AddRelationship(reader TrackReader, source, target id.ID, label Label) error {
	if !reader.HasTrack(source) {
		return fmt.Errorf("add relationship: source %s: %w", source, ErrTrackNotFound)
	}
	if !reader.HasTrack(target) {
		return fmt.Errorf("add relationship: target %s: %w", target, ErrTrackNotFound)
	}
	if source == target {
		return fmt.Errorf("add relationship %s -> %s: %w", source, target, ErrInvalidOperation)
	}

	if label.isEdge() {
		if m.wouldCreateCycle(source, target) {
			return fmt.Errorf("add relationship %s -> %s: %w", source, target, ErrCircularDependency)
		}
	}

	if _, ok := m.forward[source]; !ok {
		m.forward[source] = make(map[id.ID]Label)
	}
	m.forward[source][target] = label

	if _, ok := m.reverse[target]; !ok {
		m.reverse[target] = make(map[id.ID]struct{})
	}
	m.reverse[target][source] = struct{}{}
	return nil
}

// wouldCreateCycle runs a DFS from target attempting to reach source:
// if it can, adding source->target would close a cycle.
func (m *Manager) wouldCreateCycle(source, target id.ID) bool {
	visited := make(map[id.ID]struct{})
	var visit func(id.ID) bool
	visit = func(current id.ID) bool {
		if current == source {
			return true
		}
		if _, seen := visited[current]; seen {
			return false
		}
		visited[current] = struct{}{}
		for next, label := range m.forward[current] {
			if !label.isEdge() {
				continue
			}
			if visit(next) {
				return true
			}
		}
		return false
	}
	return visit(target)
}

// RemoveRelationship deletes the edge source->target from both
// indexes, if present.
func (m *Manager) RemoveRelationship(source, target id.ID) {
	if targets, ok := m.forward[source]; ok {
		delete(targets, target)
		if len(targets) == 0 {
			delete(m.forward, source)
		}
	}
	if sources, ok := m.reverse[target]; ok {
		delete(sources, source)
		if len(sources) == 0 {
			delete(m.reverse, target)
		}
	}
}

// RemoveTrack removes every edge with trackID on either side.
func (m *Manager) RemoveTrack(trackID id.ID) {
	for target := range m.forward[trackID] {
		m.RemoveRelationship(trackID, target)
	}
	for source := range m.reverse[trackID] {
		m.RemoveRelationship(source, trackID)
	}
	delete(m.forward, trackID)
	delete(m.reverse, trackID)
}

// GetRelationship returns the label of source->target and whether it exists.
func (m *Manager) GetRelationship(source, target id.ID) (Label, bool) {
	targets, ok := m.forward[source]
	if !ok {
		return Independent, false
	}
	label, ok := targets[target]
	return label, ok
}

// GetDependentTracks returns the ids of tracks with an edge from source.
func (m *Manager) GetDependentTracks(source id.ID) []id.ID {
	var out []id.ID
	for target := range m.forward[source] {
		out = append(out, target)
	}
	return out
}

// GetDependencies returns the ids of tracks with an edge into target.
func (m *Manager) GetDependencies(target id.ID) []id.ID {
	var out []id.ID
	for source := range m.reverse[target] {
		out = append(out, source)
	}
	return out
}

// ErrMirrorClipNotFound is the error returned when a Locked mirror operation
// cannot find the clip it expected on the target track; the timeline
// treats this as cause to roll back the whole transaction.
var ErrMirrorClipNotFound = ekind.New(ekind.ClipNotFound, "locked mirror: clip not found on target track")

// Propagate computes the ordered list of secondary edits that result
// from a single primary AddClip/RemoveClip edit on edit.Track,
// following dependents transitively in topological (BFS) order.
func (m *Manager) Propagate(reader TrackReader, edit PrimaryEdit) ([]PropagatedEdit, error) {
	var out []PropagatedEdit
	type work struct {
		track id.ID
		edit  PrimaryEdit
	}
	queue := []work{{track: edit.Track, edit: edit}}
	visited := make(map[id.ID]struct{})

	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		if _, seen := visited[w.track]; seen {
			continue
		}
		visited[w.track] = struct{}{}

		for target, label := range m.forward[w.track] {
			switch label {
			case Locked:
				pe, err := lockedMirror(reader, w.edit, target)
				if err != nil {
					return nil, err
				}
				out = append(out, pe)
				queue = append(queue, work{track: target, edit: asPrimary(pe)})

			case TimingDependent:
				if w.edit.Kind != EditMoveClip {
					continue
				}
				// handled via PropagateMove below; structural edits don't
				// propagate across TimingDependent edges.

			case VisibilityDependent, Independent:
				// No structural propagation; VisibilityDependent is
				// consulted directly by the planner during rendering.
			}
		}
	}
	return out, nil
}

// PropagateMove computes the ordered list of secondary edits caused by
// a single MoveClip on moveEdit.Track, following Locked mirrors and
// TimingDependent position shifts transitively.
func (m *Manager) PropagateMove(reader TrackReader, moveEdit MoveClipEdit) ([]PropagatedEdit, error) {
	var out []PropagatedEdit
	type work struct {
		move MoveClipEdit
	}
	queue := []work{{move: moveEdit}}
	hops := 0

	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		hops++
		if hops > 10000 {
			// Graph acyclicity is an invariant; this bound only guards
			// against a future regression reintroducing a cycle.
			break
		}

		delta := w.move.NewPosition - w.move.OldPosition

		for target, label := range m.forward[w.move.Track] {
			switch label {
			case Locked:
				targetClip, err := findClipAtPosition(reader, target, w.move.OldPosition)
				if err != nil {
					return nil, err
				}
				newPos := targetClip.Position.Seconds() + delta
				pe := PropagatedEdit{Kind: EditMoveClip, Track: target, ClipID: targetClip.ID, NewPosition: clampNonNegative(newPos)}
				out = append(out, pe)
				queue = append(queue, work{move: MoveClipEdit{
					Track:       target,
					ClipID:      targetClip.ID,
					OldPosition: targetClip.Position.Seconds(),
					NewPosition: pe.NewPosition,
					Duration:    targetClip.Duration.Seconds(),
				}})

			case TimingDependent:
				affectedStart := minFloat(w.move.OldPosition, w.move.NewPosition)
				affectedEnd := maxFloat(w.move.OldPosition+w.move.Duration, w.move.NewPosition+w.move.Duration)
				for _, clip := range reader.Clips(target) {
					clipStart := clip.Position.Seconds()
					clipEnd := clip.End().Seconds()
					if clipStart < affectedEnd && affectedStart < clipEnd {
						newPos := clampNonNegative(clipStart + delta)
						pe := PropagatedEdit{Kind: EditMoveClip, Track: target, ClipID: clip.ID, NewPosition: newPos}
						out = append(out, pe)
						queue = append(queue, work{move: MoveClipEdit{
							Track:       target,
							ClipID:      clip.ID,
							OldPosition: clipStart,
							NewPosition: newPos,
							Duration:    clip.Duration.Seconds(),
						}})
					}
				}

			case VisibilityDependent, Independent:
			}
		}
	}
	return out, nil
}

// lockedMirror computes the secondary edit on target that mirrors a
// Locked source edit. AddClip clones the clip onto target at the same
// position. RemoveClip must locate the clip on target that occupies
// the same position the removed source clip did; if none exists the
// mirror cannot be performed and the caller rolls back the whole
// transaction.
func lockedMirror(reader TrackReader, edit PrimaryEdit, target id.ID) (PropagatedEdit, error) {
	switch edit.Kind {
	case EditAddClip:
		clone := edit.Clip
		clone.ID = id.New()
		return PropagatedEdit{Kind: EditAddClip, Track: target, Clip: clone}, nil
	case EditRemoveClip:
		targetClip, err := findClipAtPosition(reader, target, edit.Clip.Position.Seconds())
		if err != nil {
			return PropagatedEdit{}, err
		}
		return PropagatedEdit{Kind: EditRemoveClip, Track: target, Clip: targetClip, ClipID: targetClip.ID}, nil
	default:
		return PropagatedEdit{}, fmt.Errorf("locked mirror: unsupported edit kind")
	}
}

// asPrimary turns a PropagatedEdit back into a PrimaryEdit so it can
// seed the next hop of transitive propagation for Locked chains.
func asPrimary(pe PropagatedEdit) PrimaryEdit {
	return PrimaryEdit{Kind: pe.Kind, Track: pe.Track, Clip: pe.Clip}
}

func findClipAtPosition(reader TrackReader, trackID id.ID, position float64) (track.Clip, error) {
	for _, clip := range reader.Clips(trackID) {
		if clip.Position.Seconds() == position {
			return clip, nil
		}
	}
	return track.Clip{}, fmt.Errorf("find mirrored clip on track %s at %v: %w", trackID, position, ErrMirrorClipNotFound)
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
