package project

import (
	"fmt"
	"os"
	"path/filepath"
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

// FormatTag identifies the on-disk document as an edv project rather
// than an unrelated YAML file (spec.md C8).
const FormatTag = "edv-project"

// CurrentSchemaVersion is the only version this build reads and
// writes; there is no migration path yet (spec.md §9 Open Question:
// left for a future schema-migration module).
const CurrentSchemaVersion = 1

var (
	// ErrIncompatibleFormat is returned when the document's format tag
	// doesn't match FormatTag.
	ErrIncompatibleFormat = ekind.New(ekind.IncompatibleFormat, "not an edv project document")
	// ErrUnsupportedVersion is returned when the document's schema
	// version isn't CurrentSchemaVersion.
	ErrUnsupportedVersion = ekind.New(ekind.UnsupportedVersion, "unsupported project schema version")
	// ErrMalformedDocument is returned when the document is internally
	// inconsistent (bad clip range, overlapping clips, duplicate ids).
	ErrMalformedDocument = ekind.New(ekind.MalformedDocument, "malformed project document")
)

type document struct {
	Format   string            `yaml:"format"`
	Version  int               `yaml:"version"`
	Project  documentProject   `yaml:"project"`
	Assets   []documentAsset   `yaml:"assets"`
	Timeline documentTimelineV `yaml:"timeline"`
}

type documentProject struct {
	ID       id.ID            `yaml:"id"`
	Metadata documentMetadata `yaml:"metadata"`
}

type documentMetadata struct {
	Name        string    `yaml:"name"`
	CreatedAt   time.Time `yaml:"created_at"`
	ModifiedAt  time.Time `yaml:"modified_at"`
	Description string    `yaml:"description,omitempty"`
	Tags        []string  `yaml:"tags,omitempty"`
}

type documentAsset struct {
	ID       id.ID          `yaml:"id"`
	Path     string         `yaml:"path"`
	Metadata asset.Metadata `yaml:"metadata"`
}

type documentTimelineV struct {
	Tracks        []documentTrack        `yaml:"tracks"`
	Relationships []documentRelationship `yaml:"relationships"`
}

type documentTrack struct {
	ID     id.ID          `yaml:"id"`
	Kind   track.Kind     `yaml:"kind"`
	Name   string         `yaml:"name"`
	Muted  bool           `yaml:"muted,omitempty"`
	Locked bool           `yaml:"locked,omitempty"`
	Clips  []documentClip `yaml:"clips"`
}

type documentClip struct {
	ID          id.ID   `yaml:"id"`
	AssetID     id.ID   `yaml:"asset_id"`
	Position    float64 `yaml:"position"`
	SourceStart float64 `yaml:"source_start"`
	SourceEnd   float64 `yaml:"source_end"`
}

type documentRelationship struct {
	Source id.ID  `yaml:"source"`
	Target id.ID  `yaml:"target"`
	Label  string `yaml:"label"`
}

func labelToString(l multitrack.Label) string { return l.String() }

func labelFromString(s string) (multitrack.Label, error) {
	switch s {
	case "locked":
		return multitrack.Locked, nil
	case "timing_dependent":
		return multitrack.TimingDependent, nil
	case "visibility_dependent":
		return multitrack.VisibilityDependent, nil
	case "independent":
		return multitrack.Independent, nil
	default:
		return multitrack.Independent, fmt.Errorf("unknown relationship label %q: %w", s, ErrMalformedDocument)
	}
}

// knownDocumentKeys are the top-level keys this schema version reads;
// anything else found in a document is preserved verbatim (spec.md §6:
// unknown keys survive a round-trip when the schema version matches).
var knownDocumentKeys = map[string]bool{
	"format":   true,
	"version":  true,
	"project":  true,
	"assets":   true,
	"timeline": true,
}

// Serialize renders p as an edv-project YAML document.
func Serialize(p *Project) ([]byte, error) {
	doc := document{
		Format:  FormatTag,
		Version: CurrentSchemaVersion,
		Project: documentProject{
			ID: p.ID,
			Metadata: documentMetadata{
				Name:        p.Metadata.Name,
				CreatedAt:   p.Metadata.CreatedAt,
				ModifiedAt:  p.Metadata.ModifiedAt,
				Description: p.Metadata.Description,
				Tags:        p.Metadata.Tags,
			},
		},
	}

	for _, a := range p.Assets.List() {
		doc.Assets = append(doc.Assets, documentAsset{ID: a.ID, Path: a.Path, Metadata: a.Metadata})
	}

	for _, t := range p.Timeline.Tracks() {
		dt := documentTrack{ID: t.ID, Kind: t.Kind, Name: t.Name, Muted: t.Muted, Locked: t.Locked}
		for _, c := range t.Clips() {
			dt.Clips = append(dt.Clips, documentClip{
				ID:          c.ID,
				AssetID:     c.AssetID,
				Position:    c.Position.Seconds(),
				SourceStart: c.SourceStart.Seconds(),
				SourceEnd:   c.SourceEnd.Seconds(),
			})
		}
		doc.Timeline.Tracks = append(doc.Timeline.Tracks, dt)
	}

	seen := map[[2]id.ID]bool{}
	for _, t := range p.Timeline.Tracks() {
		for _, dep := range p.Timeline.GetDependentTracks(t.ID) {
			key := [2]id.ID{t.ID, dep}
			if seen[key] {
				continue
			}
			seen[key] = true
			label, ok := p.Timeline.GetRelationship(t.ID, dep)
			if !ok {
				continue
			}
			doc.Timeline.Relationships = append(doc.Timeline.Relationships, documentRelationship{
				Source: t.ID,
				Target: dep,
				Label:  labelToString(label),
			})
		}
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if len(p.extra) == 0 {
		return data, nil
	}

	// Re-attach any unrecognized top-level keys the document carried
	// when it was loaded.
	var merged yaml.MapSlice
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	merged = append(merged, p.extra...)
	return yaml.Marshal(merged)
}

// Deserialize parses an edv-project YAML document into a Project.
// Relationship edges that would be invalid against the reconstructed
// tracks (unknown endpoint, cycle) are skipped with a warning rather
// than failing the whole load, since the timeline and asset structure
// they were attached to is still fully usable without them.
func Deserialize(data []byte, ids id.Source, clock encoder.Clock) (*Project, []string, error) {
	if ids == nil {
		ids = id.System
	}
	if clock == nil {
		clock = encoder.SystemClock{}
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse project document: %w", err)
	}
	if doc.Format != FormatTag {
		return nil, nil, ErrIncompatibleFormat
	}
	if doc.Version != CurrentSchemaVersion {
		return nil, nil, ErrUnsupportedVersion
	}

	p := &Project{
		ID: doc.Project.ID,
		Metadata: Metadata{
			Name:        doc.Project.Metadata.Name,
			CreatedAt:   doc.Project.Metadata.CreatedAt,
			ModifiedAt:  doc.Project.Metadata.ModifiedAt,
			Description: doc.Project.Metadata.Description,
			Tags:        doc.Project.Metadata.Tags,
		},
		Timeline: timeline.New(),
		Assets:   asset.NewRegistry(),
		History:  history.New(DefaultHistoryCapacity),
		ids:      ids,
		clock:    clock,
	}

	var warnings []string

	for _, a := range doc.Assets {
		if err := p.Assets.Restore(asset.Asset{ID: a.ID, Path: a.Path, Metadata: a.Metadata}); err != nil {
			return nil, nil, fmt.Errorf("project document: asset %s: %w", a.ID, ErrMalformedDocument)
		}
	}

	// Assets whose source file is gone don't fail the load; they are
	// flagged so the planner renders their clips as blank spans, and
	// the caller is warned (spec.md §4.9 failure semantics).
	for _, a := range doc.Assets {
		if _, err := os.Stat(a.Path); err != nil {
			if stored, getErr := p.Assets.Get(a.ID); getErr == nil {
				stored.Missing = true
			}
			warnings = append(warnings, fmt.Sprintf("asset %s: source file %s is missing; its clips will render as blank", a.ID, a.Path))
		}
	}

	for i, dt := range doc.Timeline.Tracks {
		t := track.NewTrackWithID(dt.ID, dt.Kind, dt.Name)
		t.Muted = dt.Muted
		t.Locked = dt.Locked
		for _, dc := range dt.Clips {
			if !p.Assets.Has(dc.AssetID) {
				warnings = append(warnings, fmt.Sprintf("skipped clip %s on track %s: unknown asset %s", dc.ID, dt.ID, dc.AssetID))
				continue
			}
			clip, err := track.NewClipWithID(dc.ID, dc.AssetID,
				timecode.FromSeconds(dc.Position), timecode.FromSeconds(dc.SourceStart), timecode.FromSeconds(dc.SourceEnd))
			if err != nil {
				return nil, nil, fmt.Errorf("project document: track %s clip %s: %w", dt.ID, dc.ID, ErrMalformedDocument)
			}
			if err := t.AddClip(clip); err != nil {
				return nil, nil, fmt.Errorf("project document: track %s clip %s: %w", dt.ID, dc.ID, ErrMalformedDocument)
			}
		}
		if err := p.Timeline.RestoreTrack(t, i); err != nil {
			return nil, nil, fmt.Errorf("project document: track %s: %w", dt.ID, ErrMalformedDocument)
		}
	}

	var raw yaml.MapSlice
	if err := yaml.Unmarshal(data, &raw); err == nil {
		for _, item := range raw {
			key, ok := item.Key.(string)
			if !ok || knownDocumentKeys[key] {
				continue
			}
			p.extra = append(p.extra, item)
		}
	}

	for _, r := range doc.Timeline.Relationships {
		label, err := labelFromString(r.Label)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped relationship %s->%s: %v", r.Source, r.Target, err))
			continue
		}
		if err := p.Timeline.AddRelationship(r.Source, r.Target, label); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped relationship %s->%s: %v", r.Source, r.Target, err))
		}
	}

	return p, warnings, nil
}

// Save atomically writes p to path: serialize, write to a sibling
// temp file, fsync, then rename over the destination, so a crash
// mid-write never leaves a truncated project file.
func (p *Project) Save(path string) error {
	p.touch()
	data, err := Serialize(p)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".edv-project-*.tmp")
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save project: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save project: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// Load reads and deserializes a project document from path.
func Load(path string, ids id.Source, clock encoder.Clock) (*Project, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load project: %w", err)
	}
	return Deserialize(data, ids, clock)
}
