package cmd

import (
	"fmt"

	"edv/internal/id"
	"edv/pkg/asset"
	"edv/pkg/encoder"
	"edv/pkg/multitrack"
	"edv/pkg/project"
	"edv/pkg/timecode"
	"edv/pkg/track"
)

// openProject loads the document at path using the production id
// source and system clock; every subcommand that mutates a project
// opens it, applies one change, and saves it back, so the on-disk
// document is always the source of truth between CLI invocations.
func openProject(path string) (*project.Project, error) {
	p, warnings, err := project.Load(path, id.System, encoder.SystemClock{})
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return p, nil
}

func saveProject(p *project.Project, path string) error {
	return p.Save(path)
}

func parseID(s string) (id.ID, error) {
	return id.Parse(s)
}

func parseTrackKind(s string) (track.Kind, error) {
	switch s {
	case "video":
		return track.KindVideo, nil
	case "audio":
		return track.KindAudio, nil
	case "subtitle":
		return track.KindSubtitle, nil
	default:
		return "", fmt.Errorf("unknown track kind %q (want video, audio or subtitle)", s)
	}
}

func parseAssetKind(s string) asset.Kind {
	switch s {
	case "video":
		return asset.KindVideo
	case "audio":
		return asset.KindAudio
	case "image":
		return asset.KindImage
	case "subtitle":
		return asset.KindSubtitle
	default:
		return asset.KindUnknown
	}
}

func parseLabel(s string) (multitrack.Label, error) {
	switch s {
	case "independent":
		return multitrack.Independent, nil
	case "locked":
		return multitrack.Locked, nil
	case "timing_dependent":
		return multitrack.TimingDependent, nil
	case "visibility_dependent":
		return multitrack.VisibilityDependent, nil
	default:
		return multitrack.Independent, fmt.Errorf("unknown relationship label %q", s)
	}
}

func parseTime(s string) (timecode.TimePosition, error) {
	return timecode.Parse(s, 0)
}
