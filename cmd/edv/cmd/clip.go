package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clipCmd = &cobra.Command{
	Use:   "clip",
	Short: "Manage clips on a project's tracks",
}

var clipAddCmd = &cobra.Command{
	Use:   "add <project-file> <track-id> <asset-id> <position> <source-start> <source-end>",
	Short: "Add a clip referencing an asset to a track",
	Args:  cobra.ExactArgs(6),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := args[0]
		trackID, err := parseID(args[1])
		if err != nil {
			return err
		}
		assetID, err := parseID(args[2])
		if err != nil {
			return err
		}
		position, err := parseTime(args[3])
		if err != nil {
			return err
		}
		sourceStart, err := parseTime(args[4])
		if err != nil {
			return err
		}
		sourceEnd, err := parseTime(args[5])
		if err != nil {
			return err
		}

		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		clip, err := p.AddClip(trackID, assetID, position, sourceStart, sourceEnd)
		if err != nil {
			return err
		}
		if err := saveProject(p, projectPath); err != nil {
			return err
		}
		fmt.Println(clip.ID)
		return nil
	},
}

var clipRemoveCmd = &cobra.Command{
	Use:   "remove <project-file> <track-id> <clip-id>",
	Short: "Remove a clip",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := args[0]
		trackID, err := parseID(args[1])
		if err != nil {
			return err
		}
		clipID, err := parseID(args[2])
		if err != nil {
			return err
		}
		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		if err := p.RemoveClip(trackID, clipID); err != nil {
			return err
		}
		return saveProject(p, projectPath)
	},
}

var clipMoveCmd = &cobra.Command{
	Use:   "move <project-file> <track-id> <clip-id> <new-position>",
	Short: "Reposition a clip",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := args[0]
		trackID, err := parseID(args[1])
		if err != nil {
			return err
		}
		clipID, err := parseID(args[2])
		if err != nil {
			return err
		}
		newPosition, err := parseTime(args[3])
		if err != nil {
			return err
		}
		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		if err := p.MoveClip(trackID, clipID, newPosition); err != nil {
			return err
		}
		return saveProject(p, projectPath)
	},
}

var clipSplitCmd = &cobra.Command{
	Use:   "split <project-file> <track-id> <clip-id> <at-time>",
	Short: "Split a clip into two at a point in time",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := args[0]
		trackID, err := parseID(args[1])
		if err != nil {
			return err
		}
		clipID, err := parseID(args[2])
		if err != nil {
			return err
		}
		atTime, err := parseTime(args[3])
		if err != nil {
			return err
		}
		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		left, right, err := p.SplitClip(trackID, clipID, atTime)
		if err != nil {
			return err
		}
		if err := saveProject(p, projectPath); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", left.ID, right.ID)
		return nil
	},
}

var clipMergeCmd = &cobra.Command{
	Use:   "merge <project-file> <track-id> <left-clip-id> <right-clip-id>",
	Short: "Merge two contiguous clips",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := args[0]
		trackID, err := parseID(args[1])
		if err != nil {
			return err
		}
		leftID, err := parseID(args[2])
		if err != nil {
			return err
		}
		rightID, err := parseID(args[3])
		if err != nil {
			return err
		}
		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		merged, err := p.MergeClips(trackID, leftID, rightID)
		if err != nil {
			return err
		}
		if err := saveProject(p, projectPath); err != nil {
			return err
		}
		fmt.Println(merged.ID)
		return nil
	},
}

var clipMoveToTrackCmd = &cobra.Command{
	Use:   "move-to-track <project-file> <src-track-id> <clip-id> <dst-track-id> <new-position>",
	Short: "Move a clip to another track",
	Args:  cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := args[0]
		srcTrackID, err := parseID(args[1])
		if err != nil {
			return err
		}
		clipID, err := parseID(args[2])
		if err != nil {
			return err
		}
		dstTrackID, err := parseID(args[3])
		if err != nil {
			return err
		}
		newPosition, err := parseTime(args[4])
		if err != nil {
			return err
		}
		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		moved, err := p.MoveClipToTrack(srcTrackID, clipID, dstTrackID, newPosition)
		if err != nil {
			return err
		}
		if err := saveProject(p, projectPath); err != nil {
			return err
		}
		fmt.Println(moved.ID)
		return nil
	},
}

func init() {
	clipCmd.AddCommand(clipAddCmd, clipRemoveCmd, clipMoveCmd, clipSplitCmd, clipMergeCmd, clipMoveToTrackCmd)
}
