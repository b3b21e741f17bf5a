package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Manage a project's tracks",
}

var trackAddCmd = &cobra.Command{
	Use:   "add <project-file> <kind> <name>",
	Short: "Add an empty track",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath, kindStr, name := args[0], args[1], args[2]
		kind, err := parseTrackKind(kindStr)
		if err != nil {
			return err
		}
		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		t := p.AddTrack(kind, name)
		if err := saveProject(p, projectPath); err != nil {
			return err
		}
		fmt.Println(t.ID)
		return nil
	},
}

var trackRemoveCmd = &cobra.Command{
	Use:   "remove <project-file> <track-id>",
	Short: "Remove a track and its incident relationships",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := args[0]
		trackID, err := parseID(args[1])
		if err != nil {
			return err
		}
		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		if err := p.RemoveTrack(trackID); err != nil {
			return err
		}
		return saveProject(p, projectPath)
	},
}

var trackListCmd = &cobra.Command{
	Use:   "list <project-file>",
	Short: "List tracks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(args[0])
		if err != nil {
			return err
		}
		for _, t := range p.Timeline.Tracks() {
			fmt.Printf("%s\t%s\t%s\tmuted=%v locked=%v\n", t.ID, t.Kind, t.Name, t.Muted, t.Locked)
		}
		return nil
	},
}

func init() {
	trackCmd.AddCommand(trackAddCmd, trackRemoveCmd, trackListCmd)
}
