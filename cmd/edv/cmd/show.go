package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <project-file>",
	Short: "Print a summary of a project's metadata, tracks and clips",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("project %s: %q (modified %s)\n", p.ID, p.Metadata.Name, p.Metadata.ModifiedAt)
		fmt.Printf("assets: %d\n", p.Assets.Len())
		for _, t := range p.Timeline.Tracks() {
			fmt.Printf("track %s [%s] %q (%d clips, %.3fs)\n", t.ID, t.Kind, t.Name, len(t.Clips()), t.Duration().Seconds())
			for _, c := range t.Clips() {
				fmt.Printf("  clip %s asset=%s pos=%.3fs source=[%.3fs,%.3fs)\n",
					c.ID, c.AssetID, c.Position.Seconds(), c.SourceStart.Seconds(), c.SourceEnd.Seconds())
			}
		}
		return nil
	},
}
