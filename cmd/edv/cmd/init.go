package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"edv/internal/id"
	"edv/pkg/encoder"
	"edv/pkg/project"
)

var initCmd = &cobra.Command{
	Use:   "init <project-file> <name>",
	Short: "Create a new, empty project document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, name := args[0], args[1]
		p := project.New(name, id.System, encoder.SystemClock{})
		if err := saveProject(p, path); err != nil {
			return err
		}
		fmt.Printf("created project %s (%s)\n", p.ID, path)
		return nil
	},
}
