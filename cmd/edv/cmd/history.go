package cmd

import "github.com/spf13/cobra"

var undoCmd = &cobra.Command{
	Use:   "undo <project-file>",
	Short: "Undo the most recent edit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(args[0])
		if err != nil {
			return err
		}
		if err := p.Undo(); err != nil {
			return err
		}
		return saveProject(p, args[0])
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo <project-file>",
	Short: "Redo the most recently undone edit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(args[0])
		if err != nil {
			return err
		}
		if err := p.Redo(); err != nil {
			return err
		}
		return saveProject(p, args[0])
	},
}
