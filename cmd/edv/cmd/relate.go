package cmd

import (
	"github.com/spf13/cobra"
)

var relateCmd = &cobra.Command{
	Use:   "relate",
	Short: "Manage typed relationships between tracks",
}

var relateAddCmd = &cobra.Command{
	Use:   "add <project-file> <source-track-id> <target-track-id> <label>",
	Short: "Add a relationship (independent, locked, timing_dependent, visibility_dependent)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := args[0]
		sourceID, err := parseID(args[1])
		if err != nil {
			return err
		}
		targetID, err := parseID(args[2])
		if err != nil {
			return err
		}
		label, err := parseLabel(args[3])
		if err != nil {
			return err
		}
		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		if err := p.AddRelationship(sourceID, targetID, label); err != nil {
			return err
		}
		return saveProject(p, projectPath)
	},
}

var relateRemoveCmd = &cobra.Command{
	Use:   "remove <project-file> <source-track-id> <target-track-id>",
	Short: "Remove a relationship, if present",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := args[0]
		sourceID, err := parseID(args[1])
		if err != nil {
			return err
		}
		targetID, err := parseID(args[2])
		if err != nil {
			return err
		}
		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		p.RemoveRelationship(sourceID, targetID)
		return saveProject(p, projectPath)
	},
}

func init() {
	relateCmd.AddCommand(relateAddCmd, relateRemoveCmd)
}
