package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"edv/internal/elog"
)

var logsCmd = &cobra.Command{
	Use:   "logs <config-dir>",
	Short: "Query the render log database of a configured installation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("level")
		src, _ := cmd.Flags().GetString("src")
		trackID, _ := cmd.Flags().GetString("track")
		limit, _ := cmd.Flags().GetInt("limit")

		q := elog.Query{Limit: limit}
		if level != "" {
			lvl, err := parseLevel(level)
			if err != nil {
				return err
			}
			q.Levels = []elog.Level{lvl}
		}
		if src != "" {
			q.Srcs = []string{src}
		}
		if trackID != "" {
			q.Tracks = []string{trackID}
		}

		db := elog.NewDB(filepath.Join(args[0], "logs.db"))
		if err := db.Init(); err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.Query(q)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s [%s] %s: %s\n", e.Time.Format("2006-01-02 15:04:05"), e.Level, e.Src, e.Msg)
		}
		return nil
	},
}

func parseLevel(s string) (elog.Level, error) {
	switch s {
	case "error":
		return elog.LevelError, nil
	case "warn":
		return elog.LevelWarn, nil
	case "info":
		return elog.LevelInfo, nil
	case "debug":
		return elog.LevelDebug, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want error, warn, info or debug)", s)
	}
}

func init() {
	logsCmd.Flags().String("level", "", "only entries at this level: error, warn, info or debug")
	logsCmd.Flags().String("src", "", "only entries from this component")
	logsCmd.Flags().String("track", "", "only entries concerning this track id")
	logsCmd.Flags().Int("limit", 50, "maximum number of entries to print")
}
