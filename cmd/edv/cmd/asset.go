package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"edv/internal/probecache"
	"edv/pkg/asset"
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Manage a project's asset registry",
}

var assetAddCmd = &cobra.Command{
	Use:   "add <project-file> <source-path>",
	Short: "Register a media file as an asset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath, sourcePath := args[0], args[1]
		kind, _ := cmd.Flags().GetString("kind")

		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		assetID := p.AddAsset(sourcePath, asset.Metadata{Kind: parseAssetKind(kind)})
		if err := saveProject(p, projectPath); err != nil {
			return err
		}
		fmt.Println(assetID)
		return nil
	},
}

var assetRemoveCmd = &cobra.Command{
	Use:   "remove <project-file> <asset-id>",
	Short: "Remove an asset not referenced by any clip",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath, assetIDStr := args[0], args[1]
		assetID, err := parseID(assetIDStr)
		if err != nil {
			return err
		}
		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		if err := p.RemoveAsset(assetID); err != nil {
			return err
		}
		return saveProject(p, projectPath)
	},
}

var assetListCmd = &cobra.Command{
	Use:   "list <project-file>",
	Short: "List registered assets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject(args[0])
		if err != nil {
			return err
		}
		for _, a := range p.Assets.List() {
			fmt.Printf("%s\t%s\t%s\n", a.ID, a.Metadata.Kind, a.Path)
		}
		return nil
	},
}

var assetProbeCmd = &cobra.Command{
	Use:   "probe <project-file> <asset-id>",
	Short: "Probe an asset's source file and record its duration/dimensions",
	Long: `Probe shells out to ffprobe (through a persistent cache keyed on the
source file's path, size and modification time, so an unchanged asset
is never re-probed) and writes the result into the asset's metadata.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := args[0]
		assetID, err := parseID(args[1])
		if err != nil {
			return err
		}
		ffprobeBin, _ := cmd.Flags().GetString("ffprobe")

		p, err := openProject(projectPath)
		if err != nil {
			return err
		}
		a, err := p.Assets.Get(assetID)
		if err != nil {
			return err
		}

		cachePath := filepath.Join(filepath.Dir(projectPath), ".edv-probe-cache")
		cache, err := probecache.Open(cachePath)
		if err != nil {
			return err
		}
		defer cache.Close()

		enc := newExecEncoder("", ffprobeBin)
		info, err := cache.Probe(context.Background(), enc, a.Path)
		if err != nil {
			return err
		}

		duration := info.Duration
		a.Metadata.Duration = &duration
		if info.Width > 0 && info.Height > 0 {
			a.Metadata.Dimensions = &asset.Dimensions{Width: info.Width, Height: info.Height}
		}

		if err := saveProject(p, projectPath); err != nil {
			return err
		}
		fmt.Printf("asset %s: duration=%.3fs dimensions=%v\n", a.ID, duration.Seconds(), a.Metadata.Dimensions)
		return nil
	},
}

func init() {
	assetAddCmd.Flags().String("kind", "unknown", "asset kind: video, audio, image or subtitle")
	assetProbeCmd.Flags().String("ffprobe", "/usr/bin/ffprobe", "path to the ffprobe binary")
	assetCmd.AddCommand(assetAddCmd, assetRemoveCmd, assetListCmd, assetProbeCmd)
}
