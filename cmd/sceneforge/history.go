package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jtallis/sceneforge/internal/bundle"
	"github.com/jtallis/sceneforge/internal/cli"
	"github.com/jtallis/sceneforge/internal/history"
)

var bundleOutFlag string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished generations",
	Long: `History lists the project's finished generations, most recent first.
Use "history bundle <id>" to download a generation's outputs as a ZIP.`,
	Run: runHistoryList,
}

var historyBundleCmd = &cobra.Command{
	Use:   "bundle <history-id>",
	Short: "Download a generation's outputs as a ZIP archive",
	Args:  cobra.ExactArgs(1),
	Run:   runHistoryBundle,
}

func init() {
	historyBundleCmd.Flags().StringVarP(&bundleOutFlag, "out", "o", ".", "Directory to write the archive into")
	historyCmd.AddCommand(historyBundleCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) {
	st := openStore()
	ctx := context.Background()

	items, err := history.NewLog(st, projectFlag).Items(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load history")
	}
	if len(items) == 0 {
		fmt.Println("No generations yet.")
		return
	}

	for _, item := range items {
		when := time.Unix(item.CreatedAt, 0).Format("2006-01-02 15:04")
		fmt.Printf("%s  %s  [%s/%s]  %d credits, %d outputs\n",
			item.ID, when, item.Status, item.QualityTier, item.TotalCredits, len(item.Outputs))
		fmt.Printf("    %s\n", item.SceneDescription)
	}
}

func runHistoryBundle(cmd *cobra.Command, args []string) {
	st := openStore()
	ctx := context.Background()

	item, err := history.NewLog(st, projectFlag).Item(ctx, args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load history")
	}
	if item == nil {
		log.Fatal().Str("historyId", args[0]).Msg("History item not found")
	}

	outDir := cli.ValidateAndResolveDirectory(bundleOutFlag)
	outPath := filepath.Join(outDir, bundle.Name(item))

	f, err := os.Create(outPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", outPath).Msg("Failed to create archive")
	}
	defer f.Close()

	entries, err := bundle.Write(ctx, f, item, bundle.HTTPFetcher(nil))
	if err != nil {
		os.Remove(outPath)
		log.Fatal().Err(err).Msg("Failed to write archive")
	}

	fmt.Printf("Wrote %s (%d outputs)\n", outPath, entries)
}
