package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jtallis/sceneforge/internal/analyze"
	"github.com/jtallis/sceneforge/internal/cli"
	"github.com/jtallis/sceneforge/internal/pricing"
	"github.com/jtallis/sceneforge/internal/resolve"
	"github.com/jtallis/sceneforge/internal/scene"
)

var analyzeModelFlag string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [description]",
	Short: "Break a scene description into shots",
	Long: `Analyze sends the scene description to Gemini and prints the resulting
shot breakdown: shot types, characters, locations, pronouns needing
resolution, and the static credit estimate with a suggested quality tier.

With no argument the description is read interactively from stdin.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeModelFlag, "model", "m", analyze.ModelName(), "Gemini model to use")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	analysis := analyzeScene(args)
	printAnalysis(analysis)
}

// analyzeScene resolves the scene description (argument or prompt) and runs
// the Gemini-backed breakdown. Shared by the analyze and generate commands.
func analyzeScene(args []string) *scene.Analysis {
	description := ""
	if len(args) > 0 {
		description = strings.TrimSpace(args[0])
	}
	if description == "" {
		description = cli.PromptForScene()
	}
	if description == "" {
		log.Fatal().Msg("A scene description is required")
	}

	ctx, client := cli.InitGeminiClient()

	analyzer := analyze.New(client, analyzeModelFlag)
	analysis, err := analyzer.Analyze(ctx, description)
	if err != nil {
		log.Fatal().Err(err).Msg("Scene analysis failed")
	}
	return analysis
}

func printAnalysis(analysis *scene.Analysis) {
	fmt.Printf("\nScene: %s\n\n", analysis.SceneDescription)

	for i := range analysis.Shots {
		shot := &analysis.Shots[i]
		fmt.Printf("Shot %d [%s] — %d credits\n", shot.Slot, shot.Type, shot.Credits)
		if shot.DialogueText != "" {
			fmt.Printf("  Dialogue: %q\n", shot.DialogueText)
		}
		if shot.Description != "" {
			fmt.Printf("  %s\n", shot.Description)
		}
		if len(shot.Characters) > 0 {
			fmt.Printf("  Characters: %s\n", strings.Join(characterNames(analysis, shot.Characters), ", "))
		}
		if tokens := resolve.PronounTokens(shot); len(tokens) > 0 {
			fmt.Printf("  Pronouns to resolve: %s\n", strings.Join(tokens, ", "))
		}
		if shot.RequiresLocation {
			name := shot.LocationID
			if loc := analysis.LocationByID(shot.LocationID); loc != nil {
				name = loc.Name
			}
			fmt.Printf("  Location: %s\n", name)
		}
		if shot.HasVFX {
			fmt.Println("  VFX required")
		}
		fmt.Println()
	}

	tier := pricing.SuggestTier(analysis, pricing.DefaultThresholds)
	totals := pricing.StaticTotal(analysis, resolve.NewState(), tier)
	fmt.Printf("%d shots, estimated %d credits (%s tier suggested)\n",
		totals.TotalShots, totals.TotalCredits, tier)
}

func characterNames(analysis *scene.Analysis, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if ch := analysis.CharacterByID(id); ch != nil {
			names = append(names, ch.Name)
		} else {
			names = append(names, id)
		}
	}
	return names
}
