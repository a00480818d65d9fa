package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jtallis/sceneforge/internal/cli"
	"github.com/jtallis/sceneforge/internal/pricing"
	"github.com/jtallis/sceneforge/internal/resolve"
	"github.com/jtallis/sceneforge/internal/runner"
	"github.com/jtallis/sceneforge/internal/scene"
	"github.com/jtallis/sceneforge/internal/uploads"
	"github.com/jtallis/sceneforge/internal/workflow"
)

var (
	tierFlag        string
	aspectRatioFlag string
	durationFlag    int
	videoModelFlag  string
	refFlags        []string
	yesFlag         bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [description]",
	Short: "Run the full scene-to-video wizard",
	Long: `Generate runs the complete wizard: scene analysis, per-shot configuration
(reference images, pronoun resolution, location, video model), a credit
estimate, and the generation workflow itself, polled to completion.

If a previous generation for the project is still in flight, generate
resumes tracking it instead of starting a new one.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&tierFlag, "tier", "t", "", "Quality tier: professional or premium (default: suggested)")
	generateCmd.Flags().StringVar(&aspectRatioFlag, "aspect-ratio", "16:9", "Output aspect ratio")
	generateCmd.Flags().IntVar(&durationFlag, "duration", 0, "Per-shot duration override in seconds (0 = runner default)")
	generateCmd.Flags().StringVar(&videoModelFlag, "video-model", "cinema-v2", "Video model for action/establishing shots")
	generateCmd.Flags().StringArrayVar(&refFlags, "ref", nil, "Manual character reference image URL (repeatable)")
	generateCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Skip the submission confirmation prompt")
}

func runGenerate(cmd *cobra.Command, args []string) {
	st := openStore()
	client := runnerClient()

	updates := make(chan *runner.Execution, 64)
	orch := workflow.New(client, st, projectFlag,
		workflow.WithUpdateHandler(func(e *runner.Execution) {
			select {
			case updates <- e:
			default:
			}
		}))
	defer orch.Stop()

	ctx := context.Background()

	// An in-flight execution from a previous session takes priority over a
	// fresh submission.
	if exec, err := orch.Recover(ctx); err != nil {
		log.Warn().Err(err).Msg("Recovery check failed, starting fresh")
	} else if exec != nil {
		fmt.Printf("Resuming execution %s (%s)\n", exec.ID, exec.Status)
		waitForCompletion(orch, updates)
		return
	}

	analysis := analyzeScene(args)
	printAnalysis(analysis)

	state := configureShots(analysis)

	tier := scene.QualityTier(tierFlag)
	if tier == "" {
		tier = pricing.SuggestTier(analysis, pricing.DefaultThresholds)
	}

	printEstimate(ctx, client, analysis, state, tier)

	if !yesFlag && !cli.PromptYesNo("Submit for generation?") {
		fmt.Println("Aborted.")
		return
	}

	execID, err := orch.Submit(ctx, &workflow.SubmitRequest{
		Analysis:            analysis,
		State:               state,
		QualityTier:         tier,
		AspectRatio:         aspectRatioFlag,
		Duration:            durationFlag,
		ManualReferenceURLs: resolveReferenceURLs(ctx, refFlags),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Submission failed")
	}

	fmt.Printf("Submitted execution %s\n", execID)
	waitForCompletion(orch, updates)
}

// resolveReferenceURLs turns --ref values into durable URLs. Values that
// already look like URLs pass through; local file paths are validated as
// reference images and pushed through the upload service.
func resolveReferenceURLs(ctx context.Context, refs []string) []string {
	var urls []string
	var uploader *uploads.Client

	for _, ref := range refs {
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			urls = append(urls, ref)
			continue
		}

		if uploader == nil {
			base := os.Getenv("SCENEFORGE_UPLOAD_API")
			if base == "" {
				log.Fatal().Str("ref", ref).Msg("Local reference files need SCENEFORGE_UPLOAD_API set")
			}
			uploader = uploads.NewClient(base, os.Getenv("SCENEFORGE_UPLOAD_TOKEN"))
		}

		data, err := os.ReadFile(ref)
		if err != nil {
			log.Fatal().Err(err).Str("path", ref).Msg("Failed to read reference image")
		}
		_, url, err := uploader.UploadReferenceImage(ctx, filepath.Base(ref), data)
		if err != nil {
			log.Fatal().Err(err).Str("path", ref).Msg("Reference image upload failed")
		}
		log.Info().Str("path", ref).Msg("Reference image uploaded")
		urls = append(urls, url)
	}
	return urls
}

// configureShots walks the operator through every shot in slot order and
// returns the resulting wizard state. Exits with the full error list if any
// enabled shot is still incomplete afterwards.
func configureShots(analysis *scene.Analysis) *resolve.State {
	state := resolve.NewState()

	for i := range analysis.Shots {
		shot := &analysis.Shots[i]
		fmt.Printf("\n--- Shot %d [%s] ---\n", shot.Slot, shot.Type)
		if shot.Description != "" {
			fmt.Println(shot.Description)
		}

		if !yesFlag && !cli.PromptYesNo(fmt.Sprintf("Include shot %d?", shot.Slot)) {
			state.SetShotEnabled(shot.Slot, false)
			fmt.Println("Shot excluded from pricing and submission.")
			continue
		}
		state.SetShotEnabled(shot.Slot, true)

		configurePronouns(shot, analysis, state)
		configureCharacterRefs(shot, analysis, state)
		configureLocation(shot, analysis, state)

		if shot.Type == scene.ShotAction || shot.Type == scene.ShotEstablishing {
			state.SetVideoModel(shot.Slot, videoModelFlag)
			fmt.Printf("Video model: %s\n", videoModelFlag)
		}
	}

	var allErrs []string
	for i := range analysis.Shots {
		shot := &analysis.Shots[i]
		if !state.Enabled(shot.Slot) {
			continue
		}
		allErrs = append(allErrs, resolve.Validate(shot, analysis, state)...)
	}
	if len(allErrs) > 0 {
		fmt.Println("\nThe scene is not ready to submit:")
		for _, e := range allErrs {
			fmt.Printf("  - %s\n", e)
		}
		os.Exit(1)
	}

	return state
}

// configurePronouns resolves each pronoun token interactively: a character
// selection, or a skip with a background-extras note.
func configurePronouns(shot *scene.Shot, analysis *scene.Analysis, state *resolve.State) {
	for _, token := range resolve.PronounTokens(shot) {
		fmt.Printf("\nWho does %q refer to?\n", token)
		for i, ch := range analysis.Characters {
			fmt.Printf("  %d) %s\n", i+1, ch.Name)
		}
		fmt.Println("  s) nobody specific — background extras")

		for {
			input := readLine("Selection (numbers, comma-separated): ")
			if strings.EqualFold(input, "s") {
				note := readLine("Describe the extras: ")
				if strings.TrimSpace(note) == "" {
					fmt.Println("A description is required to skip a pronoun.")
					continue
				}
				state.SkipPronoun(shot.Slot, token, note)
				break
			}

			ids := parseCharacterSelection(input, analysis)
			if len(ids) == 0 {
				fmt.Println("Enter character numbers like 1 or 1,3 — or s to skip.")
				continue
			}
			state.MapPronoun(shot.Slot, token, ids...)
			break
		}
	}
}

func parseCharacterSelection(input string, analysis *scene.Analysis) []string {
	var ids []string
	for _, field := range strings.Split(input, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n < 1 || n > len(analysis.Characters) {
			return nil
		}
		ids = append(ids, analysis.Characters[n-1].ID)
	}
	return ids
}

// configureCharacterRefs picks a headshot for every character in the shot's
// union. A single headshot is taken automatically; multiple prompt a choice.
func configureCharacterRefs(shot *scene.Shot, analysis *scene.Analysis, state *resolve.State) {
	for _, id := range resolve.ShotCharacters(shot, state) {
		ch := analysis.CharacterByID(id)
		if ch == nil || len(ch.Headshots) == 0 {
			continue // validation reports the missing headshots
		}

		pick := 0
		if len(ch.Headshots) > 1 {
			fmt.Printf("\nReference image for %s:\n", ch.Name)
			for i, hs := range ch.Headshots {
				label := hs.Pose
				if label == "" {
					label = hs.ID
				}
				fmt.Printf("  %d) %s\n", i+1, label)
			}
			for {
				n, err := strconv.Atoi(readLine("Selection: "))
				if err == nil && n >= 1 && n <= len(ch.Headshots) {
					pick = n - 1
					break
				}
				fmt.Println("Enter a number from the list.")
			}
		}

		hs := ch.Headshots[pick]
		state.SetCharacterReference(shot.Slot, id, &resolve.CharacterReference{
			PoseID:   hs.ID,
			S3Key:    hs.S3Key,
			ImageURL: hs.ImageURL,
		})
		fmt.Printf("%s: using headshot %s\n", ch.Name, hs.ID)
	}
}

// configureLocation resolves the location requirement: an angle reference
// when one exists, otherwise the text-description opt-out.
func configureLocation(shot *scene.Shot, analysis *scene.Analysis, state *resolve.State) {
	if !shot.RequiresLocation {
		return
	}

	loc := analysis.LocationByID(shot.LocationID)
	if loc != nil && len(loc.Angles) > 0 {
		pick := 0
		if len(loc.Angles) > 1 {
			fmt.Printf("\nLocation angle for %s:\n", loc.Name)
			for i, a := range loc.Angles {
				label := a.Label
				if label == "" {
					label = a.ID
				}
				fmt.Printf("  %d) %s\n", i+1, label)
			}
			for {
				n, err := strconv.Atoi(readLine("Selection: "))
				if err == nil && n >= 1 && n <= len(loc.Angles) {
					pick = n - 1
					break
				}
				fmt.Println("Enter a number from the list.")
			}
		}
		angle := loc.Angles[pick]
		state.SetLocationReference(shot.Slot, &resolve.LocationReference{
			LocationID: loc.ID,
			AngleID:    angle.ID,
			S3Key:      angle.S3Key,
			ImageURL:   angle.ImageURL,
		})
		fmt.Printf("Location: %s (%s)\n", loc.Name, angle.ID)
		return
	}

	name := shot.LocationID
	if loc != nil {
		name = loc.Name
	}
	fmt.Printf("\nNo reference images for location %s.\n", name)
	for {
		desc := readLine("Describe the setting in text: ")
		if strings.TrimSpace(desc) != "" {
			state.SetLocationOptOut(shot.Slot, true, desc)
			return
		}
		fmt.Println("A description is required.")
	}
}

// printEstimate shows the live quote when the runner can price the scene and
// falls back to the static analysis credits otherwise. A fabricated live
// price is never shown.
func printEstimate(ctx context.Context, client *runner.Client, analysis *scene.Analysis, state *resolve.State, tier scene.QualityTier) {
	totals := pricing.StaticTotal(analysis, state, tier)

	est, err := pricing.NewEstimator(client).Estimate(ctx,
		pricing.EnabledPriceShots(analysis, state),
		pricing.Options{QualityTier: tier})
	if err != nil {
		fmt.Printf("\nLive pricing unavailable — static estimate: %d shots, %d credits (%s)\n",
			totals.TotalShots, totals.TotalCredits, tier)
		return
	}

	fmt.Printf("\nLive estimate (%s tier):\n", tier)
	for _, sp := range est.Shots {
		fmt.Printf("  Shot %d: %d credits HD / %d credits 4K\n", sp.ShotSlot, sp.HDPrice, sp.K4Price)
	}
	fmt.Printf("  Static total for comparison: %d credits\n", totals.TotalCredits)
}

// waitForCompletion consumes status updates until the execution reaches a
// terminal state, prompting for mid-flight decisions as they appear.
func waitForCompletion(orch *workflow.Orchestrator, updates <-chan *runner.Execution) {
	start := time.Now()
	var lastStatus runner.Status

	handle := func(exec *runner.Execution) bool {
		if exec.Status != lastStatus || exec.Status == runner.StatusRunning {
			fmt.Printf("[%s] %s — step %d/%d\n",
				cli.FormatDurationShort(time.Since(start)), exec.Status, exec.CurrentStep, exec.TotalSteps)
		}

		if exec.Status == runner.StatusAwaitingDecision && lastStatus != runner.StatusAwaitingDecision {
			prompt := exec.DecisionPrompt
			if prompt == "" {
				prompt = "The workflow needs a decision to continue"
			}
			fmt.Printf("\n%s\n", prompt)
			if cli.PromptYesNo("Continue the generation?") {
				if err := orch.Continue(context.Background()); err != nil {
					log.Error().Err(err).Msg("Continue failed")
				}
			} else {
				if err := orch.Cancel(context.Background()); err != nil {
					log.Error().Err(err).Msg("Cancel failed")
				}
				fmt.Println("Generation cancelled. No charge applies.")
				return true
			}
		}
		lastStatus = exec.Status

		return exec.Status.Terminal() || exec.Status == workflow.StatusCancelled
	}

	for {
		var exec *runner.Execution
		select {
		case exec = <-updates:
		case <-time.After(time.Second):
			exec = orch.Current()
		}
		if exec == nil {
			continue
		}
		if handle(exec) {
			printOutcome(orch, exec)
			return
		}
	}
}

func printOutcome(orch *workflow.Orchestrator, exec *runner.Execution) {
	switch exec.Status {
	case runner.StatusCompleted:
		fmt.Printf("\nGeneration complete — %d credits used.\n", exec.TotalCreditsUsed)
		for _, out := range exec.FinalOutputs {
			fmt.Printf("  Shot %d: %s\n", out.Slot, out.URL)
		}
		fmt.Println("\nDownload everything with: sceneforge history bundle <id>")
	case runner.StatusFailed:
		msg := exec.Error
		if msg == "" {
			msg = "the workflow reported a failure"
		}
		fmt.Printf("\nGeneration failed: %s\n", msg)
		os.Exit(1)
	case runner.StatusPartialDelivery:
		fmt.Println("\nThe premium result did not meet the quality bar, so a standard")
		fmt.Println("version was delivered instead and the difference refunded.")
		if d := orch.PartialDeliveryDetails(); d != nil {
			fmt.Printf("  Delivered: %s\n", d.AssetURL)
			fmt.Printf("  Charged %d credits, refunded %d credits.\n", d.ChargedCredits, d.RefundedCredits)
			if d.Reason != "" {
				fmt.Printf("  Reason: %s\n", d.Reason)
			}
		}
	}
}
