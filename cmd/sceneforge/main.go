package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jtallis/sceneforge/internal/auth"
	"github.com/jtallis/sceneforge/internal/runner"
	"github.com/jtallis/sceneforge/internal/store"
)

// Persistent CLI flags
var (
	projectFlag  string
	stateDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "sceneforge",
	Short: "Scene-to-video generation wizard",
	Long: `SceneForge turns a natural-language scene description into finished video
shots. It analyzes the scene into a shot breakdown with Gemini, walks you
through configuring reference images, pronouns, and models for each shot,
estimates the credit cost, and drives the generation workflow to completion.

Examples:
  sceneforge analyze "Mara confronts the stranger on the rain-soaked pier"
  sceneforge generate --tier premium
  sceneforge history
  sceneforge history bundle hist-1a2b3c --out ./downloads`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "default", "Project id to operate on")
	rootCmd.PersistentFlags().StringVar(&stateDirFlag, "state-dir", "", "State directory (default: <user config dir>/sceneforge)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the local file store used for execution recovery and
// generation history.
func openStore() *store.FileStore {
	dir := stateDirFlag
	if dir == "" {
		var err error
		dir, err = store.DefaultStateDir()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve state directory")
		}
	}

	s, err := store.NewFileStore(dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open state store")
	}
	return s
}

// runnerClient builds the Generation Runner client from the environment.
func runnerClient() *runner.Client {
	endpoint, token, err := auth.GetRunnerCredentials()
	if err != nil {
		log.Fatal().Err(err).Msg("Generation runner not configured")
	}
	return runner.NewClient(endpoint, token)
}

// readLine prompts and reads a single trimmed line from stdin.
func readLine(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read input")
		return ""
	}
	return strings.TrimSpace(input)
}
