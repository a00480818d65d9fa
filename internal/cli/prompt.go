package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForScene prompts the user interactively for a scene description.
// Input ends at the first blank line so multi-paragraph descriptions work.
func PromptForScene() string {
	fmt.Println("Describe the scene (finish with an empty line):")

	reader := bufio.NewReader(os.Stdin)
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if len(lines) == 0 {
				log.Warn().Err(err).Msg("Failed to read scene description")
			}
			break
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// PromptYesNo asks a yes/no question and returns true for a "y" answer.
func PromptYesNo(question string) bool {
	fmt.Printf("%s [y/N]: ", question)

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read input, assuming no")
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(input))
	return answer == "y" || answer == "yes"
}
