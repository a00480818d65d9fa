// Package jobs provides identifier generation and API route parsing shared
// by the HTTP handlers and the persistence layer.
package jobs

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/rs/zerolog/log"
)

// GenerateID creates a new cryptographically random identifier with the
// given prefix. The prefix should include a trailing dash, e.g. "hist-",
// "upload-". Random ids keep history entries and upload keys unguessable.
func GenerateID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msgf("Failed to generate random %s id", prefix)
	}
	return prefix + hex.EncodeToString(b)
}
