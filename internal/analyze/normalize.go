package analyze

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jtallis/sceneforge/internal/dialogue"
	"github.com/jtallis/sceneforge/internal/scene"
)

// defaultShotCredits is assigned when the model omits a per-shot credit
// estimate.
const defaultShotCredits = 50

// Normalize repairs a model-produced analysis in place: sequential slot
// numbering, shot-type backfill via dialogue detection, default credits, and
// referential integrity between shots and the entity lists.
//
// Normalization never invents pronoun resolutions or characters; it only
// fixes structural gaps the model is known to leave.
func Normalize(a *scene.Analysis) error {
	if len(a.Shots) == 0 {
		return fmt.Errorf("analysis produced no shots")
	}

	seen := make(map[int]bool)
	for i := range a.Shots {
		shot := &a.Shots[i]

		// Slots must be unique and ordered; renumber on any conflict.
		if shot.Slot <= 0 || seen[shot.Slot] {
			shot.Slot = i + 1
		}
		seen[shot.Slot] = true

		normalizeShotType(shot)

		if shot.Credits <= 0 {
			shot.Credits = defaultShotCredits
		}

		// A dialogue shot's speaker belongs in the explicit character set.
		if shot.Type == scene.ShotDialogue && shot.CharacterID != "" {
			if !containsID(shot.Characters, shot.CharacterID) {
				shot.Characters = append(shot.Characters, shot.CharacterID)
			}
		}
	}

	registerMissingEntities(a)
	return nil
}

// normalizeShotType backfills a missing or unknown shot type. Text with
// detectable dialogue becomes a dialogue shot (carrying the detected line);
// everything else is an action beat.
func normalizeShotType(shot *scene.Shot) {
	switch shot.Type {
	case scene.ShotDialogue, scene.ShotAction, scene.ShotEstablishing:
		return
	}

	d := dialogue.Detect(shot.Description)
	if d.HasDialogue {
		shot.Type = scene.ShotDialogue
		if shot.DialogueText == "" {
			shot.DialogueText = d.Dialogue
		}
	} else {
		shot.Type = scene.ShotAction
	}
	log.Debug().
		Int("slot", shot.Slot).
		Str("type", string(shot.Type)).
		Msg("Backfilled missing shot type")
}

// registerMissingEntities adds placeholder character/location records for ids
// the shots reference but the entity lists omit, so downstream lookups never
// dangle. Placeholders have no headshots/angles; the validator surfaces that
// to the operator as usual.
func registerMissingEntities(a *scene.Analysis) {
	for i := range a.Shots {
		shot := &a.Shots[i]

		ids := shot.Characters
		if shot.CharacterID != "" && !containsID(ids, shot.CharacterID) {
			ids = append(append([]string(nil), ids...), shot.CharacterID)
		}
		for _, id := range ids {
			if a.CharacterByID(id) == nil {
				a.Characters = append(a.Characters, scene.Character{ID: id, Name: id})
				log.Debug().Str("characterId", id).Msg("Registered character missing from entity list")
			}
		}

		if shot.LocationID != "" && a.LocationByID(shot.LocationID) == nil {
			a.Locations = append(a.Locations, scene.Location{ID: shot.LocationID, Name: shot.LocationID})
			log.Debug().Str("locationId", shot.LocationID).Msg("Registered location missing from entity list")
		}
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
