package resolve

import (
	"fmt"
	"strings"

	"github.com/jtallis/sceneforge/internal/scene"
)

// Validate returns the complete list of human-readable completion errors for
// a shot given the current wizard state. An empty list means the shot is
// complete and the wizard may advance past it.
//
// All applicable checks run even after the first failure so the operator can
// fix everything in one pass: location requirement, per-character reference
// coverage, video model selection for action/establishing shots, and full
// pronoun coverage. Validate is idempotent and side-effect free.
func Validate(shot *scene.Shot, analysis *scene.Analysis, st *State) []string {
	var errs []string

	errs = append(errs, validateLocation(shot, analysis, st)...)
	errs = append(errs, validateCharacterRefs(shot, analysis, st)...)
	errs = append(errs, validateVideoModel(shot, st)...)
	errs = append(errs, validatePronouns(shot, st)...)

	return errs
}

// Complete reports whether the shot has no outstanding completion errors.
func Complete(shot *scene.Shot, analysis *scene.Analysis, st *State) bool {
	return len(Validate(shot, analysis, st)) == 0
}

// MaxNavigableSlot returns the highest slot the operator may navigate to:
// the slot after the last leading run of complete shots. Previously
// completed shots stay revisitable; skipping past an incomplete shot is
// forbidden.
func MaxNavigableSlot(analysis *scene.Analysis, st *State) int {
	if len(analysis.Shots) == 0 {
		return 0
	}

	max := analysis.Shots[0].Slot
	for i := range analysis.Shots {
		shot := &analysis.Shots[i]
		max = shot.Slot
		if !Complete(shot, analysis, st) {
			break
		}
	}
	return max
}

// CanNavigateTo reports whether the operator may move to the given slot.
func CanNavigateTo(slot int, analysis *scene.Analysis, st *State) bool {
	if analysis.ShotBySlot(slot) == nil {
		return false
	}
	return slot <= MaxNavigableSlot(analysis, st)
}

// --- Individual checks ---

// validateLocation enforces the "reference required unless opted out with a
// description" policy. Opt-out takes precedence over any stored reference so
// the two never count as satisfied together.
func validateLocation(shot *scene.Shot, analysis *scene.Analysis, st *State) []string {
	if !shot.RequiresLocation {
		return nil
	}

	locationName := shot.LocationID
	if loc := analysis.LocationByID(shot.LocationID); loc != nil {
		locationName = loc.Name
	}

	s := st.Shot(shot.Slot)
	if s != nil && s.LocationOptOut {
		if strings.TrimSpace(s.LocationDescription) == "" {
			return []string{fmt.Sprintf("Shot %d: location opted out but no description provided — describe the setting in text", shot.Slot)}
		}
		return nil
	}

	if s == nil || s.LocationRef == nil || (s.LocationRef.S3Key == "" && s.LocationRef.ImageURL == "") {
		return []string{fmt.Sprintf("Shot %d: select a location angle for %s (or opt out and describe the setting)", shot.Slot, locationName)}
	}
	return nil
}

// validateCharacterRefs requires a resolved reference image for every
// character in the shot's union (explicit, pronoun-mapped, manually added).
// A character with no headshots at all still blocks the shot, but with a
// message directing the operator to add headshots — the engine never
// silently proceeds without a character image.
func validateCharacterRefs(shot *scene.Shot, analysis *scene.Analysis, st *State) []string {
	var errs []string
	s := st.Shot(shot.Slot)

	for _, id := range ShotCharacters(shot, st) {
		name := id
		hasHeadshots := true
		if ch := analysis.CharacterByID(id); ch != nil {
			name = ch.Name
			hasHeadshots = len(ch.Headshots) > 0
		}

		resolved := false
		if s != nil {
			ref, ok := s.CharacterRefs[id]
			resolved = ok && (ref.S3Key != "" || ref.ImageURL != "")
		}
		if resolved {
			continue
		}

		if !hasHeadshots {
			errs = append(errs, fmt.Sprintf("Shot %d: %s has no headshots — add headshots on the character page first", shot.Slot, name))
		} else {
			errs = append(errs, fmt.Sprintf("Shot %d: select a reference image for %s", shot.Slot, name))
		}
	}
	return errs
}

// validateVideoModel requires a model choice for shot types that render
// without a driving dialogue track. The switch is exhaustive over ShotType.
func validateVideoModel(shot *scene.Shot, st *State) []string {
	switch shot.Type {
	case scene.ShotDialogue:
		return nil
	case scene.ShotAction, scene.ShotEstablishing:
		s := st.Shot(shot.Slot)
		if s == nil || s.VideoModel == "" {
			return []string{fmt.Sprintf("Shot %d: choose a video model for this %s shot", shot.Slot, shot.Type)}
		}
		return nil
	default:
		return []string{fmt.Sprintf("Shot %d: unknown shot type %q", shot.Slot, shot.Type)}
	}
}

// validatePronouns requires every pronoun token to be mapped to at least one
// character or skipped with an extras note.
func validatePronouns(shot *scene.Shot, st *State) []string {
	var errs []string
	s := st.Shot(shot.Slot)

	for _, token := range PronounTokens(shot) {
		var m PronounMapping
		if s != nil {
			m = s.Pronouns[token]
		}
		if m.Resolved() {
			continue
		}
		if m.Skip {
			errs = append(errs, fmt.Sprintf("Shot %d: pronoun %q skipped without an extras note — describe who appears instead", shot.Slot, token))
		} else {
			errs = append(errs, fmt.Sprintf("Shot %d: map the pronoun %q to a character (or skip it with a note)", shot.Slot, token))
		}
	}
	return errs
}
