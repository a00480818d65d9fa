// Package scene defines the screenplay domain model shared across the
// configuration wizard, the pricing estimator, and the generation workflow:
// shots, characters, locations, props, and the analysis result that binds
// them together for one scene.
//
// Shots are identified by their stable Slot number, never by array position.
// An Analysis is immutable once produced — wizard state (references, pronoun
// mappings, prop selections) lives in the resolve package, keyed by slot.
package scene

// ShotType distinguishes the three beat kinds a scene breaks down into.
// Validation and payload construction switch exhaustively on this type.
type ShotType string

const (
	// ShotDialogue is a spoken line delivered by one character.
	ShotDialogue ShotType = "dialogue"

	// ShotAction is a non-verbal action beat.
	ShotAction ShotType = "action"

	// ShotEstablishing is a wide master/establishing shot of the location.
	ShotEstablishing ShotType = "establishing"
)

// QualityTier selects the generation quality level. Premium affects pricing
// (see the pricing package) and is auto-suggested for complex scenes.
type QualityTier string

const (
	TierProfessional QualityTier = "professional"
	TierPremium      QualityTier = "premium"
)

// Shot is one discrete video-generation unit within a scene.
//
// The analysis that produced the shot records which characters appear
// explicitly, which are referenced only through pronouns, and whether the
// beat depends on a recognizable location. Those fields drive the
// completion checks in the resolve package.
type Shot struct {
	// Slot is the stable identifier of the shot within its scene,
	// unique and ordered. Shots must always be looked up by slot.
	Slot int `json:"slot"`

	Type ShotType `json:"type"`

	// CharacterID is the speaking character for dialogue shots.
	CharacterID string `json:"characterId,omitempty"`

	// LocationID is the location the analysis placed this shot in.
	LocationID string `json:"locationId,omitempty"`

	// Credits is the base credit cost reported by scene analysis,
	// used for static estimates when live pricing is unavailable.
	Credits int `json:"credits"`

	DialogueText string `json:"dialogueText,omitempty"`
	Description  string `json:"description,omitempty"`

	// Characters lists character IDs named or referenced directly in
	// the shot text (the "explicit" group).
	Characters []string `json:"characters,omitempty"`

	// SingularPronouns and PluralPronouns are the distinct pronoun
	// tokens the analysis found in the shot text. Each token must be
	// mapped to one or more characters (or explicitly skipped with a
	// note) before the shot is complete.
	SingularPronouns []string `json:"singularPronouns,omitempty"`
	PluralPronouns   []string `json:"pluralPronouns,omitempty"`

	// RequiresLocation marks shots whose framing depends on the
	// location; such shots need a location reference or an explicit
	// opt-out with a description.
	RequiresLocation bool `json:"requiresLocation,omitempty"`

	// HasVFX marks shots needing visual effects work; any VFX shot
	// pushes the suggested tier to premium.
	HasVFX bool `json:"hasVfx,omitempty"`
}

// Headshot is one available reference image for a character.
type Headshot struct {
	ID       string `json:"id"`
	S3Key    string `json:"s3Key,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Pose     string `json:"pose,omitempty"`
}

// Character is a screenplay character with its available headshots.
type Character struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Headshots []Headshot `json:"headshots,omitempty"`
}

// LocationAngle is one available reference image of a location.
type LocationAngle struct {
	ID       string `json:"id"`
	S3Key    string `json:"s3Key,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Location is a screenplay location with its available angle images.
type Location struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Angles []LocationAngle `json:"angles,omitempty"`
}

// PropImage is one available reference image of a prop.
type PropImage struct {
	ID       string `json:"id"`
	S3Key    string `json:"s3Key,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Prop is a physical object that may appear in one or more shots.
type Prop struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Images []PropImage `json:"images,omitempty"`

	// Slots lists the shot slots the prop is assigned to.
	Slots []int `json:"slots,omitempty"`
}

// Analysis is the scene breakdown: the original description plus the shots
// and entities the analyzer (or the screenplay store) derived from it.
type Analysis struct {
	SceneDescription string      `json:"sceneDescription"`
	Shots            []Shot      `json:"shots"`
	Characters       []Character `json:"characters,omitempty"`
	Locations        []Location  `json:"locations,omitempty"`
	Props            []Prop      `json:"props,omitempty"`
}

// ShotBySlot returns the shot with the given slot, or nil if absent.
func (a *Analysis) ShotBySlot(slot int) *Shot {
	for i := range a.Shots {
		if a.Shots[i].Slot == slot {
			return &a.Shots[i]
		}
	}
	return nil
}

// CharacterByID returns the character with the given ID, or nil if absent.
func (a *Analysis) CharacterByID(id string) *Character {
	for i := range a.Characters {
		if a.Characters[i].ID == id {
			return &a.Characters[i]
		}
	}
	return nil
}

// LocationByID returns the location with the given ID, or nil if absent.
func (a *Analysis) LocationByID(id string) *Location {
	for i := range a.Locations {
		if a.Locations[i].ID == id {
			return &a.Locations[i]
		}
	}
	return nil
}

// PropByID returns the prop with the given ID, or nil if absent.
func (a *Analysis) PropByID(id string) *Prop {
	for i := range a.Props {
		if a.Props[i].ID == id {
			return &a.Props[i]
		}
	}
	return nil
}

// CharacterCount returns the number of distinct characters referenced
// explicitly across all shots. Used by the tier suggestion heuristic.
func (a *Analysis) CharacterCount() int {
	seen := make(map[string]bool)
	for _, shot := range a.Shots {
		if shot.CharacterID != "" {
			seen[shot.CharacterID] = true
		}
		for _, id := range shot.Characters {
			seen[id] = true
		}
	}
	return len(seen)
}
