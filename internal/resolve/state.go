// Package resolve implements the per-shot configuration engine: reference
// resolution (character headshots, location angles, prop images), pronoun
// mapping, and the shot validator that gates wizard navigation.
//
// All wizard state lives in an explicit State object owned by the single
// active editor session. Mutation goes through named action methods only;
// there are no ambient globals and no direct field writes from callers.
package resolve

import "strings"

// CharacterReference is a resolved pointer to the headshot used for one
// character in one shot. References are owned per (slot, characterID): the
// same character may carry different images in different shots.
type CharacterReference struct {
	CharacterID string `json:"characterId"`
	PoseID      string `json:"poseId,omitempty"`
	S3Key       string `json:"s3Key,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// LocationReference is a resolved pointer to the location angle used for one
// shot.
type LocationReference struct {
	LocationID string `json:"locationId"`
	AngleID    string `json:"angleId,omitempty"`
	S3Key      string `json:"s3Key,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

// PronounMapping records how one pronoun token in a shot resolves: to one or
// more character IDs, or to an explicit skip with a background-extras note.
type PronounMapping struct {
	Characters []string `json:"characters,omitempty"`
	Skip       bool     `json:"skip,omitempty"`
	ExtrasNote string   `json:"extrasNote,omitempty"`
}

// Resolved reports whether the mapping satisfies the coverage rule: at least
// one character, or an explicit skip with a non-empty note. An unresolved
// pronoun is always a hard validation error — the engine never guesses who
// "he" refers to.
func (m PronounMapping) Resolved() bool {
	if len(m.Characters) > 0 {
		return true
	}
	return m.Skip && strings.TrimSpace(m.ExtrasNote) != ""
}

// PropSelection is the chosen image and usage note for one prop in one shot.
type PropSelection struct {
	PropID  string `json:"propId"`
	ImageID string `json:"imageId"`
	Usage   string `json:"usage,omitempty"`
}

// ShotState holds all wizard state for a single shot slot.
type ShotState struct {
	CharacterRefs map[string]CharacterReference `json:"characterRefs,omitempty"`
	LocationRef   *LocationReference            `json:"locationRef,omitempty"`

	// LocationOptOut and LocationDescription record the "no location
	// reference" escape hatch. The data model allows an opt-out and a
	// stored reference to coexist; the validator enforces exclusivity.
	LocationOptOut      bool   `json:"locationOptOut,omitempty"`
	LocationDescription string `json:"locationDescription,omitempty"`

	Pronouns map[string]PronounMapping `json:"pronouns,omitempty"`
	Props    map[string]PropSelection  `json:"props,omitempty"`

	// ExtraCharacters are characters the operator added to the shot by
	// hand, beyond what the analysis found.
	ExtraCharacters []string `json:"extraCharacters,omitempty"`

	// VideoModel is the generation model chosen for action and
	// establishing shots.
	VideoModel string `json:"videoModel,omitempty"`

	// Disabled excludes the shot from pricing and submission. Shots
	// default to enabled.
	Disabled bool `json:"disabled,omitempty"`
}

// State is the configuration wizard's single source of truth: one ShotState
// per slot, created lazily on first mutation. It is not safe for concurrent
// use; the owning session serializes access.
type State struct {
	shots map[int]*ShotState
}

// NewState creates an empty wizard state.
func NewState() *State {
	return &State{shots: make(map[int]*ShotState)}
}

// Shot returns the state for a slot, or nil if nothing was recorded for it.
// The returned value is read-only by convention; use the action methods to
// mutate.
func (st *State) Shot(slot int) *ShotState {
	return st.shots[slot]
}

// shot returns the state for a slot, creating it on first use.
func (st *State) shot(slot int) *ShotState {
	s, ok := st.shots[slot]
	if !ok {
		s = &ShotState{
			CharacterRefs: make(map[string]CharacterReference),
			Pronouns:      make(map[string]PronounMapping),
			Props:         make(map[string]PropSelection),
		}
		st.shots[slot] = s
	}
	return s
}

// --- Named action methods ---

// SetCharacterReference records the headshot used for a character in a shot.
// A nil ref clears the resolution. Setting the same reference twice is a
// no-op: resolution state and validator output are unchanged.
func (st *State) SetCharacterReference(slot int, characterID string, ref *CharacterReference) {
	s := st.shot(slot)
	if ref == nil {
		delete(s.CharacterRefs, characterID)
		return
	}
	r := *ref
	r.CharacterID = characterID
	s.CharacterRefs[characterID] = r
}

// SetLocationReference records the location angle used for a shot. A nil ref
// clears it.
func (st *State) SetLocationReference(slot int, ref *LocationReference) {
	s := st.shot(slot)
	if ref == nil {
		s.LocationRef = nil
		return
	}
	r := *ref
	s.LocationRef = &r
}

// SetLocationOptOut switches the shot between "needs a location reference"
// and "described in text instead". The description is mandatory while opted
// out; the validator reports it when missing.
func (st *State) SetLocationOptOut(slot int, optOut bool, description string) {
	s := st.shot(slot)
	s.LocationOptOut = optOut
	s.LocationDescription = strings.TrimSpace(description)
}

// MapPronoun resolves a pronoun token to one or more characters.
func (st *State) MapPronoun(slot int, token string, characterIDs ...string) {
	s := st.shot(slot)
	s.Pronouns[token] = PronounMapping{Characters: append([]string(nil), characterIDs...)}
}

// SkipPronoun marks a pronoun as background extras, with a mandatory note
// describing them. The note is required for the skip to count as resolved.
func (st *State) SkipPronoun(slot int, token, extrasNote string) {
	s := st.shot(slot)
	s.Pronouns[token] = PronounMapping{Skip: true, ExtrasNote: strings.TrimSpace(extrasNote)}
}

// SetPropImage selects the reference image (and usage note) for a prop in a
// shot. An empty imageID clears the selection.
func (st *State) SetPropImage(slot int, propID, imageID, usage string) {
	s := st.shot(slot)
	if imageID == "" {
		delete(s.Props, propID)
		return
	}
	s.Props[propID] = PropSelection{PropID: propID, ImageID: imageID, Usage: usage}
}

// AddCharacter manually adds a character to a shot. Added characters need a
// reference image like any other.
func (st *State) AddCharacter(slot int, characterID string) {
	s := st.shot(slot)
	for _, id := range s.ExtraCharacters {
		if id == characterID {
			return
		}
	}
	s.ExtraCharacters = append(s.ExtraCharacters, characterID)
}

// RemoveCharacter removes a manually added character and its reference.
func (st *State) RemoveCharacter(slot int, characterID string) {
	s := st.shot(slot)
	for i, id := range s.ExtraCharacters {
		if id == characterID {
			s.ExtraCharacters = append(s.ExtraCharacters[:i], s.ExtraCharacters[i+1:]...)
			break
		}
	}
	delete(s.CharacterRefs, characterID)
}

// SetVideoModel chooses the generation model for a shot.
func (st *State) SetVideoModel(slot int, model string) {
	st.shot(slot).VideoModel = model
}

// SetShotEnabled includes or excludes a shot from pricing and submission.
func (st *State) SetShotEnabled(slot int, enabled bool) {
	st.shot(slot).Disabled = !enabled
}

// Enabled reports whether a slot is included in pricing and submission.
// Slots with no recorded state default to enabled.
func (st *State) Enabled(slot int) bool {
	s := st.shots[slot]
	return s == nil || !s.Disabled
}
