package resolve

import "github.com/jtallis/sceneforge/internal/scene"

// Categories groups the characters and pronoun tokens of a shot by how they
// are referenced: named directly, through a singular pronoun, or through a
// plural pronoun.
type Categories struct {
	// Explicit are character IDs named or referenced directly.
	Explicit []string

	// Singular and Plural are the distinct pronoun tokens still needing
	// a mapping, split by number.
	Singular []string
	Plural   []string
}

// Categorize splits a shot's character references into explicit characters
// and pronoun tokens. The speaking character of a dialogue shot counts as
// explicit even when the analysis did not repeat it in Characters.
func Categorize(shot *scene.Shot) Categories {
	var c Categories

	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			c.Explicit = append(c.Explicit, id)
		}
	}
	add(shot.CharacterID)
	for _, id := range shot.Characters {
		add(id)
	}

	c.Singular = append(c.Singular, shot.SingularPronouns...)
	c.Plural = append(c.Plural, shot.PluralPronouns...)
	return c
}

// PronounTokens returns every distinct pronoun token of the shot, singular
// and plural, in analysis order.
func PronounTokens(shot *scene.Shot) []string {
	tokens := make([]string, 0, len(shot.SingularPronouns)+len(shot.PluralPronouns))
	seen := make(map[string]bool)
	for _, t := range shot.SingularPronouns {
		if !seen[t] {
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	for _, t := range shot.PluralPronouns {
		if !seen[t] {
			seen[t] = true
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// ShotCharacters returns the union of characters appearing in a shot:
// explicit, pronoun-mapped, and manually added, deduplicated in that order.
// Every character in this union needs a resolved reference image.
func ShotCharacters(shot *scene.Shot, st *State) []string {
	cat := Categorize(shot)

	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, id := range cat.Explicit {
		add(id)
	}

	if s := st.Shot(shot.Slot); s != nil {
		for _, token := range PronounTokens(shot) {
			for _, id := range s.Pronouns[token].Characters {
				add(id)
			}
		}
		for _, id := range s.ExtraCharacters {
			add(id)
		}
	}
	return ids
}
