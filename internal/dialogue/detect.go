// Package dialogue implements the heuristic dialogue detector used when a
// scene description arrives as free text. It decides whether the text
// contains a spoken line and, where possible, extracts the speaker name and
// the line itself.
//
// This is a heuristic, not a grammar: false negatives are expected, and
// callers must fall back to the non-dialogue path when nothing matches.
package dialogue

import (
	"regexp"
	"strings"
)

// minQuotedLen is the minimum length of a quoted span treated as dialogue.
// Shorter quotes are usually emphasis ("the 'red' door") rather than speech.
const minQuotedLen = 10

// Detection is the result of running the detector over a piece of text.
// The zero value means "no dialogue found".
type Detection struct {
	HasDialogue   bool   `json:"hasDialogue"`
	CharacterName string `json:"characterName,omitempty"`
	Dialogue      string `json:"dialogue,omitempty"`
}

var (
	// quoted matches a double-quoted span, straight or curly quotes.
	quoted = regexp.MustCompile(`["\x{201C}]([^"\x{201C}\x{201D}]+)["\x{201D}]`)

	// speechVerb matches "Sarah says: get out" / "He yells, 'run'".
	speechVerb = regexp.MustCompile(`(?i)^(.+?)\s+(?:says|said|yells|yelled|whispers|whispered|shouts|shouted|screams|screamed)[,:]?\s+['"]?([^'"]+)['"]?\s*$`)

	// colonLine matches the "NAME: line" convention. The name part is
	// capped so prose containing a colon mid-sentence does not match.
	colonLine = regexp.MustCompile(`^([A-Z][A-Za-z .'-]{0,30}?):\s*(.+)$`)

	// sluglinePrefixes mark screenplay scene headings, never dialogue.
	sluglinePrefixes = []string{"INT.", "EXT.", "INT/", "EXT/", "FADE", "CUT TO"}
)

// Detect classifies free scene text, trying each convention in fixed
// priority order and returning the first match:
//
//  1. screenplay cue: an uppercase character line followed by the spoken line
//  2. a quoted span of at least minQuotedLen characters
//  3. an "X says/yells/whispers: ..." sentence
//  4. the "NAME: line" colon convention
//
// Detect is a pure function of its input.
func Detect(text string) Detection {
	text = strings.TrimSpace(text)
	if text == "" {
		return Detection{}
	}

	if d, ok := detectScreenplayCue(text); ok {
		return d
	}
	if d, ok := detectQuoted(text); ok {
		return d
	}
	if d, ok := detectSpeechVerb(text); ok {
		return d
	}
	if d, ok := detectColonLine(text); ok {
		return d
	}
	return Detection{}
}

// detectScreenplayCue looks for the screenplay convention: a line consisting
// only of uppercase words (the character cue) immediately followed by a line
// that is neither a slugline nor another cue.
func detectScreenplayCue(text string) (Detection, bool) {
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines)-1; i++ {
		cue := strings.TrimSpace(lines[i])
		next := strings.TrimSpace(lines[i+1])

		if !isCueLine(cue) || next == "" {
			continue
		}
		if isSlugline(next) || isCueLine(next) {
			continue
		}
		return Detection{HasDialogue: true, CharacterName: cue, Dialogue: next}, true
	}
	return Detection{}, false
}

// detectQuoted looks for a quoted span long enough to be a spoken line.
// No speaker is attributed; the caller decides who delivers it.
func detectQuoted(text string) (Detection, bool) {
	m := quoted.FindStringSubmatch(text)
	if m == nil || len(strings.TrimSpace(m[1])) < minQuotedLen {
		return Detection{}, false
	}
	return Detection{HasDialogue: true, Dialogue: strings.TrimSpace(m[1])}, true
}

// detectSpeechVerb looks for "X says/yells/whispers: line" sentences.
func detectSpeechVerb(text string) (Detection, bool) {
	m := speechVerb.FindStringSubmatch(strings.TrimSpace(strings.Split(text, "\n")[0]))
	if m == nil {
		return Detection{}, false
	}

	name := strings.TrimSpace(m[1])
	line := strings.TrimSpace(m[2])
	if line == "" {
		return Detection{}, false
	}

	// Pronoun subjects give a line with no usable speaker name.
	switch strings.ToLower(name) {
	case "he", "she", "they", "it", "someone", "somebody":
		name = ""
	}
	return Detection{HasDialogue: true, CharacterName: name, Dialogue: line}, true
}

// detectColonLine looks for the "NAME: line" convention on any line.
func detectColonLine(text string) (Detection, bool) {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		m := colonLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if isSlugline(m[1] + ".") {
			continue
		}
		return Detection{
			HasDialogue:   true,
			CharacterName: strings.TrimSpace(m[1]),
			Dialogue:      strings.TrimSpace(m[2]),
		}, true
	}
	return Detection{}, false
}

// isCueLine reports whether a line looks like a screenplay character cue: one
// to five words, all uppercase letters (with screenplay punctuation), at
// least two letters total.
func isCueLine(line string) bool {
	if line == "" || isSlugline(line) {
		return false
	}

	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 5 {
		return false
	}

	letters := 0
	for _, word := range words {
		for _, r := range word {
			switch {
			case r >= 'A' && r <= 'Z':
				letters++
			case r == '.' || r == '\'' || r == '-' || r == '(' || r == ')':
				// allowed: "V.O.", "O'BRIEN", "JEAN-LUC", "(CONT'D)"
			default:
				return false
			}
		}
	}
	return letters >= 2
}

// isSlugline reports whether a line is a scene heading such as
// "INT. KITCHEN - NIGHT".
func isSlugline(line string) bool {
	upper := strings.ToUpper(strings.TrimSpace(line))
	for _, p := range sluglinePrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}
