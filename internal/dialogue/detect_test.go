package dialogue

import "testing"

func TestDetectScreenplayCue(t *testing.T) {
	d := Detect("SARAH\nI can't do this.")
	if !d.HasDialogue {
		t.Fatal("expected dialogue")
	}
	if d.CharacterName != "SARAH" {
		t.Errorf("expected character SARAH, got %q", d.CharacterName)
	}
	if d.Dialogue != "I can't do this." {
		t.Errorf("unexpected dialogue: %q", d.Dialogue)
	}
}

func TestDetectQuotedSpan(t *testing.T) {
	d := Detect(`He said "get out now"`)
	if !d.HasDialogue {
		t.Fatal("expected dialogue")
	}
	if d.Dialogue != "get out now" {
		t.Errorf("unexpected dialogue: %q", d.Dialogue)
	}
	if d.CharacterName != "" {
		t.Errorf("expected no character name, got %q", d.CharacterName)
	}
}

func TestDetectShortQuoteIgnored(t *testing.T) {
	// Quotes under ten characters are emphasis, not speech.
	if d := Detect(`She opened the "red" door.`); d.HasDialogue {
		t.Errorf("expected no dialogue, got %+v", d)
	}
}

func TestDetectSpeechVerb(t *testing.T) {
	d := Detect("Sarah yells: stop right there")
	if !d.HasDialogue {
		t.Fatal("expected dialogue")
	}
	if d.CharacterName != "Sarah" {
		t.Errorf("expected character Sarah, got %q", d.CharacterName)
	}
	if d.Dialogue != "stop right there" {
		t.Errorf("unexpected dialogue: %q", d.Dialogue)
	}
}

func TestDetectColonConvention(t *testing.T) {
	d := Detect("JOHN: meet me at noon")
	if !d.HasDialogue {
		t.Fatal("expected dialogue")
	}
	if d.CharacterName != "JOHN" {
		t.Errorf("expected character JOHN, got %q", d.CharacterName)
	}
	if d.Dialogue != "meet me at noon" {
		t.Errorf("unexpected dialogue: %q", d.Dialogue)
	}
}

func TestDetectNoDialogue(t *testing.T) {
	cases := []string{
		"",
		"A quiet empty room.",
		"INT. KITCHEN - NIGHT\nThe table is set for two.",
		"The storm rolls in over the hills.",
	}
	for _, text := range cases {
		if d := Detect(text); d.HasDialogue {
			t.Errorf("Detect(%q): expected no dialogue, got %+v", text, d)
		}
	}
}

func TestDetectPriorityOrder(t *testing.T) {
	// A screenplay cue wins over a quoted span in the same text.
	d := Detect("MARCUS\n\"You were never supposed to find it.\"")
	if d.CharacterName != "MARCUS" {
		t.Errorf("expected screenplay cue to win, got %+v", d)
	}
}

func TestDetectSluglineNotACue(t *testing.T) {
	if d := Detect("EXT. BEACH - DAY\nWaves crash against the rocks."); d.HasDialogue {
		t.Errorf("slugline treated as cue: %+v", d)
	}
}

func TestDetectIsPure(t *testing.T) {
	text := "SARAH\nI can't do this."
	first := Detect(text)
	second := Detect(text)
	if first != second {
		t.Errorf("detector not deterministic: %+v vs %+v", first, second)
	}
}
