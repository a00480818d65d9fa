package pricing

import "github.com/jtallis/sceneforge/internal/scene"

// Thresholds drive the premium-tier auto-suggestion. A scene exceeding any
// threshold (or containing any VFX shot) is considered complex. The values
// are deliberately configurable constants rather than hard-coded branches;
// callers that know better can pass their own.
type Thresholds struct {
	// MaxShots is the largest shot count still considered simple.
	MaxShots int

	// MaxCredits is the largest static credit total still considered simple.
	MaxCredits int

	// MaxCharacters is the largest distinct character count still
	// considered simple.
	MaxCharacters int
}

// DefaultThresholds are the tuning values shipped with the product.
var DefaultThresholds = Thresholds{
	MaxShots:      3,
	MaxCredits:    300,
	MaxCharacters: 2,
}

// IsComplex reports whether the scene exceeds any complexity threshold.
// Conditions combine with OR; any VFX shot makes the scene complex outright.
func IsComplex(analysis *scene.Analysis, th Thresholds) bool {
	if len(analysis.Shots) > th.MaxShots {
		return true
	}

	credits := 0
	for _, shot := range analysis.Shots {
		if shot.HasVFX {
			return true
		}
		credits += shot.Credits
	}
	if credits > th.MaxCredits {
		return true
	}

	return analysis.CharacterCount() > th.MaxCharacters
}

// SuggestTier recommends premium for complex scenes and professional
// otherwise. The operator can always override the suggestion.
func SuggestTier(analysis *scene.Analysis, th Thresholds) scene.QualityTier {
	if IsComplex(analysis, th) {
		return scene.TierPremium
	}
	return scene.TierProfessional
}
