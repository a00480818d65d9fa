package workflow

import (
	"fmt"
	"strings"

	"github.com/jtallis/sceneforge/internal/resolve"
	"github.com/jtallis/sceneforge/internal/runner"
	"github.com/jtallis/sceneforge/internal/scene"
)

// BuildExecuteRequest assembles the runner submission payload from the
// analysis and the fully validated wizard state.
//
// Disabled shots are filtered out entirely. Character references merge the
// resolved headshot URLs (in shot order, first use of each character) with
// any operator-uploaded manual URLs, deduplicated and capped at
// MaxCharacterReferences.
func BuildExecuteRequest(projectID string, req *SubmitRequest) (*runner.ExecuteRequest, error) {
	if req.Analysis == nil {
		return nil, fmt.Errorf("no scene analysis to submit")
	}
	if req.State == nil {
		return nil, fmt.Errorf("no shot configuration to submit")
	}

	var shots []runner.ShotPayload
	var incomplete []int
	for i := range req.Analysis.Shots {
		shot := &req.Analysis.Shots[i]
		if !req.State.Enabled(shot.Slot) {
			continue
		}
		if !resolve.Complete(shot, req.Analysis, req.State) {
			incomplete = append(incomplete, shot.Slot)
			continue
		}
		shots = append(shots, buildShotPayload(shot, req.State))
	}
	if len(incomplete) > 0 {
		return nil, fmt.Errorf("shots not fully configured: %v", incomplete)
	}
	if len(shots) == 0 {
		return nil, fmt.Errorf("no enabled shots to submit")
	}

	return &runner.ExecuteRequest{
		WorkflowIDs:         req.WorkflowIDs,
		ProjectID:           projectID,
		SceneDescription:    req.Analysis.SceneDescription,
		CharacterReferences: mergeCharacterReferences(req.Analysis, req.State, req.ManualReferenceURLs),
		AspectRatio:         req.AspectRatio,
		Duration:            req.Duration,
		QualityTier:         req.QualityTier,
		Shots:               shots,
	}, nil
}

// buildShotPayload flattens one configured shot into its wire form.
func buildShotPayload(shot *scene.Shot, st *resolve.State) runner.ShotPayload {
	p := runner.ShotPayload{
		Slot:         shot.Slot,
		Type:         string(shot.Type),
		CharacterID:  shot.CharacterID,
		LocationID:   shot.LocationID,
		DialogueText: shot.DialogueText,
		Description:  shot.Description,
	}

	ss := st.Shot(shot.Slot)
	if ss == nil {
		return p
	}

	p.VideoModel = ss.VideoModel

	if len(ss.CharacterRefs) > 0 {
		p.CharacterImageURLs = make(map[string]string, len(ss.CharacterRefs))
		for id, ref := range ss.CharacterRefs {
			p.CharacterImageURLs[id] = ref.ImageURL
		}
	}

	// Opt-out wins over any stored reference, matching the validator.
	if ss.LocationOptOut {
		p.LocationID = ""
		p.LocationDescription = ss.LocationDescription
	} else if ss.LocationRef != nil {
		p.LocationID = ss.LocationRef.LocationID
		p.LocationImageURL = ss.LocationRef.ImageURL
	}

	if len(ss.Props) > 0 {
		p.PropImageURLs = make(map[string]string, len(ss.Props))
		for id, sel := range ss.Props {
			p.PropImageURLs[id] = sel.ImageID
		}
	}

	return p
}

// mergeCharacterReferences collects distinct reference URLs for the
// top-level characterReferences field: resolved headshots first (shot
// order), then manual uploads, capped at MaxCharacterReferences.
func mergeCharacterReferences(analysis *scene.Analysis, st *resolve.State, manual []string) []string {
	seen := make(map[string]bool)
	var urls []string
	add := func(url string) {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] || len(urls) >= MaxCharacterReferences {
			return
		}
		seen[url] = true
		urls = append(urls, url)
	}

	for i := range analysis.Shots {
		slot := analysis.Shots[i].Slot
		ss := st.Shot(slot)
		if ss == nil || !st.Enabled(slot) {
			continue
		}
		// Deterministic order within a shot: follow the character order
		// the resolver reports, not map iteration.
		for _, id := range resolve.ShotCharacters(&analysis.Shots[i], st) {
			if ref, ok := ss.CharacterRefs[id]; ok {
				add(ref.ImageURL)
			}
		}
	}
	for _, url := range manual {
		add(url)
	}
	return urls
}
