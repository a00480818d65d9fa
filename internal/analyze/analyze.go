// Package analyze turns a natural-language scene description into a shot
// breakdown using the Gemini API, with local heuristics backfilling what the
// model leaves out.
package analyze

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/jtallis/sceneforge/internal/assets"
	"github.com/jtallis/sceneforge/internal/jsonutil"
	"github.com/jtallis/sceneforge/internal/metrics"
	"github.com/jtallis/sceneforge/internal/scene"
)

// DefaultModel is the Gemini model used for scene analysis.
const DefaultModel = "gemini-3-flash-preview"

// Analyzer performs scene breakdown via the Gemini API.
type Analyzer struct {
	client *genai.Client
	model  string
}

// New creates an Analyzer. An empty model selects DefaultModel.
func New(client *genai.Client, model string) *Analyzer {
	if model == "" {
		model = DefaultModel
	}
	return &Analyzer{client: client, model: model}
}

// Analyze sends the scene description to Gemini and returns the normalized
// shot breakdown.
func (a *Analyzer) Analyze(ctx context.Context, description string) (*scene.Analysis, error) {
	if description == "" {
		return nil, fmt.Errorf("scene description is empty")
	}

	prompt := assets.RenderSceneAnalysisPrompt(description)
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: assets.SceneAnalysisSystemPrompt}},
		},
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}

	log.Debug().
		Str("model", a.model).
		Int("description_length", len(description)).
		Msg("Starting Gemini API call for scene analysis")

	geminiStart := time.Now()
	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	geminiElapsed := time.Since(geminiStart)

	m := metrics.New("SceneForge").
		Dimension("Operation", "analyze").
		Metric("GeminiApiLatencyMs", float64(geminiElapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls")
	if err != nil {
		m.Count("GeminiApiErrors")
	}
	if resp != nil && resp.UsageMetadata != nil {
		m.Metric("GeminiInputTokens", float64(resp.UsageMetadata.PromptTokenCount), metrics.UnitCount)
		m.Metric("GeminiOutputTokens", float64(resp.UsageMetadata.CandidatesTokenCount), metrics.UnitCount)
	}
	m.Flush()

	if err != nil {
		log.Error().Err(err).Dur("duration", geminiElapsed).Msg("Failed to generate scene analysis")
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil || resp.Text() == "" {
		log.Warn().Dur("duration", geminiElapsed).Msg("Received empty response from Gemini")
		return nil, fmt.Errorf("received empty response from Gemini API")
	}

	log.Debug().
		Int("response_length", len(resp.Text())).
		Dur("duration", geminiElapsed).
		Msg("Gemini API response received for scene analysis")

	analysis, err := jsonutil.ParseJSON[scene.Analysis](resp.Text())
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse scene analysis response")
		return nil, fmt.Errorf("scene analysis response: %w", err)
	}

	result := &analysis
	if result.SceneDescription == "" {
		result.SceneDescription = description
	}
	if err := Normalize(result); err != nil {
		return nil, fmt.Errorf("scene analysis: %w", err)
	}

	log.Info().
		Int("shots", len(result.Shots)).
		Int("characters", len(result.Characters)).
		Int("locations", len(result.Locations)).
		Msg("Scene analysis complete")
	return result, nil
}
