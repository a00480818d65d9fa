// Package assets provides embedded static assets for the application.
//
// Prompt templates are stored as text files under prompts/ and embedded at
// compile time, keeping LLM instructions reviewable as plain text instead of
// Go string literals.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"
)

// SceneAnalysisSystemPrompt instructs the model on how to decompose a scene
// description into generatable shots.
//
//go:embed prompts/scene-analysis-system.txt
var SceneAnalysisSystemPrompt string

//go:embed prompts/scene-analysis.txt
var sceneAnalysisTemplate string

// Pre-parsed at init. template.Must panics on a malformed template, catching
// errors at program startup rather than at call time.
var sceneAnalysisTmpl = template.Must(template.New("scene-analysis").Parse(sceneAnalysisTemplate))

// AnalysisPromptData holds the dynamic data injected into the scene analysis
// prompt template.
type AnalysisPromptData struct {
	SceneDescription string
}

// RenderSceneAnalysisPrompt renders the scene analysis prompt for the given
// description.
func RenderSceneAnalysisPrompt(description string) string {
	var buf bytes.Buffer
	_ = sceneAnalysisTmpl.Execute(&buf, AnalysisPromptData{SceneDescription: description})
	return buf.String()
}
