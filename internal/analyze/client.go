package analyze

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// NewGeminiClient creates a Gemini API client with the given API key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// ModelName returns the analysis model to use, preferring the
// SCENEFORGE_MODEL environment variable over DefaultModel.
func ModelName() string {
	if model := os.Getenv("SCENEFORGE_MODEL"); model != "" {
		return model
	}
	return DefaultModel
}
