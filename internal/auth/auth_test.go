package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetAPIKeyFromEnv(t *testing.T) {
	const testKey = "test-api-key-12345"

	originalKey := os.Getenv("GEMINI_API_KEY")
	defer os.Setenv("GEMINI_API_KEY", originalKey)

	os.Setenv("GEMINI_API_KEY", testKey)

	key, err := GetAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if key != testKey {
		t.Errorf("expected key %q, got %q", testKey, key)
	}
}

func TestGetAPIKeyNoSource(t *testing.T) {
	originalKey := os.Getenv("GEMINI_API_KEY")
	defer os.Setenv("GEMINI_API_KEY", originalKey)

	os.Unsetenv("GEMINI_API_KEY")

	// Create a temporary home directory without credentials
	tmpHome := t.TempDir()
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)
	os.Setenv("HOME", tmpHome)

	_, err := GetAPIKey()
	if err == nil {
		t.Error("expected error when no API key source available")
	}
}

func TestGetCredentialPath(t *testing.T) {
	path, err := getCredentialPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".sceneforge", "credentials.gpg")

	if path != expected {
		t.Errorf("expected path %q, got %q", expected, path)
	}
}

func TestGetRunnerCredentials(t *testing.T) {
	originalURL := os.Getenv("SCENEFORGE_RUNNER_URL")
	originalToken := os.Getenv("SCENEFORGE_RUNNER_TOKEN")
	defer func() {
		os.Setenv("SCENEFORGE_RUNNER_URL", originalURL)
		os.Setenv("SCENEFORGE_RUNNER_TOKEN", originalToken)
	}()

	os.Unsetenv("SCENEFORGE_RUNNER_URL")
	os.Unsetenv("SCENEFORGE_RUNNER_TOKEN")
	if _, _, err := GetRunnerCredentials(); err == nil {
		t.Error("expected error when runner endpoint is not configured")
	}

	os.Setenv("SCENEFORGE_RUNNER_URL", "https://runner.example.com")
	endpoint, token, err := GetRunnerCredentials()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if endpoint != "https://runner.example.com" {
		t.Errorf("endpoint = %q", endpoint)
	}
	if token != "" {
		t.Errorf("token = %q, want empty when unset", token)
	}

	os.Setenv("SCENEFORGE_RUNNER_TOKEN", "secret")
	if _, token, _ = GetRunnerCredentials(); token != "secret" {
		t.Errorf("token = %q, want secret", token)
	}
}

func TestGetFromGPGFileNotFound(t *testing.T) {
	// Create a temporary home directory without credentials
	tmpHome := t.TempDir()
	originalHome := os.Getenv("HOME")
	defer os.Setenv("HOME", originalHome)
	os.Setenv("HOME", tmpHome)

	_, err := getFromGPG()
	if err == nil {
		t.Error("expected error when credentials file does not exist")
	}
}

