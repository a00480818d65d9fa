package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jtallis/sceneforge/internal/analyze"
	"github.com/jtallis/sceneforge/internal/api"
	"github.com/jtallis/sceneforge/internal/auth"
	"github.com/jtallis/sceneforge/internal/bundle"
	"github.com/jtallis/sceneforge/internal/cli"
	"github.com/jtallis/sceneforge/internal/logging"
	"github.com/jtallis/sceneforge/internal/runner"
	"github.com/jtallis/sceneforge/internal/s3util"
	"github.com/jtallis/sceneforge/internal/store"
)

// CLI flags
var (
	portFlag     int
	modelFlag    string
	stateDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "sceneforge-web",
	Short: "Local web server for the scene-to-video wizard",
	Long: `SceneForge Web serves the wizard API on localhost: scene analysis, shot
configuration, pricing estimates, generation tracking, and history downloads.

Examples:
  sceneforge-web
  sceneforge-web --port 9090
  sceneforge-web --model gemini-3-pro-preview`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", analyze.ModelName(), "Gemini model to use")
	rootCmd.Flags().StringVar(&stateDirFlag, "state-dir", "", "State directory (default: <user config dir>/sceneforge)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	ctx, client := cli.InitGeminiClient()

	cfg := api.Config{
		Analyzer: analyze.New(client, modelFlag),
	}

	// The Generation Runner is optional: without it the wizard still
	// analyzes and configures, and generation endpoints answer 503.
	if endpoint, token, err := auth.GetRunnerCredentials(); err != nil {
		log.Warn().Err(err).Msg("Generation runner not configured — generation disabled")
	} else {
		cfg.Runner = runner.NewClient(endpoint, token)
	}

	stateDir := stateDirFlag
	if stateDir == "" {
		var err error
		stateDir, err = store.DefaultStateDir()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve state directory")
		}
	}
	fileStore, err := store.NewFileStore(stateDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open state store")
	}
	cfg.Store = fileStore

	// S3-backed uploads and bundling switch on when a bucket is configured.
	if bucket := os.Getenv("SCENEFORGE_UPLOAD_BUCKET"); bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS config")
		}
		s3Client := s3.NewFromConfig(awsCfg)
		cfg.Presigner = s3util.NewPresigner(s3.NewPresignClient(s3Client), bucket)
		cfg.BundleFetcher = bundle.S3Fetcher(s3Client, bucket)
		log.Info().Str("bucket", bucket).Msg("S3 uploads enabled")
	}

	server := api.NewServer(cfg)
	defer server.Shutdown()

	mux := http.NewServeMux()
	server.Routes(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	})

	handler := withLogging(withCORS(mux))

	addr := fmt.Sprintf(":%d", portFlag)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Int("port", portFlag).Msg("Starting web server")
	fmt.Printf("\n  SceneForge API: http://localhost:%d\n\n", portFlag)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// --- Middleware ---

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only allow localhost origins
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Project-Id")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
