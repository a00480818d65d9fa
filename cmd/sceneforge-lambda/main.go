// Package main is the Lambda entry point for the scene-to-video wizard API.
//
// It serves the same handler set as the local web server behind API Gateway,
// with DynamoDB for project persistence and S3 for reference-image uploads
// and output bundling.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/jtallis/sceneforge/internal/analyze"
	"github.com/jtallis/sceneforge/internal/api"
	"github.com/jtallis/sceneforge/internal/bundle"
	"github.com/jtallis/sceneforge/internal/lambdaboot"
	"github.com/jtallis/sceneforge/internal/logging"
	"github.com/jtallis/sceneforge/internal/s3util"
)

var (
	apiConfig          api.Config
	originVerifySecret string // shared secret injected by CloudFront
)

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	lambdaboot.LoadGeminiKey(aws.SSM)

	client, err := analyze.NewGeminiClient(context.Background(), os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	apiConfig.Analyzer = analyze.New(client, analyze.ModelName())

	apiConfig.Runner = lambdaboot.LoadRunnerCreds(aws.SSM)

	if store := lambdaboot.InitDynamoOptional(aws.Config, "SCENEFORGE_TABLE_NAME"); store != nil {
		apiConfig.Store = store
	}

	bucket := os.Getenv("SCENEFORGE_UPLOAD_BUCKET")
	if bucket != "" {
		s3Clients := lambdaboot.InitS3(aws.Config, "SCENEFORGE_UPLOAD_BUCKET")
		apiConfig.Presigner = s3util.NewPresigner(s3Clients.Presigner, s3Clients.Bucket)
		apiConfig.BundleFetcher = bundle.S3Fetcher(s3Clients.Client, s3Clients.Bucket)
	}

	originVerifySecret = os.Getenv("ORIGIN_VERIFY_SECRET")
	if originVerifySecret == "" {
		log.Warn().Msg("ORIGIN_VERIFY_SECRET not set — origin verification disabled")
	}

	lambdaboot.StartupLog("sceneforge-lambda", initStart).
		DynamoTable("projects", os.Getenv("SCENEFORGE_TABLE_NAME")).
		S3Bucket("uploads", bucket).
		SSMParam("geminiApiKey", logging.EnvOrDefault("SSM_API_KEY_PARAM", "/sceneforge/prod/gemini-api-key")).
		Feature("generation", apiConfig.Runner != nil).
		Feature("uploads", bucket != "").
		Feature("persistence", apiConfig.Store != nil).
		Log()
}

func main() {
	server := api.NewServer(apiConfig)

	mux := http.NewServeMux()
	server.Routes(mux)
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"sceneforge"}`))
	})

	handler := withOriginVerify(mux)

	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}

// withOriginVerify rejects requests lacking the correct x-origin-verify
// header. CloudFront injects the header via a custom origin header, so
// direct API Gateway access is blocked.
func withOriginVerify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if originVerifySecret == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("x-origin-verify") != originVerifySecret {
			log.Warn().Str("path", r.URL.Path).Msg("Blocked request: missing or invalid x-origin-verify header")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"forbidden"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
