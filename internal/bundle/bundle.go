// Package bundle builds ZIP archives of a finished generation's output
// videos for download, using Zstandard-compressed ZIP entries.
package bundle

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/jtallis/sceneforge/internal/store"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE
// 6.3.7). Registered in init() with zstd level 12 (SpeedBestCompression in
// klauspost/compress).
const zipMethodZstd uint16 = 93

func init() {
	// Level 12 maps to SpeedBestCompression in klauspost/compress — the
	// highest compression the Go library supports. This trades CPU time
	// for smaller ZIPs.
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	})
}

// Fetcher retrieves the bytes of one generated output.
type Fetcher func(ctx context.Context, output store.HistoryOutput) (io.ReadCloser, error)

// HTTPFetcher fetches outputs over their durable URLs. A nil client uses a
// 60-second default.
func HTTPFetcher(client *http.Client) Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return func(ctx context.Context, output store.HistoryOutput) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, output.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch output: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch output: unexpected HTTP %d", resp.StatusCode)
		}
		return resp.Body, nil
	}
}

// S3Fetcher fetches outputs by storage key; used in Lambda mode where
// outputs live in the project bucket.
func S3Fetcher(client *s3.Client, bucket string) Fetcher {
	return func(ctx context.Context, output store.HistoryOutput) (io.ReadCloser, error) {
		if output.S3Key == "" {
			return nil, fmt.Errorf("output for slot %d has no storage key", output.Slot)
		}
		result, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &output.S3Key,
		})
		if err != nil {
			return nil, fmt.Errorf("S3 GetObject: %w", err)
		}
		return result.Body, nil
	}
}

// Write streams a ZIP of the history item's outputs to w. Outputs that fail
// to fetch are skipped with a warning; an archive with zero entries is an
// error. Returns the number of entries written.
func Write(ctx context.Context, w io.Writer, item *store.HistoryItem, fetch Fetcher) (int, error) {
	zipWriter := zip.NewWriter(w)
	entries := 0

	for _, output := range item.Outputs {
		body, err := fetch(ctx, output)
		if err != nil {
			log.Warn().Err(err).Int("slot", output.Slot).Msg("Failed to fetch output for bundle, skipping")
			continue
		}

		header := &zip.FileHeader{
			Name:     entryName(output),
			Method:   zipMethodZstd,
			Modified: time.Now(),
		}
		entry, err := zipWriter.CreateHeader(header)
		if err != nil {
			body.Close()
			return entries, fmt.Errorf("create ZIP entry for slot %d: %w", output.Slot, err)
		}
		if _, err := io.Copy(entry, body); err != nil {
			body.Close()
			return entries, fmt.Errorf("write ZIP entry for slot %d: %w", output.Slot, err)
		}
		body.Close()
		entries++
	}

	if err := zipWriter.Close(); err != nil {
		return entries, fmt.Errorf("close ZIP writer: %w", err)
	}
	if entries == 0 {
		return 0, fmt.Errorf("no outputs could be bundled (%d listed)", len(item.Outputs))
	}

	log.Info().Str("historyId", item.ID).Int("entries", entries).Msg("Output bundle written")
	return entries, nil
}

// entryName derives the archive entry name for an output, defaulting the
// extension to .mp4 when the source URL/key carries none.
func entryName(output store.HistoryOutput) string {
	ext := ""
	if output.S3Key != "" {
		ext = path.Ext(output.S3Key)
	}
	if ext == "" && output.URL != "" {
		trimmed := output.URL
		if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
			trimmed = trimmed[:i]
		}
		ext = path.Ext(trimmed)
	}
	if ext == "" {
		ext = ".mp4"
	}
	return fmt.Sprintf("shot-%d%s", output.Slot, ext)
}

// Name builds a download filename for a history item's bundle from its
// scene description.
func Name(item *store.HistoryItem) string {
	name := item.SceneDescription
	if name == "" {
		name = "scene"
	}
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == ' ' {
			return r
		}
		return '-'
	}, name)
	name = strings.TrimSpace(name)
	if len(name) > 50 {
		name = name[:50]
	}
	return fmt.Sprintf("%s-outputs.zip", strings.TrimSpace(name))
}
