package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/jtallis/sceneforge/internal/store"
)

func init() {
	// Tests read the archives back, so the zstd method needs a decompressor too.
	zip.RegisterDecompressor(zipMethodZstd, func(r io.Reader) io.ReadCloser {
		d, err := zstd.NewReader(r)
		if err != nil {
			return io.NopCloser(bytes.NewReader(nil))
		}
		return d.IOReadCloser()
	})
}

func TestWriteBundlesAllOutputs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/out-1.mp4":
			w.Write([]byte("video one bytes"))
		case "/out-2.webm":
			w.Write([]byte("video two bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	item := &store.HistoryItem{
		ID:               "hist-1",
		SceneDescription: "Rooftop chase",
		Outputs: []store.HistoryOutput{
			{Slot: 1, URL: srv.URL + "/out-1.mp4"},
			{Slot: 2, URL: srv.URL + "/out-2.webm"},
		},
	}

	var buf bytes.Buffer
	entries, err := Write(context.Background(), &buf, item, HTTPFetcher(srv.Client()))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if entries != 2 {
		t.Errorf("entries = %d, want 2", entries)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read archive back: %v", err)
	}
	want := map[string]string{
		"shot-1.mp4":  "video one bytes",
		"shot-2.webm": "video two bytes",
	}
	if len(zr.File) != len(want) {
		t.Fatalf("archive has %d files, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		content, ok := want[f.Name]
		if !ok {
			t.Errorf("unexpected entry %q", f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		if string(data) != content {
			t.Errorf("entry %s = %q, want %q", f.Name, data, content)
		}
	}
}

func TestWriteSkipsFailedFetches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/good.mp4" {
			w.Write([]byte("ok"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	item := &store.HistoryItem{
		Outputs: []store.HistoryOutput{
			{Slot: 1, URL: srv.URL + "/missing.mp4"},
			{Slot: 2, URL: srv.URL + "/good.mp4"},
		},
	}

	var buf bytes.Buffer
	entries, err := Write(context.Background(), &buf, item, HTTPFetcher(srv.Client()))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if entries != 1 {
		t.Errorf("entries = %d, want 1", entries)
	}
}

func TestWriteFailsWithNoBundleableOutputs(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	item := &store.HistoryItem{
		Outputs: []store.HistoryOutput{{Slot: 1, URL: srv.URL + "/gone.mp4"}},
	}
	var buf bytes.Buffer
	if _, err := Write(context.Background(), &buf, item, HTTPFetcher(srv.Client())); err == nil {
		t.Fatal("Write succeeded with zero bundleable outputs")
	}
}

func TestName(t *testing.T) {
	cases := []struct {
		description string
		want        string
	}{
		{"Rooftop chase", "Rooftop chase-outputs.zip"},
		{"", "scene-outputs.zip"},
		{"a/b\\c:d", "a-b-c-d-outputs.zip"},
	}
	for _, tc := range cases {
		item := &store.HistoryItem{SceneDescription: tc.description}
		if got := Name(item); got != tc.want {
			t.Errorf("Name(%q) = %q, want %q", tc.description, got, tc.want)
		}
	}
}
