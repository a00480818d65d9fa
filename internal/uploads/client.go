// Package uploads implements the client side of the upload service: request
// a presigned upload slot for a local file, push the bytes, and exchange the
// returned storage key for a durable download URL. Reference images are
// validated locally before any upload is requested.
package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTimeout = 60 * time.Second

// Ticket is an issued upload slot: where to PUT the bytes and the storage
// key the service will know them by.
type Ticket struct {
	UploadURL  string `json:"uploadUrl"`
	StorageKey string `json:"key"`
}

// Client talks to the upload-url/download-url endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates an upload service client for the given API base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		token:      token,
	}
}

// RequestUpload asks the service for a presigned upload slot.
func (c *Client) RequestUpload(ctx context.Context, filename, contentType string) (*Ticket, error) {
	payload, err := json.Marshal(map[string]string{
		"filename":    filename,
		"contentType": contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload-url", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload-url request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload-url: unexpected HTTP %d (body: %s)", resp.StatusCode, truncate(string(body), 200))
	}

	var ticket Ticket
	if err := json.Unmarshal(body, &ticket); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if ticket.UploadURL == "" || ticket.StorageKey == "" {
		return nil, fmt.Errorf("upload-url: incomplete ticket (url=%q key=%q)", ticket.UploadURL, ticket.StorageKey)
	}

	log.Debug().Str("filename", filename).Str("key", ticket.StorageKey).Msg("Upload slot issued")
	return &ticket, nil
}

// Put uploads the file bytes to a previously issued upload slot.
func (c *Client) Put(ctx context.Context, ticket *Ticket, contentType string, data io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, ticket.UploadURL, data)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload: unexpected HTTP %d", resp.StatusCode)
	}

	log.Debug().Str("key", ticket.StorageKey).Msg("Upload complete")
	return nil
}

// DownloadURL exchanges a storage key for a durable download URL.
func (c *Client) DownloadURL(ctx context.Context, storageKey string) (string, error) {
	endpoint := c.baseURL + "/api/download-url?key=" + url.QueryEscape(storageKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download-url request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download-url: unexpected HTTP %d (body: %s)", resp.StatusCode, truncate(string(body), 200))
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("download-url: empty url for key %s", storageKey)
	}
	return result.URL, nil
}

// UploadFile runs the full two-step flow for an already validated file:
// request a slot, PUT the bytes, and return the storage key and its durable
// URL.
func (c *Client) UploadFile(ctx context.Context, filename, contentType string, data []byte) (key, downloadURL string, err error) {
	ticket, err := c.RequestUpload(ctx, filename, contentType)
	if err != nil {
		return "", "", err
	}
	if err := c.Put(ctx, ticket, contentType, bytes.NewReader(data)); err != nil {
		return "", "", err
	}
	downloadURL, err = c.DownloadURL(ctx, ticket.StorageKey)
	if err != nil {
		return "", "", err
	}
	return ticket.StorageKey, downloadURL, nil
}

// UploadReferenceImage validates the bytes as a usable reference image and
// then runs the full upload flow with the detected content type.
func (c *Client) UploadReferenceImage(ctx context.Context, filename string, data []byte) (key, downloadURL string, err error) {
	info, err := ValidateReferenceImage(data)
	if err != nil {
		return "", "", err
	}
	return c.UploadFile(ctx, filename, info.ContentType, data)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// truncate returns the first n characters of s, appending "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
