// Package slack delivers the rendered calendar PNG to a channel using the
// external upload flow: request an upload URL, send the raw bytes, then
// complete the upload to share the file.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultBaseURL is the Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// Client is a minimal Slack Web API client scoped to file uploads.
type Client struct {
	// BaseURL may be overridden in tests; it defaults to DefaultBaseURL.
	BaseURL string

	token      string
	httpClient *http.Client
}

// NewClient creates a Client with the given bot token. timeout bounds each
// HTTP call; zero means 30 seconds.
func NewClient(token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// apiResponse covers the fields we need from both upload endpoints.
type apiResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	UploadURL string `json:"upload_url"`
	FileID    string `json:"file_id"`
}

// UploadFile shares the file at path into channelID with the given title
// and comment. A missing file is not an error: the render step may have
// been skipped, and the workflow should not fail because of it.
func (c *Client) UploadFile(ctx context.Context, channelID, path, title, comment string) error {
	if c.token == "" || channelID == "" {
		return errors.New("slack: token and channel ID are required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.WithField("path", path).Warn("upload file not found, skipping Slack post")
			return nil
		}
		return fmt.Errorf("slack: read %s: %w", path, err)
	}
	filename := filepath.Base(path)
	if title == "" {
		title = filename
	}

	uploadURL, fileID, err := c.getUploadURL(ctx, filename, len(data))
	if err != nil {
		return err
	}

	if err := c.putBytes(ctx, uploadURL, data); err != nil {
		return err
	}

	if err := c.completeUpload(ctx, channelID, fileID, title, comment); err != nil {
		return err
	}

	log.WithFields(log.Fields{"file_id": fileID, "channel": channelID, "bytes": len(data)}).
		Info("calendar posted to Slack")
	return nil
}

func (c *Client) getUploadURL(ctx context.Context, filename string, length int) (uploadURL, fileID string, err error) {
	form := url.Values{
		"filename": {filename},
		"length":   {strconv.Itoa(length)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/files.getUploadURLExternal", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp apiResponse
	if err := c.do(req, &resp); err != nil {
		return "", "", fmt.Errorf("slack: files.getUploadURLExternal: %w", err)
	}
	if resp.UploadURL == "" || resp.FileID == "" {
		return "", "", errors.New("slack: files.getUploadURLExternal returned no upload_url or file_id")
	}
	return resp.UploadURL, resp.FileID, nil
}

// putBytes sends the file body to the pre-signed upload URL. No auth
// header is required and no JSON envelope comes back.
func (c *Client) putBytes(ctx context.Context, uploadURL string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack: binary upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("slack: binary upload failed (HTTP %d): %s", resp.StatusCode, body)
	}
	return nil
}

func (c *Client) completeUpload(ctx context.Context, channelID, fileID, title, comment string) error {
	payload := map[string]any{
		"channel_id":      channelID,
		"initial_comment": comment,
		"files": []map[string]string{
			{"id": fileID, "title": title},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/files.completeUploadExternal", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	var resp apiResponse
	if err := c.do(req, &resp); err != nil {
		return fmt.Errorf("slack: files.completeUploadExternal: %w", err)
	}
	return nil
}

// do executes a Web API request and decodes the JSON envelope, converting
// ok:false responses into errors.
func (c *Client) do(req *http.Request, out *apiResponse) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("non-JSON response (HTTP %d): %w", resp.StatusCode, err)
	}
	if !out.OK {
		return fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, out.Error)
	}
	return nil
}
