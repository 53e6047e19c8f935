// Package api is the HTTP client for the central Lumine sync endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/WellingtonFilho7/lumine-sync/internal/models"
)

// Server error codes carried on HTTP 409 responses.
const (
	CodeRevisionMismatch  = "REVISION_MISMATCH"
	CodeDataLossPrevented = "DATA_LOSS_PREVENTED"
)

// Counts reports how many entities the server holds; sent with
// DATA_LOSS_PREVENTED rejections.
type Counts struct {
	Children int `json:"children"`
	Records  int `json:"records"`
}

// Error is a structured failure from the sync endpoint. Transport
// failures are returned as-is, not wrapped in Error.
type Error struct {
	Status      int
	Code        string
	Message     string
	Details     string
	ServerCount *Counts
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sync api: %d %s", e.Status, e.Code)
	}
	if e.Message != "" {
		return fmt.Sprintf("sync api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("sync api: HTTP %d", e.Status)
}

// Payload is the dataset body of a sync write. Children/Records may be
// nil on partial payloads.
type Payload struct {
	Children []models.Child       `json:"children,omitempty"`
	Records  []models.DailyRecord `json:"records,omitempty"`
}

// rawData keeps downloaded entities loosely typed; they are normalized
// once, at ingestion, by the caller.
type rawData struct {
	Children any `json:"children"`
	Records  any `json:"records"`
}

// PullResponse is the body of GET <syncUrl>, used both as a revision
// pre-check (Data ignored) and as a full download.
type PullResponse struct {
	Success  bool     `json:"success"`
	DataRev  int64    `json:"dataRev"`
	Children any      `json:"-"`
	Records  any      `json:"-"`
	Data     *rawData `json:"data"`
}

// SyncResponse is the body of a successful POST.
type SyncResponse struct {
	Success bool   `json:"success"`
	DataRev int64  `json:"dataRev"`
	ChildID string `json:"childId"`
}

type Client struct {
	BaseURL  string
	Token    string
	DeviceID string
	Version  string
	HTTP     *http.Client
}

func New(baseURL, token, deviceID, version string) *Client {
	return &Client{
		BaseURL:  baseURL,
		Token:    token,
		DeviceID: deviceID,
		Version:  version,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) headers(req *http.Request, isJSON bool) {
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.DeviceID != "" {
		req.Header.Set("X-Device-Id", c.DeviceID)
	}
	if c.Version != "" {
		req.Header.Set("X-Client-Version", c.Version)
	}
}

// Pull GETs the server state.
func (c *Client) Pull(ctx context.Context) (*PullResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return nil, err
	}
	c.headers(req, false)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out PullResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.Data != nil {
		out.Children = out.Data.Children
		out.Records = out.Data.Records
	}
	return &out, nil
}

// Sync POSTs the full (or partial) dataset guarded by ifMatchRev. The
// server rejects with 409 REVISION_MISMATCH when its revision moved.
func (c *Client) Sync(ctx context.Context, ifMatchRev int64, data Payload) (*SyncResponse, error) {
	body := map[string]any{
		"action":     "sync",
		"ifMatchRev": ifMatchRev,
		"data":       data,
	}
	return c.post(ctx, body)
}

// AddChild pushes a single child; the response may carry the
// server-assigned childId.
func (c *Client) AddChild(ctx context.Context, child models.Child) (*SyncResponse, error) {
	return c.post(ctx, map[string]any{"action": "addChild", "data": child})
}

// AddRecord pushes a single daily record.
func (c *Client) AddRecord(ctx context.Context, rec models.DailyRecord) (*SyncResponse, error) {
	return c.post(ctx, map[string]any{"action": "addRecord", "data": rec})
}

// DeleteChild deletes a child (and its records) remotely.
func (c *Client) DeleteChild(ctx context.Context, id string) (*SyncResponse, error) {
	return c.post(ctx, map[string]any{"action": "deleteChild", "data": map[string]string{"id": id}})
}

func (c *Client) post(ctx context.Context, body map[string]any) (*SyncResponse, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	c.headers(req, true)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out SyncResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// errBody is the wire shape of a failed response.
type errBody struct {
	Success     bool    `json:"success"`
	Code        string  `json:"error"`
	Message     string  `json:"message"`
	Details     string  `json:"details"`
	ServerCount *Counts `json:"serverCount"`
}

func decode(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errBody
		_ = json.Unmarshal(raw, &eb)
		return &Error{
			Status:      resp.StatusCode,
			Code:        eb.Code,
			Message:     eb.Message,
			Details:     eb.Details,
			ServerCount: eb.ServerCount,
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	// 2xx with success:false still counts as a failure.
	var eb errBody
	if json.Unmarshal(raw, &eb) == nil && !eb.Success {
		return &Error{
			Status:      resp.StatusCode,
			Code:        eb.Code,
			Message:     eb.Message,
			Details:     eb.Details,
			ServerCount: eb.ServerCount,
		}
	}
	return nil
}
