package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shiftlog/shiftlog/pkg/models"
	"github.com/shiftlog/shiftlog/pkg/repository"
)

// SheetsClient talks to a spreadsheet webhook endpoint (a deployed Apps
// Script web app). Writes are fire-and-forget: the script answers with an
// opaque body, so success is the absence of a network-level error.
type SheetsClient struct {
	url    string
	client *http.Client
}

var _ repository.RemoteSource = (*SheetsClient)(nil)

func NewSheetsClient(webhookURL string, httpClient *http.Client) (*SheetsClient, error) {
	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &SheetsClient{url: webhookURL, client: httpClient}, nil
}

type sheetsPayload struct {
	Action string `json:"action"`
	models.Job
}

type sheetsListing struct {
	Success bool         `json:"success"`
	Data    []models.Job `json:"data"`
}

// Upsert POSTs the full record. Deletion is the same call with the action
// set to "delete" and the Deleted flag carried in the body.
func (c *SheetsClient) Upsert(ctx context.Context, job models.Job) error {
	action := "upsert"
	if job.Deleted {
		action = "delete"
	}

	b, err := json.Marshal(sheetsPayload{Action: action, Job: job})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post to sheet: %v", ErrNetwork, err)
	}
	// The script's response is not interpretable; drain and move on.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return nil
}

// List GETs the sheet contents. A script-side failure renders an HTML error
// page instead of JSON; that and a success=false body are both reported as
// ErrParse so the caller can tell a broken listing apart from a genuinely
// empty sheet (a prune over a bogus empty listing would wipe local state).
func (c *SheetsClient) List(ctx context.Context) ([]models.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get sheet: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: sheet returned HTTP %d", ErrParse, resp.StatusCode)
	}

	if looksLikeHTML(body) {
		return nil, fmt.Errorf("%w: sheet returned an HTML error page", ErrParse)
	}

	var listing sheetsListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("%w: decode sheet listing: %v", ErrParse, err)
	}
	if !listing.Success {
		return nil, fmt.Errorf("%w: sheet reported success=false", ErrParse)
	}

	return listing.Data, nil
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(bytes.TrimSpace(body)))
	if len(head) > 64 {
		head = head[:64]
	}
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}
