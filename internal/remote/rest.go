package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shiftlog/shiftlog/pkg/models"
	"github.com/shiftlog/shiftlog/pkg/repository"
)

// RESTClient talks to the shiftlog backend. The bearer token is explicit
// client state set by Login, owned by whoever constructed the client.
type RESTClient struct {
	baseURL string
	client  *http.Client
	token   string
}

var _ repository.RemoteSource = (*RESTClient)(nil)

// NewRESTClient creates a client for the given API base URL, e.g.
// "http://localhost:4000/api".
func NewRESTClient(baseURL string, httpClient *http.Client) (*RESTClient, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &RESTClient{baseURL: strings.TrimRight(baseURL, "/"), client: httpClient}, nil
}

// SetToken installs a previously issued bearer token.
func (c *RESTClient) SetToken(token string) { c.token = token }

type loginResponse struct {
	Token string            `json:"token"`
	User  models.Technician `json:"user"`
}

// Login exchanges credentials for a bearer token and stores it on the
// client. The returned user carries the role the server resolved.
func (c *RESTClient) Login(ctx context.Context, technicianID, password, shift string) (models.Technician, error) {
	var out loginResponse
	body := map[string]string{"technicianId": technicianID, "password": password, "shift": shift}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out, false); err != nil {
		return models.Technician{}, err
	}

	c.token = out.Token
	return out.User, nil
}

// Technicians lists the active technicians; no auth required.
func (c *RESTClient) Technicians(ctx context.Context) ([]models.Technician, error) {
	var out []models.Technician
	if err := c.do(ctx, http.MethodGet, "/public/technicians", nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// List fetches the full job array, tombstones included.
func (c *RESTClient) List(ctx context.Context) ([]models.Job, error) {
	var out []models.Job
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert sends the full record; idempotent by id. Soft deletion travels as
// Deleted=true on the same call.
func (c *RESTClient) Upsert(ctx context.Context, job models.Job) error {
	var out models.Job
	return c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(job.ID), job, &out, true)
}

// Delete flags the record deleted via the dedicated endpoint (admin only).
func (c *RESTClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, true)
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *RESTClient) do(ctx context.Context, method, path string, body, out any, auth bool) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp, method, path)
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrParse, method, path, err)
	}
	if envelope.Data == nil {
		return fmt.Errorf("%w: %s %s: missing data envelope", ErrParse, method, path)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrParse, method, path, err)
	}

	return nil
}

func (c *RESTClient) statusError(resp *http.Response, method, path string) error {
	var kind error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		kind = ErrAuth
	case http.StatusForbidden:
		kind = ErrForbidden
	case http.StatusNotFound:
		kind = ErrNotFound
	}

	var env errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Error.Message == "" {
		if kind != nil {
			return fmt.Errorf("%w: HTTP %d", kind, resp.StatusCode)
		}
		return fmt.Errorf("%w: HTTP %d with non-envelope body", ErrParse, resp.StatusCode)
	}

	logger.Warn("backend error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("code", env.Error.Code),
	)

	if kind != nil {
		return fmt.Errorf("%w: %s", kind, env.Error.Message)
	}
	return fmt.Errorf("backend rejected %s %s: HTTP %d: %s", method, path, resp.StatusCode, env.Error.Message)
}
