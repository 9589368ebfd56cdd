package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/pdfchat/internal/model"
)

// APIClient reads option lists from, and saves sessions to, the pdfchat gateway.
type APIClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *APIClient) ListDocuments(ctx context.Context) ([]model.Document, error) {
	var out struct {
		Documents []model.Document `json:"documents"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/pdf/get-user-pdfs", nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *APIClient) ListSessions(ctx context.Context) ([]model.ChatSession, error) {
	var out struct {
		Sessions []model.ChatSession `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chat", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// CurrentUser resolves the account behind the token.
func (c *APIClient) CurrentUser(ctx context.Context) (*model.User, error) {
	var out struct {
		User *model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/current-user", nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, fmt.Errorf("current user: empty response")
	}
	return out.User, nil
}

func (c *APIClient) SaveSession(ctx context.Context, session *model.ChatSession) error {
	return c.do(ctx, http.MethodPost, "/api/chat", session, nil)
}

func (c *APIClient) DemoDocuments(ctx context.Context) ([]model.Document, error) {
	var out struct {
		Documents []model.Document `json:"documents"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/demo/pdfs", nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var gate struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &gate) == nil && gate.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, gate.Error)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if env.Code != 0 {
		return fmt.Errorf("%s %s: %s (code %d)", method, path, env.Message, env.Code)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// DemoSource offers the demo documents and no saved sessions.
type DemoSource struct {
	API *APIClient
}

func (d DemoSource) ListDocuments(ctx context.Context) ([]model.Document, error) {
	return d.API.DemoDocuments(ctx)
}

func (d DemoSource) ListSessions(ctx context.Context) ([]model.ChatSession, error) {
	return nil, nil
}
