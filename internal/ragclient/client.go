// Package ragclient talks to the external AI service that ingests PDFs and answers chat turns.
package ragclient

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
)

type Client struct {
	endpoint string
	client   *http.Client
	// stream has no overall timeout; streams live as long as the generation.
	stream *http.Client
}

func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		stream:   &http.Client{},
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// SendRequest registers one chat turn. Demo selects the demo body shape.
type SendRequest struct {
	Message         string
	ChatSessionID   string
	PdfID           string
	UserID          string
	Model           string
	RetrievalMethod string
	Token           string
	Demo            bool
}

type legacySendBody struct {
	Message       string `json:"message"`
	ChatSessionID string `json:"chat_session_id"`
	PdfID         string `json:"pdf_id"`
	UserID        string `json:"userId"`
}

type demoSendBody struct {
	Message         string `json:"message"`
	ChatSessionID   string `json:"chat_session_id"`
	PdfID           string `json:"pdfId"`
	Model           string `json:"model,omitempty"`
	RetrievalMethod string `json:"retrieval_method,omitempty"`
}

func (c *Client) ChatSend(ctx context.Context, req SendRequest) error {
	var body interface{}
	if req.Demo {
		body = demoSendBody{
			Message:         req.Message,
			ChatSessionID:   req.ChatSessionID,
			PdfID:           req.PdfID,
			Model:           req.Model,
			RetrievalMethod: req.RetrievalMethod,
		}
	} else {
		body = legacySendBody{
			Message:       req.Message,
			ChatSessionID: req.ChatSessionID,
			PdfID:         req.PdfID,
			UserID:        req.UserID,
		}
	}
	_, err := c.postJSON(ctx, "/chat_send", body, req.Token)
	return err
}

type upsertBody struct {
	PdfID  string `json:"pdfId"`
	UserID string `json:"userId"`
}

// UpsertPDF asks the service to ingest a stored PDF and returns its raw response payload.
func (c *Client) UpsertPDF(ctx context.Context, pdfID, userID, token string) (string, error) {
	return c.postJSON(ctx, "/upsert_pdf", upsertBody{PdfID: pdfID, UserID: userID}, token)
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}, token string) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	setBearer(req, token)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &StatusError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return string(raw), nil
}

// StreamRequest opens the event stream of one chat session.
type StreamRequest struct {
	SessionID string
	Demo      bool
	Token     string
}

func (c *Client) OpenStream(ctx context.Context, req StreamRequest) (*Stream, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	path, format := "/chat_stream/", FormatLegacy
	if req.Demo {
		path, format = "/demo_chat_stream/", FormatEnvelope
	}
	streamCtx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.endpoint+path+url.PathEscape(req.SessionID), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	setBearer(httpReq, req.Token)
	resp, err := c.stream.Do(httpReq)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel()
		return nil, &StatusError{Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return newStream(resp.Body, format, cancel), nil
}

type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Path, e.Status, e.Body)
}

func setBearer(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
