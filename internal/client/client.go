// Package client talks to the notes REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
	"go.uber.org/zap"
)

const apiPrefix = "/api"

// Operation messages surfaced to users. They are intentionally static.
const (
	MessageList           = "failed to load notes"
	MessageCreate         = "failed to create note"
	MessageUpdate         = "failed to update note"
	MessageToggleComplete = "failed to update note status"
	MessageDelete         = "failed to delete note"
)

var errMissingBaseURL = errors.New("client: base url is required")

// RepositoryError is the only error kind returned by Client operations.
// It carries a static, operation-specific message and nothing else.
type RepositoryError struct {
	message string
}

func (e *RepositoryError) Error() string {
	return e.message
}

// Message returns the human-readable message for display.
func (e *RepositoryError) Message() string {
	return e.message
}

// Config describes how to reach the notes API.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client issues note operations against {BaseURL}/api.
type Client struct {
	apiURL     string
	httpClient *http.Client
	logger     *zap.Logger
}

// New constructs a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errMissingBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiURL:     base + apiPrefix,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// List fetches every note in the order the server returns them.
func (c *Client) List(ctx context.Context) ([]notes.Note, error) {
	var collection []notes.Note
	if err := c.do(ctx, http.MethodGet, "/notes", nil, &collection, MessageList); err != nil {
		return nil, err
	}
	if collection == nil {
		collection = []notes.Note{}
	}
	return collection, nil
}

// Create stores a new note and returns the server's record.
func (c *Client) Create(ctx context.Context, draft notes.NoteDraft) (notes.Note, error) {
	var created notes.Note
	if err := c.do(ctx, http.MethodPost, "/notes", draft, &created, MessageCreate); err != nil {
		return notes.Note{}, err
	}
	return created, nil
}

// Update replaces a note's title, content and, when set, completion flag.
func (c *Client) Update(ctx context.Context, noteID string, update notes.NoteUpdate) (notes.Note, error) {
	var updated notes.Note
	if err := c.do(ctx, http.MethodPut, notePath(noteID), update, &updated, MessageUpdate); err != nil {
		return notes.Note{}, err
	}
	return updated, nil
}

// ToggleComplete sets the completion flag only.
func (c *Client) ToggleComplete(ctx context.Context, noteID string, completed bool) (notes.Note, error) {
	var updated notes.Note
	body := notes.CompletionUpdate{Completed: completed}
	if err := c.do(ctx, http.MethodPatch, notePath(noteID)+"/toggle-complete", body, &updated, MessageToggleComplete); err != nil {
		return notes.Note{}, err
	}
	return updated, nil
}

// Delete removes a note. The response body is ignored.
func (c *Client) Delete(ctx context.Context, noteID string) error {
	return c.do(ctx, http.MethodDelete, notePath(noteID), nil, nil, MessageDelete)
}

func notePath(noteID string) string {
	return "/notes/" + url.PathEscape(noteID)
}

func (c *Client) do(ctx context.Context, method, path string, requestBody, responseBody any, message string) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return c.fail(message, method, path, err)
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return c.fail(message, method, path, err)
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return c.fail(message, method, path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return c.fail(message, method, path, fmt.Errorf("unexpected status %d: %s", response.StatusCode, strings.TrimSpace(string(snippet))))
	}

	if responseBody == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(responseBody); err != nil {
		return c.fail(message, method, path, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) fail(message, method, path string, cause error) error {
	c.logger.Warn("notes api request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Error(cause))
	return &RepositoryError{message: message}
}
