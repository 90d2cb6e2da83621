package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jwebster45206/hushpath/internal/engine"
	"github.com/jwebster45206/hushpath/internal/events"
	"github.com/jwebster45206/hushpath/internal/handlers"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status int
	Body   handlers.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Body.Message != "" {
		return e.Body.Message
	}
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Body.Error)
}

// apiClient talks to the Hushpath HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
	// stream has no overall timeout, for the event stream.
	stream *http.Client
}

func newAPIClient(baseURL string, client *http.Client) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    client,
		stream:  &http.Client{Transport: client.Transport},
	}
}

func (c *apiClient) testConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (c *apiClient) createGame(ctx context.Context, genre, appearance string) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	body := handlers.StartRequest{Genre: genre, Appearance: appearance}
	if err := c.do(ctx, http.MethodPost, "/v1/game", body, http.StatusCreated, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *apiClient) restart(ctx context.Context, id, genre, appearance string) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	body := handlers.StartRequest{Genre: genre, Appearance: appearance}
	if err := c.do(ctx, http.MethodPost, "/v1/game/"+url.PathEscape(id)+"/start", body, http.StatusOK, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *apiClient) action(ctx context.Context, id, action string) (*engine.Snapshot, error) {
	var snap engine.Snapshot
	body := handlers.ActionRequest{Action: action}
	if err := c.do(ctx, http.MethodPost, "/v1/game/"+url.PathEscape(id)+"/action", body, http.StatusOK, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *apiClient) endGame(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/game/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

// storyPDF downloads the story export.
func (c *apiClient) storyPDF(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/game/"+url.PathEscape(id)+"/story.pdf", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, &apiErr.Body); err != nil || apiErr.Body.Error == "" {
		apiErr.Body.Error = string(body)
	}
	return apiErr
}

// playerMessage is the text shown to the player for err.
func playerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return engine.TurnFailureMessage
}

// listenEvents streams the game's Server-Sent Events into eventChan until
// ctx ends or the server closes the stream.
func (c *apiClient) listenEvents(ctx context.Context, id string, eventChan chan<- events.Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/game/"+url.PathEscape(id)+"/events", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	current := events.Event{GameID: id}
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Empty line signals end of event
			if current.Type != "" {
				select {
				case eventChan <- current:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			current = events.Event{GameID: id}
		case strings.HasPrefix(line, "event: "):
			current.Type = events.EventType(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			var data map[string]any
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data); err == nil {
				current.Data = data
			}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error reading event stream: %w", err)
	}
	return nil
}
