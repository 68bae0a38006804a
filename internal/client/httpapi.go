package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"resort-booking-demo/backend/internal/models"
)

// HTTPAPI talks to the chat REST endpoints with a bearer token.
type HTTPAPI struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPAPI returns an API bound to baseURL, e.g. "http://localhost:8080".
func NewHTTPAPI(baseURL, token string) *HTTPAPI {
	return &HTTPAPI{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type ensureResponse struct {
	ConversationID string           `json:"conversationId"`
	History        []models.Message `json:"history"`
}

func (a *HTTPAPI) EnsureConversation(ctx context.Context, displayName string) (string, []models.Message, error) {
	body := map[string]string{}
	if displayName != "" {
		body["displayName"] = displayName
	}
	var out ensureResponse
	if err := a.do(ctx, http.MethodPost, "/api/chat/ensure", body, &out); err != nil {
		return "", nil, err
	}
	return out.ConversationID, out.History, nil
}

func (a *HTTPAPI) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/admin/chat/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (a *HTTPAPI) Conversations(ctx context.Context) ([]models.ConversationSummary, error) {
	var out []models.ConversationSummary
	if err := a.do(ctx, http.MethodGet, "/api/admin/chat/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *HTTPAPI) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var out []models.Message
	path := "/api/admin/chat/conversations/" + conversationID + "/messages"
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *HTTPAPI) Reply(ctx context.Context, conversationID, text string) (*models.Message, error) {
	var out models.Message
	path := "/api/admin/chat/conversations/" + conversationID + "/reply"
	if err := a.do(ctx, http.MethodPost, path, map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
