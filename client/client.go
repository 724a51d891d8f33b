// Package client is a small Go client for the messaging service HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"messaging-service/internal/models"
)

// Client talks to a messaging-service instance. The zero value is not
// usable; construct with New.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client for the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken installs the bearer token used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

type authResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates an account and stores the returned token on the client.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (models.User, error) {
	var out authResult
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email":        email,
		"password":     password,
		"display_name": displayName,
	}, &out)
	if err != nil {
		return models.User{}, err
	}
	c.token = out.Token
	return out.User, nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	var out authResult
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return models.User{}, err
	}
	c.token = out.Token
	return out.User, nil
}

// SendDirect sends a direct message.
func (c *Client) SendDirect(ctx context.Context, recipientID, content string) error {
	return c.do(ctx, http.MethodPost, "/messages", map[string]any{
		"content":      content,
		"is_direct":    true,
		"recipient_id": recipientID,
	}, nil)
}

// SendToGroup sends a group message.
func (c *Client) SendToGroup(ctx context.Context, groupID, content string) error {
	return c.do(ctx, http.MethodPost, "/messages", map[string]any{
		"content":   content,
		"is_direct": false,
		"group_id":  groupID,
	}, nil)
}

// GroupMessages fetches the newest page of a group's messages.
func (c *Client) GroupMessages(ctx context.Context, groupID string) ([]models.GroupMessage, error) {
	var out struct {
		Messages []models.GroupMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages/group/"+groupID, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// DirectMessages fetches the newest page of the caller's direct messages.
func (c *Client) DirectMessages(ctx context.Context) ([]models.DirectMessage, error) {
	var out struct {
		Messages []models.DirectMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages/direct", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
