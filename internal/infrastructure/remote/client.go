// Package remote talks to the portal HTTP API. Client is the remote session
// backend and Directory the remote client list.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the API. It unwraps to the domain error
// the status maps to, if any.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

// UserMessage is the server's explanation, suitable for display.
func (e *APIError) UserMessage() string { return e.Message }

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the API rooted at baseURL (e.g.
// "http://localhost:5000/api"). Every request is bounded by timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User *domain.User `json:"user"`
}

type clientsResponse struct {
	Clients []domain.Client `json:"clients"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	var res ports.AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", "", loginRequest{Email: email, Password: password}, &res, domain.ErrInvalidCredentials)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*ports.AuthResult, error) {
	var res ports.AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/register", "", registerRequest{Name: name, Email: email, Password: password}, &res, nil)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Verify(ctx context.Context, token string) (*domain.User, error) {
	var res userResponse
	if err := c.do(ctx, http.MethodGet, "/auth/verify", token, nil, &res, domain.ErrInvalidToken); err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, errors.New("api: verify response without user")
	}
	return res.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, token string, update domain.ProfileUpdate) (*domain.User, error) {
	var res userResponse
	if err := c.do(ctx, http.MethodPatch, "/users/profile", token, update, &res, domain.ErrNotAuthenticated); err != nil {
		return nil, err
	}
	if res.User == nil {
		return nil, errors.New("api: profile response without user")
	}
	return res.User, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil, domain.ErrInvalidToken)
}

// ListClients fetches the full directory.
func (c *Client) ListClients(ctx context.Context, token string) ([]domain.Client, error) {
	var res clientsResponse
	if err := c.do(ctx, http.MethodGet, "/clients", token, nil, &res, domain.ErrNotAuthenticated); err != nil {
		return nil, err
	}
	return res.Clients, nil
}

// do sends one JSON request. unauthorized is the domain error a 401 maps to
// for this endpoint.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any, unauthorized error) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageResponse
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		return &APIError{Status: resp.StatusCode, Message: msg.Message, kind: statusKind(resp.StatusCode, unauthorized)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", domain.ErrNetwork, path, err)
	}
	return nil
}

func statusKind(status int, unauthorized error) error {
	switch status {
	case http.StatusUnauthorized:
		return unauthorized
	case http.StatusConflict:
		return domain.ErrDuplicateEmail
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.ErrInvalidInput
	}
	return nil
}
