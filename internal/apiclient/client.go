// Package apiclient talks to the trade radar HTTP API and implements the
// collaborator interfaces of the radar and negotiation packages on top of it.
package apiclient

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
	"time"

	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/models"
	"traderadar/backend/internal/negotiation"
)

// Client is an authenticated API client for one user.
type Client struct {
	BaseURL string
	Token   string
	UserID  string
	HTTP    *http.Client
}

// New creates a Client. timeout bounds every request.
func New(baseURL, token, userID string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		UserID:  userID,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do sends a JSON request and decodes a JSON response into out (when not nil).
// Non-2xx responses become failure kinds: 400/404 Validation, 409 Conflict,
// 502 Permanent, everything else Transient.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return failure.TransientErr(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e apiError
		_ = json.NewDecoder(resp.Body).Decode(&e)
		cause := &statusError{Method: method, Path: path, Code: resp.StatusCode, Message: e.Message}
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized:
			return &failure.Error{Kind: failure.Validation, Op: op, Err: cause}
		case http.StatusConflict:
			return failure.ConflictErr(op, cause)
		case http.StatusBadGateway:
			return failure.PermanentErr(op, cause)
		default:
			return failure.TransientErr(op, cause)
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return failure.PermanentErr(op, errors.New("empty response body"))
		}
		return failure.PermanentErr(op, fmt.Errorf("decode: %w", err))
	}
	return nil
}

// statusError is a non-2xx reply; it stays reachable through errors.As so
// callers can tell a missing resource from a rejected request.
type statusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Register creates a user and returns an authenticated client for it.
func Register(ctx context.Context, baseURL, displayName string, timeout time.Duration) (*Client, error) {
	c := New(baseURL, "", "", timeout)
	var resp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, "register", http.MethodPost, "/auth/token",
		map[string]string{"display_name": displayName}, &resp); err != nil {
		return nil, err
	}
	c.Token, c.UserID = resp.Token, resp.UserID
	return c, nil
}

// Lists

func (c *Client) list(ctx context.Context, userID string, kind models.ListKind) ([]models.TradeListEntry, error) {
	path := "/lists/" + string(kind)
	if userID != c.UserID {
		path = "/users/" + url.PathEscape(userID) + path
	}
	var entries []models.TradeListEntry
	err := c.do(ctx, "get "+string(kind)+" list", http.MethodGet, path, nil, &entries)
	return entries, err
}

func (c *Client) WantList(ctx context.Context, userID string) ([]models.TradeListEntry, error) {
	return c.list(ctx, userID, models.WantList)
}

func (c *Client) HaveList(ctx context.Context, userID string) ([]models.TradeListEntry, error) {
	return c.list(ctx, userID, models.HaveList)
}

// RemoveEntries removes cards from the caller's list. Only the caller's own
// lists can be changed; userID must be the client's user.
func (c *Client) RemoveEntries(ctx context.Context, userID string, cardIDs []string, kind models.ListKind) error {
	if userID != c.UserID {
		return failure.ValidationErr("remove list entries", "cannot change another user's list")
	}
	return c.do(ctx, "remove list entries", http.MethodDelete, "/lists/"+string(kind),
		map[string][]string{"card_ids": cardIDs}, nil)
}

func (c *Client) AddListEntry(ctx context.Context, kind models.ListKind, entry models.TradeListEntry) error {
	return c.do(ctx, "add list entry", http.MethodPost, "/lists/"+string(kind), entry, nil)
}

// Location and candidate pool

func (c *Client) SetLocation(ctx context.Context, coord geo.Coordinate) error {
	return c.do(ctx, "set location", http.MethodPut, "/location", coord, nil)
}

// CurrentLocation returns the last reported position, or nil when the server
// has none.
func (c *Client) CurrentLocation(ctx context.Context) (*geo.Coordinate, error) {
	var coord geo.Coordinate
	err := c.do(ctx, "get location", http.MethodGet, "/location", nil, &coord)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coord, nil
}

func (c *Client) StartScanning(ctx context.Context) error {
	return c.do(ctx, "start scanning", http.MethodPost, "/scan", nil, nil)
}

func (c *Client) StopScanning(ctx context.Context) error {
	return c.do(ctx, "stop scanning", http.MethodDelete, "/scan", nil, nil)
}

func (c *Client) NearbyUsers(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := c.do(ctx, "nearby users", http.MethodGet, "/nearby", nil, &profiles)
	return profiles, err
}

// Sessions

func (c *Client) Sessions(ctx context.Context) ([]models.SessionSummary, error) {
	var out []models.SessionSummary
	err := c.do(ctx, "list sessions", http.MethodGet, "/sessions", nil, &out)
	return out, err
}

func (c *Client) OpenSession(ctx context.Context, req negotiation.OpenRequest) (models.NegotiationSession, error) {
	var s models.NegotiationSession
	err := c.do(ctx, "open session", http.MethodPost, "/sessions", req, &s)
	return s, err
}

func (c *Client) Poll(ctx context.Context, sessionID string) (models.Snapshot, error) {
	var snap models.Snapshot
	err := c.do(ctx, "poll", http.MethodGet, "/sessions/"+url.PathEscape(sessionID)+"/messages", nil, &snap)
	return snap, err
}

func (c *Client) Send(ctx context.Context, sessionID, content string) error {
	return c.do(ctx, "send", http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/messages",
		map[string]string{"content": content}, nil)
}

func (c *Client) Complete(ctx context.Context, sessionID string) error {
	return c.do(ctx, "complete", http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/complete", nil, nil)
}

func (c *Client) Cancel(ctx context.Context, sessionID, reason string) error {
	return c.do(ctx, "cancel", http.MethodPost, "/sessions/"+url.PathEscape(sessionID)+"/cancel",
		map[string]string{"reason": reason}, nil)
}

// Matches fetches the server-side match computation.
func (c *Client) Matches(ctx context.Context) ([]models.Match, error) {
	var out []models.Match
	err := c.do(ctx, "matches", http.MethodGet, "/matches", nil, &out)
	return out, err
}
