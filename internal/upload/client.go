// Package upload is the client side of the sync server: it pushes workout
// snapshots and single sets, and reads stored workouts back.
package upload

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

	"github.com/claude/repflow/internal/models"
)

// ErrNotFound is returned by FetchWorkout when the server has no record.
var ErrNotFound = errors.New("not found on server")

// Client sends data to the sync server over HTTP. Each call is a single
// attempt; callers decide whether to try again.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new HTTP client for the sync server.
func NewClient(serverURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// SaveFullWorkout pushes the whole workout subtree.
func (c *Client) SaveFullWorkout(ctx context.Context, tree models.WorkoutTree, memberID string) error {
	body := models.WorkoutSnapshot{MemberID: memberID, Tree: tree, SentAt: c.now().UTC()}
	path := "/api/v1/workouts/" + url.PathEscape(tree.Workout.ID) + "/snapshot"
	_, err := c.post(ctx, path, body)
	return err
}

// SaveSet pushes one set.
func (c *Client) SaveSet(ctx context.Context, set models.ExerciseSet, workoutID, memberID string) error {
	body := models.SetUpdate{MemberID: memberID, WorkoutID: workoutID, Set: set, SentAt: c.now().UTC()}
	_, err := c.post(ctx, "/api/v1/sets/"+url.PathEscape(set.ID), body)
	return err
}

// FetchWorkout reads the server's copy of a workout.
func (c *Client) FetchWorkout(ctx context.Context, workoutID string) (*models.StoredWorkout, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.serverURL+"/api/v1/workouts/"+url.PathEscape(workoutID), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching workout %s: %w", workoutID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("workout %s: %w", workoutID, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch failed (status %d): %s", resp.StatusCode, body)
	}

	var out models.StoredWorkout
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding workout: %w", err)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, v any) (*models.PushResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push failed (status %d): %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	var res models.PushResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decoding push result: %w", err)
	}
	return &res, nil
}
