package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quillboard/taskapi/live"
	"github.com/quillboard/taskapi/task"
)

// GetQuery looks up things by exact reference.
type GetQuery struct {
	GetWhat    string          `json:"getWhat"`
	GetRefs    []string        `json:"getRefs"`
	InclFields map[string]bool `json:"inclFields,omitempty"`
}

// ListQuery scans a listing index.
type ListQuery struct {
	ListWhat               string          `json:"listWhat"`
	LookWhere              *task.LookWhere `json:"lookWhere,omitempty"`
	Filter                 *task.Filter    `json:"filter,omitempty"`
	SortOrder              string          `json:"sortOrder,omitempty"`
	ExactPrefix            string          `json:"exactPrefix,omitempty"`
	Limit                  int             `json:"limit,omitempty"`
	InclFields             map[string]bool `json:"inclFields,omitempty"`
	ContinueAtScrollCursor string          `json:"continueAtScrollCursor,omitempty"`
}

// SearchQuery runs a free-text search.
type SearchQuery struct {
	Freetext               string          `json:"freetext"`
	FindWhat               string          `json:"findWhat,omitempty"`
	LookWhere              *task.LookWhere `json:"lookWhere,omitempty"`
	Limit                  int             `json:"limit,omitempty"`
	InclFields             map[string]bool `json:"inclFields,omitempty"`
	ContinueAtScrollCursor string          `json:"continueAtScrollCursor,omitempty"`
}

// Action is one mutating action in a doActions batch.
type Action struct {
	AsWho  string `json:"asWho"`
	DoWhat string `json:"doWhat"`
	Reason string `json:"reason,omitempty"`
	DoHow  any    `json:"doHow"`
}

// GetResult is the response to a get query.
type GetResult struct {
	Origin       string            `json:"origin,omitempty"`
	ThingsOrErrs []json.RawMessage `json:"thingsOrErrs"`
}

// ListResult is the response to a list or search query.
type ListResult struct {
	Origin       string           `json:"origin,omitempty"`
	ThingsFound  []map[string]any `json:"thingsFound"`
	ScrollCursor string           `json:"scrollCursor,omitempty"`
}

// ActionResult is one slot in a doActions response.
type ActionResult struct {
	OK    bool            `json:"ok,omitempty"`
	Ref   string          `json:"ref,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

// DoResult is the response to a doActions batch.
type DoResult struct {
	Results []ActionResult `json:"results"`
}

// Get looks up things by exact reference on the remote engine.
func (c *Client) Get(ctx context.Context, q GetQuery) (*GetResult, error) {
	resp, err := c.request(ctx, live.MethodTaskGet, q)
	if err != nil {
		return nil, err
	}
	var result GetResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal get response: %w", err)
	}
	return &result, nil
}

// List runs a listing query on the remote engine.
func (c *Client) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	resp, err := c.request(ctx, live.MethodTaskList, q)
	if err != nil {
		return nil, err
	}
	var result ListResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal list response: %w", err)
	}
	return &result, nil
}

// Search runs a free-text search on the remote engine.
func (c *Client) Search(ctx context.Context, q SearchQuery) (*ListResult, error) {
	resp, err := c.request(ctx, live.MethodTaskSearch, q)
	if err != nil {
		return nil, err
	}
	var result ListResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal search response: %w", err)
	}
	return &result, nil
}

// Do runs an ordered batch of mutating actions on the remote engine.
func (c *Client) Do(ctx context.Context, actions ...Action) (*DoResult, error) {
	resp, err := c.request(ctx, live.MethodTaskDo, actions)
	if err != nil {
		return nil, err
	}
	var result DoResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal do response: %w", err)
	}
	return &result, nil
}

// Run submits a raw runQueries batch and returns the raw sub-results.
// Use this for mixed multi-task requests; each slot is either a full
// sub-response or an error envelope.
func (c *Client) Run(ctx context.Context, queries json.RawMessage) (json.RawMessage, error) {
	resp, err := c.request(ctx, live.MethodTaskRun, queries)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}
