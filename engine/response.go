package engine

import (
	"encoding/json"

	"github.com/quillboard/taskapi"
)

// Response is the executed form of one task. Exactly one result field is
// populated, matching the task variant that produced it:
//
//   - ThingsOrErrs: get — one slot per requested ref.
//   - ThingsFound:  list and search — projected items in index order, with
//     Cursor set when more results may exist.
//   - Results:      doActions — one slot per action.
//   - Queries:      runQueries — one sub-result per sub-task.
type Response struct {
	Origin       string
	ThingsOrErrs []taskapi.ResultSlot
	ThingsFound  []map[string]any
	Cursor       string
	Results      []taskapi.ResultSlot
	Queries      []SubResult
}

// SubResult is one position in a multi-task response: either the sub-task's
// full response or its request-level error envelope.
type SubResult struct {
	Response *Response
	Err      *taskapi.RequestError
}

// MarshalJSON renders the sub-result either as the sub-response object or
// as an error envelope.
func (s SubResult) MarshalJSON() ([]byte, error) {
	if s.Err != nil {
		return json.Marshal(struct {
			Error *taskapi.RequestError `json:"error"`
		}{s.Err})
	}
	return json.Marshal(s.Response)
}

// MarshalJSON renders the response in its wire form.
func (r *Response) MarshalJSON() ([]byte, error) {
	switch {
	case r.Queries != nil:
		return json.Marshal(struct {
			Results []SubResult `json:"results"`
		}{r.Queries})
	case r.Results != nil:
		return json.Marshal(struct {
			Results []taskapi.ResultSlot `json:"results"`
		}{r.Results})
	case r.ThingsOrErrs != nil:
		return json.Marshal(struct {
			Origin       string               `json:"origin,omitempty"`
			ThingsOrErrs []taskapi.ResultSlot `json:"thingsOrErrs"`
		}{r.Origin, r.ThingsOrErrs})
	default:
		return json.Marshal(struct {
			Origin      string           `json:"origin,omitempty"`
			ThingsFound []map[string]any `json:"thingsFound"`
			Cursor      string           `json:"scrollCursor,omitempty"`
		}{r.Origin, r.ThingsFound, r.Cursor})
	}
}
