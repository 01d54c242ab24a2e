package api

import (
	"encoding/json"
	"net/http"

	"github.com/xraph/forge"

	"github.com/quillboard/taskapi"
)

// GetRequest is the wire envelope for the get endpoint.
type GetRequest struct {
	GetQuery json.RawMessage `json:"getQuery"`
}

// ListRequest is the wire envelope for the list endpoint.
type ListRequest struct {
	ListQuery json.RawMessage `json:"listQuery"`
}

// SearchRequest is the wire envelope for the search endpoint.
type SearchRequest struct {
	SearchQuery json.RawMessage `json:"searchQuery"`
}

// DoRequest is the wire envelope for the do endpoint.
type DoRequest struct {
	DoActions json.RawMessage `json:"doActions"`
}

// QueryRequest is the wire envelope for the multi-query endpoint.
type QueryRequest struct {
	RunQueries json.RawMessage `json:"runQueries"`
}

// PingResponse is the ping endpoint's body.
type PingResponse struct {
	OK bool `json:"ok"`
}

func (a *API) handleGet(ctx forge.Context) error {
	var req GetRequest
	if err := ctx.Bind(&req); err != nil {
		return writeError(ctx, taskapi.BadRequestf("invalid request body: %v", err))
	}
	if req.GetQuery == nil {
		return writeError(ctx, taskapi.BadRequestf("missing getQuery"))
	}
	return a.execute(ctx, req)
}

func (a *API) handleList(ctx forge.Context) error {
	var req ListRequest
	if err := ctx.Bind(&req); err != nil {
		return writeError(ctx, taskapi.BadRequestf("invalid request body: %v", err))
	}
	if req.ListQuery == nil {
		return writeError(ctx, taskapi.BadRequestf("missing listQuery"))
	}
	return a.execute(ctx, req)
}

func (a *API) handleSearch(ctx forge.Context) error {
	var req SearchRequest
	if err := ctx.Bind(&req); err != nil {
		return writeError(ctx, taskapi.BadRequestf("invalid request body: %v", err))
	}
	if req.SearchQuery == nil {
		return writeError(ctx, taskapi.BadRequestf("missing searchQuery"))
	}
	return a.execute(ctx, req)
}

func (a *API) handleDo(ctx forge.Context) error {
	var req DoRequest
	if err := ctx.Bind(&req); err != nil {
		return writeError(ctx, taskapi.BadRequestf("invalid request body: %v", err))
	}
	if req.DoActions == nil {
		return writeError(ctx, taskapi.BadRequestf("missing doActions"))
	}
	return a.execute(ctx, req)
}

func (a *API) handleQuery(ctx forge.Context) error {
	var req QueryRequest
	if err := ctx.Bind(&req); err != nil {
		return writeError(ctx, taskapi.BadRequestf("invalid request body: %v", err))
	}
	if req.RunQueries == nil {
		return writeError(ctx, taskapi.BadRequestf("missing runQueries"))
	}
	return a.execute(ctx, req)
}

func (a *API) handlePing(ctx forge.Context) error {
	if err := a.eng.Gateway().Store().Ping(ctx.Context()); err != nil {
		return writeError(ctx, taskapi.Internalf("store unreachable: %v", err))
	}
	return ctx.JSON(http.StatusOK, PingResponse{OK: true})
}

// execute re-serializes the bound envelope and runs it through the engine.
// The engine's decoder stays the single authority on task shape; the
// endpoints only guarantee the right discriminator is present.
func (a *API) execute(ctx forge.Context, envelope any) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return writeError(ctx, taskapi.Internalf("encode task: %v", err))
	}
	resp, err := a.eng.Execute(ctx.Context(), body)
	if err != nil {
		return writeError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// writeError renders a whole-request failure as a single error envelope.
func writeError(ctx forge.Context, err error) error {
	re := taskapi.AsRequestError(err)
	return ctx.Status(re.Status).JSON(struct {
		Error *taskapi.RequestError `json:"error"`
	}{re})
}
