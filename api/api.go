// Package api exposes the task engine over HTTP using Forge-style routes.
// Every endpoint accepts one JSON task in the request body and answers
// with the engine's response, so the five routes are thin shells around
// one decode-execute-respond cycle.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/quillboard/taskapi/engine"
)

// API wires the task endpoints together on a Forge router.
type API struct {
	eng    *engine.Engine
	router forge.Router
}

// New creates an API from a task Engine.
func New(eng *engine.Engine, router forge.Router) *API {
	return &API{eng: eng, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	a.RegisterRoutes(a.router)
	return a.router.Handler()
}

// RegisterRoutes registers the task API routes into the given Forge router
// with full OpenAPI metadata.
func (a *API) RegisterRoutes(router forge.Router) {
	g := router.Group("/-/v0", forge.WithGroupTags("tasks"))

	_ = g.POST("/get", a.handleGet,
		forge.WithSummary("Get things"),
		forge.WithDescription("Fetches things by reference, one result slot per ref."),
		forge.WithOperationID("getThings"),
		forge.WithRequestSchema(GetRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Things or per-ref errors", &engine.Response{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/list", a.handleList,
		forge.WithSummary("List things"),
		forge.WithDescription("Lists things of one kind, sorted and cursor-paginated."),
		forge.WithOperationID("listThings"),
		forge.WithRequestSchema(ListRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Things found", &engine.Response{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/search", a.handleSearch,
		forge.WithSummary("Search things"),
		forge.WithDescription("Full-text search over pages and posts."),
		forge.WithOperationID("searchThings"),
		forge.WithRequestSchema(SearchRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Things found, scored", &engine.Response{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/do", a.handleDo,
		forge.WithSummary("Do actions"),
		forge.WithDescription("Runs a batch of actions in order, one result slot per action."),
		forge.WithOperationID("doActions"),
		forge.WithRequestSchema(DoRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Action results", &engine.Response{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/query", a.handleQuery,
		forge.WithSummary("Run queries"),
		forge.WithDescription("Runs several read queries concurrently, results merged by position."),
		forge.WithOperationID("runQueries"),
		forge.WithRequestSchema(QueryRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Per-query results", &engine.Response{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/ping", a.handlePing,
		forge.WithSummary("Ping"),
		forge.WithDescription("Checks that the store behind the engine is reachable."),
		forge.WithOperationID("ping"),
		forge.WithResponseSchema(http.StatusOK, "Pong", PingResponse{}),
		forge.WithErrorResponses(),
	)
}
