package live

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/engine"
	"github.com/quillboard/taskapi/scope"
	"github.com/quillboard/taskapi/stream"
)

// Handler dispatches protocol frames to engine operations.
type Handler struct {
	eng    *engine.Engine
	broker *stream.Broker
	logger *slog.Logger

	// conns is set by the server so stats can report connection counts.
	conns *ConnectionManager
}

// NewHandler creates a new live-protocol method handler.
func NewHandler(eng *engine.Engine, broker *stream.Broker, logger *slog.Logger) *Handler {
	return &Handler{eng: eng, broker: broker, logger: logger}
}

// Handle processes a single request frame and returns a response.
func (h *Handler) Handle(ctx context.Context, frame *Frame, conn *Connection) *Frame {
	// Inject site scope from connection identity.
	if conn.Identity != nil {
		ctx = scope.Restore(ctx, conn.Identity.SiteID)
	}

	switch frame.Method {
	case MethodTaskGet:
		return h.handleTask(ctx, frame, "getQuery")
	case MethodTaskList:
		return h.handleTask(ctx, frame, "listQuery")
	case MethodTaskSearch:
		return h.handleTask(ctx, frame, "searchQuery")
	case MethodTaskDo:
		return h.handleTask(ctx, frame, "doActions")
	case MethodTaskRun:
		return h.handleTask(ctx, frame, "runQueries")
	case MethodSubscribe:
		return h.handleSubscribe(frame)
	case MethodUnsubscribe:
		return h.handleUnsubscribe(frame)
	case MethodStats:
		return h.handleStats(frame)
	default:
		return NewErrorFrame(frame.ID, ErrCodeMethodNotFound, "unknown method: "+frame.Method)
	}
}

// mustResponseFrame creates a response frame, returning an error frame on marshal failure.
func mustResponseFrame(frameID string, data any) *Frame {
	resp, err := NewResponseFrame(frameID, data)
	if err != nil {
		return NewErrorFrame(frameID, ErrCodeInternal, "marshal response: "+err.Error())
	}
	return resp
}

// handleTask wraps the frame data in the named task envelope and runs it
// through the engine. The response frame carries the task's full result.
func (h *Handler) handleTask(ctx context.Context, frame *Frame, envelope string) *Frame {
	if len(frame.Data) == 0 {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "missing task body")
	}
	if !json.Valid(frame.Data) {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid task body")
	}

	body, err := json.Marshal(map[string]json.RawMessage{envelope: frame.Data})
	if err != nil {
		return NewErrorFrame(frame.ID, ErrCodeInternal, "marshal task: "+err.Error())
	}

	resp, err := h.eng.Execute(ctx, body)
	if err != nil {
		re := taskapi.AsRequestError(err)
		errFrame := NewErrorFrame(frame.ID, re.Status, re.Message)
		errFrame.Error.Details = string(re.Code)
		return errFrame
	}

	return mustResponseFrame(frame.ID, resp)
}

func (h *Handler) handleSubscribe(frame *Frame) *Frame {
	var req SubscribeRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}

	if err := stream.ValidateTopic(req.Channel); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, err.Error())
	}

	// Actual subscription is done in the server loop after response is sent.
	return mustResponseFrame(frame.ID, map[string]string{
		"channel": req.Channel,
		"status":  "subscribed",
	})
}

func (h *Handler) handleUnsubscribe(frame *Frame) *Frame {
	var req UnsubscribeRequest
	if err := json.Unmarshal(frame.Data, &req); err != nil {
		return NewErrorFrame(frame.ID, ErrCodeBadRequest, "invalid request: "+err.Error())
	}

	// Actual unsubscription is done in the server loop after response is sent.
	return mustResponseFrame(frame.ID, map[string]string{
		"channel": req.Channel,
		"status":  "unsubscribed",
	})
}

func (h *Handler) handleStats(frame *Frame) *Frame {
	stats := map[string]any{
		"broker":      h.broker.Stats(),
		"connections": 0,
	}
	if h.conns != nil {
		stats["connections"] = h.conns.Count()
		stats["connections_by_site"] = h.conns.CountBySite()
	}
	return mustResponseFrame(frame.ID, stats)
}
