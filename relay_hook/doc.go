// Package relayhook bridges task and action lifecycle events to Relay for
// webhook delivery. When registered as an extension, it emits typed webhook
// events (taskapi.task.completed, taskapi.action.applied, etc.) at every
// lifecycle point, so external systems can react to forum activity without
// polling.
//
// Usage:
//
//	r, _ := relay.New(relay.WithStore(store))
//	relayhook.RegisterAll(ctx, r)
//
//	hook := relayhook.New(r)
//	engine.WithExtension(hook)
//
// To restrict which events are emitted:
//
//	hook := relayhook.New(r,
//	    relayhook.WithEvents(
//	        relayhook.EventActionApplied,
//	    ),
//	)
package relayhook
