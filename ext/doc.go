// Package ext defines the extension system for the task engine.
//
// Extensions are notified of lifecycle events and can react to them —
// recording metrics, emitting webhooks, writing audit logs, etc.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnTaskCompleted(ctx context.Context, t *task.Task, elapsed time.Duration) error {
//	    log.Printf("%s completed in %s", t.Discriminator(), elapsed)
//	    return nil
//	}
//
// # Task Lifecycle Hooks
//
//   - [TaskStarted] — the engine began executing a decoded task
//   - [TaskCompleted] — the task finished with a result sequence
//   - [TaskFailed] — the task failed as a whole (request-level error)
//   - [ActionApplied] — one mutating action succeeded
//   - [Shutdown] — the gateway is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
