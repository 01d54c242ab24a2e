// Package audithook is an engine extension that bridges task and action
// lifecycle events to an immutable audit trail backend such as Chronicle.
//
// Every task lifecycle hook and every applied action emits a structured
// audit event through the [Recorder] interface. The extension assigns
// appropriate severity levels (info for normal operations, critical for
// failures) and rich metadata (task kind, elapsed time, actor and subject
// refs, errors).
//
// # Usage with Chronicle
//
//	audithook.New(audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    return chronicle.Info(ctx, evt.Action, evt.Resource, evt.ResourceID).
//	        Category(evt.Category).
//	        Outcome(evt.Outcome).
//	        Record()
//	}))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionTaskFailed,
//	        audithook.ActionApplied,
//	    ),
//	)
package audithook
