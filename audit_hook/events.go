package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionTaskStarted   = "task.started"
	ActionTaskCompleted = "task.completed"
	ActionTaskFailed    = "task.failed"
	ActionApplied       = "action.applied"
)

// Audit event categories group related actions.
const (
	CategoryTask   = "taskapi.task"
	CategoryAction = "taskapi.action"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceTask  = "task"
	ResourceThing = "thing"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionTaskStarted,
		ActionTaskCompleted,
		ActionTaskFailed,
		ActionApplied,
	}
}
