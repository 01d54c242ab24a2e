package taskapi

import "encoding/json"

// ResultSlot is one position in an ordered response sequence. For an
// N-element input (refs, actions, or sub-tasks) the response is exactly N
// slots, slot i corresponding to input i regardless of completion order.
//
// Exactly one of the payload fields is populated:
//   - Thing: a projected entity (queries, and actions that return one).
//   - Done:  a successful action with no entity payload.
//   - Err:   a per-item failure; siblings are unaffected.
//   - Nested: the full result sequence of a nested batch, recursively.
type ResultSlot struct {
	Thing  map[string]any
	Done   bool
	Ref    string
	Err    *ItemError
	Nested []ResultSlot
}

// OkThing returns a slot carrying a projected entity.
func OkThing(m map[string]any) ResultSlot {
	return ResultSlot{Thing: m}
}

// OkDone returns a slot for a successful action. ref, when non-empty, is the
// reference of the entity the action created or touched.
func OkDone(ref string) ResultSlot {
	return ResultSlot{Done: true, Ref: ref}
}

// ErrSlot returns a per-item error slot.
func ErrSlot(code Code, message string) ResultSlot {
	return ResultSlot{Err: &ItemError{Code: code, Message: message}}
}

// ErrSlotFrom returns a per-item error slot classified from err.
func ErrSlotFrom(err error) ResultSlot {
	return ResultSlot{Err: ItemErrorFrom(err)}
}

// NestedSlot wraps the result sequence of a nested batch.
func NestedSlot(slots []ResultSlot) ResultSlot {
	if slots == nil {
		slots = []ResultSlot{}
	}
	return ResultSlot{Nested: slots}
}

// MarshalJSON renders the slot in its wire form: a projected thing object as
// is, `{"ok":true}` for a bare success, `{"error":{...}}` for a failure, and
// `{"nested":[...]}` for a nested batch.
func (s ResultSlot) MarshalJSON() ([]byte, error) {
	switch {
	case s.Nested != nil:
		return json.Marshal(struct {
			Nested []ResultSlot `json:"nested"`
		}{s.Nested})
	case s.Err != nil:
		return json.Marshal(struct {
			Error *ItemError `json:"error"`
		}{s.Err})
	case s.Thing != nil:
		return json.Marshal(s.Thing)
	default:
		return json.Marshal(struct {
			OK  bool   `json:"ok"`
			Ref string `json:"ref,omitempty"`
		}{true, s.Ref})
	}
}
