package search

import (
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// cursor resumes a ranked result list at an offset. Ranked orders have no
// natural resume key, so the window position is the whole state; the query
// itself is baked in like the list cursor does.
type cursor struct {
	Freetext string          `msgpack:"q"`
	Kind     string          `msgpack:"k"`
	Look     task.LookWhere  `msgpack:"w,omitempty"`
	Incl     map[string]bool `msgpack:"i,omitempty"`
	Offset   int             `msgpack:"o"`
}

func (c *cursor) encode() (string, error) {
	raw, err := msgpack.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("search: encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(token string) (*cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: bad scroll cursor: %v", taskapi.ErrDecode, err)
	}
	var c cursor
	if err := msgpack.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: bad scroll cursor: %v", taskapi.ErrDecode, err)
	}
	if _, err := thing.ParseKind(c.Kind); err != nil {
		return nil, fmt.Errorf("%w: bad scroll cursor kind %q", taskapi.ErrDecode, c.Kind)
	}
	return &c, nil
}
