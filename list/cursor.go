package list

import (
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/quillboard/taskapi"
	"github.com/quillboard/taskapi/task"
	"github.com/quillboard/taskapi/thing"
)

// Cursor is the decoded form of a scroll token. It bakes in everything that
// shapes the result set — kind, scopes, filter, sort, inclusion — plus the
// position of the last returned element, so a continuation resumes at the
// element immediately following it under the same order. Without a
// store-level snapshot, concurrent mutations may cause skips or duplicates;
// that weak consistency is documented and accepted.
type Cursor struct {
	Kind        string              `msgpack:"k"`
	Sort        string              `msgpack:"s"`
	ExactPrefix string              `msgpack:"p,omitempty"`
	Look        task.LookWhere      `msgpack:"w,omitempty"`
	Filter      task.Filter         `msgpack:"f,omitempty"`
	Incl        map[string]bool     `msgpack:"i,omitempty"`
	After       Position            `msgpack:"a"`
}

// Position names the last returned element: its sort key rendered as a
// string, and its canonical ref as the tie-break.
type Position struct {
	Key string `msgpack:"k"`
	Ref string `msgpack:"r"`
}

// Encode renders the cursor as an opaque URL-safe token.
func (c *Cursor) Encode() (string, error) {
	raw, err := msgpack.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("list: encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor parses a scroll token. A token the server never issued is a
// caller error, so failures wrap taskapi.ErrDecode.
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: bad scroll cursor: %v", taskapi.ErrDecode, err)
	}
	var c Cursor
	if err := msgpack.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: bad scroll cursor: %v", taskapi.ErrDecode, err)
	}
	if _, err := thing.ParseKind(c.Kind); err != nil {
		return nil, fmt.Errorf("%w: bad scroll cursor kind %q", taskapi.ErrDecode, c.Kind)
	}
	return &c, nil
}
