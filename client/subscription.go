package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quillboard/taskapi/live"
	"github.com/quillboard/taskapi/stream"
)

// Subscribe subscribes to a stream topic and returns a channel of events.
// The channel is closed when the client disconnects or Unsubscribe is called.
//
// Topics follow the stream convention:
//   - "subject:<ref>" — action events touching a specific thing
//   - "actor:<ref>"   — action events by a specific participant
//   - "actions"       — all action-applied events
//   - "tasks"         — all task lifecycle events
//   - "firehose"      — everything
func (c *Client) Subscribe(ctx context.Context, channel string) (<-chan *stream.Event, error) {
	// Send subscribe request.
	_, err := c.request(ctx, live.MethodSubscribe, live.SubscribeRequest{
		Channel: channel,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %q: %w", channel, err)
	}

	ch := make(chan *stream.Event, 64)
	c.subs.Store(channel, ch)

	return ch, nil
}

// Unsubscribe removes a subscription.
func (c *Client) Unsubscribe(ctx context.Context, channel string) error {
	_, err := c.request(ctx, live.MethodUnsubscribe, live.UnsubscribeRequest{
		Channel: channel,
	})

	// Close and remove the local channel regardless.
	if val, ok := c.subs.LoadAndDelete(channel); ok {
		ch := val.(chan *stream.Event) //nolint:errcheck // subs map always stores chan *stream.Event
		close(ch)
	}

	return err
}

// WatchSubject subscribes to action events touching one thing, e.g.
// "pageid:110". This is a convenience method that subscribes to
// "subject:<ref>".
func (c *Client) WatchSubject(ctx context.Context, refStr string) (<-chan *stream.Event, error) {
	return c.Subscribe(ctx, stream.SubjectTopic(refStr))
}

// WatchActor subscribes to action events performed by one participant.
func (c *Client) WatchActor(ctx context.Context, refStr string) (<-chan *stream.Event, error) {
	return c.Subscribe(ctx, stream.ActorTopic(refStr))
}

// Stats retrieves broker and connection statistics from the server.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.request(ctx, live.MethodStats, nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}
