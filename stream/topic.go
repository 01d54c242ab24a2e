package stream

import (
	"fmt"
	"strings"
	"sync"

	"github.com/quillboard/taskapi/ref"
)

// Topic names follow a pattern:
//
//	subject:<ref>     — action events touching a specific thing
//	actor:<ref>       — action events by a specific participant
//	actions           — all action-applied events
//	tasks             — all task lifecycle events
//	firehose          — everything

const (
	TopicActions  = "actions"
	TopicTasks    = "tasks"
	TopicFirehose = "firehose"
)

// SubjectTopic returns the topic name for a specific thing, e.g.
// "subject:pageid:110".
func SubjectTopic(refStr string) string { return "subject:" + refStr }

// ActorTopic returns the topic name for a specific participant.
func ActorTopic(refStr string) string { return "actor:" + refStr }

// TopicRegistry manages subscriber sets per topic.
// It is safe for concurrent use.
type TopicRegistry struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscriber // topic → subscriberID → subscriber
}

// NewTopicRegistry creates an empty topic registry.
func NewTopicRegistry() *TopicRegistry {
	return &TopicRegistry{
		topics: make(map[string]map[string]*Subscriber),
	}
}

// Subscribe adds a subscriber to a topic. Creates the topic if it
// doesn't exist.
func (tr *TopicRegistry) Subscribe(topic string, sub *Subscriber) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	subs, ok := tr.topics[topic]
	if !ok {
		subs = make(map[string]*Subscriber)
		tr.topics[topic] = subs
	}
	subs[sub.ID()] = sub
	sub.addTopic(topic)
}

// Unsubscribe removes a subscriber from a topic. Cleans up empty topics.
func (tr *TopicRegistry) Unsubscribe(topic, subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	subs, ok := tr.topics[topic]
	if !ok {
		return
	}
	if sub, exists := subs[subscriberID]; exists {
		sub.removeTopic(topic)
		delete(subs, subscriberID)
	}
	if len(subs) == 0 {
		delete(tr.topics, topic)
	}
}

// UnsubscribeAll removes a subscriber from all topics.
func (tr *TopicRegistry) UnsubscribeAll(subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for topic, subs := range tr.topics {
		if sub, ok := subs[subscriberID]; ok {
			sub.removeTopic(topic)
			delete(subs, subscriberID)
		}
		if len(subs) == 0 {
			delete(tr.topics, topic)
		}
	}
}

// Publish sends an event to all subscribers on the given topic.
// Returns the number of subscribers that received the event.
func (tr *TopicRegistry) Publish(topic string, evt *Event) int {
	tr.mu.RLock()
	subs := tr.topics[topic]
	// Copy to avoid holding lock during send.
	targets := make([]*Subscriber, 0, len(subs))
	for _, s := range subs {
		targets = append(targets, s)
	}
	tr.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.send(evt) {
			delivered++
		}
	}
	return delivered
}

// Broadcast sends an event to all subscribers on multiple topics.
// Deduplicates subscribers that are on more than one of the listed topics.
func (tr *TopicRegistry) Broadcast(topics []string, evt *Event) int {
	tr.mu.RLock()
	seen := make(map[string]*Subscriber)
	for _, topic := range topics {
		for id, sub := range tr.topics[topic] {
			seen[id] = sub
		}
	}
	tr.mu.RUnlock()

	delivered := 0
	for _, sub := range seen {
		if sub.send(evt) {
			delivered++
		}
	}
	return delivered
}

// TopicCount returns the number of active topics.
func (tr *TopicRegistry) TopicCount() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.topics)
}

// SubscriberCount returns the number of subscribers on a topic.
func (tr *TopicRegistry) SubscriberCount(topic string) int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.topics[topic])
}

// resolveTopics returns all topics an event should be published to
// based on its type and entity topics.
func resolveTopics(evt *Event, extra ...string) []string {
	topics := []string{TopicFirehose}

	switch {
	case strings.HasPrefix(string(evt.Type), "action."):
		topics = append(topics, TopicActions)
	case strings.HasPrefix(string(evt.Type), "task."):
		topics = append(topics, TopicTasks)
	}

	if evt.Topic != "" {
		topics = append(topics, evt.Topic)
	}
	topics = append(topics, extra...)

	return topics
}

// ParseTopicEntity extracts the entity class and reference from a topic
// string. For example, "subject:pageid:110" returns ("subject",
// "pageid:110"). Returns ("", "") for global topics like "firehose".
func ParseTopicEntity(topic string) (class, refStr string) {
	idx := strings.IndexByte(topic, ':')
	if idx < 0 {
		return "", ""
	}
	return topic[:idx], topic[idx+1:]
}

// ValidateTopic checks whether a topic string is valid.
func ValidateTopic(topic string) error {
	switch topic {
	case TopicActions, TopicTasks, TopicFirehose:
		return nil
	}

	class, refStr := ParseTopicEntity(topic)
	if class == "" || refStr == "" {
		return fmt.Errorf("stream: invalid topic %q", topic)
	}

	switch class {
	case "subject", "actor":
		if _, err := ref.Parse(refStr); err != nil {
			return fmt.Errorf("stream: topic %q: %w", topic, err)
		}
		return nil
	default:
		return fmt.Errorf("stream: unknown topic entity class %q", class)
	}
}
