package mocks

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/fleetguard/fleetguard/pkg/mqtt"
)

// PubSub is an in-memory broker double for tests. Publish delivers
// synchronously to matching subscriptions after a JSON round trip, so
// handlers see the same map shape they would from the wire.
type PubSub struct {
	mu         sync.Mutex
	published  map[string][]any
	subscribed map[string]mqtt.Handler
}

func NewPubSub() *PubSub {
	return &PubSub{
		published:  make(map[string][]any),
		subscribed: make(map[string]mqtt.Handler),
	}
}

func (m *PubSub) Publish(_ context.Context, topic string, msg any) error {
	m.mu.Lock()
	m.published[topic] = append(m.published[topic], msg)
	handlers := make(map[string]mqtt.Handler, len(m.subscribed))
	for t, h := range m.subscribed {
		handlers[t] = h
	}
	m.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil
	}

	for pattern, h := range handlers {
		if topicMatches(topic, pattern) {
			if err := h(topic, decoded); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *PubSub) Subscribe(_ context.Context, topic string, handler mqtt.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed[topic] = handler

	return nil
}

func (m *PubSub) Unsubscribe(_ context.Context, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribed, topic)

	return nil
}

func (m *PubSub) Disconnect(context.Context) error {
	return nil
}

// Published returns the messages published to a topic, in order.
func (m *PubSub) Published(topic string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]any(nil), m.published[topic]...)
}

func topicMatches(topic, pattern string) bool {
	if pattern == topic || pattern == "#" {
		return true
	}
	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")
	for i, part := range pp {
		if part == "#" {
			return true
		}
		if i >= len(tp) {
			return false
		}
		if part != "+" && part != tp[i] {
			return false
		}
	}

	return len(pp) == len(tp)
}
