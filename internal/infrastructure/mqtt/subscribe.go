package mqtt

import (
	"fmt"
)

// Subscribe registers interest in a topic and issues the broker subscribe.
//
// If the session is not yet connected, the topic is recorded and the
// call returns immediately; the broker subscribe is issued from the
// registry on (re)connect. The call never blocks on connection state.
// Once connected, the broker's own rejection (if any) is returned to
// this caller.
//
// Subscribing to an already-subscribed topic is idempotent from the
// caller's point of view.
//
// Topics may include MQTT wildcards:
//   - + matches one level: "salon/+/light"
//   - # matches all remaining levels: "salon/#"
func (s *Session) Subscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	// Track before issuing so a reconnect during the round-trip still
	// restores the topic; untrack again if the broker rejects it.
	s.registry.Add(topic)

	if !s.IsConnected() {
		s.getLogger().Warn("not connected, subscribe deferred until reconnect",
			"topic", topic)
		return nil
	}

	token := s.client.Subscribe(topic, s.qos(), s.route)
	if !token.WaitTimeout(opTimeout) {
		s.registry.Remove(topic)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, opTimeout)
	}
	if err := token.Error(); err != nil {
		s.registry.Remove(topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

// Unsubscribe removes a subscription and stops delivery for the topic.
//
// When the session is not connected there is nothing to tear down on the
// broker side: the topic is dropped from the registry and the call
// succeeds as a no-op.
//
// Any messages already in flight may still be delivered to listeners.
func (s *Session) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	s.registry.Remove(topic)

	if !s.IsConnected() {
		s.getLogger().Warn("not connected, nothing to unsubscribe", "topic", topic)
		return nil
	}

	token := s.client.Unsubscribe(topic)
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, opTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}
