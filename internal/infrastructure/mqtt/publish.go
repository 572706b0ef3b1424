package mqtt

import (
	"encoding/json"
	"fmt"
)

// maxPayloadSize caps outbound payloads at 1MB, aligning with typical
// broker limits.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified topic.
//
// Publishing while disconnected fails fast with ErrNotConnected: telemetry
// and command payloads are time-sensitive, so there are no defer or retry
// semantics. A broker-level rejection is returned to this caller only.
func (s *Session) Publish(topic string, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes",
			ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !s.IsConnected() {
		return ErrNotConnected
	}

	token := s.client.Publish(topic, s.qos(), false, payload)
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, opTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishJSON marshals v and publishes it. Strings pass through unencoded
// so raw text payloads keep their exact bytes.
func (s *Session) PublishJSON(topic string, v any) error {
	if str, ok := v.(string); ok {
		return s.Publish(topic, []byte(str))
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %w", ErrPublishFailed, err)
	}
	return s.Publish(topic, payload)
}
