package mqtt

import (
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/domovox/domovox-core/internal/infrastructure/config"
)

// fakeToken implements pahomqtt.Token with a preset outcome.
type fakeToken struct {
	err      error
	timedOut bool
}

func (t *fakeToken) Wait() bool                     { return !t.timedOut }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timedOut }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeMessage implements pahomqtt.Message for driving the route handler.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// publishRecord captures one Publish call on the fake client.
type publishRecord struct {
	topic   string
	payload string
}

// fakeClient implements pahomqtt.Client without any network I/O.
// Its connected flag is flipped directly by tests.
type fakeClient struct {
	mu         sync.Mutex
	connected  bool
	published  []publishRecord
	subscribed []string
	unsubbed   []string

	// Preset outcomes for the next operations.
	publishErr     error
	subscribeErr   error
	unsubscribeErr error
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *fakeClient) Connect() pahomqtt.Token {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload any) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return &fakeToken{err: c.publishErr}
	}
	var body string
	switch p := payload.(type) {
	case []byte:
		body = string(p)
	case string:
		body = p
	}
	c.published = append(c.published, publishRecord{topic: topic, payload: body})
	return &fakeToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, _ pahomqtt.MessageHandler) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribeErr != nil {
		return &fakeToken{err: c.subscribeErr}
	}
	c.subscribed = append(c.subscribed, topic)
	return &fakeToken{}
}

func (c *fakeClient) SubscribeMultiple(filters map[string]byte, handler pahomqtt.MessageHandler) pahomqtt.Token {
	for topic := range filters {
		c.Subscribe(topic, filters[topic], handler)
	}
	return &fakeToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsubscribeErr != nil {
		return &fakeToken{err: c.unsubscribeErr}
	}
	c.unsubbed = append(c.unsubbed, topics...)
	return &fakeToken{}
}

func (c *fakeClient) AddRoute(string, pahomqtt.MessageHandler) {}

func (c *fakeClient) OptionsReader() pahomqtt.ClientOptionsReader {
	return pahomqtt.ClientOptionsReader{}
}

func (c *fakeClient) publishedRecords() []publishRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]publishRecord, len(c.published))
	copy(out, c.published)
	return out
}

// testSession builds a Session around a fake client, connected by default.
func testSession(fake *fakeClient) *Session {
	s := newSession(fake, config.MQTTConfig{QoS: 1})
	if fake.IsConnected() {
		s.setConnected(true)
	}
	return s
}
