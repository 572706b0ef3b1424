package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/domovox/domovox-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// connectWaitTimeout is how long Connect waits for the broker's
	// acknowledgement before proceeding in a "not yet connected" state.
	connectWaitTimeout = 5 * time.Second

	// opTimeout is the maximum time to wait for a broker acknowledgement
	// of a publish, subscribe, or unsubscribe.
	opTimeout = 5 * time.Second

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// defaultDisconnectQuiesce is the wait for pending operations on
	// disconnect, in milliseconds.
	defaultDisconnectQuiesce = 1000
)

// Message is an inbound broker message delivered to listeners.
// Ephemeral: not persisted anywhere.
type Message struct {
	Topic   string
	Payload string
}

// Listener receives every inbound message on any subscribed topic.
// Listeners are invoked from the paho receive goroutine and should not
// block for extended periods.
type Listener func(msg Message)

// Logger is the logging interface the session uses.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards everything; used until SetLogger is called.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Session owns the single logical connection to the MQTT broker and
// provides connection-aware subscribe/unsubscribe/publish primitives plus
// an inbound-message fan-out.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Subscriptions are restored from the registry on reconnection.
type Session struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	// registry tracks the intended subscription set.
	registry *Registry

	// listeners receive every inbound message; keyed for removal.
	listeners  map[int]Listener
	nextListen int
	listenMu   sync.RWMutex

	// connected tracks the current connection state; flipped exactly on
	// connect/disconnect transitions.
	connected bool
	connMu    sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Connect establishes the session to the MQTT broker.
//
// It waits up to 5 seconds for the broker's acknowledgement. If the wait
// elapses without a terminal error, the session is returned in a
// disconnected state and the transport keeps retrying in the background;
// subscribe calls made meanwhile are recorded and issued on connect.
//
// A terminal error (bad credentials, malformed broker address) fails the
// call with ErrConnectionFailed.
func Connect(cfg config.MQTTConfig) (*Session, error) {
	s := newSession(nil, cfg)

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		s.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.handleDisconnect(err)
	})
	opts.SetDefaultPublishHandler(s.route)

	s.client = pahomqtt.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(connectWaitTimeout) {
		// No terminal error within the window: proceed not-yet-connected.
		// The OnConnect handler flips the flag when the broker answers.
		s.getLogger().Warn("broker connection pending, proceeding",
			"host", cfg.Broker.Host,
			"port", cfg.Broker.Port,
		)
		return s, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect callback runs asynchronously and may not have executed
	// yet; set the flag here so IsConnected is true on return.
	s.setConnected(true)

	return s, nil
}

// newSession creates a Session around an existing paho client.
// Connect wires the real client; tests inject a fake one.
func newSession(client pahomqtt.Client, cfg config.MQTTConfig) *Session {
	return &Session{
		client:    client,
		cfg:       cfg,
		registry:  NewRegistry(),
		listeners: make(map[int]Listener),
		logger:    noopLogger{},
	}
}

// handleConnect is called on every successful connect, initial or not.
func (s *Session) handleConnect() {
	s.setConnected(true)

	// Restore the intended subscription set.
	for _, topic := range s.registry.Topics() {
		s.client.Subscribe(topic, s.qos(), s.route)
	}

	s.getLogger().Debug("broker session established",
		"subscriptions", s.registry.Count(),
	)
}

// handleDisconnect is called when the connection is lost. The transport
// reconnects on its own; the error is logged, never surfaced to callers.
func (s *Session) handleDisconnect(err error) {
	s.setConnected(false)
	s.getLogger().Warn("broker connection lost", "error", err)
}

// route fans an inbound paho message out to every registered listener.
// Each listener sees every message exactly once; order across listeners
// is unspecified.
func (s *Session) route(_ pahomqtt.Client, raw pahomqtt.Message) {
	msg := Message{
		Topic:   raw.Topic(),
		Payload: string(raw.Payload()),
	}

	s.listenMu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenMu.RUnlock()

	for _, l := range listeners {
		s.deliver(l, msg)
	}
}

// deliver invokes one listener with panic recovery so a broken listener
// cannot take down the receive loop.
func (s *Session) deliver(l Listener, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			s.getLogger().Error("message listener panic recovered",
				"topic", msg.Topic,
				"panic", r,
			)
		}
	}()
	l(msg)
}

// OnMessage registers a listener invoked for every inbound message on any
// subscribed topic. The returned function deregisters exactly that
// listener; calling it more than once is harmless.
func (s *Session) OnMessage(listener Listener) func() {
	s.listenMu.Lock()
	id := s.nextListen
	s.nextListen++
	s.listeners[id] = listener
	s.listenMu.Unlock()

	return func() {
		s.listenMu.Lock()
		delete(s.listeners, id)
		s.listenMu.Unlock()
	}
}

// StartGlobalListener subscribes to the universal wildcard topic and logs
// every inbound message with a coarse classification (light, temperature,
// humidity, radiator, other).
//
// Diagnostic only: the classification has no effect on dispatch and must
// not be relied upon for correctness.
func (s *Session) StartGlobalListener() error {
	if err := s.Subscribe(TopicAll); err != nil {
		return err
	}

	s.OnMessage(func(msg Message) {
		s.getLogger().Debug("inbound message",
			"kind", classify(msg.Topic, msg.Payload),
			"topic", msg.Topic,
			"payload", msg.Payload,
		)
	})

	return nil
}

// classify buckets a message by topic substring, then by payload shape.
func classify(topic, payload string) string {
	kinds := []string{"light", "temperature", "humidity", "radiator"}

	for _, kind := range kinds {
		if strings.Contains(topic, kind) {
			return kind
		}
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err == nil {
		for _, kind := range kinds {
			if data["type"] == kind {
				return kind
			}
			if _, ok := data[kind]; ok && (kind == "temperature" || kind == "humidity") {
				return kind
			}
		}
	}

	return "other"
}

// Close gracefully disconnects from the broker, waiting briefly for
// pending operations.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}

	s.client.Disconnect(defaultDisconnectQuiesce)
	s.setConnected(false)

	return nil
}

// IsConnected returns the current connection state.
func (s *Session) IsConnected() bool {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.connected && s.client != nil && s.client.IsConnected()
}

// Subscriptions returns the topic registry.
func (s *Session) Subscriptions() *Registry {
	return s.registry
}

// SetLogger sets a logger for connection events and diagnostics.
func (s *Session) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Session) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

func (s *Session) setConnected(v bool) {
	s.connMu.Lock()
	s.connected = v
	s.connMu.Unlock()
}

func (s *Session) qos() byte {
	return byte(s.cfg.QoS)
}

// buildClientOptions creates paho options from Domovox config: broker URL
// (ssl:// when TLS), client ID, credentials, clean session, auto-reconnect
// with backoff, and keepalive.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))

	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetConnectTimeout(connectWaitTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	return opts
}
