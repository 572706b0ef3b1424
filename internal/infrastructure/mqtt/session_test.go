package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// ============================================================
// Message fan-out
// ============================================================

func TestOnMessageFanOut(t *testing.T) {
	fake := &fakeClient{connected: true}
	s := testSession(fake)

	var mu sync.Mutex
	var first, second []Message

	s.OnMessage(func(msg Message) {
		mu.Lock()
		first = append(first, msg)
		mu.Unlock()
	})
	s.OnMessage(func(msg Message) {
		mu.Lock()
		second = append(second, msg)
		mu.Unlock()
	})

	s.route(fake, &fakeMessage{topic: "salon/lampe/light", payload: []byte(`{"state":"on"}`)})

	mu.Lock()
	defer mu.Unlock()
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected each listener to receive 1 message, got %d and %d", len(first), len(second))
	}
	if first[0].Topic != "salon/lampe/light" {
		t.Errorf("topic = %q, want salon/lampe/light", first[0].Topic)
	}
	if first[0].Payload != `{"state":"on"}` {
		t.Errorf("payload = %q", first[0].Payload)
	}
}

func TestOnMessageRemove(t *testing.T) {
	fake := &fakeClient{connected: true}
	s := testSession(fake)

	var mu sync.Mutex
	count := 0
	remove := s.OnMessage(func(Message) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	s.route(fake, &fakeMessage{topic: "a", payload: []byte("1")})
	remove()
	s.route(fake, &fakeMessage{topic: "a", payload: []byte("2")})

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("listener called %d times after removal, want 1", count)
	}
}

func TestOnMessagePanicIsolated(t *testing.T) {
	fake := &fakeClient{connected: true}
	s := testSession(fake)

	s.OnMessage(func(Message) { panic("listener bug") })

	var mu sync.Mutex
	got := 0
	s.OnMessage(func(Message) {
		mu.Lock()
		got++
		mu.Unlock()
	})

	// Must not propagate the panic, and the healthy listener still runs.
	s.route(fake, &fakeMessage{topic: "a", payload: []byte("x")})

	mu.Lock()
	defer mu.Unlock()
	if got != 1 {
		t.Errorf("healthy listener called %d times, want 1", got)
	}
}

// ============================================================
// Connection state
// ============================================================

func TestIsConnectedTracksClient(t *testing.T) {
	fake := &fakeClient{connected: true}
	s := testSession(fake)

	if !s.IsConnected() {
		t.Fatal("expected connected")
	}

	fake.Disconnect(0)
	if s.IsConnected() {
		t.Error("expected disconnected after client drop")
	}
}

func TestHandleConnectRestoresSubscriptions(t *testing.T) {
	fake := &fakeClient{connected: true}
	s := testSession(fake)

	if err := s.Subscribe("salon/lampe/light"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := s.Subscribe("cuisine/capteur/temperature"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	fake.mu.Lock()
	fake.subscribed = nil
	fake.mu.Unlock()

	s.handleConnect()

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.subscribed) != 2 {
		t.Fatalf("restored %d subscriptions, want 2: %v", len(fake.subscribed), fake.subscribed)
	}
}

func TestClose(t *testing.T) {
	fake := &fakeClient{connected: true}
	s := testSession(fake)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.IsConnected() {
		t.Error("expected disconnected after Close")
	}
}

// ============================================================
// Global diagnostic listener
// ============================================================

func TestStartGlobalListener(t *testing.T) {
	fake := &fakeClient{connected: true}
	s := testSession(fake)

	if err := s.StartGlobalListener(); err != nil {
		t.Fatalf("StartGlobalListener: %v", err)
	}

	if !s.Subscriptions().Has(TopicAll) {
		t.Error("expected wildcard subscription in registry")
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.subscribed) != 1 || fake.subscribed[0] != TopicAll {
		t.Errorf("subscribed = %v, want [#]", fake.subscribed)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    string
	}{
		{"light topic", "salon/lampe/light", `{}`, "light"},
		{"temperature topic", "salon/capteur/temperature", `{}`, "temperature"},
		{"humidity topic", "cave/sonde/humidity", `{}`, "humidity"},
		{"radiator topic", "chambre/radiator", `{}`, "radiator"},
		{"type field fallback", "salon/x", `{"type":"temperature"}`, "temperature"},
		{"humidity key fallback", "salon/x", `{"humidity":55}`, "humidity"},
		{"non-json payload", "salon/x", `not json`, "other"},
		{"unknown", "salon/x", `{"state":"on"}`, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.topic, tt.payload); got != tt.want {
				t.Errorf("classify(%q, %q) = %q, want %q", tt.topic, tt.payload, got, tt.want)
			}
		})
	}
}

// ============================================================
// Subscribe deferral
// ============================================================

func TestSubscribeDefersUntilConnected(t *testing.T) {
	fake := &fakeClient{}
	s := testSession(fake)

	// While disconnected the call must return immediately: the topic
	// is recorded and the broker subscribe happens on connect. A
	// blocking wait here would wedge callers that subscribe at boot.
	start := time.Now()
	if err := s.Subscribe("salon/lampe/light"); err != nil {
		t.Fatalf("Subscribe while disconnected: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Subscribe blocked for %v while disconnected", elapsed)
	}

	if !s.Subscriptions().Has("salon/lampe/light") {
		t.Fatal("topic missing from registry")
	}
	if len(fake.subscribed) != 0 {
		t.Fatalf("broker subscribe issued while disconnected: %v", fake.subscribed)
	}

	fake.Connect()
	s.handleConnect()

	if len(fake.subscribed) != 1 || fake.subscribed[0] != "salon/lampe/light" {
		t.Errorf("subscriptions after connect = %v", fake.subscribed)
	}
}

func TestSubscribeEmptyTopic(t *testing.T) {
	s := testSession(&fakeClient{connected: true})
	if err := s.Subscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("err = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeBrokerRejection(t *testing.T) {
	fake := &fakeClient{connected: true, subscribeErr: errors.New("not authorized")}
	s := testSession(fake)

	err := s.Subscribe("salon/lampe/light")
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Fatalf("err = %v, want ErrSubscribeFailed", err)
	}
	if s.Subscriptions().Has("salon/lampe/light") {
		t.Error("rejected topic should not remain in registry")
	}
}

func TestUnsubscribeWhileDisconnected(t *testing.T) {
	fake := &fakeClient{connected: true}
	s := testSession(fake)

	if err := s.Subscribe("salon/lampe/light"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	fake.Disconnect(0)
	s.setConnected(false)

	// No broker round-trip: succeeds and drops the registry entry.
	if err := s.Unsubscribe("salon/lampe/light"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if s.Subscriptions().Has("salon/lampe/light") {
		t.Error("topic should be dropped from registry")
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.unsubbed) != 0 {
		t.Errorf("broker unsubscribe issued while disconnected: %v", fake.unsubbed)
	}
}

func TestUnsubscribeConnected(t *testing.T) {
	fake := &fakeClient{connected: true}
	s := testSession(fake)

	if err := s.Subscribe("salon/lampe/light"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := s.Unsubscribe("salon/lampe/light"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.unsubbed) != 1 || fake.unsubbed[0] != "salon/lampe/light" {
		t.Errorf("unsubbed = %v", fake.unsubbed)
	}
}

// ============================================================
// Publish
// ============================================================

func TestPublishFailsFastWhenDisconnected(t *testing.T) {
	s := testSession(&fakeClient{})

	start := time.Now()
	err := s.Publish("salon/lampe/light", []byte(`{"state":"on"}`))
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("publish took %v, want immediate rejection", elapsed)
	}
}

func TestPublishConnected(t *testing.T) {
	fake := &fakeClient{connected: true}
	s := testSession(fake)

	if err := s.Publish("salon/lampe/light", []byte(`{"state":"on"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	recs := fake.publishedRecords()
	if len(recs) != 1 {
		t.Fatalf("published %d messages, want 1", len(recs))
	}
	if recs[0].topic != "salon/lampe/light" || recs[0].payload != `{"state":"on"}` {
		t.Errorf("record = %+v", recs[0])
	}
}

func TestPublishEmptyTopic(t *testing.T) {
	s := testSession(&fakeClient{connected: true})
	if err := s.Publish("", []byte("x")); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("err = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishOversizedPayload(t *testing.T) {
	s := testSession(&fakeClient{connected: true})
	err := s.Publish("salon/lampe/light", make([]byte, maxPayloadSize+1))
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("err = %v, want ErrPublishFailed", err)
	}
}

func TestPublishJSON(t *testing.T) {
	fake := &fakeClient{connected: true}
	s := testSession(fake)

	if err := s.PublishJSON("salon/lampe/light", map[string]string{"state": "off"}); err != nil {
		t.Fatalf("PublishJSON: %v", err)
	}
	recs := fake.publishedRecords()
	if len(recs) != 1 || recs[0].payload != `{"state":"off"}` {
		t.Fatalf("records = %+v", recs)
	}

	// Raw strings pass through untouched.
	if err := s.PublishJSON("salon/lampe/light", "plain"); err != nil {
		t.Fatalf("PublishJSON string: %v", err)
	}
	recs = fake.publishedRecords()
	if recs[1].payload != "plain" {
		t.Errorf("string payload = %q, want plain", recs[1].payload)
	}
}
