// Package mqtt provides the broker session manager for Domovox Core.
//
// This package manages:
//   - One logical connection to the MQTT broker (TLS, username/password)
//   - Connection-aware publish, subscribe, and unsubscribe primitives
//   - A topic registry tracking the intended subscription set
//   - Fan-out of inbound messages to registered listeners
//   - A diagnostic global listener on the universal wildcard topic
//
// # Connection semantics
//
// Connect waits a bounded time for the broker's acknowledgement. If the
// wait elapses without a terminal error the session is returned in a
// "not yet connected" state rather than failing: the underlying transport
// keeps retrying, subscribe calls defer themselves until the connection is
// up, and publish calls fail fast with ErrNotConnected.
//
// Subscriptions are restored automatically after a reconnect from the
// topic registry.
//
// # Usage
//
//	session, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	remove := session.OnMessage(func(msg mqtt.Message) {
//	    log.Printf("received: %s = %s", msg.Topic, msg.Payload)
//	})
//	defer remove()
//
//	if err := session.Subscribe("salon/lampe/light"); err != nil {
//	    log.Fatal(err)
//	}
package mqtt
