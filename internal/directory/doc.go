// Package directory provides the room and sensor inventory for Domovox.
//
// Rooms own a base MQTT topic; each sensor's topic is derived from its
// room's topic, its name, and its type. The package exposes a Repository
// interface with a SQLite implementation, plus a Service layer that keeps
// the broker session's subscriptions in step with the inventory: creating
// a sensor subscribes its topic, deleting one unsubscribes it.
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use from multiple goroutines
// (SQLite WAL mode + connection pooling).
package directory
