// Package simulation emits synthetic sensor telemetry onto the broker.
//
// The Scheduler runs at most one task per device ID: starting a task for
// a device that already has one replaces it. Each task publishes a
// generated reading on a fixed interval until stopped. Generators are
// chosen by sensor type and produce plausible values (temperature in
// degrees Celsius, humidity in percent).
//
// The Discovery loop periodically scans the inventory and starts tasks
// for sensor types that should always be emitting. It only ever starts
// missing tasks; running ones are left alone.
package simulation
