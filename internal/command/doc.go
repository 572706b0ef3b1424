// Package command turns transcribed French voice commands into device
// payloads on the broker.
//
// Resolution walks the text in a fixed order: target room first, then
// action, then device type, then an optional value. Off-keywords are
// checked before every other action so "éteins la lumière" never reads
// as "on" via a stray keyword. The dispatcher then fans the resolved
// command out to every matching sensor in the room.
package command
